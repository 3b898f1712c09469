package queue

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/protocol"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

func newError(c echo.Context, err error) error {
	status := utils.HttpStatus(err)
	if status == http.StatusInternalServerError {
		log.Error(c.Request().URL, err)
		log.DebugError(err)
	}
	return c.JSON(status, &protocol.ErrorResponse{Error: err.Error()})
}

func bind(c echo.Context, request interface{}) error {
	if err := c.Bind(request); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}
	return nil
}

// Registers the queue API routes.
func NewHttpHandler(queue *Queue, r *echo.Echo) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewMetricsCollector(queue))
	r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	r.POST("/v1/dequeue", func(c echo.Context) error {
		request := protocol.DequeueRequest{}
		if err := bind(c, &request); err != nil {
			return newError(c, err)
		}

		dequeued, err := queue.DequeueBucket(request.Capabilities, request.WorkerId)
		if err != nil {
			return newError(c, err)
		}

		return c.JSON(http.StatusOK, &protocol.DequeueResponse{Bucket: dequeued})
	})

	r.POST("/v1/result", func(c echo.Context) error {
		request := protocol.ResultRequest{}
		if err := bind(c, &request); err != nil {
			return newError(c, err)
		}

		accepted, err := queue.AcceptResult(request.BucketId, request.Result, request.WorkerId)
		if err != nil {
			return newError(c, err)
		}

		response := &protocol.ResultResponse{
			Result:         accepted.Result,
			RetryBucketIds: []bucket.BucketId{},
		}
		for _, retry := range accepted.Retries {
			response.RetryBucketIds = append(response.RetryBucketIds, retry.Bucket.Id)
		}

		return c.JSON(http.StatusOK, response)
	})

	r.POST("/v1/enqueue", func(c echo.Context) error {
		request := protocol.EnqueueRequest{}
		if err := bind(c, &request); err != nil {
			return newError(c, err)
		}

		enqueued, err := queue.EnqueueBuckets(request.Buckets)
		if err != nil {
			return newError(c, err)
		}

		response := &protocol.EnqueueResponse{BucketIds: []bucket.BucketId{}}
		for _, e := range enqueued {
			response.BucketIds = append(response.BucketIds, e.Bucket.Id)
		}

		return c.JSON(http.StatusOK, response)
	})

	r.POST("/v1/workers/register", func(c echo.Context) error {
		request := protocol.RegisterWorkerRequest{}
		if err := bind(c, &request); err != nil {
			return newError(c, err)
		}

		if err := queue.RegisterWorker(request.WorkerId, request.Capabilities); err != nil {
			return newError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})

	r.POST("/v1/workers/heartbeat", func(c echo.Context) error {
		request := protocol.HeartbeatRequest{}
		if err := bind(c, &request); err != nil {
			return newError(c, err)
		}

		if err := queue.Heartbeat(request.WorkerId, request.BucketIds); err != nil {
			return newError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})

	r.GET("/v1/workers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, &protocol.WorkersResponse{Workers: queue.Workers()})
	})

	r.GET("/v1/workers/:id", func(c echo.Context) error {
		worker, err := queue.Worker(bucket.WorkerId(c.Param("id")))
		if err != nil {
			return newError(c, err)
		}
		return c.JSON(http.StatusOK, worker)
	})

	r.POST("/v1/workers/:id/disable", func(c echo.Context) error {
		if err := queue.DisableWorker(bucket.WorkerId(c.Param("id"))); err != nil {
			return newError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})

	r.POST("/v1/workers/:id/enable", func(c echo.Context) error {
		if err := queue.EnableWorker(bucket.WorkerId(c.Param("id"))); err != nil {
			return newError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})

	r.GET("/v1/results", func(c echo.Context) error {
		return c.JSON(http.StatusOK, &protocol.ResultsResponse{Results: queue.CollectedResults()})
	})
}
