package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/queue"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

// Serves the queue API on the address until the context is cancelled.
func serveHttp(ctx context.Context, q *queue.Queue, uri string) error {
	host, err := utils.ParseHttpUrl(uri)
	if err != nil {
		return err
	}

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.Logger.SetOutput(log.NewLogWriter(log.DebugLevel))
	r.Use(utils.HttpLogger)
	r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	queue.NewHttpHandler(q, r)

	server := &http.Server{
		Addr:    host,
		Handler: gzhttp.GzipHandler(r),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("Listening on http", host)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
