package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/queue"
)

type bucketEvent struct {
	Event           string
	BucketId        string
	WorkerId        string `json:",omitempty"`
	TestDestination string
	Tests           int
	Passed          int    `json:",omitempty"`
	Failed          int    `json:",omitempty"`
	Retried         int    `json:",omitempty"`
	Requirements    string `json:",omitempty"`
	Role            string
}

type DashboardConfig interface {
	GetDashboardUri() string
}

type dashboardHooks struct {
	client http.Client
	config DashboardConfig
	ch     chan *bucketEvent
}

func NewDashboardTelemetryHook(config DashboardConfig) *dashboardHooks {
	hooks := &dashboardHooks{
		config: config,
		ch:     make(chan *bucketEvent, 1000),
	}
	go hooks.run()
	return hooks
}

func (d *dashboardHooks) newEvent(event string, b *bucket.Bucket) *bucketEvent {
	requirements := []string{}
	for _, r := range b.Configuration.Requirements {
		requirements = append(requirements, r.String())
	}

	return &bucketEvent{
		Event:           event,
		BucketId:        string(b.Id),
		TestDestination: b.Configuration.TestDestination,
		Tests:           len(b.Entries),
		Requirements:    strings.Join(requirements, ", "),
		Role:            "queue",
	}
}

func (d *dashboardHooks) formatUri() string {
	return fmt.Sprintf("%s/api/v1/buckets", d.config.GetDashboardUri())
}

func (d *dashboardHooks) postEvent(event *bucketEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	body := bytes.NewReader(data)
	response, err := d.client.Post(d.formatUri(), echo.MIMEApplicationJSON, body)
	if err == nil {
		response.Body.Close()
	} else {
		log.Trace("failed to post telemetry:", err)
	}
	return err
}

func (d *dashboardHooks) send(event *bucketEvent) {
	select {
	case d.ch <- event:
	default:
		log.Debug("failed sending telemetry to dashboard, channel full")
	}
}

func (d *dashboardHooks) BucketEnqueued(e *bucket.EnqueuedBucket) {
	d.send(d.newEvent("queued", e.Bucket))
}

func (d *dashboardHooks) BucketDequeued(b *bucket.DequeuedBucket) {
	event := d.newEvent("started", b.Bucket)
	event.WorkerId = string(b.WorkerId)
	d.send(event)
}

func (d *dashboardHooks) ResultAccepted(accepted *queue.Accepted) {
	event := d.newEvent("finished", accepted.DequeuedBucket.Bucket)
	event.WorkerId = string(accepted.DequeuedBucket.WorkerId)
	event.Passed = len(accepted.Result.SuccessfulResults())
	event.Failed = len(accepted.Result.FailedResults())
	event.Retried = len(accepted.Retries)

	switch {
	case event.Failed > 0:
		event.Event = "failed"
	case event.Retried > 0:
		event.Event = "retried"
	}

	d.send(event)
}

func (d *dashboardHooks) run() {
	for event := range d.ch {
		d.postEvent(event)
	}
}

// Stops posting events once the queued ones have been sent.
func (d *dashboardHooks) Close() {
	close(d.ch)
}
