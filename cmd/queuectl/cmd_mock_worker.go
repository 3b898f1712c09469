package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
	"github.com/srand/jolt/testqueue/pkg/client"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"golang.org/x/sync/errgroup"
)

type mockWorker struct {
	id           bucket.WorkerId
	client       *client.Client
	capabilities capability.Capabilities
	failureRate  float64
	testDuration time.Duration
	pollInterval time.Duration
	rnd          *rand.Rand
	running      chan []bucket.BucketId
}

// Runs the bucket and returns a result where each test fails with the
// configured probability.
func (w *mockWorker) simulate(d *bucket.DequeuedBucket, start time.Time) bucket.TestingResult {
	result := bucket.TestingResult{
		BucketId:        d.Id(),
		TestDestination: d.Bucket.Configuration.TestDestination,
		Results:         []bucket.TestEntryResult{},
	}

	host := w.capabilities.Hostname()

	for _, entry := range d.Bucket.Entries {
		run := bucket.TestRunResult{
			Succeeded: w.rnd.Float64() >= w.failureRate,
			StartTime: start,
			Duration:  w.testDuration,
			Host:      host,
		}
		if !run.Succeeded {
			run.Exceptions = []bucket.TestException{{Reason: "Simulated failure"}}
		}
		start = start.Add(w.testDuration)

		result.Results = append(result.Results, bucket.TestEntryResult{
			Entry: entry,
			Runs:  []bucket.TestRunResult{run},
		})
	}

	return result
}

func (w *mockWorker) heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bucketIds := []bucket.BucketId{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case bucketIds = <-w.running:
		case <-ticker.C:
			if err := w.client.Heartbeat(ctx, w.id, bucketIds); err != nil {
				log.Warn("Heartbeat failed:", err)
			}
		}
	}
}

func (w *mockWorker) work(ctx context.Context) error {
	for {
		d, err := w.client.Dequeue(ctx, w.id, w.capabilities)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, utils.ErrWorkerBlocked):
			log.Debug("Worker is disabled, waiting")
		case err != nil:
			log.Warn("Dequeue failed:", err)
		}

		if d == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollInterval):
			}
			continue
		}

		log.Infof("Running bucket %s with %d tests", d.Id(), len(d.Bucket.Entries))
		if !w.report(ctx, d.Id()) {
			return nil
		}

		start := time.Now()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.testDuration * time.Duration(len(d.Bucket.Entries))):
		}

		response, err := w.client.SubmitResult(ctx, w.id, w.simulate(d, start))
		if err != nil {
			log.Warn("Result rejected:", err)
		} else {
			log.Infof("Reported bucket %s, %d final results, %d retries", d.Id(), len(response.Result.Results), len(response.RetryBucketIds))
		}

		if !w.report(ctx) {
			return nil
		}
	}
}

// Hands the buckets being processed to the heartbeat loop.
func (w *mockWorker) report(ctx context.Context, bucketIds ...bucket.BucketId) bool {
	select {
	case <-ctx.Done():
		return false
	case w.running <- append([]bucket.BucketId{}, bucketIds...):
		return true
	}
}

func defaultWorkerId(capabilities capability.Capabilities) string {
	if ids := capabilities.Values("node.id"); len(ids) > 0 {
		return ids[0]
	}
	return capabilities.Hostname()
}

var mockWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker that reports random test results",
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		failureRate, _ := cmd.Flags().GetFloat64("failure-rate")
		testDuration, _ := cmd.Flags().GetDuration("test-duration")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		heartbeatInterval, _ := cmd.Flags().GetDuration("heartbeat-interval")

		capabilities := capability.NewCapabilitiesWithDefaults()
		if err := capabilities.LoadConfig(viper.GetViper(), "capabilities"); err != nil {
			log.Fatal(err)
		}

		if id == "" {
			id = defaultWorkerId(capabilities)
		}

		w := &mockWorker{
			id:           bucket.WorkerId(id),
			client:       NewQueueClient(),
			capabilities: capabilities,
			failureRate:  failureRate,
			testDuration: testDuration,
			pollInterval: pollInterval,
			rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
			running:      make(chan []bucket.BucketId),
		}

		ctx, cancel := utils.TerminationContext()
		defer cancel()

		if err := w.client.RegisterWorker(ctx, w.id, w.capabilities); err != nil {
			log.Fatal(err)
		}
		log.Infof("Registered worker %s", w.id)
		log.Debug("Capabilities:\n" + w.capabilities.String())

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return w.heartbeat(ctx, heartbeatInterval) })
		eg.Go(func() error { return w.work(ctx) })

		if err := eg.Wait(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	mockWorkerCmd.Flags().String("id", "", "Worker id (default: machine id)")
	mockWorkerCmd.Flags().StringSliceP("capability", "c", nil, "Additional capabilities, name=value (repeatable)")
	mockWorkerCmd.Flags().Float64("failure-rate", 0.1, "Probability of a test failing")
	mockWorkerCmd.Flags().Duration("test-duration", time.Second, "Simulated duration of each test")
	mockWorkerCmd.Flags().Duration("poll-interval", 5*time.Second, "Interval between dequeue attempts when idle")
	mockWorkerCmd.Flags().Duration("heartbeat-interval", 10*time.Second, "Interval between heartbeats")
	viper.BindPFlag("capabilities", mockWorkerCmd.Flags().Lookup("capability"))
	mockCmd.AddCommand(mockWorkerCmd)
}
