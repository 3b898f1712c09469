package aliveness

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
)

type SilenceDetectorConfig interface {
	// Interval at which workers are expected to contact the queue.
	GetReportingInterval() time.Duration

	// Grace period added to the reporting interval.
	GetSlack() time.Duration

	// Interval between checks.
	GetCheckInterval() time.Duration
}

// Periodically marks workers silent when they have not contacted the
// queue within the reporting interval plus slack.
type SilenceDetector struct {
	provider *Provider
	clock    clockwork.Clock
	config   SilenceDetectorConfig

	// Called with the workers that became silent in a check.
	onSilent func([]bucket.WorkerId)
}

func NewSilenceDetector(provider *Provider, clock clockwork.Clock, config SilenceDetectorConfig, onSilent func([]bucket.WorkerId)) *SilenceDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SilenceDetector{
		provider: provider,
		clock:    clock,
		config:   config,
		onSilent: onSilent,
	}
}

func (d *SilenceDetector) Timeout() time.Duration {
	return d.config.GetReportingInterval() + d.config.GetSlack()
}

// Check runs one detection pass and returns the workers that became silent.
func (d *SilenceDetector) Check() []bucket.WorkerId {
	silenced := d.provider.MarkSilentSince(d.Timeout())
	if len(silenced) > 0 && d.onSilent != nil {
		d.onSilent(silenced)
	}
	return silenced
}

// Run checks for silent workers until the context is cancelled.
func (d *SilenceDetector) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.config.GetCheckInterval())
	defer ticker.Stop()

	log.Debugf("Silence detector started, timeout %s", d.Timeout())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			d.Check()
		}
	}
}
