package main

import (
	"fmt"
	"time"

	"github.com/srand/jolt/testqueue/pkg/log"
)

type AlivenessConfig struct {
	// Interval at which workers are expected to contact the queue.
	ReportingInterval time.Duration `mapstructure:"reporting_interval"`
	// Grace period before a worker that has not reported is considered silent.
	Slack time.Duration `mapstructure:"slack"`
	// Interval between checks for silent workers.
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

func (c *AlivenessConfig) SetDefaults() {
	if c.ReportingInterval == 0 {
		c.ReportingInterval = 30 * time.Second
	}
	if c.Slack == 0 {
		c.Slack = 30 * time.Second
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = 10 * time.Second
	}
}

func (c *AlivenessConfig) Validate() error {
	if c.ReportingInterval < 0 || c.Slack < 0 {
		return fmt.Errorf("aliveness intervals must not be negative")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("aliveness.check_interval must be positive")
	}
	return nil
}

func (c *AlivenessConfig) LogValues() {
	log.Infof("  Aliveness configuration:")
	log.Infof("    reporting_interval = %v", c.ReportingInterval)
	log.Infof("    slack = %v", c.Slack)
	log.Infof("    check_interval = %v", c.CheckInterval)
}
