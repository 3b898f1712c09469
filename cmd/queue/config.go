package main

import (
	"fmt"
	"time"

	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/queue"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

type Config struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// Addresses to listen on for gRPC health checks.
	ListenGrpc []string `mapstructure:"listen_grpc"`
	// Addresses to listen on for HTTP.
	ListenHttp []string `mapstructure:"listen_http"`
	// Log level: trace, debug, info, warning, error.
	LogLevel string `mapstructure:"log_level"`
	// Worker aliveness configuration.
	Aliveness AlivenessConfig `mapstructure:"aliveness"`
	// Dequeue policy configuration.
	Dequeue DequeueConfig `mapstructure:"dequeue"`
	// Test history configuration.
	History HistoryConfig `mapstructure:"history"`
	// Dashboard configuration.
	Dashboard *DashboardConfig `mapstructure:"dashboard"`
}

type DequeueConfig struct {
	// "first" or "all"
	CandidateScan string `mapstructure:"candidate_scan"`
}

func (c *Config) GetReportingInterval() time.Duration {
	return c.Aliveness.ReportingInterval
}

func (c *Config) GetSlack() time.Duration {
	return c.Aliveness.Slack
}

func (c *Config) GetCheckInterval() time.Duration {
	return c.Aliveness.CheckInterval
}

func (c *Config) GetCandidateScan() queue.CandidateScan {
	scan, _ := queue.ParseCandidateScan(c.Dequeue.CandidateScan)
	return scan
}

func (c *Config) GetDashboardUri() string {
	if c.Dashboard != nil {
		return c.Dashboard.GetDashboardUri()
	}
	return ""
}

func (c *Config) SetDefaults() {
	c.Aliveness.SetDefaults()
	c.History.SetDefaults()
	if c.Dequeue.CandidateScan == "" {
		c.Dequeue.CandidateScan = string(queue.CandidateScanFirst)
	}
}

func (c *Config) Validate() error {
	if len(c.ListenHttp) == 0 {
		return fmt.Errorf("no HTTP listen address configured")
	}
	if _, err := queue.ParseCandidateScan(c.Dequeue.CandidateScan); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if err := c.Aliveness.Validate(); err != nil {
		return err
	}
	return c.GRPCOptions.Validate()
}

func (c *Config) Log() {
	log.Info("Queue configuration:")
	log.Infof("  gRPC listen addresses: %v", c.ListenGrpc)
	log.Infof("  HTTP listen addresses: %v", c.ListenHttp)
	log.Infof("  Candidate scan: %s", c.Dequeue.CandidateScan)
	if c.Dashboard != nil {
		log.Infof("  Dashboard: %s", c.Dashboard.Uri)
	}
	c.Aliveness.LogValues()
	c.History.LogValues()
	c.GRPCOptions.Log()
}
