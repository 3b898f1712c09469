package queue

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*QueueStatistics) int64
}

// Exports queue statistics to Prometheus.
type MetricsCollector struct {
	queue   *Queue
	metrics []metric
}

func newMetric(name, help string, valueType prometheus.ValueType, value func(*QueueStatistics) int64) metric {
	return metric{
		desc:      prometheus.NewDesc(name, help, nil, nil),
		valueType: valueType,
		value:     value,
	}
}

func newWorkerMetric(status string, value func(*QueueStatistics) int64) metric {
	return metric{
		desc: prometheus.NewDesc(
			"jolt_testqueue_workers",
			"The number of workers known to the queue, by status.",
			nil, prometheus.Labels{"status": status}),
		valueType: prometheus.GaugeValue,
		value:     value,
	}
}

func NewMetricsCollector(queue *Queue) *MetricsCollector {
	return &MetricsCollector{
		queue: queue,
		metrics: []metric{
			newMetric("jolt_testqueue_buckets_enqueued", "The number of buckets currently waiting for a worker.",
				prometheus.GaugeValue, func(s *QueueStatistics) int64 { return s.EnqueuedBuckets }),
			newMetric("jolt_testqueue_buckets_dequeued", "The number of buckets currently being run by workers.",
				prometheus.GaugeValue, func(s *QueueStatistics) int64 { return s.DequeuedBuckets }),
			newMetric("jolt_testqueue_results_total", "The total number of accepted bucket results.",
				prometheus.CounterValue, func(s *QueueStatistics) int64 { return s.AcceptedResults }),
			newMetric("jolt_testqueue_buckets_reclaimed_total", "The total number of buckets taken away from silent or disabled workers.",
				prometheus.CounterValue, func(s *QueueStatistics) int64 { return s.ReclaimedBuckets }),
			newMetric("jolt_testqueue_tests_passed_total", "The total number of passed tests.",
				prometheus.CounterValue, func(s *QueueStatistics) int64 { return s.PassedTests }),
			newMetric("jolt_testqueue_tests_failed_total", "The total number of tests failed after all retries.",
				prometheus.CounterValue, func(s *QueueStatistics) int64 { return s.FailedTests }),
			newMetric("jolt_testqueue_tests_retried_total", "The total number of test retries.",
				prometheus.CounterValue, func(s *QueueStatistics) int64 { return s.RetriedTests }),
			newMetric("jolt_testqueue_history_entries", "The number of tracked test histories.",
				prometheus.GaugeValue, func(s *QueueStatistics) int64 { return s.TestHistories }),
			newMetric("jolt_testqueue_history_attempts", "The number of recorded test attempts.",
				prometheus.GaugeValue, func(s *QueueStatistics) int64 { return s.TestAttempts }),
			newWorkerMetric("alive", func(s *QueueStatistics) int64 { return s.AliveWorkers }),
			newWorkerMetric("silent", func(s *QueueStatistics) int64 { return s.SilentWorkers }),
			newWorkerMetric("blocked", func(s *QueueStatistics) int64 { return s.BlockedWorkers }),
			newWorkerMetric("notRegistered", func(s *QueueStatistics) int64 { return s.NotRegisteredWorkers }),
		},
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.queue.Statistics()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, float64(m.value(stats)))
	}
}
