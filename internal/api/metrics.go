package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	instancesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beagled",
		Name:      "instances_created_total",
		Help:      "Instances created through the API.",
	})
	operationsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beagled",
		Name:      "operations_submitted_total",
		Help:      "Partials combine operations submitted through the API.",
	})
	updateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "beagled",
		Name:      "update_partials_seconds",
		Help:      "Latency of updatePartials batches, submission to return.",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
	})
)

// observeOperations counts a submitted batch and returns a stop function
// recording its latency.
func observeOperations(count int) func() {
	operationsExecuted.Add(float64(count))
	start := time.Now()
	return func() {
		updateLatency.Observe(time.Since(start).Seconds())
	}
}
