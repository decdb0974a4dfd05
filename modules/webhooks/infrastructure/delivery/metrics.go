package delivery

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
)

type metrics struct {
	enqueueTotal  *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec
	failedTotal   *prometheus.CounterVec
	conflictTotal prometheus.Counter

	dispatchLatency *prometheus.HistogramVec

	due          prometheus.Gauge
	scheduled    prometheus.Gauge
	workerLeader prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhooks",
			Name:      "enqueue_total",
			Help:      "Total number of webhook events enqueued.",
		}, []string{"kind"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhooks",
			Name:      "dispatch_total",
			Help:      "Total number of delivery attempts by outcome.",
		}, []string{"kind", "result"}),
		failedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhooks",
			Name:      "failed_total",
			Help:      "Total number of events that exhausted their attempts.",
		}, []string{"kind"}),
		conflictTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "webhooks",
			Name:      "claim_conflict_total",
			Help:      "Total number of claims lost to another worker.",
		}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webhooks",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency distribution for delivery attempts.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"kind", "result"}),
		due: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "webhooks",
			Name:      "due",
			Help:      "Current number of events eligible for delivery.",
		}),
		scheduled: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "webhooks",
			Name:      "scheduled",
			Help:      "Current number of events waiting on a retry schedule or lease.",
		}),
		workerLeader: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "webhooks",
			Name:      "worker_leader",
			Help:      "Whether this instance holds the delivery leader lock (1/0).",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// ObserveEnqueue counts an event accepted into the queue. It lives here
// rather than in the service layer so all webhook metrics share one
// registration point.
func ObserveEnqueue(kind event.Kind) {
	getMetrics().enqueueTotal.WithLabelValues(string(kind)).Inc()
}
