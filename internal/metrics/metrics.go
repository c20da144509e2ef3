package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfoliosync"

var (
	// ConnectionState is 0 disconnected, 1 connecting, 2 connected.
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "channel",
		Name:      "state",
		Help:      "Current state of the WebSocket channel (0=disconnected, 1=connecting, 2=connected).",
	})

	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "channel",
		Name:      "connect_attempts_total",
		Help:      "Channel dial attempts by outcome.",
	}, []string{"outcome"})

	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "channel",
		Name:      "frames_total",
		Help:      "Inbound frames by routing result.",
	}, []string{"result"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "fetch_duration_seconds",
		Help:      "Snapshot fetch latency by resource.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "fetch_failures_total",
		Help:      "Failed snapshot fetches by resource.",
	}, []string{"resource"})

	RefreshRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "rounds_total",
		Help:      "Completed refresh rounds.",
	})

	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Store writes by resource and source.",
	}, []string{"resource", "source"})

	RecorderBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "batch_size",
		Help:      "Rows per recorder flush.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	RecorderFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "flush_duration_seconds",
		Help:      "Recorder flush latency.",
		Buckets:   prometheus.DefBuckets,
	})

	RecorderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "errors_total",
		Help:      "Failed recorder flushes.",
	})

	RecorderQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "queue_depth",
		Help:      "Changes waiting to be recorded.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
