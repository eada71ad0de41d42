// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync holds the collectors the engine and realtime listener report into.
type Sync struct {
	PushTotal      prometheus.Counter
	PushErrors     prometheus.Counter
	PullTotal      prometheus.Counter
	PullErrors     prometheus.Counter
	QueuedDeletes  prometheus.Counter
	PendingDeletes prometheus.Gauge
	RealtimeEvents *prometheus.CounterVec
	DroppedEvents  prometheus.Counter
}

// NewSync registers the sync collectors with reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewSync(reg prometheus.Registerer) *Sync {
	factory := promauto.With(reg)
	return &Sync{
		PushTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_sync_push_total",
			Help: "Completed full pushes of local state to the remote store.",
		}),
		PushErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_sync_push_errors_total",
			Help: "Full pushes aborted by a remote failure.",
		}),
		PullTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_sync_pull_total",
			Help: "Group pulls applied to the local cache.",
		}),
		PullErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_sync_pull_errors_total",
			Help: "Group pulls that failed.",
		}),
		QueuedDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_sync_queued_deletes_total",
			Help: "Deletes deferred to the offline queue.",
		}),
		PendingDeletes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spliteasy_sync_pending_deletes",
			Help: "Deletes currently waiting for replay.",
		}),
		RealtimeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spliteasy_realtime_events_total",
			Help: "Realtime change notifications received, by table.",
		}, []string{"table"}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "spliteasy_realtime_dropped_events_total",
			Help: "Realtime notifications dropped because the apply queue was full.",
		}),
	}
}
