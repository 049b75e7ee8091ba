package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the permission engine.
type Metrics struct {
	EventsCommitted     *prometheus.CounterVec
	EventsDropped       *prometheus.CounterVec
	TransitionsRejected prometheus.Counter
	CommitConflicts     prometheus.Counter
	Sends               *prometheus.CounterVec
	CorrelationMisses   prometheus.Counter
	CorrelationMulti    prometheus.Counter
	ResendsScheduled    prometheus.Counter
	ResendsDropped      prometheus.Counter
	TimeoutsSwept       prometheus.Counter
	StatusEmitted       prometheus.Counter
}

// New creates and registers all engine metrics against the given registerer.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridgate_events_committed_total",
			Help: "Committed permission events by kind",
		}, []string{"kind"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridgate_events_dropped_total",
			Help: "Events dropped because the aggregate was already terminal",
		}, []string{"kind"}),
		TransitionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_transitions_rejected_total",
			Help: "Events rejected by the connector transition table",
		}),
		CommitConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_commit_conflicts_total",
			Help: "Commits rejected by the optimistic concurrency precondition",
		}),
		Sends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridgate_sends_total",
			Help: "Outbound send attempts by outcome",
		}, []string{"outcome"}),
		CorrelationMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_correlation_misses_total",
			Help: "Inbound notifications that matched no live aggregate",
		}),
		CorrelationMulti: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_correlation_multi_matches_total",
			Help: "Inbound notifications that matched more than one live aggregate",
		}),
		ResendsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_resends_scheduled_total",
			Help: "Uncorrelated notifications scheduled for one redelivery",
		}),
		ResendsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_resends_dropped_total",
			Help: "Notifications dropped after the redelivery attempt also failed",
		}),
		TimeoutsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_timeouts_swept_total",
			Help: "Stale in-flight requests forced to TIMED_OUT by the sweeper",
		}),
		StatusEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridgate_status_messages_emitted_total",
			Help: "Status messages published to the status surface",
		}),
	}
}
