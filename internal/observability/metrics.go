package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide turn, tool and cron counters. Handler
// serves a registry in Prometheus format; nothing in cmd/moxxyd builds
// these counters or mounts Handler, so no /metrics endpoint is served.
type Metrics struct {
	TurnsStarted    *prometheus.CounterVec
	TurnsFailed     *prometheus.CounterVec
	ToolInvocations *prometheus.CounterVec
	TriggersDropped *prometheus.CounterVec
	CronFired       *prometheus.CounterVec
	CronSkipped     *prometheus.CounterVec
}

// NewMetrics registers the moxxy counters against the given registerer.
// Pass prometheus.NewRegistry() in tests to avoid global-registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_turns_started_total",
			Help: "Turns started per agent.",
		}, []string{"agent", "source"}),
		TurnsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_turns_failed_total",
			Help: "Turns that ended in a failure class per agent.",
		}, []string{"agent", "reason"}),
		ToolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_tool_invocations_total",
			Help: "Tool dispatches per tool name and outcome.",
		}, []string{"tool", "outcome"}),
		TriggersDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_triggers_dropped_total",
			Help: "Triggers dropped because an agent's queue was full.",
		}, []string{"agent"}),
		CronFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_cron_fired_total",
			Help: "Cron jobs dispatched.",
		}, []string{"agent", "job"}),
		CronSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moxxy_cron_skipped_total",
			Help: "Cron fires skipped because the agent was busy.",
		}, []string{"agent", "job"}),
	}
}

// Handler exposes the metrics in Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
