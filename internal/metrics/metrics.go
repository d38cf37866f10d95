// Package metrics exposes Prometheus collectors for chain execution, the
// event hub and LLM usage. All collectors are registered on the default
// registry and served by the HTTP server at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "chain_runs_total",
		Help:      "Number of chain runs by terminal status.",
	}, []string{"status"})

	chainRunsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "chain_runs_rejected_total",
		Help:      "Number of run requests rejected because a run was already active.",
	})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stockpilot",
		Name:      "chain_step_duration_seconds",
		Help:      "Duration of individual chain steps.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"step", "status"})

	hubSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockpilot",
		Name:      "hub_subscribers",
		Help:      "Number of currently connected event stream subscribers.",
	})

	hubEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "hub_events_published_total",
		Help:      "Number of events published to the hub by event type.",
	}, []string{"event"})

	hubEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "hub_events_dropped_total",
		Help:      "Number of events dropped because a subscriber buffer was full.",
	})

	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "llm_tokens_total",
		Help:      "LLM token usage by model and token kind.",
	}, []string{"model", "kind"})
)

// ObserveChainRun records a finished chain run.
func ObserveChainRun(status string) {
	chainRunsTotal.WithLabelValues(status).Inc()
}

// ObserveChainRejected records a rejected concurrent run request.
func ObserveChainRejected() {
	chainRunsRejected.Inc()
}

// ObserveStep records a finished chain step.
func ObserveStep(step, status string, d time.Duration) {
	stepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

// SetSubscribers sets the current hub subscriber count.
func SetSubscribers(n int) {
	hubSubscribers.Set(float64(n))
}

// ObservePublish records a published hub event.
func ObservePublish(event string) {
	hubEventsPublished.WithLabelValues(event).Inc()
}

// ObserveDrop records an event dropped on a full subscriber buffer.
func ObserveDrop() {
	hubEventsDropped.Inc()
}

// ObserveLLMUsage records token usage for one completion.
func ObserveLLMUsage(model string, prompt, completion int) {
	llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
}
