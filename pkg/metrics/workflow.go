package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for email job processing.
const (
	EmailOutcomeSent     = "sent"
	EmailOutcomeRetry    = "retry"
	EmailOutcomeFailed   = "failed"
	EmailOutcomeFallback = "in_app_fallback"
)

// Outcome labels for outbox publishing.
const (
	OutboxOutcomePublished    = "published"
	OutboxOutcomeRetry        = "retry"
	OutboxOutcomeDeadLettered = "dead_lettered"
)

// WorkflowMetrics tracks placement, transfer and notification activity.
type WorkflowMetrics struct {
	transitions       *prometheus.CounterVec
	ownershipBackfill *prometheus.CounterVec
	emailJobs         *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	outboxPublishes   *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow counters. A nil registerer yields
// a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	m := &WorkflowMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawfinderz_workflow_transitions_total",
			Help: "State transitions applied to workflow entities.",
		}, []string{"entity", "to"}),
		ownershipBackfill: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawfinderz_ownership_backfill_total",
			Help: "Ownership transfers that had to repair missing history.",
		}, []string{"case"}),
		emailJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawfinderz_email_jobs_total",
			Help: "Email job attempts by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawfinderz_notifications_total",
			Help: "Notifications dispatched by channel.",
		}, []string{"channel"}),
		outboxPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawfinderz_outbox_publishes_total",
			Help: "Outbox rows handled by the publisher, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.transitions, m.ownershipBackfill, m.emailJobs, m.notifications, m.outboxPublishes)
	return m
}

// IncTransition counts a state change on entity into the target state.
func (m *WorkflowMetrics) IncTransition(entity, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(entity), normalizeLabel(to)).Inc()
}

// IncOwnershipBackfill counts a repaired ownership history ("closed_latest" or "missing").
func (m *WorkflowMetrics) IncOwnershipBackfill(kind string) {
	if m == nil || m.ownershipBackfill == nil {
		return
	}
	m.ownershipBackfill.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncEmailJob counts an email job attempt outcome.
func (m *WorkflowMetrics) IncEmailJob(outcome string) {
	if m == nil || m.emailJobs == nil {
		return
	}
	m.emailJobs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncNotification counts a delivered notification on channel.
func (m *WorkflowMetrics) IncNotification(channel string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncOutboxPublish counts an outbox row outcome.
func (m *WorkflowMetrics) IncOutboxPublish(outcome string) {
	if m == nil || m.outboxPublishes == nil {
		return
	}
	m.outboxPublishes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
