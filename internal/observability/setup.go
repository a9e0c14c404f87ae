package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Audit is a structured logger reserved for the moderation audit trail
	// (reconciliation outcomes, approvals, denials).
	Audit *zap.Logger

	sanctionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_sanctions_total",
			Help: "Total number of sanction operations by action and result",
		},
		[]string{"action", "result"},
	)

	reconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_platform_ban_reconcile_total",
			Help: "Platform-ban reconciliation outcomes by branch",
		},
		[]string{"outcome"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_webhook_events_total",
			Help: "Webhook deliveries by event and status",
		},
		[]string{"event", "status"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_sweep_duration_seconds",
			Help:    "Time spent per expiry sweep tick",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init(ctx context.Context) error {
	_ = ctx

	var err error
	Audit, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(sanctionsTotal, reconcileOutcomes, webhookEvents, sweepDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}

// RecordSanction counts a lifecycle operation ("ban", "unban", "mute", ...)
// with its terminal result.
func RecordSanction(action, result string) {
	sanctionsTotal.WithLabelValues(action, result).Inc()
}

// RecordReconcileOutcome counts which reconciliation branch fired.
func RecordReconcileOutcome(outcome string) {
	reconcileOutcomes.WithLabelValues(outcome).Inc()
}

// RecordWebhookEvent counts a webhook delivery.
func RecordWebhookEvent(event, status string) {
	webhookEvents.WithLabelValues(event, status).Inc()
}

// ObserveSweep records the duration of one sweep tick.
func ObserveSweep(seconds float64) {
	sweepDuration.Observe(seconds)
}

// AuditLogger returns the audit logger, falling back to a no-op logger when
// Init has not run (unit tests).
func AuditLogger() *zap.Logger {
	if Audit == nil {
		return zap.NewNop()
	}
	return Audit
}
