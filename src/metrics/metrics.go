package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"cgm-alert-pipeline/src/logger"
)

const jobName = "cgm_alert_pipeline"

var (
	registry = prometheus.NewRegistry()

	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cgm_stream_records_total",
		Help: "Stream records handled, by consumer and outcome.",
	}, []string{"consumer", "outcome"})

	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cgm_notifications_total",
		Help: "Notifications dispatched, by channel and alert.",
	}, []string{"channel", "alert"})

	backfillReadingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cgm_backfill_readings_total",
		Help: "Historical readings persisted by the backfill worker.",
	})

	refreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cgm_session_refreshes_total",
		Help: "Session refresh jobs, by phase and outcome.",
	}, []string{"phase", "outcome"})
)

func init() {
	registry.MustRegister(recordsTotal, notificationsTotal, backfillReadingsTotal, refreshesTotal)
}

// Record outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

func RecordProcessed(consumer, outcome string) {
	recordsTotal.WithLabelValues(consumer, outcome).Inc()
}

func NotificationSent(channel, alert string) {
	notificationsTotal.WithLabelValues(channel, alert).Inc()
}

func BackfillReadings(n int) {
	backfillReadingsTotal.Add(float64(n))
}

func Refresh(phase, outcome string) {
	refreshesTotal.WithLabelValues(phase, outcome).Inc()
}

// Flush pushes the invocation's counters to a Pushgateway. Lambdas cannot be
// scraped, so this runs at the end of each invocation when a gateway is set.
func Flush(ctx context.Context, gatewayURL string) {
	if gatewayURL == "" {
		return
	}
	if err := push.New(gatewayURL, jobName).Gatherer(registry).AddContext(ctx); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
}
