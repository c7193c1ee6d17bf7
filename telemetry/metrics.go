// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PredictionsStarted  prometheus.Counter
	PredictionsResolved prometheus.Counter
	PredictionsCanceled prometheus.Counter
	PollCycles          prometheus.Counter
	PollFailures        prometheus.Counter
	TokenRefreshes      prometheus.Counter
	TokenRefreshFailures prometheus.Counter
	SuggestionRequests  prometheus.Counter
	SuggestionFailures  prometheus.Counter

	// Histograms (seconds)
	ActionDuration prometheus.Observer
	PollDuration   prometheus.Observer

	// Gauges
	SessionReadyGauge prometheus.Gauge // 1=ready,0=not ready
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PredictionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "prediction_started_total", Help: "Number of predictions started"})
		PredictionsResolved = promauto.NewCounter(prometheus.CounterOpts{Name: "prediction_resolved_total", Help: "Number of predictions resolved with a winning outcome"})
		PredictionsCanceled = promauto.NewCounter(prometheus.CounterOpts{Name: "prediction_canceled_total", Help: "Number of predictions canceled"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "prediction_poll_cycles_total", Help: "Number of prediction poll cycles"})
		PollFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "prediction_poll_failures_total", Help: "Number of prediction poll cycles that failed"})
		TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{Name: "twitch_token_refreshes_total", Help: "Number of OAuth token refreshes performed"})
		TokenRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "twitch_token_refresh_failures_total", Help: "Number of OAuth token refreshes that failed"})
		SuggestionRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "suggestion_requests_total", Help: "Number of draft suggestion requests"})
		SuggestionFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "suggestion_failures_total", Help: "Number of draft suggestion requests that failed"})
		ActionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "prediction_action_duration_seconds", Help: "Prediction action (start/end/cancel) duration seconds", Buckets: prometheus.DefBuckets})
		PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "prediction_poll_duration_seconds", Help: "Prediction poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		SessionReadyGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "session_ready", Help: "Session ready=1 not ready=0"})
	})
}

// UpdateSessionReadyGauge sets gauge to 1 if ready else 0.
func UpdateSessionReadyGauge(ready bool) {
	if SessionReadyGauge != nil {
		if ready {
			SessionReadyGauge.Set(1)
		} else {
			SessionReadyGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
