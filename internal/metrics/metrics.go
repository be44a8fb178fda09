package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctranslate",
			Name:      "provider_requests_total",
			Help:      "Total provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctranslate",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	batchesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctranslate",
			Name:      "batches_processed_total",
			Help:      "Total batches processed by result (success, failed)",
		},
		[]string{"result"},
	)

	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctranslate",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a full batch translation, including retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"use_robust"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctranslate",
			Name:      "retries_total",
			Help:      "Total number of batch retries by provider and model",
		},
		[]string{"provider", "model"},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctranslate",
			Name:      "breaker_events_total",
			Help:      "Circuit breaker events by provider, model and action",
		},
		[]string{"provider", "model", "action"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctranslate",
			Name:      "tokens_total",
			Help:      "Token usage by provider, model and direction (input, output)",
		},
		[]string{"provider", "model", "direction"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(providerReqs, providerLatency, batchesProcessed, batchDuration, retriesTotal, breakerEvents, tokensTotal)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncBatchProcessed(result string)                   { batchesProcessed.WithLabelValues(result).Inc() }
func ObserveBatchDuration(useRobust bool, dur time.Duration) {
	batchDuration.WithLabelValues(boolToStr(useRobust)).Observe(dur.Seconds())
}

func IncRetry(provider, model string) { retriesTotal.WithLabelValues(provider, model).Inc() }

func BreakerOpened(provider, model string) { breakerEvents.WithLabelValues(provider, model, "opened").Inc() }
func BreakerClosed(provider, model string) { breakerEvents.WithLabelValues(provider, model, "closed").Inc() }

func AddTokens(provider, model string, input, output int) {
	tokensTotal.WithLabelValues(provider, model, "input").Add(float64(input))
	tokensTotal.WithLabelValues(provider, model, "output").Add(float64(output))
}

// IncRefusal tracks content refusal events by provider and model.
func IncRefusal(provider, model string) {
	providerReqs.WithLabelValues(provider, model, "content_refused").Inc()
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
