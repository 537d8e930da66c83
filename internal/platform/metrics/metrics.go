// Package metrics holds the Prometheus collectors for the quest service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trippey",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	verificationVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "verification",
			Name:      "verdicts_total",
			Help:      "Verification verdicts by submission type and status.",
		},
		[]string{"submission_type", "status"},
	)

	extractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "verification",
			Name:      "extraction_failures_total",
			Help:      "Evidence extractions that degraded to empty evidence.",
		},
	)

	extractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trippey",
			Subsystem: "verification",
			Name:      "extraction_duration_seconds",
			Help:      "Duration of evidence extraction calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	coinsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "ledger",
			Name:      "coins_awarded_total",
			Help:      "Coins credited on quest completion.",
		},
	)

	duplicateAwards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "ledger",
			Name:      "duplicate_awards_total",
			Help:      "Award attempts detected as already applied.",
		},
	)

	coinsRedeemed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "ledger",
			Name:      "coins_redeemed_total",
			Help:      "Coins debited by store purchases.",
		},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trippey",
			Subsystem: "worker",
			Name:      "jobs_processed_total",
			Help:      "Verification jobs processed by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		verificationVerdicts,
		extractionFailures,
		extractionDuration,
		coinsAwarded,
		duplicateAwards,
		coinsRedeemed,
		jobsProcessed,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHTTP records request counts and latency keyed by chi route pattern.
func InstrumentHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordVerdict(submissionType, status string) {
	verificationVerdicts.WithLabelValues(submissionType, status).Inc()
}

func RecordExtraction(d time.Duration, failed bool) {
	extractionDuration.Observe(d.Seconds())
	if failed {
		extractionFailures.Inc()
	}
}

func RecordAward(coins int) {
	coinsAwarded.Add(float64(coins))
}

func RecordDuplicateAward() {
	duplicateAwards.Inc()
}

func RecordRedemption(coins int) {
	coinsRedeemed.Add(float64(coins))
}

func RecordJob(outcome string) {
	jobsProcessed.WithLabelValues(outcome).Inc()
}
