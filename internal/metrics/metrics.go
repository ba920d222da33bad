// Package metrics exposes Prometheus metrics for the query server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guides_queries_total",
			Help: "Total number of questions answered",
		},
		[]string{"status"}, // status: ok, abstained, upstream_error, bad_request
	)

	GenerateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guides_generate_latency_seconds",
			Help:    "Latency of the grounded generateContent call",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	CitationsPerAnswer = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guides_citations_per_answer",
			Help:    "Deduplicated citations returned per answer",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	AssemblyBranch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guides_citation_branch_total",
			Help: "Which citation assembly path each answer took",
		},
		[]string{"branch"}, // branch: none, chunks, supports
	)

	SessionsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guides_sessions_issued_total",
			Help: "Session tokens issued by the access gate",
		},
	)
)

// RecordQuery records the outcome of one question.
func RecordQuery(status, branch string, citations int, generate time.Duration) {
	QueriesTotal.WithLabelValues(status).Inc()
	if branch != "" {
		AssemblyBranch.WithLabelValues(branch).Inc()
		CitationsPerAnswer.Observe(float64(citations))
	}
	if generate > 0 {
		GenerateLatency.Observe(generate.Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
