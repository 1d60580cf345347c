package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "newsharvest"

// Metrics holds the Prometheus collectors for the crawler. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	FetchesTotal       *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	DedupHitsTotal     prometheus.Counter
	ArticlesStored     prometheus.Counter
	ExtractionFailures *prometheus.CounterVec
	CandidatesTotal    prometheus.Counter
	BatchesTotal       *prometheus.CounterVec
	BatchDuration      *prometheus.HistogramVec
	BatchesInFlight    prometheus.Gauge

	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetches_total",
			Help:      "Page fetches by result (ok, network, timeout, http_status).",
		}, []string{"result"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		DedupHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dedup_hits_total",
			Help:      "Extractions answered from the store without fetching.",
		}),
		ArticlesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "articles_stored_total",
			Help:      "Articles written to the store.",
		}),
		ExtractionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "extraction_failures_total",
			Help:      "Failed extractions by error class.",
		}, []string{"class"}),
		CandidatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "candidates_discovered_total",
			Help:      "Candidate article URLs found on index pages.",
		}),
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_total",
			Help:      "Crawl invocations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		BatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of crawl invocations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		BatchesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "batches_in_flight",
			Help:      "Crawl invocations currently running.",
		}),
		registry: reg,
		logger:   logger.With("component", "metrics"),
	}
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// DedupHit records an extraction answered from the store.
func (m *Metrics) DedupHit() {
	if m == nil {
		return
	}
	m.DedupHitsTotal.Inc()
}

// ArticleStored records a new article.
func (m *Metrics) ArticleStored() {
	if m == nil {
		return
	}
	m.ArticlesStored.Inc()
}

// ExtractionFailed records a failed extraction.
func (m *Metrics) ExtractionFailed(class string) {
	if m == nil {
		return
	}
	m.ExtractionFailures.WithLabelValues(class).Inc()
}

// CandidatesFound records discovered candidates.
func (m *Metrics) CandidatesFound(n int) {
	if m == nil {
		return
	}
	m.CandidatesTotal.Add(float64(n))
}

// BatchStarted marks a crawl invocation as running and returns a func that
// records its outcome when called.
func (m *Metrics) BatchStarted(kind string) func(success bool) {
	if m == nil {
		return func(bool) {}
	}
	start := time.Now()
	m.BatchesInFlight.Inc()
	return func(success bool) {
		m.BatchesInFlight.Dec()
		outcome := "success"
		if !success {
			outcome = "failure"
		}
		m.BatchesTotal.WithLabelValues(kind, outcome).Inc()
		m.BatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server. The returned server is shut
// down by the caller.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}

// Shutdown stops srv, waiting up to the context deadline.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
