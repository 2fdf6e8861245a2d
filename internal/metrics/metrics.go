// Package metrics holds the Prometheus collectors recorded in serve mode.
// They live on a private registry so that embedding the docs server in a
// larger process never collides with the host's own metrics.  A nil
// *Metrics is valid everywhere and records nothing, so callers can thread
// one through without caring whether metrics are switched on.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors the docs server updates while serving.
type Metrics struct {
	registry *prometheus.Registry

	pagesServed       *prometheus.CounterVec
	searches          prometheus.Counter
	rebuilds          *prometheus.CounterVec
	rebuildDuration   prometheus.Histogram
	livereloadClients prometheus.Gauge
}

// New creates the collectors and registers them (plus the standard Go
// runtime collectors) on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		pagesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gqldocs",
				Name:      "pages_served_total",
				Help:      "HTTP responses sent, by status code",
			},
			[]string{"code"},
		),

		searches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gqldocs",
				Name:      "searches_total",
				Help:      "Search queries answered",
			},
		),

		rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gqldocs",
				Name:      "rebuilds_total",
				Help:      "Site rebuilds triggered by content changes, by result (ok or error)",
			},
			[]string{"result"},
		),

		rebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "gqldocs",
				Name:      "rebuild_duration_seconds",
				Help:      "Time spent reloading and reassembling the site",
				Buckets:   prometheus.DefBuckets,
			},
		),

		livereloadClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gqldocs",
				Name:      "livereload_clients",
				Help:      "Browsers currently connected to the livereload websocket",
			},
		),
	}

	m.registry.MustRegister(
		m.pagesServed,
		m.searches,
		m.rebuilds,
		m.rebuildDuration,
		m.livereloadClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format, for mounting
// at /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts every response by status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK // nothing written counts as a 200
		}
		m.pagesServed.WithLabelValues(strconv.Itoa(code)).Inc()
	})
}

// SearchServed counts one answered search query.
func (m *Metrics) SearchServed() {
	if m == nil {
		return
	}
	m.searches.Inc()
}

// RebuildDone records one rebuild with its outcome ("ok" or "error") and
// how long it took.
func (m *Metrics) RebuildDone(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(result).Inc()
	m.rebuildDuration.Observe(elapsed.Seconds())
}

// LiveReloadClients sets the connected-browser gauge.
func (m *Metrics) LiveReloadClients(n int) {
	if m == nil {
		return
	}
	m.livereloadClients.Set(float64(n))
}
