package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты обращения к эндпоинту профиля
const (
	LookupValid          = "valid"
	LookupTransportError = "transport_error"
	LookupBadStatus      = "bad_status"
	LookupMalformed      = "malformed"
)

type Metrics struct {
	registry *prometheus.Registry

	lookupsTotal   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	tokensTotal    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_lookups_total",
			Help: "Total profile lookups by outcome",
		}, []string{"result"}),

		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_lookup_duration_seconds",
			Help:    "Latency of profile lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokens_verified_total",
			Help: "Tokens verified by input method and validity",
		}, []string{"input_method", "valid"}),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.lookupsTotal,
		m.lookupDuration,
		m.tokensTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) ObserveLookup(result string, d time.Duration) {
	m.lookupsTotal.WithLabelValues(result).Inc()
	m.lookupDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveToken(inputMethod string, valid bool) {
	m.tokensTotal.WithLabelValues(inputMethod, strconv.FormatBool(valid)).Inc()
}

// Handler отдаёт метрики собственного реестра
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
