package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brokerage", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brokerage", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brokerage", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brokerage", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brokerage", Name: "kv_operations_total", Help: "Key-value store operations."},
		[]string{"backend", "op", "result"}, // op: get|set|delete|scan; result: ok|miss|error
	)
	SeedRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brokerage", Name: "seed_runs_total", Help: "Seed runs by outcome."},
		[]string{"result"}, // ok|busy|error
	)
)

// Serve starts a standalone metrics listener when addr is set.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, StoreOps, SeedRuns)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

// ObserveStore records one backing-store call. hit is ignored unless op is "get".
func ObserveStore(backend, op string, hit bool, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case op == "get" && !hit:
		result = "miss"
	}
	StoreOps.WithLabelValues(backend, op, result).Inc()
}

func ObserveSeedRun(result string) {
	SeedRuns.WithLabelValues(result).Inc()
}
