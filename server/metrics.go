package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP and assistant collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	IntentsTotal    *prometheus.CounterVec
	OrdersRecorded  *prometheus.CounterVec
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shoptalk",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shoptalk",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		IntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shoptalk",
				Name:      "intents_total",
				Help:      "Processed utterances by result kind.",
			},
			[]string{"kind"},
		),
		OrdersRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shoptalk",
				Name:      "orders_recorded_total",
				Help:      "Confirmed orders handed to the order recorder, by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// middleware records request count and latency under the matched route
// template so path ids do not explode label cardinality.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
