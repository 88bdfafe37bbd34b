// Package metrics holds the relay's prometheus instruments. A nil *Recorder
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LabelEvent  = "event"
	LabelResult = "result"
	LabelRoute  = "route"
	LabelMethod = "method"
	LabelStatus = "status"
)

type Recorder struct {
	reg         *prometheus.Registry
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	events      *prometheus.CounterVec
	photoBytes  prometheus.Counter
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "towerman", Name: "stream_connections",
			Help: "Open team stream connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "towerman", Name: "rooms",
			Help: "Team rooms currently running.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "towerman", Name: "stream_events_total",
			Help: "Stream events handled, by event and result.",
		}, []string{LabelEvent, LabelResult}),
		photoBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "towerman", Name: "photo_bytes_total",
			Help: "Bytes of photo data accepted from capturers.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "towerman", Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{LabelRoute, LabelMethod, LabelStatus}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "towerman", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{LabelRoute}),
	}
	reg.MustRegister(
		r.connections, r.rooms, r.events, r.photoBytes, r.requests, r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) ConnectionOpened() {
	if r == nil {
		return
	}
	r.connections.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connections.Dec()
}

func (r *Recorder) RoomStarted() {
	if r == nil {
		return
	}
	r.rooms.Inc()
}

func (r *Recorder) RoomStopped() {
	if r == nil {
		return
	}
	r.rooms.Dec()
}

// Event counts one handled stream event; ok is false when it was rejected.
func (r *Recorder) Event(event string, ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	r.events.WithLabelValues(event, result).Inc()
}

func (r *Recorder) PhotoAccepted(size int) {
	if r == nil {
		return
	}
	r.photoBytes.Add(float64(size))
}

// Middleware records request counts and latency under the matched chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.requests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
		r.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
