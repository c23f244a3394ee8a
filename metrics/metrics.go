// Package metrics exposes Prometheus instruments for the service.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dharmic_games"

type Recorder struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	checkIns     prometheus.Counter
	scoreUpdates *prometheus.CounterVec
	wsClients    prometheus.Gauge
	broadcasts   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_checkins_total",
			Help:      "Players checked in.",
		}),
		scoreUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_updates_total",
			Help:      "Match score updates by sport.",
		}, []string{"sport"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Currently connected WebSocket clients.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Realtime messages published by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(
		r.httpRequests, r.httpLatency, r.checkIns, r.scoreUpdates, r.wsClients, r.broadcasts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Recorder) RecordCheckIns(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.checkIns.Add(float64(n))
}

func (r *Recorder) RecordScoreUpdate(sport string) {
	if r == nil {
		return
	}
	r.scoreUpdates.WithLabelValues(sport).Inc()
}

func (r *Recorder) SetWebSocketClients(n int) {
	if r == nil {
		return
	}
	r.wsClients.Set(float64(n))
}

func (r *Recorder) RecordBroadcast(msgType string) {
	if r == nil {
		return
	}
	r.broadcasts.WithLabelValues(msgType).Inc()
}
