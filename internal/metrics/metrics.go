// Package metrics holds the Prometheus collectors exposed on /metrics.
//
// All methods are safe on a nil *Metrics so packages can record unconditionally.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the app's collectors.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	SummaryCache     *prometheus.CounterVec
	LLMCalls         *prometheus.CounterVec
	LLMDuration      *prometheus.HistogramVec
	FeedBuilds       *prometheus.CounterVec
	FeedBuildSeconds prometheus.Histogram
	FeedVideos       prometheus.Gauge
	Saves            *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
// A fresh registry is used when reg is nil, which keeps tests independent.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubeswipe_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route, method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tubeswipe_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		SummaryCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubeswipe_summary_cache_total",
				Help: "Summary cache lookups, by result (hit or miss).",
			},
			[]string{"result"},
		),
		LLMCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubeswipe_llm_calls_total",
				Help: "LLM completion calls, by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		LLMDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubeswipe_llm_call_duration_seconds",
				Help:    "LLM completion latency, by provider.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),
		FeedBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubeswipe_feed_builds_total",
				Help: "Feed requests, by source (cache or api).",
			},
			[]string{"source"},
		),
		FeedBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tubeswipe_feed_build_duration_seconds",
			Help:    "Time spent composing a feed from the YouTube API.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		FeedVideos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tubeswipe_feed_videos",
			Help: "Number of videos in the last composed feed.",
		}),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubeswipe_swipes_total",
				Help: "Swipe actions, by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestDuration,
		m.RequestsInFlight,
		m.SummaryCache,
		m.LLMCalls,
		m.LLMDuration,
		m.FeedBuilds,
		m.FeedBuildSeconds,
		m.FeedVideos,
		m.Saves,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// InFlight adjusts the in-flight gauge by delta.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.RequestsInFlight.Add(delta)
}

// SummaryLookup records a summary cache hit or miss.
func (m *Metrics) SummaryLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SummaryCache.WithLabelValues("hit").Inc()
	} else {
		m.SummaryCache.WithLabelValues("miss").Inc()
	}
}

// LLMCall records one provider call.
func (m *Metrics) LLMCall(provider string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.LLMCalls.WithLabelValues(provider, outcome).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// FeedServed records a feed answered from cache or built from the API.
func (m *Metrics) FeedServed(cached bool, videos int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if cached {
		m.FeedBuilds.WithLabelValues("cache").Inc()
		return
	}
	m.FeedBuilds.WithLabelValues("api").Inc()
	m.FeedBuildSeconds.Observe(elapsed.Seconds())
	m.FeedVideos.Set(float64(videos))
}

// Swipe records a swipe action.
func (m *Metrics) Swipe(action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.Saves.WithLabelValues(action, outcome).Inc()
}
