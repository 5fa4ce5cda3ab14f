package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	ticks            *prometheus.CounterVec
	tickFailures     prometheus.Counter
	wakes            *prometheus.CounterVec
	readingsIngested prometheus.Counter
	readingsRejected prometheus.Counter
	lastVerdict      prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvi_ticks_total",
			Help: "Completed poll ticks by verdict.",
		}, []string{"verdict"}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvi_tick_failures_total",
			Help: "Poll ticks that could not reach a verdict.",
		}),
		wakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvi_wake_signals_total",
			Help: "Wake dispatch outcomes per worker (sent, failed, cooldown).",
		}, []string{"result"}),
		readingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvi_readings_ingested_total",
			Help: "Readings accepted from telemetry.",
		}),
		readingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvi_readings_rejected_total",
			Help: "Telemetry messages dropped as malformed or unstorable.",
		}),
		lastVerdict: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pvi_last_verdict",
			Help: "Verdict of the last tick (0 no, 1 maybe, 2 yes).",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvi_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pvi_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks,
		m.tickFailures,
		m.wakes,
		m.readingsIngested,
		m.readingsRejected,
		m.lastVerdict,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Tick records a completed tick. verdict is the verdict's text form; level is
// its ordinal for the gauge.
func (m *Metrics) Tick(verdict string, level int) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(verdict).Inc()
	m.lastVerdict.Set(float64(level))
}

func (m *Metrics) TickFailed() {
	if m == nil {
		return
	}
	m.tickFailures.Inc()
}

// Wakes adds dispatch outcomes for one tick.
func (m *Metrics) Wakes(sent, failed, cooldown int) {
	if m == nil {
		return
	}
	m.wakes.WithLabelValues("sent").Add(float64(sent))
	m.wakes.WithLabelValues("failed").Add(float64(failed))
	m.wakes.WithLabelValues("cooldown").Add(float64(cooldown))
}

func (m *Metrics) ReadingIngested() {
	if m == nil {
		return
	}
	m.readingsIngested.Inc()
}

func (m *Metrics) ReadingRejected() {
	if m == nil {
		return
	}
	m.readingsRejected.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware counts requests per matched route. Unmatched paths are grouped
// under "unmatched" to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
