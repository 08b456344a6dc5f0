package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportsTotal    *prometheus.CounterVec
	reportImages    prometheus.Histogram
	reportBytes     prometheus.Histogram
	rejectedTotal   *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collage_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_reports_generated_total",
			Help: "Total reports generated.",
		}, []string{"layout", "format"}),
		reportImages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collage_report_images",
			Help:    "Images placed per generated report.",
			Buckets: []float64{1, 2, 4, 6, 9, 12, 18, 24, 36, 60},
		}),
		reportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collage_report_bytes",
			Help:    "Encoded size of generated reports.",
			Buckets: prometheus.ExponentialBuckets(64<<10, 2, 10),
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_reports_rejected_total",
			Help: "Report requests that failed, by HTTP status.",
		}, []string{"status"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.reportsTotal,
		m.reportImages,
		m.reportBytes,
		m.rejectedTotal,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}
