package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postulaciones/domain"
)

// Metrics is the prometheus side of application.Metrics plus HTTP timings.
type Metrics struct {
	registry        *prometheus.Registry
	issued          prometheus.Counter
	failed          *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	ledgerFailures  *prometheus.CounterVec
	ledgerConsumed  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certificates_issued_total",
			Help: "Certificates rendered and persisted.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certificates_failed_total",
			Help: "Certificate issuance failures by error kind.",
		}, []string{"kind"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certificate_verifications_total",
			Help: "Verification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		ledgerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_ledger_append_failures_total",
			Help: "Ledger appends that were dropped.",
		}, []string{"channel"}),
		ledgerConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_ledger_consumed_total",
			Help: "Ledger messages processed by the worker.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.issued, m.failed, m.verifications, m.ledgerFailures, m.ledgerConsumed, m.requestDuration,
	)
	return m
}

func (m *Metrics) CertificateIssued() { m.issued.Inc() }

func (m *Metrics) CertificateFailed(kind domain.Kind) {
	m.failed.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) Verified(channel string, found bool) {
	outcome := "not_found"
	if found {
		outcome = "found"
	}
	m.verifications.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) LedgerAppendFailed(channel string) {
	m.ledgerFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) LedgerConsumed(ok bool) {
	result := "stored"
	if !ok {
		result = "dropped"
	}
	m.ledgerConsumed.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records request latency by matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
