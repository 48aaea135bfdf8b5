package metrics

import (
	"net/http"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标管理器，注册在独立的 Registry 上
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库指标
	dbQueryDuration *prometheus.HistogramVec

	// 业务指标
	classifications *prometheus.CounterVec
	supportOffers   prometheus.Counter
	alertsCreated   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	alertsOverdue   prometheus.Gauge
}

var _ crisis.Recorder = (*Metrics)(nil)

// NewMetrics 创建指标管理器
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation", "table"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crisis_classifications_total",
				Help: "Screened messages by severity and matched category",
			},
			[]string{"severity", "category"},
		),
		supportOffers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crisis_support_offers_total",
			Help: "Conversations that crossed the crisis support threshold",
		}),
		alertsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crisis_alerts_total",
				Help: "Crisis alerts created by severity",
			},
			[]string{"severity"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crisis_alert_transitions_total",
				Help: "Alert lifecycle transitions by outcome",
			},
			[]string{"transition", "result"},
		),
		alertsOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crisis_alerts_overdue",
			Help: "Notified alerts not viewed within the view deadline",
		}),
	}
	reg.MustRegister(
		m.httpRequestsTotal, m.httpRequestDuration, m.dbQueryDuration,
		m.classifications, m.supportOffers, m.alertsCreated, m.transitions, m.alertsOverdue,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func (m *Metrics) ObserveClassification(r crisis.ClassificationResult) {
	category := string(r.MatchedCategory)
	if category == "" {
		category = "none"
	}
	m.classifications.WithLabelValues(r.Severity.String(), category).Inc()
}

func (m *Metrics) ObserveSupportOffer() { m.supportOffers.Inc() }

func (m *Metrics) ObserveAlertCreated(severity crisis.RiskSeverity) {
	m.alertsCreated.WithLabelValues(severity.String()).Inc()
}

func (m *Metrics) ObserveTransition(transition string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}

// SetOverdueAlerts records the latest overdue sweep result.
func (m *Metrics) SetOverdueAlerts(n int) { m.alertsOverdue.Set(float64(n)) }
