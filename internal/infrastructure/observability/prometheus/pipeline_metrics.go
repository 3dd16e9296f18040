package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

const namespace = "sremon"

// PipelineMetrics implements port.PipelineMetrics on a dedicated registry.
type PipelineMetrics struct {
	registry *prometheus.Registry

	cycles           *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	overallStatus    *prometheus.GaugeVec
	domainStatus     *prometheus.GaugeVec
	domainValue      *prometheus.GaugeVec
	probeFailures    *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	degradedAnalyses prometheus.Counter
	lastCycle        prometheus.Gauge
}

// NewPipelineMetrics registers all collectors on a fresh registry.
func NewPipelineMetrics() *PipelineMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PipelineMetrics{
		registry: reg,
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed monitoring cycles by overall status",
		}, []string{"status"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a monitoring cycle",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}),
		overallStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_status",
			Help:      "1 for the current overall status, 0 otherwise",
		}, []string{"status"}),
		domainStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domain_status_severity",
			Help:      "Status severity per domain: OK=0 WARN=1 CRIT=2 UNKNOWN=-1",
		}, []string{"domain"}),
		domainValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domain_value",
			Help:      "Headline value per domain",
		}, []string{"domain", "unit"}),
		probeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Total number of domain collections that ended UNKNOWN",
		}, []string{"domain"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and result",
		}, []string{"sink", "result"}),
		degradedAnalyses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_analyses_total",
			Help:      "Total number of degraded analyses",
		}),
		lastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed cycle",
		}),
	}
}

// ObserveCycle records a completed cycle.
func (m *PipelineMetrics) ObserveCycle(snapshot *entity.CycleSnapshot, analysis *entity.Analysis, durationSeconds float64) {
	status := snapshot.OverallStatus()
	if analysis != nil {
		status = analysis.OverallStatus()
		if analysis.IsDegraded() {
			m.degradedAnalyses.Inc()
		}
	}

	m.cycles.WithLabelValues(status.String()).Inc()
	m.cycleDuration.Observe(durationSeconds)
	m.lastCycle.Set(float64(snapshot.Timestamp().Unix()))

	for _, s := range []valueobject.Status{valueobject.StatusOK, valueobject.StatusWarn, valueobject.StatusCrit} {
		value := 0.0
		if s == status {
			value = 1
		}
		m.overallStatus.WithLabelValues(s.String()).Set(value)
	}

	for _, report := range snapshot.Reports() {
		domain := report.Type().String()
		m.domainStatus.WithLabelValues(domain).Set(float64(report.Status().Severity()))
		if !report.IsUnknown() {
			m.domainValue.WithLabelValues(domain, report.Value().Unit()).Set(report.Value().Raw())
		}
	}
}

// ObserveProbeFailure counts a domain that ended UNKNOWN.
func (m *PipelineMetrics) ObserveProbeFailure(domain string) {
	m.probeFailures.WithLabelValues(domain).Inc()
}

// ObserveNotification counts a delivery attempt per sink.
func (m *PipelineMetrics) ObserveNotification(sink string, sent bool) {
	result := "failed"
	if sent {
		result = "sent"
	}
	m.notifications.WithLabelValues(sink, result).Inc()
}

// Registry exposes the registry for tests and custom gatherers.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
