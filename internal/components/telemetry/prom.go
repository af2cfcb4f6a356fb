package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusConfig struct {
	// node exporter textfile the metrics are written to when the command exits.
	Textfile string `json:"textfile" yaml:"textfile"`
}

// PromAPI forwards every report to inner and tracks it in a prometheus
// registry.
type PromAPI struct {
	inner    API
	registry *prometheus.Registry
	broken   *prometheus.CounterVec
	warnings *prometheus.CounterVec
	counts   *prometheus.GaugeVec
}

func NewPromAPI(inner API) *PromAPI {
	if inner == nil {
		inner = Nop{}
	}
	registry := prometheus.NewRegistry()
	p := &PromAPI{
		inner:    inner,
		registry: registry,
		broken: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedwarden_broken_total",
			Help: "Number of broken reports by component.",
		}, []string{"id"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedwarden_warnings_total",
			Help: "Number of warnings by component.",
		}, []string{"id"}),
		counts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedwarden_count",
			Help: "Last reported count by id.",
		}, []string{"id"}),
	}
	registry.MustRegister(p.broken, p.warnings, p.counts)
	return p
}

func (p *PromAPI) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PromAPI) ReportBroken(id string, params ...any) {
	p.broken.WithLabelValues(id).Inc()
	p.inner.ReportBroken(id, params...)
}

func (p *PromAPI) ReportWarning(id string, params ...any) {
	p.warnings.WithLabelValues(id).Inc()
	p.inner.ReportWarning(id, params...)
}

func (p *PromAPI) ReportDebug(msg string, params ...any) {
	p.inner.ReportDebug(msg, params...)
}

func (p *PromAPI) ReportCount(id string, count int64) {
	p.counts.WithLabelValues(id).Set(float64(count))
	p.inner.ReportCount(id, count)
}

// WriteTextfile writes the current metrics in the text exposition format.
func (p *PromAPI) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
