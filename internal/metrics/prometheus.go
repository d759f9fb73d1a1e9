package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

const namespace = "servicetag"

// Prometheus keeps run gauges on a private registry.
type Prometheus struct {
	reg      *prometheus.Registry
	textfile string

	services    prometheus.Gauge
	ipRanges    prometheus.Gauge
	changes     *prometheus.GaugeVec
	lastRun     prometheus.Gauge
	runDuration prometheus.Gauge
}

// Ensure Prometheus implements Recorder.
var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the gauges. When textfile is set, every Record
// writes the registry to it in the text exposition format.
func NewPrometheus(textfile string) *Prometheus {
	p := &Prometheus{
		reg:      prometheus.NewRegistry(),
		textfile: textfile,
		services: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services_total",
			Help:      "Number of service tags in the latest dataset",
		}),
		ipRanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ip_ranges_total",
			Help:      "Number of distinct address prefixes in the latest dataset",
		}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "changes",
			Help:      "Changes detected by the last run, by type",
		}, []string{"type"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}
	p.reg.MustRegister(p.services, p.ipRanges, p.changes, p.lastRun, p.runDuration)
	return p
}

// Registry returns the registry holding the gauges.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Record implements Recorder.
func (p *Prometheus) Record(ctx context.Context, res *domain.RunResult) error {
	if res.Summary != nil {
		p.ObserveSummary(res.Summary)
	}
	for typ, n := range changeCounts(res.Changes) {
		p.changes.WithLabelValues(string(typ)).Set(float64(n))
	}
	p.lastRun.Set(float64(res.CompletedAt.Unix()))
	p.runDuration.Set(res.CompletedAt.Sub(res.StartedAt).Seconds())

	if p.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p.textfile, p.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// ObserveSummary sets the dataset gauges from a stored summary.
func (p *Prometheus) ObserveSummary(s *domain.Summary) {
	p.services.Set(float64(s.TotalServices))
	p.ipRanges.Set(float64(s.TotalIPRanges))
	p.changes.WithLabelValues(string(domain.ChangeServiceAdded)).Set(float64(s.ServiceAdditions))
	p.changes.WithLabelValues(string(domain.ChangeServiceRemoved)).Set(float64(s.ServiceRemovals))
	p.changes.WithLabelValues(string(domain.ChangeIPChanges)).Set(float64(s.IPChanges))
}
