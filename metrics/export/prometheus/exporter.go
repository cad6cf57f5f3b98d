package prometheus

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ErrNilSource = errors.New("nil metrics source")

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   authcore.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   authcore.MetricID
	desc *prometheus.Desc
}

// Exporter is a prometheus.Collector reading an Engine's snapshot on every
// scrape.
type Exporter struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
	registry     *prometheus.Registry
}

// NewPrometheusExporter returns an Exporter for engine, registered in a
// private registry served by Handler.
func NewPrometheusExporter(engine *authcore.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewPrometheusExporterFromSource(engine)
}

func NewPrometheusExporterFromSource(source metricsSource) (*Exporter, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			internaldefs.AuditDroppedName,
			"Activity log entries dropped by the async dispatcher.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}

	e.registry = prometheus.NewRegistry()
	if err := e.registry.Register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.auditDropped
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		buckets := internaldefs.NormalizeBuckets(raw)
		cumulative := internaldefs.CumulativeBuckets(buckets)
		upper := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			upper[bound] = cumulative[i]
		}
		ch <- prometheus.MustNewConstHistogram(
			h.desc,
			cumulative[len(cumulative)-1],
			internaldefs.ApproxSum(buckets),
			upper,
		)
	}
	ch <- prometheus.MustNewConstMetric(e.auditDropped, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

// Registry exposes the private registry so callers can add their own collectors.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
