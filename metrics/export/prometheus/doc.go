// Package prometheus exposes authcore metrics as a Prometheus collector.
//
// [NewPrometheusExporter] wraps an Engine in an [Exporter] registered in its
// own registry. Mount [Exporter.Handler] on a metrics route, or register the
// Exporter in an existing registry. Counters are named authcore_*_total; the
// login latency histogram is authcore_login_latency_seconds and is present
// only when latency histograms are enabled.
//
// The package never touches the global default registry.
package prometheus
