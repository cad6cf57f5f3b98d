// Package otel publishes authcore metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and, for
// the login latency histogram, a bucket gauge with an "le" attribute plus a
// count gauge. One callback reads [authcore.Engine.MetricsSnapshot] per
// collection cycle.
//
// Callers own the MeterProvider.
package otel
