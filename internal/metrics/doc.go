// Package metrics provides lock-free counters and a login latency histogram.
//
// Counters live in cache-line-padded uint64 slots incremented with
// [sync/atomic.AddUint64]. The histogram uses 8 fixed buckets (≤5ms … +Inf).
// Both are allocation-free on the write path.
//
// Export (Prometheus, OpenTelemetry) lives in metrics/export and reads
// Snapshot values. This package performs no I/O and keeps no global registry.
package metrics
