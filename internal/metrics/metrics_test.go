package metrics

import (
	"testing"
	"time"
)

func TestCountersDisabled(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}
}

func TestCountersAndSnapshot(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricIDCount)
	m.Observe(MetricLoginLatency, 3*time.Millisecond)
	m.Observe(MetricLoginLatency, time.Second)
	m.Observe(MetricLoginFailure, time.Millisecond)

	s := m.Snapshot()
	if s.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected 2 failures, got %d", s.Counters[MetricLoginFailure])
	}
	if _, ok := s.Counters[MetricLoginLatency]; ok {
		t.Fatal("latency id must not appear as a counter")
	}
	buckets := s.Histograms[MetricLoginLatency]
	if len(buckets) != HistBucketCount || buckets[0] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Millisecond)
	if m.Enabled() || m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}
