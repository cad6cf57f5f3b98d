package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRegistration
	MetricRegistrationDuplicate
	MetricPasswordChange
	MetricPasswordResetRequest
	MetricPasswordReset
	MetricPasswordResetFailure
	MetricAccountDeleted
	MetricRoleChanged
	MetricAuthenticateFailure
	MetricLockoutFailOpen
	MetricLoginLatency
	MetricIDCount
)

const (
	// HistBucketCount is the number of latency buckets (≤5ms … +Inf).
	HistBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [HistBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config selects what is recorded.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds lock-free counters and latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New returns a Metrics. With Enabled false every call is a no-op.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only latency IDs keep histograms.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricLoginLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. A disabled Metrics returns empty maps.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if id == MetricLoginLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, HistBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
