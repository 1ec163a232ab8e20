package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram slot.
type MetricID int

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginLockedOut
	MetricLockoutTriggered
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRateLimited
	MetricReuseDetected
	MetricFamilyRevoked
	MetricStaleTokenVersion
	MetricSessionCreated
	MetricSessionInvalidated
	MetricLogout
	MetricLogoutAll
	MetricTokenBlacklisted
	MetricBlacklistPurged
	MetricValidateSuccess
	MetricValidateFailure
	MetricValidateLatency

	MetricIDCount
)

// HistogramBuckets is the number of fixed latency buckets.
const HistogramBuckets = 8

// Bucket upper bounds in nanoseconds; the last bucket is +Inf.
var bucketBounds = [HistogramBuckets - 1]int64{
	int64(5 * time.Millisecond),
	int64(10 * time.Millisecond),
	int64(25 * time.Millisecond),
	int64(50 * time.Millisecond),
	int64(100 * time.Millisecond),
	int64(250 * time.Millisecond),
	int64(500 * time.Millisecond),
}

// Config controls metric collection behavior.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// padded keeps each counter on its own cache line to avoid false sharing
// between hot-path increments.
type padded struct {
	value uint64
	_     [56]byte
}

// Metrics holds atomic counters and optional latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]padded
	histograms    [MetricIDCount][HistogramBuckets]padded
}

// Snapshot is a point-in-time deep copy of all non-zero metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New creates a Metrics instance. When cfg.Enabled is false all operations
// are no-ops and Snapshot returns empty maps.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample for id in the matching histogram bucket.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id < 0 || id >= MetricIDCount {
		return
	}
	bucket := HistogramBuckets - 1
	ns := int64(d)
	for i, bound := range bucketBounds {
		if ns <= bound {
			bucket = i
			break
		}
	}
	atomic.AddUint64(&m.histograms[id][bucket].value, 1)
}

// Snapshot returns a deep copy of all recorded values. Zero-valued counters
// and empty histograms are omitted.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := atomic.LoadUint64(&m.counters[id].value); v > 0 {
			snap.Counters[id] = v
		}
	}

	if !m.enableLatency {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		var total uint64
		buckets := make([]uint64, HistogramBuckets)
		for b := 0; b < HistogramBuckets; b++ {
			buckets[b] = atomic.LoadUint64(&m.histograms[id][b].value)
			total += buckets[b]
		}
		if total > 0 {
			snap.Histograms[id] = buckets
		}
	}
	return snap
}

// BucketBoundsMillis returns the histogram upper bounds in milliseconds,
// excluding the +Inf bucket. Exporters use this for bucket labels.
func BucketBoundsMillis() []int64 {
	out := make([]int64, len(bucketBounds))
	for i, b := range bucketBounds {
		out[i] = b / int64(time.Millisecond)
	}
	return out
}
