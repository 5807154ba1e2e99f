package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProfileReads          uint64
	KeysAdded             uint64
	KeysDeleted           uint64
	Lookups               uint64
	LookupDurationCount   uint64
	LookupDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	profileReads          uint64
	keysAdded             uint64
	keysDeleted           uint64
	lookups               uint64
	lookupDurationCount   uint64
	lookupDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ProfileReads:          atomic.LoadUint64(&m.profileReads),
		KeysAdded:             atomic.LoadUint64(&m.keysAdded),
		KeysDeleted:           atomic.LoadUint64(&m.keysDeleted),
		Lookups:               atomic.LoadUint64(&m.lookups),
		LookupDurationCount:   atomic.LoadUint64(&m.lookupDurationCount),
		LookupDurationTotalNs: atomic.LoadInt64(&m.lookupDurationTotalNs),
	}
}

// IncProfileRead increments the profile read counter.
func (m *InMemoryRecorder) IncProfileRead() {
	atomic.AddUint64(&m.profileReads, 1)
}

// IncKeyAdded increments the key added counter.
func (m *InMemoryRecorder) IncKeyAdded() {
	atomic.AddUint64(&m.keysAdded, 1)
}

// IncKeyDeleted increments the key deleted counter.
func (m *InMemoryRecorder) IncKeyDeleted() {
	atomic.AddUint64(&m.keysDeleted, 1)
}

// IncLookup increments the machine-lookup counter.
func (m *InMemoryRecorder) IncLookup() {
	atomic.AddUint64(&m.lookups, 1)
}

// ObserveLookupDuration records a lookup duration.
func (m *InMemoryRecorder) ObserveLookupDuration(duration time.Duration) {
	atomic.AddUint64(&m.lookupDurationCount, 1)
	atomic.AddInt64(&m.lookupDurationTotalNs, duration.Nanoseconds())
}
