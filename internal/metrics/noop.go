package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncProfileRead is a no-op.
func (n *NoopRecorder) IncProfileRead() {}

// IncKeyAdded is a no-op.
func (n *NoopRecorder) IncKeyAdded() {}

// IncKeyDeleted is a no-op.
func (n *NoopRecorder) IncKeyDeleted() {}

// IncLookup is a no-op.
func (n *NoopRecorder) IncLookup() {}

// ObserveLookupDuration is a no-op.
func (n *NoopRecorder) ObserveLookupDuration(duration time.Duration) {}
