package trace

import (
	"sync"
	"time"

	"github.com/go-drift/fabric/pkg/errors"
)

const (
	defaultCapacity      = 240
	defaultSlowThreshold = 16 * time.Millisecond
)

// CommitSample is a single commit trace sample.
type CommitSample struct {
	Timestamp    int64   `json:"ts"`
	Surface      int32   `json:"surface"`
	CommitNumber uint64  `json:"commit"`
	Mutations    int     `json:"mutations"`
	CommitMs     float64 `json:"commitMs"`
	LayoutMs     float64 `json:"layoutMs"`
}

// Timeline is a chronological view of the buffer.
type Timeline struct {
	Samples     []CommitSample `json:"samples"`
	SlowCommits int            `json:"slowCommits"`
	ThresholdMs float64        `json:"thresholdMs"`
}

// Sink receives every sample added to a Buffer.
type Sink interface {
	Write(sample CommitSample) error
}

// Buffer stores recent commit samples in a ring buffer.
type Buffer struct {
	mu        sync.RWMutex
	samples   []CommitSample
	index     int
	count     int
	slow      int
	threshold time.Duration
	sink      Sink
}

// NewBuffer creates a buffer holding up to capacity samples. Non-positive
// arguments select the defaults.
func NewBuffer(capacity int, threshold time.Duration) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if threshold <= 0 {
		threshold = defaultSlowThreshold
	}
	return &Buffer{
		samples:   make([]CommitSample, capacity),
		threshold: threshold,
	}
}

// Capacity returns the buffer capacity.
func (b *Buffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SetThreshold updates the slow commit threshold.
func (b *Buffer) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		threshold = defaultSlowThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Threshold returns the slow commit threshold.
func (b *Buffer) Threshold() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// SetSink installs a sink for subsequent samples. A nil sink disables
// forwarding.
func (b *Buffer) SetSink(sink Sink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Add records a sample and updates the slow commit count. Sink failures are
// reported and otherwise ignored.
func (b *Buffer) Add(sample CommitSample, commitDuration time.Duration) {
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if commitDuration > b.threshold {
		b.slow++
	}
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		if err := sink.Write(sample); err != nil {
			errors.ReportOp("trace.Buffer.Add", errors.KindUnknown, sample.Surface, err)
		}
	}
}

// Snapshot returns a chronological copy of samples and stats.
func (b *Buffer) Snapshot() Timeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return Timeline{ThresholdMs: Millis(b.threshold)}
	}

	result := make([]CommitSample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return Timeline{
		Samples:     result,
		SlowCommits: b.slow,
		ThresholdMs: Millis(b.threshold),
	}
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
