package trace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBufferDefaults(t *testing.T) {
	b := NewBuffer(0, 0)
	if got := b.Capacity(); got != defaultCapacity {
		t.Errorf("Capacity() = %d, want %d", got, defaultCapacity)
	}
	if got := b.Threshold(); got != defaultSlowThreshold {
		t.Errorf("Threshold() = %v, want %v", got, defaultSlowThreshold)
	}
	snap := b.Snapshot()
	if len(snap.Samples) != 0 || snap.ThresholdMs != 16 {
		t.Errorf("empty snapshot = %+v", snap)
	}
}

func TestBufferWrapsChronologically(t *testing.T) {
	b := NewBuffer(3, 10*time.Millisecond)
	for i := uint64(1); i <= 5; i++ {
		d := time.Millisecond
		if i%2 == 0 {
			d = 20 * time.Millisecond
		}
		b.Add(CommitSample{Surface: 1, CommitNumber: i}, d)
	}

	snap := b.Snapshot()
	var got []uint64
	for _, s := range snap.Samples {
		got = append(got, s.CommitNumber)
	}
	if diff := cmp.Diff([]uint64{3, 4, 5}, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if snap.SlowCommits != 2 {
		t.Errorf("SlowCommits = %d, want 2", snap.SlowCommits)
	}
}

func TestBufferSetThreshold(t *testing.T) {
	b := NewBuffer(4, time.Second)
	b.SetThreshold(-1)
	if got := b.Threshold(); got != defaultSlowThreshold {
		t.Errorf("Threshold() = %v, want default", got)
	}
	b.SetThreshold(5 * time.Millisecond)
	b.Add(CommitSample{}, 6*time.Millisecond)
	if got := b.Snapshot().SlowCommits; got != 1 {
		t.Errorf("SlowCommits = %d, want 1", got)
	}
}

type memorySink struct{ samples []CommitSample }

func (s *memorySink) Write(sample CommitSample) error {
	s.samples = append(s.samples, sample)
	return nil
}

func TestBufferForwardsToSink(t *testing.T) {
	b := NewBuffer(1, 0)
	sink := &memorySink{}
	b.SetSink(sink)
	b.Add(CommitSample{CommitNumber: 1}, 0)
	b.Add(CommitSample{CommitNumber: 2}, 0)
	b.SetSink(nil)
	b.Add(CommitSample{CommitNumber: 3}, 0)

	if len(sink.samples) != 2 {
		t.Fatalf("sink got %d samples, want 2", len(sink.samples))
	}
	if got := b.Snapshot().Samples[0].CommitNumber; got != 3 {
		t.Errorf("ring holds commit %d, want 3", got)
	}
}

func TestBoltSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	sink, err := OpenBoltSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	want := []CommitSample{
		{Timestamp: 10, Surface: 1, CommitNumber: 1, Mutations: 2, CommitMs: 0.5},
		{Timestamp: 20, Surface: 1, CommitNumber: 2, Mutations: 1, LayoutMs: 0.25},
	}
	for _, s := range want {
		if err := sink.Write(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Write(CommitSample{Surface: 7, CommitNumber: 1}); err != nil {
		t.Fatal(err)
	}

	got, err := sink.Samples(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	surfaces, err := sink.Surfaces()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{1, 7}, surfaces); diff != "" {
		t.Errorf("surfaces mismatch (-want +got):\n%s", diff)
	}

	if none, err := sink.Samples(99); err != nil || len(none) != 0 {
		t.Errorf("Samples(99) = %v, %v; want empty", none, err)
	}
}

func TestBoltSinkPrune(t *testing.T) {
	sink, err := OpenBoltSink(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	for i := uint64(1); i <= 5; i++ {
		if err := sink.Write(CommitSample{Surface: 2, CommitNumber: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Prune(2, 2); err != nil {
		t.Fatal(err)
	}
	got, err := sink.Samples(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].CommitNumber != 4 || got[1].CommitNumber != 5 {
		t.Errorf("after prune got %+v, want commits 4 and 5", got)
	}
}
