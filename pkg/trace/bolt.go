package trace

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketPrefix = "surface/"

// BoltSink persists samples in a bbolt database, one bucket per surface,
// keyed by a per-bucket sequence number.
type BoltSink struct {
	db *bolt.DB
}

// OpenBoltSink opens or creates the database at path.
func OpenBoltSink(path string) (*BoltSink, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open trace store %s: %w", path, err)
	}
	return &BoltSink{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltSink) Close() error {
	return s.db.Close()
}

// Write appends sample to its surface's bucket.
func (s *BoltSink) Write(sample CommitSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(surfaceBucket(sample.Surface))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), data)
	})
}

// Samples returns the stored samples of surface in insertion order.
func (s *BoltSink) Samples(surface int32) ([]CommitSample, error) {
	var samples []CommitSample
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(surfaceBucket(surface))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var sample CommitSample
			if err := json.Unmarshal(v, &sample); err != nil {
				return fmt.Errorf("sample %d: %w", unmarshalSeq(k), err)
			}
			samples = append(samples, sample)
			return nil
		})
	})
	return samples, err
}

// Surfaces returns the identifiers of every surface with stored samples.
func (s *BoltSink) Surfaces() ([]int32, error) {
	var surfaces []int32
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			id, ok := strings.CutPrefix(string(name), bucketPrefix)
			if !ok {
				return nil
			}
			n, err := strconv.ParseInt(id, 10, 32)
			if err != nil {
				return nil
			}
			surfaces = append(surfaces, int32(n))
			return nil
		})
	})
	return surfaces, err
}

// Prune drops the oldest samples of surface so that at most keep remain.
func (s *BoltSink) Prune(surface int32, keep int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(surfaceBucket(surface))
		if b == nil {
			return nil
		}
		excess := b.Stats().KeyN - keep
		c := b.Cursor()
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := b.Delete(k); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

func surfaceBucket(surface int32) []byte {
	return []byte(bucketPrefix + strconv.Itoa(int(surface)))
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
