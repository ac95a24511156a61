// Package memory provides in-process implementations of the job store,
// dedup index, and work queue. They back tests and single-process runs;
// the contracts match the redis and postgres backends exactly.
package memory

import (
	"context"
	"sync"
	"time"

	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
)

// JobStore is a mutex-guarded id -> record map.
type JobStore struct {
	mu   sync.RWMutex
	recs map[string]job.Record
}

func NewJobStore() *JobStore {
	return &JobStore{recs: make(map[string]job.Record)}
}

func (s *JobStore) Put(ctx context.Context, rec job.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; ok {
		return errors.AlreadyExists("job", rec.ID)
	}
	s.recs[rec.ID] = rec
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (job.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return job.Record{}, errors.NotFound("job", id)
	}
	return rec, nil
}

func (s *JobStore) Update(ctx context.Context, id string, upd job.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return errors.NotFound("job", id)
	}
	if upd.Status != nil {
		rec.Status = *upd.Status
	}
	if upd.ResultKey != nil {
		rec.ResultKey = *upd.ResultKey
	}
	if upd.Error != nil {
		rec.Error = *upd.Error
	}
	rec.UpdatedAt = time.Now().UTC()
	s.recs[id] = rec
	return nil
}

// DedupIndex is a mutex-guarded fingerprint -> job id map. The lock makes
// TryClaim a single atomic check-and-set.
type DedupIndex struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewDedupIndex() *DedupIndex {
	return &DedupIndex{entries: make(map[string]string)}
}

func (d *DedupIndex) TryClaim(ctx context.Context, fingerprint, id string) (bool, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.entries[fingerprint]; ok {
		return false, existing, nil
	}
	d.entries[fingerprint] = id
	return true, "", nil
}

func (d *DedupIndex) Reclaim(ctx context.Context, fingerprint, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[fingerprint] = id
	return nil
}

// Queue is a buffered channel of descriptors. Delivery to exactly one
// consumer follows from channel semantics.
type Queue struct {
	ch chan job.Descriptor
}

// NewQueue creates a queue holding at most size pending descriptors.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{ch: make(chan job.Descriptor, size)}
}

func (q *Queue) Push(ctx context.Context, d job.Descriptor) error {
	select {
	case q.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (job.Descriptor, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-q.ch:
		return d, true, nil
	case <-timer.C:
		return job.Descriptor{}, false, nil
	case <-ctx.Done():
		return job.Descriptor{}, false, ctx.Err()
	}
}
