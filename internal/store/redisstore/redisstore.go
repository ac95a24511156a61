// Package redisstore implements the job store, dedup index, and work queue
// on Redis. Layout: job records are hashes under job:{id}, dedup entries are
// plain keys under pdf_hash:{fingerprint}, and the queue is a list consumed
// with BRPOP.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
)

const (
	jobKeyPrefix   = "job:"
	dedupKeyPrefix = "pdf_hash:"

	// DefaultQueueName is the list the worker pool consumes.
	DefaultQueueName = "inkwell:jobs"
)

func jobKey(id string) string { return jobKeyPrefix + id }

func dedupKey(fingerprint string) string { return dedupKeyPrefix + fingerprint }

// JobStore stores records as Redis hashes.
type JobStore struct {
	rdb *redis.Client
}

func NewJobStore(rdb *redis.Client) *JobStore {
	return &JobStore{rdb: rdb}
}

func (s *JobStore) Put(ctx context.Context, rec job.Record) error {
	// HSetNX on the id field doubles as the existence check; ids are random
	// so a hit here means a programming error, not a normal path.
	set, err := s.rdb.HSetNX(ctx, jobKey(rec.ID), "id", rec.ID).Result()
	if err != nil {
		return errors.Wrap(err, "redisstore.put", "job create failed")
	}
	if !set {
		return errors.AlreadyExists("job", rec.ID)
	}

	fields := map[string]any{
		"status":     string(rec.Status),
		"payload":    rec.Payload,
		"result_key": rec.ResultKey,
		"error":      rec.Error,
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": rec.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := s.rdb.HSet(ctx, jobKey(rec.ID), fields).Err(); err != nil {
		return errors.Wrap(err, "redisstore.put", "job write failed")
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (job.Record, error) {
	vals, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return job.Record{}, errors.Wrap(err, "redisstore.get", "job read failed")
	}
	if len(vals) == 0 {
		return job.Record{}, errors.NotFound("job", id)
	}

	rec := job.Record{
		ID:        vals["id"],
		Status:    job.Status(vals["status"]),
		Payload:   vals["payload"],
		ResultKey: vals["result_key"],
		Error:     vals["error"],
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, vals["created_at"])
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, vals["updated_at"])
	return rec, nil
}

func (s *JobStore) Update(ctx context.Context, id string, upd job.Update) error {
	exists, err := s.rdb.Exists(ctx, jobKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "redisstore.update", "job read failed")
	}
	if exists == 0 {
		return errors.NotFound("job", id)
	}

	fields := map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if upd.Status != nil {
		fields["status"] = string(*upd.Status)
	}
	if upd.ResultKey != nil {
		fields["result_key"] = *upd.ResultKey
	}
	if upd.Error != nil {
		fields["error"] = *upd.Error
	}

	if err := s.rdb.HSet(ctx, jobKey(id), fields).Err(); err != nil {
		return errors.Wrap(err, "redisstore.update", "job write failed")
	}
	return nil
}

// DedupIndex claims fingerprints with SETNX, which is the atomic
// check-and-set the submission path depends on.
type DedupIndex struct {
	rdb *redis.Client
}

func NewDedupIndex(rdb *redis.Client) *DedupIndex {
	return &DedupIndex{rdb: rdb}
}

func (d *DedupIndex) TryClaim(ctx context.Context, fingerprint, id string) (bool, string, error) {
	claimed, err := d.rdb.SetNX(ctx, dedupKey(fingerprint), id, 0).Result()
	if err != nil {
		return false, "", errors.Wrap(err, "redisstore.tryclaim", "dedup claim failed")
	}
	if claimed {
		return true, "", nil
	}

	existing, err := d.rdb.Get(ctx, dedupKey(fingerprint)).Result()
	if err == redis.Nil {
		// Entry vanished between SETNX and GET (external expiry policy).
		// Take the claim over.
		if err := d.Reclaim(ctx, fingerprint, id); err != nil {
			return false, "", err
		}
		return true, "", nil
	}
	if err != nil {
		return false, "", errors.Wrap(err, "redisstore.tryclaim", "dedup read failed")
	}
	return false, existing, nil
}

func (d *DedupIndex) Reclaim(ctx context.Context, fingerprint, id string) error {
	if err := d.rdb.Set(ctx, dedupKey(fingerprint), id, 0).Err(); err != nil {
		return errors.Wrap(err, "redisstore.reclaim", "dedup overwrite failed")
	}
	return nil
}

// Queue is a Redis list pushed with LPUSH and popped with BRPOP, so each
// descriptor reaches exactly one worker.
type Queue struct {
	rdb       *redis.Client
	queueName string
}

func NewQueue(rdb *redis.Client, queueName string) *Queue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Queue{rdb: rdb, queueName: queueName}
}

func (q *Queue) Push(ctx context.Context, d job.Descriptor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "redisstore.push", "descriptor marshal failed")
	}
	if err := q.rdb.LPush(ctx, q.queueName, raw).Err(); err != nil {
		return errors.Wrap(err, "redisstore.push", "queue push failed")
	}
	return nil
}

func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (job.Descriptor, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err == redis.Nil {
		return job.Descriptor{}, false, nil
	}
	if err != nil {
		return job.Descriptor{}, false, errors.Wrap(err, "redisstore.pop", "queue pop failed")
	}
	if len(res) < 2 {
		return job.Descriptor{}, false, nil
	}

	var d job.Descriptor
	if err := json.Unmarshal([]byte(res[1]), &d); err != nil {
		return job.Descriptor{}, false, errors.Wrap(err, "redisstore.pop", "descriptor unmarshal failed")
	}
	return d, true, nil
}
