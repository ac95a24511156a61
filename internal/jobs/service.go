// Package jobs is the orchestration core: content-addressed submission,
// status queries, and gated result retrieval. Every transport front-end is a
// thin adapter over this one service, and the worker pool is its only other
// writer.
package jobs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/google/uuid"

	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
	"inkwell/internal/pkg/logger"
	"inkwell/internal/ports"
)

// Deps are the injected capabilities the service operates over.
type Deps struct {
	Store     ports.JobStore
	Dedup     ports.DedupIndex
	Queue     ports.Queue
	Artifacts ports.ArtifactStore
	Log       *logger.Logger
}

// Service implements submit / status / result over the injected ports.
type Service struct {
	store     ports.JobStore
	dedup     ports.DedupIndex
	queue     ports.Queue
	artifacts ports.ArtifactStore
	log       *logger.Logger
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Service{
		store:     d.Store,
		dedup:     d.Dedup,
		queue:     d.Queue,
		artifacts: d.Artifacts,
		log:       log.WithComponent("jobs"),
	}
}

// SubmitResult is what a submitter gets back: the handle to poll, the
// status at submission time, and whether an earlier identical submission
// was reused.
type SubmitResult struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
	Cached bool       `json:"cached"`
}

// Fingerprint returns the dedup key for a payload: the hex SHA-256 of the
// exact bytes.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Submit fingerprints the payload, claims the fingerprint, and enqueues a
// fresh job when the claim wins. When an identical payload is already
// tracked, the existing job is returned with Cached=true and nothing is
// enqueued. A dedup entry pointing at a missing record is treated as stale:
// the entry is overwritten and a fresh job created, so the caller never sees
// the internal inconsistency.
func (s *Service) Submit(ctx context.Context, payload []byte) (SubmitResult, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return SubmitResult{}, errors.Validation("empty payload")
	}

	fp := Fingerprint(payload)
	id := uuid.NewString()
	log := s.log.FromContext(ctx)

	claimed, existing, err := s.dedup.TryClaim(ctx, fp, id)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "jobs.submit", "dedup claim failed")
	}

	if !claimed {
		rec, err := s.store.Get(ctx, existing)
		if err == nil {
			log.Debug("submission deduplicated",
				"job_id", existing,
				"status", string(rec.Status),
			)
			return SubmitResult{JobID: existing, Status: rec.Status, Cached: true}, nil
		}
		if !errors.IsNotFound(err) {
			return SubmitResult{}, errors.Wrap(err, "jobs.submit", "dedup target lookup failed")
		}

		// Stale entry: the index points at a job the store no longer has.
		// Take the claim over and fall through to fresh creation.
		log.Warn("stale dedup entry, creating fresh job",
			"stale_job_id", existing,
		)
		if err := s.dedup.Reclaim(ctx, fp, id); err != nil {
			return SubmitResult{}, errors.Wrap(err, "jobs.submit", "dedup reclaim failed")
		}
	}

	rec := job.New(id, payload)
	if err := s.store.Put(ctx, rec); err != nil {
		return SubmitResult{}, errors.Wrap(err, "jobs.submit", "job create failed")
	}

	if err := s.queue.Push(ctx, job.Descriptor{JobID: id, Payload: rec.Payload}); err != nil {
		return SubmitResult{}, errors.Wrap(err, "jobs.submit", "queue push failed")
	}

	log.Info("job submitted", "job_id", id)
	return SubmitResult{JobID: id, Status: job.StatusQueued, Cached: false}, nil
}

// Status is a pure read of the job record.
func (s *Service) Status(ctx context.Context, id string) (job.Record, error) {
	return s.store.Get(ctx, id)
}

// Result streams the finished artifact. It fails with CONFLICT until the
// job is DONE, and with STORE_INCONSISTENT when the record claims DONE but
// the artifact cannot be served; that violation is always reported, never
// papered over.
func (s *Service) Result(ctx context.Context, id string) (rc io.ReadCloser, contentType string, size int64, err error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", 0, err
	}

	if rec.Status != job.StatusDone {
		return nil, "", 0, errors.Newf(errors.CodeConflict, "job not ready (status=%s)", rec.Status).
			WithField("status", string(rec.Status))
	}

	if rec.ResultKey == "" {
		return nil, "", 0, errors.Inconsistent("job is done but no artifact is recorded").
			WithField("job_id", id)
	}

	rc, contentType, size, err = s.artifacts.GetObject(ctx, rec.ResultKey)
	if err != nil {
		return nil, "", 0, errors.WrapWithCode(err, errors.CodeInconsistent, "jobs.result", "artifact missing for done job").
			WithField("job_id", id).
			WithField("result_key", rec.ResultKey)
	}

	if contentType == "" {
		contentType = "application/pdf"
	}
	return rc, contentType, size, nil
}
