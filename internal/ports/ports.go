// Package ports declares the narrow contracts the orchestration core and the
// worker depend on. Implementations (memory, redis, postgres, localfs,
// gdrive) live under internal/store and internal/adapters.
package ports

import (
	"context"
	"io"
	"time"

	"inkwell/internal/job"
)

// JobStore is the durable id -> record mapping.
//
// Put must fail with an ALREADY_EXISTS error when the id is taken (ids carry
// collision-negligible randomness, so this is a defensive check). Get must
// fail with NOT_FOUND for unknown ids. Update applies a partial mutation and
// stamps UpdatedAt; the store serializes concurrent updates to different
// jobs without corrupting unrelated records. Each job has exactly one writer
// after creation, so no per-record locking is required of callers.
type JobStore interface {
	Put(ctx context.Context, rec job.Record) error
	Get(ctx context.Context, id string) (job.Record, error)
	Update(ctx context.Context, id string, upd job.Update) error
}

// DedupIndex maps a payload fingerprint to the job that owns it.
//
// TryClaim is the single linearization point of the whole subsystem: it must
// atomically store id when the fingerprint is free and report the previous
// owner otherwise. A read-then-write pair is not an implementation.
type DedupIndex interface {
	// TryClaim returns (true, "", nil) when the fingerprint was claimed for
	// id, and (false, existingID, nil) when another job already owns it.
	TryClaim(ctx context.Context, fingerprint, id string) (claimed bool, existing string, err error)

	// Reclaim unconditionally points the fingerprint at id. Used only to
	// reconcile a stale entry whose job record has gone missing.
	Reclaim(ctx context.Context, fingerprint, id string) error
}

// Queue is the FIFO channel of pending work descriptors.
//
// Pop blocks for at most timeout and returns ok=false when it elapses with
// nothing to deliver, so worker loops stay responsive to shutdown. Each
// descriptor is delivered to exactly one caller.
type Queue interface {
	Push(ctx context.Context, d job.Descriptor) error
	Pop(ctx context.Context, timeout time.Duration) (d job.Descriptor, ok bool, err error)
}

// PutObjectInput describes one artifact upload.
type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// PutObjectOutput reports where the artifact actually landed.
// On localfs this is the same object key; on gdrive it is the Drive fileId.
type PutObjectOutput struct {
	ObjectKey string
	Size      int64
}

// ArtifactStore holds finished render artifacts, keyed by the ResultKey
// stored on the job record.
type ArtifactStore interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
