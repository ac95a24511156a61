// Package job defines the job record, its status state machine, and the
// descriptor workers pick up from the queue.
package job

import "time"

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusQueued  Status = "QUEUED"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal step of the
// state machine QUEUED -> RUNNING -> {DONE|FAILED}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusDone || next == StatusFailed
	default:
		return false
	}
}

// MaxErrorLen bounds the diagnostic stored on a failed job so a noisy
// renderer cannot grow records without limit.
const MaxErrorLen = 2000

// Record is the durable state of one render job. It is created exactly once
// by the submission service and afterwards mutated only by the worker that
// dequeued it.
type Record struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Payload   string    `json:"payload"`
	ResultKey string    `json:"result_key,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a freshly queued record for the given payload.
func New(id string, payload []byte) Record {
	now := time.Now().UTC()
	return Record{
		ID:        id,
		Status:    StatusQueued,
		Payload:   string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Update is a partial mutation applied by ports.JobStore.Update. Nil fields
// are left untouched; the store stamps UpdatedAt on every call.
type Update struct {
	Status    *Status
	ResultKey *string
	Error     *string
}

// StatusUpdate builds an Update for a plain status transition.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// DoneUpdate marks a job completed with the artifact it produced.
func DoneUpdate(resultKey string) Update {
	s := StatusDone
	empty := ""
	return Update{Status: &s, ResultKey: &resultKey, Error: &empty}
}

// FailedUpdate marks a job failed with a bounded diagnostic.
func FailedUpdate(diag string) Update {
	s := StatusFailed
	diag = Truncate(diag, MaxErrorLen)
	return Update{Status: &s, Error: &diag}
}

// Truncate clips s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Descriptor is the wire form pushed onto the work queue: just enough for a
// worker to run the job without a store read.
type Descriptor struct {
	JobID   string `json:"job_id"`
	Payload string `json:"payload"`
}
