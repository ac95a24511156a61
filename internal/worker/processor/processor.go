// Package processor executes one dequeued job end to end: RUNNING
// transition, render under a hard timeout, artifact upload, terminal
// transition. A failure ends on the job record and nowhere else.
package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
	"inkwell/internal/pkg/logger"
	"inkwell/internal/ports"
	"inkwell/internal/renderer"
)

// DefaultRenderTimeout matches the wall-clock bound the converter is run
// under in production.
const DefaultRenderTimeout = 5 * time.Minute

type Deps struct {
	Store         ports.JobStore
	Artifacts     ports.ArtifactStore
	Renderer      renderer.Renderer
	RenderTimeout time.Duration
	Log           *logger.Logger
}

type Processor struct {
	store         ports.JobStore
	artifacts     ports.ArtifactStore
	renderer      renderer.Renderer
	renderTimeout time.Duration
	log           *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	timeout := d.RenderTimeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &Processor{
		store:         d.Store,
		artifacts:     d.Artifacts,
		renderer:      d.Renderer,
		renderTimeout: timeout,
		log:           log.WithComponent("processor"),
	}
}

// Process runs one descriptor to a terminal state. The returned error is
// for the worker loop's log only; by the time Process returns, the outcome
// is already on the record.
func (p *Processor) Process(ctx context.Context, d job.Descriptor) error {
	log := p.log.FromContext(ctx).WithJobID(d.JobID)

	// RUNNING goes down before any work so a crash mid-render is
	// observable as RUNNING, not as a job stuck in QUEUED.
	if err := p.markRunning(ctx, d.JobID); err != nil {
		return errors.Wrap(err, "processor.status", "failed to mark job as running")
	}

	renderCtx, cancel := context.WithTimeout(ctx, p.renderTimeout)
	defer cancel()

	log.Debug("render started")
	artifactPath, err := p.renderer.Render(renderCtx, []byte(d.Payload))
	if err != nil {
		return p.fail(ctx, d.JobID, err)
	}
	defer os.Remove(artifactPath)
	log.Debug("render completed", "artifact", artifactPath)

	resultKey, err := p.uploadArtifact(ctx, d.JobID, artifactPath)
	if err != nil {
		return p.fail(ctx, d.JobID, err)
	}

	if err := p.store.Update(ctx, d.JobID, job.DoneUpdate(resultKey)); err != nil {
		return errors.Wrap(err, "processor.status", "failed to mark job as done")
	}

	log.Info("job done", "result_key", resultKey)
	return nil
}

func (p *Processor) markRunning(ctx context.Context, jobID string) error {
	running := job.StatusRunning
	empty := ""
	return p.store.Update(ctx, jobID, job.Update{Status: &running, Error: &empty})
}

func (p *Processor) uploadArtifact(ctx context.Context, jobID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "processor.upload", "artifact open failed")
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	out, err := p.artifacts.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   fmt.Sprintf("pdfs/%s.pdf", jobID),
		ContentType: "application/pdf",
		Reader:      f,
		Size:        size,
	})
	if err != nil {
		return "", errors.Wrap(err, "processor.upload", "artifact upload failed")
	}
	return out.ObjectKey, nil
}

// fail records the terminal FAILED state with a bounded diagnostic. The
// job record is the sole channel that carries this failure to clients.
func (p *Processor) fail(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	diag := renderer.Diagnostic(cause)

	var coded *errors.Error
	if errors.As(cause, &coded) {
		log.Error("job failed",
			"code", string(coded.Code),
			"op", coded.Op,
			"message", coded.Message,
		)
	} else {
		log.Error("job failed", "error", diag)
	}

	if err := p.store.Update(ctx, jobID, job.FailedUpdate(diag)); err != nil {
		log.Error("failed to record job failure", "error", err.Error())
	}

	return cause
}
