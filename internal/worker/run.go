// Package worker runs the pool that drains the work queue and drives each
// job to a terminal state.
package worker

import (
	"context"
	"sync"
	"time"

	"inkwell/internal/pkg/logger"
	"inkwell/internal/worker/processor"
)

const defaultPopTimeout = 5 * time.Second

// Run starts the worker pool and blocks until ctx is canceled. Each worker
// loops independently on the shared queue; the queue guarantees each
// descriptor reaches exactly one of them.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}
	popTimeout := d.PopTimeout
	if popTimeout <= 0 {
		popTimeout = defaultPopTimeout
	}

	p := processor.New(processor.Deps{
		Store:         d.Store,
		Artifacts:     d.Artifacts,
		Renderer:      d.Renderer,
		RenderTimeout: d.RenderTimeout,
		Log:           log,
	})

	log.Info("worker pool starting", "workers", workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runLoop(ctx, d, p, popTimeout, log.WithFields(map[string]any{"worker": n}))
		}(i)
	}
	wg.Wait()

	log.Info("worker pool stopped")
	return ctx.Err()
}

func runLoop(ctx context.Context, d Deps, p *processor.Processor, popTimeout time.Duration, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return
		default:
		}

		desc, ok, err := d.Queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}
		if !ok {
			// Timeout with nothing to do; loop to re-check shutdown.
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, desc.JobID)
		jobLog := log.WithJobID(desc.JobID)

		jobLog.Info("processing job")
		start := time.Now()

		if err := p.Process(jobCtx, desc); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}
