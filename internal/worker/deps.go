package worker

import (
	"time"

	"inkwell/internal/pkg/logger"
	"inkwell/internal/ports"
	"inkwell/internal/renderer"
)

type Deps struct {
	Store     ports.JobStore
	Queue     ports.Queue
	Artifacts ports.ArtifactStore
	Renderer  renderer.Renderer

	// Workers is the pool size; defaults to 1.
	Workers int
	// PopTimeout bounds each blocking dequeue so idle workers still notice
	// shutdown; defaults to 5s.
	PopTimeout time.Duration
	// RenderTimeout is the hard wall-clock bound per render.
	RenderTimeout time.Duration

	Log *logger.Logger
}
