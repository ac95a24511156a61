package handlers

import (
	"context"

	"inkwell/internal/jobs"
	"inkwell/internal/pkg/logger"
	"inkwell/internal/ports"
)

// Pinger checks one dependency for the deep health check.
type Pinger func(ctx context.Context) error

type Deps struct {
	Service   *jobs.Service
	Artifacts ports.ArtifactStore
	Log       *logger.Logger
	// Pingers are dependency checks keyed by name (e.g. "redis").
	Pingers map[string]Pinger
}

type Handler struct {
	svc       *jobs.Service
	artifacts ports.ArtifactStore
	log       *logger.Logger
	pingers   map[string]Pinger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		svc:       d.Service,
		artifacts: d.Artifacts,
		log:       log.WithComponent("httpapi"),
		pingers:   d.Pingers,
	}
}
