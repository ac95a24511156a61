// Package store wires a concrete backend behind the ports the orchestration
// core uses. The core never knows which one it got.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"inkwell/internal/ports"
	"inkwell/internal/store/memory"
	"inkwell/internal/store/pgstore"
	"inkwell/internal/store/redisstore"
)

// Backends bundles the three shared-state ports a deployment runs on.
type Backends struct {
	Jobs  ports.JobStore
	Dedup ports.DedupIndex
	Queue ports.Queue
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend string
	// RDB is required for "redis" and "postgres" (the queue stays on Redis
	// even when records live in Postgres).
	RDB *redis.Client
	// Pool is required for "postgres".
	Pool *pgxpool.Pool
	// QueueName overrides the Redis queue list name.
	QueueName string
	// QueueSize bounds the in-memory queue.
	QueueSize int
}

// New builds the backend set for cfg. For "postgres" it also runs the
// idempotent schema migration.
func New(ctx context.Context, cfg Config) (Backends, error) {
	switch cfg.Backend {
	case "", "memory":
		return Backends{
			Jobs:  memory.NewJobStore(),
			Dedup: memory.NewDedupIndex(),
			Queue: memory.NewQueue(cfg.QueueSize),
		}, nil

	case "redis":
		if cfg.RDB == nil {
			return Backends{}, fmt.Errorf("redis backend requires a redis client")
		}
		return Backends{
			Jobs:  redisstore.NewJobStore(cfg.RDB),
			Dedup: redisstore.NewDedupIndex(cfg.RDB),
			Queue: redisstore.NewQueue(cfg.RDB, cfg.QueueName),
		}, nil

	case "postgres":
		if cfg.Pool == nil {
			return Backends{}, fmt.Errorf("postgres backend requires a pgx pool")
		}
		if cfg.RDB == nil {
			return Backends{}, fmt.Errorf("postgres backend requires a redis client for the queue")
		}
		if err := pgstore.Migrate(ctx, cfg.Pool); err != nil {
			return Backends{}, err
		}
		return Backends{
			Jobs:  pgstore.NewJobStore(cfg.Pool),
			Dedup: pgstore.NewDedupIndex(cfg.Pool),
			Queue: redisstore.NewQueue(cfg.RDB, cfg.QueueName),
		}, nil

	default:
		return Backends{}, fmt.Errorf("unknown job backend: %s", cfg.Backend)
	}
}
