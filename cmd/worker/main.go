package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"inkwell/internal/pkg/logger"
	"inkwell/internal/renderer"
	"inkwell/internal/storage"
	"inkwell/internal/store"
	"inkwell/internal/util"
	"inkwell/internal/worker"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "inkwell-worker",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := util.Env("JOB_BACKEND", "redis")

	var (
		rdb  *redis.Client
		pool *pgxpool.Pool
	)

	redisAddr := util.MustEnv("REDIS_ADDR")
	rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	if backend == "postgres" {
		dbURL := util.MustEnv("DATABASE_URL")
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		defer pool.Close()
	}

	backends, err := store.New(ctx, store.Config{
		Backend:   backend,
		RDB:       rdb,
		Pool:      pool,
		QueueName: util.Env("JOB_QUEUE_NAME", ""),
	})
	if err != nil {
		log.LogFatal("failed to initialize job backend", err)
	}

	artifacts, err := storage.NewArtifactStore()
	if err != nil {
		log.LogFatal("failed to initialize artifact store", err)
	}

	var rend renderer.Renderer
	switch util.Env("RENDERER", "exec") {
	case "http":
		rend = renderer.NewHTTPClient(util.MustEnv("RENDERER_HTTP_BASEURL"))
	default:
		rend = renderer.NewExec(util.Env("WKHTML_BIN", renderer.DefaultBin), nil)
	}

	log.Info("inkwell worker starting",
		"backend", backend,
		"artifact_provider", artifacts.Provider(),
	)

	err = worker.Run(ctx, worker.Deps{
		Store:         backends.Jobs,
		Queue:         backends.Queue,
		Artifacts:     artifacts,
		Renderer:      rend,
		Workers:       util.IntEnv("WORKER_COUNT", 2),
		PopTimeout:    util.DurationEnv("POP_TIMEOUT", 5*time.Second),
		RenderTimeout: util.DurationEnv("RENDER_TIMEOUT", 0),
		Log:           log,
	})
	if err != nil && err != context.Canceled {
		log.LogFatal("worker pool exited", err)
	}
}
