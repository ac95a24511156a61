package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"inkwell/internal/httpapi"
	"inkwell/internal/httpapi/handlers"
	"inkwell/internal/jobs"
	"inkwell/internal/pkg/logger"
	"inkwell/internal/pkg/shutdown"
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
		ServiceName: "inkwell-api",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	log.Info("starting inkwell API",
		"version", "0.1.0",
	)

	httpPort := util.Env("HTTP_PORT", "8080")
	backend := util.Env("JOB_BACKEND", "redis")

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	var (
		rdb  *redis.Client
		pool *pgxpool.Pool
	)

	pingers := map[string]handlers.Pinger{}

	if backend == "redis" || backend == "postgres" {
		redisAddr := util.MustEnv("REDIS_ADDR")
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		log.Info("Redis connected")
		pingers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	if backend == "postgres" {
		dbURL := util.MustEnv("DATABASE_URL")
		log.Info("connecting to PostgreSQL")
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		log.Info("PostgreSQL connected")
		pingers["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	backends, err := store.New(ctx, store.Config{
		Backend:   backend,
		RDB:       rdb,
		Pool:      pool,
		QueueName: util.Env("JOB_QUEUE_NAME", ""),
		QueueSize: util.IntEnv("JOB_QUEUE_SIZE", 0),
	})
	if err != nil {
		log.LogFatal("failed to initialize job backend", err)
	}
	log.Info("job backend initialized", "backend", backend)

	log.Info("initializing artifact store")
	artifacts, err := storage.NewArtifactStore()
	if err != nil {
		log.LogFatal("failed to initialize artifact store", err)
	}
	log.Info("artifact store initialized", "provider", artifacts.Provider())

	svc := jobs.New(jobs.Deps{
		Store:     backends.Jobs,
		Dedup:     backends.Dedup,
		Queue:     backends.Queue,
		Artifacts: artifacts,
		Log:       log,
	})

	// The memory backend has no external queue, so the worker pool runs
	// inside this process.
	if backend == "" || backend == "memory" {
		workerCtx, cancel := context.WithCancel(ctx)
		shutdownMgr.RegisterSimple("embedded-worker", cancel)

		go func() {
			_ = worker.Run(workerCtx, worker.Deps{
				Store:         backends.Jobs,
				Queue:         backends.Queue,
				Artifacts:     artifacts,
				Renderer:      renderer.NewExec(util.Env("WKHTML_BIN", renderer.DefaultBin), nil),
				Workers:       util.IntEnv("WORKER_COUNT", 1),
				RenderTimeout: util.DurationEnv("RENDER_TIMEOUT", 0),
				Log:           log,
			})
		}()
		log.Info("embedded worker pool started")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Service:     svc,
		Artifacts:   artifacts,
		Log:         log,
		Pingers:     pingers,
		SubmitRPS:   float64(util.IntEnv("SUBMIT_RPS", 0)),
		SubmitBurst: util.IntEnv("SUBMIT_BURST", 0),
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
