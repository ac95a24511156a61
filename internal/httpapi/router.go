package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/httpapi/handlers"
	"inkwell/internal/httpkit"
	"inkwell/internal/jobs"
	"inkwell/internal/pkg/logger"
	"inkwell/internal/pkg/middleware"
	"inkwell/internal/ports"
)

type Deps struct {
	Service   *jobs.Service
	Artifacts ports.ArtifactStore
	Log       *logger.Logger
	// Pingers feed the deep health check.
	Pingers map[string]handlers.Pinger
	// SubmitRPS and SubmitBurst bound the submission rate; zero disables
	// limiting.
	SubmitRPS   float64
	SubmitBurst int
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Service:   d.Service,
		Artifacts: d.Artifacts,
		Log:       log,
		Pingers:   d.Pingers,
	})

	r.Get("/health", h.Health)

	// Submissions, rate limited as a group.
	r.Group(func(r chi.Router) {
		if d.SubmitRPS > 0 {
			burst := d.SubmitBurst
			if burst <= 0 {
				burst = int(d.SubmitRPS)
			}
			r.Use(middleware.RateLimit(d.SubmitRPS, burst))
		}
		r.Post("/generate", h.PostGenerate)
		r.Post("/reports", h.PostReport)
	})

	r.Get("/status/{jobId}", h.GetStatus)
	r.Get("/download/{jobId}", h.Download)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
