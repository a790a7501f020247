// Package server exposes the engine over HTTP with huma on a chi router.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"lifeline/internal/cascade"
	"lifeline/internal/engine"
)

const defaultBasePath = "/v0"

type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

// New builds the API handler. OpenAPI documents are served at /openapi.json
// and /openapi.yaml, interactive docs at /docs.
func New(cfg Config) (http.Handler, error) {
	basePath := "/" + strings.Trim(cfg.BasePath, "/")
	if basePath == "/" {
		basePath = defaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	installErrorEnvelope()
	huma.DefaultArrayNullable = false

	router := chi.NewRouter()
	router.Use(requestLogger(logger), newAuthMiddleware(basePath, cfg.Auth))

	hcfg := huma.DefaultConfig("Lifeline API", "0.1.0")
	hcfg.Info.Description = "Personas, workstreams and tasks with cascade-aware deletes."
	if cfg.Auth.enabled() {
		hcfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		}
		hcfg.Security = []map[string][]string{{"bearer": {}}}
	}
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	deps := cascade.New(cfg.Engine)
	registerHealth(group)
	registerPersonas(group, cfg.Engine, deps)
	registerWorkstreams(group, cfg.Engine, deps)
	registerTasks(group, cfg.Engine)
	registerBoard(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	return router, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type healthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		// An empty requirement marks the route as open when auth is on.
		Security: []map[string][]string{{}},
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}

// normalizeLimit clamps page sizes to 1..500, defaulting to 50.
func normalizeLimit(in int) int {
	switch {
	case in <= 0:
		return 50
	case in > 500:
		return 500
	}
	return in
}
