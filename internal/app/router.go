package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskforge/taskforge/internal/audit"
	audithttp "github.com/taskforge/taskforge/internal/audit/http"
	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/observability"
	"github.com/taskforge/taskforge/internal/platform/httpx"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/tasks"
	"github.com/taskforge/taskforge/jobs"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	RBACMiddleware     rbac.Middleware
	Authenticator      *auth.Authenticator
	Recorder           *audit.Recorder
	AuthHandler        *auth.Handler
	TaskHandler        *tasks.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Readiness          map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with the API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		if params.Authenticator != nil {
			r.Use(params.Authenticator.Middleware)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.With(params.RBACMiddleware.RequireAny(rbac.PermAuditView)).Route("/jobs", params.JobHandler.MountRoutes)
		}

		// The recorder sits between identity and the permission guards so
		// guard rejections are audited.
		r.Group(func(r chi.Router) {
			if params.Recorder != nil {
				r.Use(params.Recorder.Middleware)
			}
			if params.TaskHandler != nil {
				r.Route("/tasks", params.TaskHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit-log", params.AuditHandler.MountRoutes)
			}
		})
	})

	return r
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readinessHandler(logger *slog.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		out := readiness{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
				}
				out.Checks[name] = "unavailable"
				out.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			out.Checks[name] = "ok"
		}
		httpx.JSON(w, status, out)
	}
}
