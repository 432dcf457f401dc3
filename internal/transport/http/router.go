// Package httptransport assembles the HTTP surface of the compliance engine.
// It is a thin layer: routing, authentication, and request plumbing live
// here; all business logic stays in the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	caseshandler "coopaml/internal/amlcase/handler"
	sanctionhandler "coopaml/internal/sanction/handler"
	screeninghandler "coopaml/internal/screening/handler"
	ttrhandler "coopaml/internal/ttr/handler"
	whitelisthandler "coopaml/internal/whitelist/handler"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/platform/middleware/requestid"
	"coopaml/pkg/platform/middleware/requesttime"
	"coopaml/pkg/platform/middleware/tenantauth"
	"coopaml/pkg/requestcontext"
)

// Handlers groups the per-module HTTP handlers mounted under /api/v1.
type Handlers struct {
	Sanctions *sanctionhandler.Handler
	Whitelist *whitelisthandler.Handler
	Screening *screeninghandler.Handler
	Cases     *caseshandler.Handler
	TTRs      *ttrhandler.Handler
}

// NewRouter wires middleware and routes. Everything under /api/v1 requires a
// tenant-scoped bearer token; health and metrics stay unauthenticated for
// probes and scrapers.
func NewRouter(h Handlers, validator *tenantauth.Validator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(tenantauth.RequireTenant(validator, logger))

		h.Sanctions.Register(api)
		h.Whitelist.Register(api)
		h.Screening.Register(api)
		h.Cases.Register(api)
		h.TTRs.Register(api)
	})

	return r
}

// requestLogger emits one structured line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(r.Context()),
			)
		})
	}
}
