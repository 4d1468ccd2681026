package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalyses "github.com/bryanwahyu/propvest/internal/application/analyses"
	appdigest "github.com/bryanwahyu/propvest/internal/application/digest"
	appexports "github.com/bryanwahyu/propvest/internal/application/exports"
	appshares "github.com/bryanwahyu/propvest/internal/application/shares"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators of the HTTP adapter. Limiter, Metrics and Checkers
// are optional.
type Deps struct {
	Analyses *appanalyses.Service
	Exports  *appexports.Service
	Shares   *appshares.Service
	Digest   *appdigest.Service

	Auth     *middleware.JWTAuth
	Limiter  *middleware.RateLimiter
	Metrics  *middleware.Metrics
	Checkers map[string]middleware.HealthChecker

	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Router struct {
	analyses *appanalyses.Service
	exports  *appexports.Service
	shares   *appshares.Service
	digest   *appdigest.Service
	metrics  *middleware.Metrics
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		analyses: d.Analyses,
		exports:  d.Exports,
		shares:   d.Shares,
		digest:   d.Digest,
		metrics:  d.Metrics,
	}
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if d.Metrics != nil {
		mux.Use(d.Metrics.Middleware)
	}
	mux.Use(middleware.LoggingMiddleware)
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if d.RequestTimeout > 0 {
		mux.Use(chimw.Timeout(d.RequestTimeout))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(d.Checkers))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	mux.Group(func(pub chi.Router) {
		if d.Limiter != nil {
			pub.Use(d.Limiter.Middleware)
		}
		pub.Get(appshares.SharedPath+"{publicId}", r.wrap(r.handleShared))
	})

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(d.Auth.Middleware)
		if d.Limiter != nil {
			rt.Use(d.Limiter.Middleware)
		}

		rt.Post("/analyses", r.wrap(r.handleCreate))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Post("/analyses/bulk-delete", r.wrap(r.handleBulkDelete))
		rt.Post("/analyses/compare", r.wrap(r.handleCompare))
		rt.Post("/analyses/export", r.wrap(r.handleExport))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Put("/analyses/{id}", r.wrap(r.handleSave))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDelete))
		rt.Post("/analyses/{id}/restore", r.wrap(r.handleRestore))
		rt.Post("/analyses/{id}/insight", r.wrap(r.handleInsight))
		rt.Post("/analyses/{id}/share", r.wrap(r.handlePublish))
		rt.Delete("/analyses/{id}/share", r.wrap(r.handleUnpublish))

		rt.Get("/digest/preferences", r.wrap(r.handleGetDigest))
		rt.Put("/digest/preferences", r.wrap(r.handleUpdateDigest))
	})

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, string(domain.KindNotFound), "route_not_found", "route not found")
	})
	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		kind := domain.KindOf(err)
		status := statusOf(kind)
		code, message := domain.CodeOf(err), publicMessage(err)
		switch kind {
		case domain.KindInternal:
			code, message = "internal", "internal server error"
			zap.L().Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		case domain.KindUpstream:
			zap.L().Error("upstream failure", zap.String("path", req.URL.Path), zap.String("code", code), zap.Error(err))
		}
		middleware.WriteError(w, status, string(kind), code, message)
	}
}

func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicMessage never leaks the wrapped cause.
func publicMessage(err error) string {
	var e *domain.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func decode(req *http.Request, v any) error {
	body := http.MaxBytesReader(nil, req.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation(domain.CodeInvalidInput, "request body is required")
		}
		return domain.Validation(domain.CodeInvalidInput, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// principal is always present below the auth middleware.
func principal(req *http.Request) identity.Principal {
	p, _ := identity.FromContext(req.Context())
	return p
}

func analysisID(req *http.Request) (domain.ID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", domain.NotFound(domain.CodeAnalysisNotFound, fmt.Sprintf("analysis %s not found", id))
	}
	return domain.ID(id), nil
}

func toIDs(raw []string) []domain.ID {
	ids := make([]domain.ID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, domain.ID(s))
	}
	return ids
}

func queryInt(req *http.Request, key string) int {
	n, _ := strconv.Atoi(req.URL.Query().Get(key))
	return n
}
