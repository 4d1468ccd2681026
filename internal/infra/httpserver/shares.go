package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

// POST /v1/analyses/{id}/share
func (r *Router) handlePublish(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	share, err := r.shares.Publish(req.Context(), principal(req), id)
	if err != nil {
		return err
	}
	r.metrics.Event("share_published", "")
	middleware.WriteJSON(w, http.StatusOK, share)
	return nil
}

// DELETE /v1/analyses/{id}/share
func (r *Router) handleUnpublish(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if err := r.shares.Unpublish(req.Context(), principal(req), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /shared/analysis/{publicId} (anonymous)
func (r *Router) handleShared(w http.ResponseWriter, req *http.Request) error {
	publicID := chi.URLParam(req, "publicId")
	if err := middleware.ValidatePublicID(publicID); err != nil {
		return domain.NotFound(domain.CodeShareNotFound, "shared analysis not found")
	}
	view, err := r.shares.GetPublic(req.Context(), publicID)
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	middleware.WriteJSON(w, http.StatusOK, view)
	return nil
}
