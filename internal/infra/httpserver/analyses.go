package httpserver

import (
	"net/http"

	appanalyses "github.com/bryanwahyu/propvest/internal/application/analyses"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

type createRequest struct {
	Type            string         `json:"type"`
	PropertyAddress string         `json:"property_address"`
	Data            domain.Payload `json:"data"`
	Notes           string         `json:"notes"`
	Tags            []string       `json:"tags"`
}

type saveRequest struct {
	Type      string         `json:"type"`
	Data      domain.Payload `json:"data"`
	Notes     *string        `json:"notes"`
	AISummary *string        `json:"ai_summary"`
	Tags      []string       `json:"tags"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// POST /v1/analyses
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	var body createRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	p := principal(req)
	a, err := r.analyses.Create(req.Context(), p, appanalyses.CreateCommand{
		Type:            body.Type,
		PropertyAddress: body.PropertyAddress,
		Data:            body.Data,
		Notes:           body.Notes,
		Tags:            body.Tags,
	})
	if err != nil {
		return err
	}
	r.metrics.Event("analysis_created", string(a.Type))
	middleware.WriteJSON(w, http.StatusCreated, a)
	return nil
}

// GET /v1/analyses?type=&tag=&limit=&offset=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	f := domain.ListFilter{
		Tag:    middleware.SanitizeString(q.Get("tag")),
		Limit:  middleware.ValidateLimit(queryInt(req, "limit")),
		Offset: middleware.ValidateOffset(queryInt(req, "offset")),
	}
	if raw := q.Get("type"); raw != "" {
		t, ok := domain.ParseType(raw)
		if !ok {
			return domain.Validation(domain.CodeInvalidType, "unknown analysis type "+raw)
		}
		f.Type = t
	}
	list, err := r.analyses.List(req.Context(), principal(req), f)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"analyses": list,
		"limit":    f.Limit,
		"offset":   f.Offset,
	})
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.analyses.Get(req.Context(), principal(req), id)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, a)
	return nil
}

// PUT /v1/analyses/{id}
func (r *Router) handleSave(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	var body saveRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	p := principal(req)
	a, err := r.analyses.Save(req.Context(), p, id, appanalyses.SaveCommand{
		Type:      body.Type,
		Data:      body.Data,
		Notes:     body.Notes,
		AISummary: body.AISummary,
		Tags:      body.Tags,
	})
	if err != nil {
		return err
	}
	r.metrics.Event("analysis_saved", string(p.Tier))
	middleware.WriteJSON(w, http.StatusOK, a)
	return nil
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if err := r.analyses.Delete(req.Context(), principal(req), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/analyses/bulk-delete
// Body: {"ids": ["<id>", ...]}
func (r *Router) handleBulkDelete(w http.ResponseWriter, req *http.Request) error {
	var body idsRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	n, err := r.analyses.BulkDelete(req.Context(), principal(req), toIDs(body.IDs))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
	return nil
}

// POST /v1/analyses/{id}/restore
// Body: {"version_index": 1}
func (r *Router) handleRestore(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	var body struct {
		VersionIndex *int `json:"version_index"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.VersionIndex == nil {
		return domain.Validation(domain.CodeInvalidInput, "version_index is required")
	}
	p := principal(req)
	a, err := r.analyses.Restore(req.Context(), p, id, *body.VersionIndex)
	if err != nil {
		return err
	}
	r.metrics.Event("version_restored", string(p.Tier))
	middleware.WriteJSON(w, http.StatusOK, a)
	return nil
}

// POST /v1/analyses/{id}/insight
func (r *Router) handleInsight(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.analyses.GenerateInsight(req.Context(), principal(req), id)
	if err != nil {
		r.metrics.Event("insight_failed", domain.CodeOf(err))
		return err
	}
	r.metrics.Event("insight_generated", string(a.Type))
	middleware.WriteJSON(w, http.StatusOK, a)
	return nil
}

// POST /v1/analyses/compare
// Body: {"ids": ["<id>", ...]}
func (r *Router) handleCompare(w http.ResponseWriter, req *http.Request) error {
	var body idsRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	cmp, err := r.analyses.Compare(req.Context(), principal(req), toIDs(body.IDs))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"analyses": cmp})
	return nil
}
