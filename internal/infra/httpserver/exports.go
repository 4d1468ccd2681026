package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	appexports "github.com/bryanwahyu/propvest/internal/application/exports"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

// POST /v1/analyses/export
// Body: {"ids": [...], "format": "pdf|csv|xlsx", "deliver": "inline|link"}
// Inline delivery streams the file, link delivery answers with a download URL.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		IDs     []string `json:"ids"`
		Format  string   `json:"format"`
		Deliver string   `json:"deliver"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	art, err := r.exports.Export(req.Context(), principal(req), appexports.ExportCommand{
		IDs:     toIDs(body.IDs),
		Format:  body.Format,
		Deliver: body.Deliver,
	})
	if err != nil {
		return err
	}
	r.metrics.Event("export", body.Format)

	if art.URL != "" {
		middleware.WriteJSON(w, http.StatusOK, art)
		return nil
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(art.Body)
	return err
}
