package httpserver

import (
	"net/http"

	appdigest "github.com/bryanwahyu/propvest/internal/application/digest"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

// GET /v1/digest/preferences
func (r *Router) handleGetDigest(w http.ResponseWriter, req *http.Request) error {
	prefs, err := r.digest.Get(req.Context(), principal(req))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, prefs)
	return nil
}

// PUT /v1/digest/preferences
// Body: {"enabled": true, "delivery_day": "friday", "analysis_types": ["rental"]}
func (r *Router) handleUpdateDigest(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Enabled       bool     `json:"enabled"`
		DeliveryDay   string   `json:"delivery_day"`
		AnalysisTypes []string `json:"analysis_types"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	prefs, err := r.digest.Update(req.Context(), principal(req), appdigest.UpdateCommand{
		Enabled:       body.Enabled,
		DeliveryDay:   body.DeliveryDay,
		AnalysisTypes: body.AnalysisTypes,
	})
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, prefs)
	return nil
}
