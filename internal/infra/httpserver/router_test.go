package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalyses "github.com/bryanwahyu/propvest/internal/application/analyses"
	appdigest "github.com/bryanwahyu/propvest/internal/application/digest"
	appexports "github.com/bryanwahyu/propvest/internal/application/exports"
	appshares "github.com/bryanwahyu/propvest/internal/application/shares"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
	"github.com/bryanwahyu/propvest/internal/infra/ai/prompt"
	"github.com/bryanwahyu/propvest/internal/infra/db/memory"
	"github.com/bryanwahyu/propvest/internal/infra/export"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	auth    *middleware.JWTAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	auth := middleware.NewJWTAuth("test-secret", "")
	h := NewRouter(Deps{
		Analyses: &appanalyses.Service{Store: store, Insights: prompt.Heuristic{}},
		Exports:  appexports.NewService(store, nil, nil, export.CSV{}, export.XLSX{}, export.PDF{}),
		Shares:   &appshares.Service{Repo: store, BaseURL: "https://propvest.test"},
		Digest:   &appdigest.Service{Repo: memory.NewDigestRepository()},
		Auth:     auth,
		Metrics:  middleware.NewMetrics(),
	})
	return &testServer{t: t, handler: h, auth: auth}
}

func (s *testServer) token(userID string, t tier.Tier) string {
	tok, err := s.auth.Issue(identity.Principal{UserID: userID, Tier: t}, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[middleware.ErrorBody](t, rec)
	assert.Equal(t, kind, body.Error.Kind)
	assert.Equal(t, code, body.Error.Code)
}

func (s *testServer) create(token, address string) domain.Analysis {
	rec := s.do(http.MethodPost, "/v1/analyses", token, map[string]any{
		"type":             "rental",
		"property_address": address,
		"data":             map[string]any{"monthlyCashFlow": 250.0, "capRate": 6.5},
		"tags":             []string{"duplex"},
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.Analysis](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "", nil).Code)
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	assertError(t, s.do(http.MethodGet, "/v1/analyses", "", nil), http.StatusUnauthorized, "unauthorized", "unauthorized")
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Pro)

	rec := s.do(http.MethodPost, "/v1/analyses", tok, map[string]any{"type": "rental", "data": map[string]any{}})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeMissingPropertyAddress)

	rec = s.do(http.MethodPost, "/v1/analyses", tok, map[string]any{"type": "condo", "property_address": "x"})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeInvalidType)

	rec = s.do(http.MethodPost, "/v1/analyses", tok, map[string]any{"bogus": true})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeInvalidInput)
}

func TestVersionLifecycle(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Elite)
	a := s.create(tok, "5 Oak Ave")
	require.Len(t, a.Versions, 1)

	for _, cf := range []float64{300, 350} {
		rec := s.do(http.MethodPut, "/v1/analyses/"+string(a.ID), tok, map[string]any{
			"data": map[string]any{"monthlyCashFlow": cf},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	got := decodeBody[domain.Analysis](t, s.do(http.MethodGet, "/v1/analyses/"+string(a.ID), tok, nil))
	require.Len(t, got.Versions, 3)
	assert.Equal(t, 350.0, got.Data["monthlyCashFlow"])

	rec := s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/restore", tok, map[string]any{"version_index": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restored := decodeBody[domain.Analysis](t, rec)
	assert.Equal(t, 250.0, restored.Data["monthlyCashFlow"])
	require.Len(t, restored.Versions, 4)
	assert.Equal(t, domain.RestoreNote, restored.Versions[0].Notes)

	rec = s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/restore", tok, map[string]any{"version_index": 9})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeVersionIndexOutOfRange)

	rec = s.do(http.MethodPut, "/v1/analyses/"+string(a.ID), tok, map[string]any{"type": "airbnb", "data": map[string]any{}})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeTypeImmutable)
}

func TestFreeTierGates(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Free)
	a := s.create(tok, "5 Oak Ave")
	b := s.create(tok, "7 Pine Rd")

	rec := s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/restore", tok, map[string]any{"version_index": 0})
	assertError(t, rec, http.StatusForbidden, "forbidden", domain.CodeRestoreNotAllowed)

	rec = s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/insight", tok, nil)
	assertError(t, rec, http.StatusForbidden, "forbidden", domain.CodeAIInsightNotAllowed)

	rec = s.do(http.MethodPost, "/v1/analyses/export", tok, map[string]any{
		"ids": []string{string(a.ID), string(b.ID)}, "format": "csv",
	})
	assertError(t, rec, http.StatusForbidden, "forbidden", domain.CodeExportNotAllowed)

	rec = s.do(http.MethodPut, "/v1/digest/preferences", tok, map[string]any{"enabled": true})
	assertError(t, rec, http.StatusForbidden, "forbidden", domain.CodeDigestNotAllowed)
}

func TestOwnership(t *testing.T) {
	s := newTestServer(t)
	a := s.create(s.token("owner", tier.Pro), "5 Oak Ave")
	other := s.token("intruder", tier.Elite)

	assertError(t, s.do(http.MethodGet, "/v1/analyses/"+string(a.ID), other, nil), http.StatusNotFound, "not_found", domain.CodeAnalysisNotFound)
	assertError(t, s.do(http.MethodDelete, "/v1/analyses/"+string(a.ID), other, nil), http.StatusNotFound, "not_found", domain.CodeAnalysisNotFound)
	assertError(t, s.do(http.MethodGet, "/v1/analyses/not-a-uuid", other, nil), http.StatusNotFound, "not_found", domain.CodeAnalysisNotFound)

	rec := s.do(http.MethodPost, "/v1/analyses/bulk-delete", other, map[string]any{"ids": []string{string(a.ID)}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"deleted": 0}, decodeBody[map[string]int](t, rec))
}

func TestShareFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("share-owner-42", tier.Pro)
	a := s.create(tok, "5 Oak Ave")

	rec := s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/share", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	share := decodeBody[appshares.Share](t, rec)
	assert.Equal(t, "https://propvest.test/shared/analysis/"+share.PublicID, share.URL)

	again := decodeBody[appshares.Share](t, s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/share", tok, nil))
	assert.Equal(t, share.PublicID, again.PublicID)

	rec = s.do(http.MethodGet, "/shared/analysis/"+share.PublicID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()
	assert.Contains(t, raw, "5 Oak Ave")
	assert.NotContains(t, raw, "share-owner-42")
	assert.NotContains(t, raw, "duplex")

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/v1/analyses/"+string(a.ID)+"/share", tok, nil).Code)
	assertError(t, s.do(http.MethodGet, "/shared/analysis/"+share.PublicID, "", nil), http.StatusNotFound, "not_found", domain.CodeShareNotFound)
	assertError(t, s.do(http.MethodGet, "/shared/analysis/nope", "", nil), http.StatusNotFound, "not_found", domain.CodeShareNotFound)
}

func TestExportInline(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Pro)
	a := s.create(tok, "5 Oak Ave")
	b := s.create(tok, "7 Pine Rd")

	rec := s.do(http.MethodPost, "/v1/analyses/export", tok, map[string]any{
		"ids": []string{string(a.ID), string(b.ID)}, "format": "csv",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "analyses-2-")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)

	rec = s.do(http.MethodPost, "/v1/analyses/export", tok, map[string]any{"ids": []string{string(a.ID)}, "format": "docx"})
	assertError(t, rec, http.StatusBadRequest, "validation", domain.CodeUnsupportedFormat)

	// link delivery without object storage configured
	rec = s.do(http.MethodPost, "/v1/analyses/export", tok, map[string]any{"ids": []string{string(a.ID)}, "format": "pdf", "deliver": "link"})
	assertError(t, rec, http.StatusBadGateway, "upstream", domain.CodeArtifactUploadFailed)
}

func TestCompareAndInsight(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Pro)
	a := s.create(tok, "5 Oak Ave")
	b := s.create(tok, "7 Pine Rd")

	rec := s.do(http.MethodPost, "/v1/analyses/compare", tok, map[string]any{"ids": []string{string(a.ID), string(b.ID)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cmp := decodeBody[struct {
		Analyses []appanalyses.Comparison `json:"analyses"`
	}](t, rec)
	require.Len(t, cmp.Analyses, 2)
	assert.Equal(t, "7 Pine Rd", cmp.Analyses[1].PropertyAddress)

	rec = s.do(http.MethodPost, "/v1/analyses/"+string(a.ID)+"/insight", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[domain.Analysis](t, rec)
	assert.NotEmpty(t, got.AISummary)
	assert.NotEmpty(t, got.AIInsights)
}

func TestListAndDigest(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1", tier.Pro)
	s.create(tok, "5 Oak Ave")

	rec := s.do(http.MethodGet, "/v1/analyses?type=rental&tag=duplex&limit=500", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Analyses []domain.Analysis `json:"analyses"`
		Limit    int               `json:"limit"`
	}](t, rec)
	assert.Len(t, list.Analyses, 1)
	assert.Equal(t, 100, list.Limit)

	assertError(t, s.do(http.MethodGet, "/v1/analyses?type=condo", tok, nil), http.StatusBadRequest, "validation", domain.CodeInvalidType)

	rec = s.do(http.MethodPut, "/v1/digest/preferences", tok, map[string]any{
		"enabled": true, "delivery_day": "Friday", "analysis_types": []string{"rental"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/v1/digest/preferences", tok, nil)
	prefs := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, prefs["enabled"])
	assert.Equal(t, "friday", prefs["delivery_day"])
}
