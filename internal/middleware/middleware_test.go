package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

func whoami(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())
	WriteJSON(w, http.StatusOK, p)
}

func TestJWTAuth(t *testing.T) {
	auth := NewJWTAuth("s3cret", "propvest-test")
	h := auth.Middleware(http.HandlerFunc(whoami))

	tok, err := auth.Issue(identity.Principal{UserID: "u1", Email: "a@b.c", Tier: tier.Pro}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p identity.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, identity.Principal{UserID: "u1", Email: "a@b.c", Tier: tier.Pro}, p)
}

func TestJWTAuthRejects(t *testing.T) {
	auth := NewJWTAuth("s3cret", "propvest-test")
	other := NewJWTAuth("different", "propvest-test")
	wrongIssuer := NewJWTAuth("s3cret", "someone-else")

	forged, err := other.Issue(identity.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	expired, err := auth.Issue(identity.Principal{UserID: "u1"}, -time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Issue(identity.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := auth.Issue(identity.Principal{}, time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-jwt",
		"forged":     "Bearer " + forged,
		"expired":    "Bearer " + expired,
		"issuer":     "Bearer " + foreign,
		"no subject": "Bearer " + noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			auth.Middleware(http.HandlerFunc(whoami)).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body.Error.Kind)
		})
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	auth := NewJWTAuth("s3cret", "")
	tok, err := auth.Issue(identity.Principal{UserID: "u1", Tier: "platinum"}, time.Hour)
	require.NoError(t, err)

	p, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, tier.Free, p.Tier)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(ctx context.Context) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	alice := identity.WithPrincipal(context.Background(), identity.Principal{UserID: "alice"})
	bob := identity.WithPrincipal(context.Background(), identity.Principal{UserID: "bob"})

	assert.Equal(t, http.StatusNoContent, do(alice))
	assert.Equal(t, http.StatusNoContent, do(alice))
	assert.Equal(t, http.StatusTooManyRequests, do(alice))
	assert.Equal(t, http.StatusNoContent, do(bob))
	assert.Equal(t, http.StatusNoContent, do(context.Background()))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10, 10, time.Minute)
	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Sweep(time.Now()))
	assert.Equal(t, 0, rl.Sweep(time.Now().Add(2*time.Minute)))
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"database": CheckFunc(func(context.Context) error { return nil }),
		"redis":    CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.Equal(t, "connection refused", body.Checks["redis"].Message)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/analyses/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/analyses/abc", nil))
	m.Event("export", "csv")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `propvest_http_requests_total{method="GET",route="/v1/analyses/{id}",status="200"} 1`)
	assert.Contains(t, string(body), `propvest_events_total{detail="csv",event="export"} 1`)
	assert.False(t, strings.Contains(string(body), "/v1/analyses/abc"))
}

func TestLoggingCapturesUser(t *testing.T) {
	auth := NewJWTAuth("s3cret", "")
	tok, err := auth.Issue(identity.Principal{UserID: "u7"}, time.Hour)
	require.NoError(t, err)

	var seen string
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Middleware(http.HandlerFunc(whoami)).ServeHTTP(w, r)
		if u, ok := r.Context().Value(userKey{}).(*string); ok {
			seen = *u
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u7", seen)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateAnalysisID("6f1c1d2e-8a7b-4c3d-9e0f-112233445566"))
	assert.Error(t, ValidateAnalysisID("../etc"))
	assert.Error(t, ValidateAnalysisID(""))

	assert.NoError(t, ValidatePublicID("AbCdEfGhIjKlMnOpQrSt_-"))
	assert.Error(t, ValidatePublicID("short"))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 7, ValidateLimit(7))
	assert.Equal(t, 0, ValidateOffset(-3))
	assert.Equal(t, "tag", SanitizeString(" ta\x00g\x07 "))
}
