package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
"content":[{"type":"text","text":"{\"summary\":\"Thin margins\",\"insights\":[\"Vacancy risk\"]}"}],
"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":20}}`)
	})

	got, err := c.Generate(context.Background(), ai.InsightRequest{Type: analysis.TypeAirbnb})
	require.NoError(t, err)
	assert.Equal(t, "Thin margins", got.Summary)
	assert.Equal(t, []string{"Vacancy risk"}, got.Insights)
}

func TestGenerateRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := c.Generate(context.Background(), ai.InsightRequest{Type: analysis.TypeAirbnb})
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
}
