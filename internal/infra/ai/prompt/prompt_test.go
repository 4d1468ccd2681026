package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

func TestGetUserPrompt(t *testing.T) {
	p := GetUserPrompt(ai.InsightRequest{
		Type:    analysis.TypeRental,
		Address: "5 Oak Ave",
		Metrics: []analysis.Metric{{Name: "capRate", Value: "6.50"}, {Name: "annualCashFlow", Value: "N/A"}},
		Notes:   "roof is old",
	})
	assert.Contains(t, p, "Analysis type: rental")
	assert.Contains(t, p, "- capRate: 6.50")
	assert.Contains(t, p, "- annualCashFlow: N/A")
	assert.Contains(t, p, "roof is old")
}

func TestParseInsight(t *testing.T) {
	got, err := ParseInsight("```json\n{\"summary\":\" Good deal \",\"insights\":[\"a\",\" \",\"b\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Good deal", got.Summary)
	assert.Equal(t, []string{"a", "b"}, got.Insights)

	_, err = ParseInsight("sorry, I cannot help")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)

	_, err = ParseInsight(`{"summary":"","insights":[]}`)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)

	_, err = ParseInsight(`{"summary": 3}`)
	assert.Error(t, err)
}

func TestParseInsightCapsList(t *testing.T) {
	got, err := ParseInsight(`{"summary":"s","insights":["1","2","3","4","5","6","7","8"]}`)
	require.NoError(t, err)
	assert.Len(t, got.Insights, MaxInsights)
}

func TestHeuristic(t *testing.T) {
	got, err := Heuristic{}.Generate(context.Background(), ai.InsightRequest{
		Type: analysis.TypeRental,
		Metrics: []analysis.Metric{
			{Name: "monthlyCashFlow", Value: "-120.00"},
			{Name: "capRate", Value: "9.10"},
			{Name: "annualCashFlow", Value: "N/A"},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Insights, 3)
	assert.Contains(t, got.Insights[0], "Monthly cash flow is negative")
	assert.Contains(t, got.Insights[1], "Cap rate")
	assert.Contains(t, got.Insights[2], "annualCashFlow")
	assert.Contains(t, got.Summary, "1 risk signal")
}

func TestHeuristicNoData(t *testing.T) {
	got, err := Heuristic{}.Generate(context.Background(), ai.InsightRequest{Type: analysis.TypeAirbnb})
	require.NoError(t, err)
	assert.Contains(t, got.Summary, "Not enough data")
	assert.Empty(t, got.Insights)
}
