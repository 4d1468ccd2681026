package ai

import (
	"context"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// InsightRequest is everything the generator is allowed to see about an analysis.
type InsightRequest struct {
	Type    analysis.Type
	Address string
	Metrics []analysis.Metric
	Notes   string
}

// Insight is the parsed generator output.
type Insight struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// Generator produces investment commentary for one analysis.
type Generator interface {
	Generate(ctx context.Context, req InsightRequest) (Insight, error)
}
