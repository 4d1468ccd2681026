package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// Heuristic is an offline ai.Generator. It reads the key metrics with a few fixed
// thresholds and never calls out to a provider.
type Heuristic struct{}

type rule struct {
	metric string
	check  func(v float64) (severity int, text string)
}

// severities: 2 risk, 1 note, 0 nothing to say
var rules = []rule{
	{"monthlyCashFlow", cashFlow("Monthly cash flow")},
	{"annualCashFlow", cashFlow("Annual cash flow")},
	{"monthlyProfit", cashFlow("Monthly profit")},
	{"capRate", func(v float64) (int, string) {
		switch {
		case v < 4:
			return 2, fmt.Sprintf("Cap rate of %.2f%% is thin; price or expenses leave little margin.", v)
		case v >= 8:
			return 1, fmt.Sprintf("Cap rate of %.2f%% is strong for a stabilized asset.", v)
		}
		return 0, ""
	}},
	{"roi", func(v float64) (int, string) {
		if v < 0 {
			return 2, fmt.Sprintf("ROI is negative (%.2f).", v)
		}
		return 0, ""
	}},
	{"potentialProfit", func(v float64) (int, string) {
		if v <= 0 {
			return 2, "Projected wholesale spread is zero or negative; renegotiate the purchase price."
		}
		return 1, fmt.Sprintf("Projected wholesale spread is %.2f.", v)
	}},
}

func cashFlow(label string) func(v float64) (int, string) {
	return func(v float64) (int, string) {
		if v < 0 {
			return 2, fmt.Sprintf("%s is negative (%.2f); the property does not carry itself.", label, v)
		}
		if v > 0 {
			return 1, fmt.Sprintf("%s is positive (%.2f).", label, v)
		}
		return 0, ""
	}
}

func (Heuristic) Generate(ctx context.Context, req ai.InsightRequest) (ai.Insight, error) {
	if err := ctx.Err(); err != nil {
		return ai.Insight{}, err
	}
	values := map[string]float64{}
	var missing []string
	for _, m := range req.Metrics {
		if m.Value == analysis.NotAvailable {
			missing = append(missing, m.Name)
			continue
		}
		if f, err := strconv.ParseFloat(m.Value, 64); err == nil {
			values[m.Name] = f
		}
	}

	var risks, notes []string
	for _, r := range rules {
		v, ok := values[r.metric]
		if !ok {
			continue
		}
		switch sev, text := r.check(v); sev {
		case 2:
			risks = append(risks, text)
		case 1:
			notes = append(notes, text)
		}
	}
	insights := append(risks, notes...)
	if len(missing) > 0 {
		insights = append(insights, "Missing inputs: "+strings.Join(missing, ", ")+". Fill them in for a complete review.")
	}
	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}

	var summary string
	switch {
	case len(risks) > 0:
		summary = fmt.Sprintf("This %s deal shows %d risk signal(s) in its key metrics. Review them before committing capital.", req.Type, len(risks))
	case len(notes) > 0:
		summary = fmt.Sprintf("The %s numbers look healthy on the metrics provided.", req.Type)
	default:
		summary = fmt.Sprintf("Not enough data to judge this %s analysis yet.", req.Type)
	}
	return ai.Insight{Summary: summary, Insights: insights}, nil
}
