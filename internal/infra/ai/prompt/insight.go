package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
)

// MaxInsights caps the bullet list kept from a model answer.
const MaxInsights = 6

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a seasoned real-estate investment analyst. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- summary is two or three sentences judging the deal as presented.
- insights is an array of at most 6 short, concrete observations or risks, most important first.
- Base every statement on the metrics given. If a metric is N/A, say it is missing instead of guessing.
- Do not restate the address and do not give legal or tax advice.

Schema (example with empty values):
{
  "summary": "<string>",
  "insights": ["<string>"]
}`
}

// GetUserPrompt lays out one analysis for the model.
func GetUserPrompt(req ai.InsightRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis type: %s\n", req.Type)
	if req.Address != "" {
		fmt.Fprintf(&b, "Property: %s\n", req.Address)
	}
	b.WriteString("Key metrics:\n")
	if len(req.Metrics) == 0 {
		b.WriteString("- none provided\n")
	}
	for _, m := range req.Metrics {
		fmt.Fprintf(&b, "- %s: %s\n", m.Name, m.Value)
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		if len(notes) > 2000 {
			notes = notes[:2000] + "..."
		}
		fmt.Fprintf(&b, "Investor notes:\n%s\n", notes)
	}
	b.WriteString("Respond with the JSON per schema.")
	return b.String()
}

// ParseInsight extracts the JSON object from a model answer. Code fences and
// text around the object are tolerated.
func ParseInsight(raw string) (ai.Insight, error) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ai.Insight{}, ai.ErrEmptyResponse
	}
	var out ai.Insight
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return ai.Insight{}, fmt.Errorf("decode insight: %w", err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	kept := make([]string, 0, len(out.Insights))
	for _, in := range out.Insights {
		if in = strings.TrimSpace(in); in != "" {
			kept = append(kept, in)
		}
	}
	if len(kept) > MaxInsights {
		kept = kept[:MaxInsights]
	}
	out.Insights = kept
	if out.Summary == "" && len(out.Insights) == 0 {
		return ai.Insight{}, ai.ErrEmptyResponse
	}
	return out, nil
}
