package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NotAvailable is rendered for any missing or unrenderable field.
const NotAvailable = "N/A"

var keyMetrics = map[Type][]string{
	TypeMortgage:  {"monthlyPayment", "totalCost", "roi"},
	TypeRental:    {"monthlyCashFlow", "capRate", "annualCashFlow"},
	TypeWholesale: {"arv", "potentialProfit", "totalInvestment"},
	TypeAirbnb:    {"monthlyRevenue", "monthlyProfit", "nightlyRate"},
}

// KeyMetrics returns the headline fields for t, in display order.
func KeyMetrics(t Type) []string {
	return append([]string(nil), keyMetrics[t]...)
}

// MetricColumns returns the union of key metrics across types, ordered by Types.
func MetricColumns(types []Type) []string {
	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, t := range Types {
		if !want[t] {
			continue
		}
		for _, m := range keyMetrics[t] {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Metric is one rendered key metric.
type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Metrics renders the key metrics of a, substituting N/A for missing values.
func (a *Analysis) Metrics() []Metric {
	names := keyMetrics[a.Type]
	out := make([]Metric, 0, len(names))
	for _, n := range names {
		out = append(out, Metric{Name: n, Value: a.Data.Format(n)})
	}
	return out
}

// Format renders field k for display. Numbers get two decimals, and anything
// missing, nil, NaN or non-scalar becomes N/A.
func (p Payload) Format(k string) string {
	v, ok := p[k]
	if !ok {
		return NotAvailable
	}
	return FormatValue(v)
}

// FormatValue renders a single payload value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return NotAvailable
	case string:
		if strings.TrimSpace(x) == "" || x == "undefined" {
			return NotAvailable
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return formatFloat(f)
		}
		return NotAvailable
	}
	return NotAvailable
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
