package export

import (
	"strconv"
	"strings"
	"time"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

const dateLayout = "2006-01-02"

var fixedColumns = []string{"id", "type", "property_address", "created_at", "tags", "notes", "ai_summary"}

// table flattens analyses into a header and one row per analysis. The metric
// columns are the union of key metrics across the input types.
func table(list []*domain.Analysis) (header []string, rows [][]string) {
	types := make([]domain.Type, 0, len(list))
	for _, a := range list {
		types = append(types, a.Type)
	}
	metrics := domain.MetricColumns(types)

	header = append(append([]string(nil), fixedColumns...), metrics...)
	rows = make([][]string, 0, len(list))
	for _, a := range list {
		row := []string{
			string(a.ID),
			text(string(a.Type)),
			text(a.PropertyAddress),
			date(a.CreatedAt),
			text(strings.Join(a.Tags, ";")),
			text(a.Notes),
			text(a.AISummary),
		}
		for _, m := range metrics {
			row = append(row, value(a.Data.Format(m)))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.NotAvailable
	}
	return s
}

// text renders free-form user input as an inert spreadsheet cell.
func text(s string) string {
	return escapeFormula(orNA(s))
}

// value is like text but leaves numbers alone, so negative metrics stay numeric.
func value(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	return escapeFormula(s)
}

// escapeFormula quotes cells a spreadsheet would otherwise evaluate.
func escapeFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func date(t time.Time) string {
	if t.IsZero() {
		return domain.NotAvailable
	}
	return t.UTC().Format(dateLayout)
}

func noAnalyses() error {
	return domain.Validation(domain.CodeNoAnalyses, "nothing to export")
}
