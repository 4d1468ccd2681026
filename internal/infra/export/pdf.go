package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// PDF renders one A4 page block per analysis.
type PDF struct {
	// Title printed in every page header. Defaults to "Property Analysis".
	Title string
}

func (PDF) Format() string      { return "pdf" }
func (PDF) ContentType() string { return "application/pdf" }
func (PDF) Extension() string   { return "pdf" }

func (p PDF) Render(list []*domain.Analysis) ([]byte, error) {
	if len(list) == 0 {
		return nil, noAnalyses()
	}
	doc := p.build(list)
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "pdf: output")
	}
	return buf.Bytes(), nil
}

func (p PDF) build(list []*domain.Analysis) *fpdf.Fpdf {
	title := p.Title
	if title == "" {
		title = "Property Analysis"
	}
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	// core fonts are cp1252
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, a := range list {
		doc.AddPage()

		doc.SetFont("Helvetica", "B", 16)
		doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 7, tr(orNA(a.PropertyAddress)), "", 1, "L", false, 0, "")
		doc.SetTextColor(90, 90, 90)
		doc.CellFormat(0, 6, tr(fmt.Sprintf("%s analysis, created %s", titleCase(string(a.Type)), date(a.CreatedAt))), "", 1, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		doc.Ln(4)

		section(doc, tr, "Key metrics")
		for _, m := range a.Metrics() {
			doc.SetFont("Helvetica", "", 11)
			doc.CellFormat(70, 7, tr(m.Name), "B", 0, "L", false, 0, "")
			doc.CellFormat(0, 7, tr(m.Value), "B", 1, "R", false, 0, "")
		}
		doc.Ln(4)

		section(doc, tr, "Notes")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, tr(orNA(a.Notes)), "", "L", false)

		if a.AISummary != "" || len(a.AIInsights) > 0 {
			doc.Ln(4)
			section(doc, tr, "AI insight")
			doc.SetFont("Helvetica", "", 10)
			if a.AISummary != "" {
				doc.MultiCell(0, 5, tr(a.AISummary), "", "L", false)
			}
			for _, ins := range a.AIInsights {
				doc.MultiCell(0, 5, tr("- "+ins), "", "L", false)
			}
		}
	}
	return doc
}

func section(doc *fpdf.Fpdf, tr func(string) string, name string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")
}

func titleCase(s string) string {
	if s == "" {
		return domain.NotAvailable
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
