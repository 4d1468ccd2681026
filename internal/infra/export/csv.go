package export

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// CSV renders one header row and one row per analysis.
type CSV struct{}

func (CSV) Format() string      { return "csv" }
func (CSV) ContentType() string { return "text/csv; charset=utf-8" }
func (CSV) Extension() string   { return "csv" }

func (CSV) Render(list []*domain.Analysis) ([]byte, error) {
	if len(list) == 0 {
		return nil, noAnalyses()
	}
	header, rows := table(list)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, eris.Wrap(err, "csv: write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return nil, eris.Wrap(err, "csv: write rows")
	}
	return buf.Bytes(), nil
}
