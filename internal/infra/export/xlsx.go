package export

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// SheetName is the single worksheet of an XLSX export.
const SheetName = "Analyses"

// XLSX renders the same table as CSV into one worksheet.
type XLSX struct{}

func (XLSX) Format() string { return "xlsx" }
func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSX) Extension() string { return "xlsx" }

func (XLSX) Render(list []*domain.Analysis) ([]byte, error) {
	if len(list) == 0 {
		return nil, noAnalyses()
	}
	header, rows := table(list)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}
	addRow(sheet, header)
	for _, r := range rows {
		addRow(sheet, r)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write file")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
