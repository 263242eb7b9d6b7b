package source

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regionmap/internal/region"
)

// XLSXMetrics reads a metric table from the first (or named) worksheet of
// an XLSX workbook. The first row is the header.
type XLSXMetrics struct {
	Location  string
	Sheet     string
	KeyColumn string
	Client    *Client
}

// NewXLSXMetrics creates an XLSXMetrics source.
func NewXLSXMetrics(client *Client, location, sheet, keyColumn string) *XLSXMetrics {
	return &XLSXMetrics{Location: location, Sheet: sheet, KeyColumn: keyColumn, Client: client}
}

// Name implements MetricSource.
func (s *XLSXMetrics) Name() string { return "xlsx:" + s.Location }

// FetchMetrics implements MetricSource.
func (s *XLSXMetrics) FetchMetrics(ctx context.Context) ([]region.MetricRow, error) {
	data, err := readLocation(ctx, s.Client, s.Location)
	if err != nil {
		return nil, err
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", s.Location)
	}
	return parseMetricsSheet(f, s.Sheet, s.KeyColumn)
}

func parseMetricsSheet(f *xlsx.File, sheetName, keyColumn string) ([]region.MetricRow, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	keyIdx := findColumn(header, keyColumn)
	if keyIdx < 0 {
		return nil, eris.Errorf("xlsx: key column %q not found", keyColumn)
	}

	b := newTableBuilder(header, keyIdx)
	cols := make([]int, 0, len(header))
	for i := range header {
		if i != keyIdx {
			cols = append(cols, i)
		}
	}
	for _, row := range sheet.Rows[1:] {
		record := rowToStrings(row)
		if keyIdx >= len(record) {
			b.skipped++
			continue
		}
		b.add(record[keyIdx], record, cols)
	}
	return b.rows, nil
}

// rowToStrings reads a row's cells, preferring the raw numeric value over
// the formatted one so that number formats do not leak into parsing.
func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell.Type() == xlsx.CellTypeNumeric {
			cells[j] = cell.Value
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}
