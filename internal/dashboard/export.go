package dashboard

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regionmap/internal/region"
)

// ExportSheet is the worksheet name used by ExportXLSX.
const ExportSheet = "Ranking"

// ExportXLSX writes the ranked table to an XLSX workbook at path: a header
// row of "Rank", "Region" and every metric label, then one row per region.
// Missing values are left blank.
func ExportXLSX(path string, rows []RankedRow, catalog *region.Catalog) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(ExportSheet)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	defs := catalog.Defs()
	header := sheet.AddRow()
	header.AddCell().SetString("Rank")
	header.AddCell().SetString("Region")
	for _, def := range defs {
		header.AddCell().SetString(def.Label)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Rank)
		row.AddCell().SetString(r.Key)
		for _, def := range defs {
			cell := row.AddCell()
			if v, ok := r.Metrics[def.Name]; ok {
				cell.SetFloat(v)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
