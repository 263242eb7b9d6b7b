// Package report renders a dashboard view as terminal text: caption,
// summary statistics, colour legend and the ranked table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/dashboard"
	"github.com/sells-group/regionmap/internal/region"
)

var (
	colorBold = color.New(color.Bold)
	colorDim  = color.New(color.Faint)
)

// Swatch renders a two-cell block in the given "#RRGGBB" colour. Invalid
// colours render as plain spaces.
func Swatch(hex string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return "  "
	}
	return color.BgRGB(r, g, b).Sprint("  ")
}

func parseHex(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}

// Render writes v to w. Values are formatted with the catalog's metric
// definitions.
func Render(w io.Writer, v dashboard.View, catalog *region.Catalog) error {
	def, ok := catalog.Get(v.Selection.Metric)
	if !ok {
		return eris.Errorf("report: unknown metric %q", v.Selection.Metric)
	}

	bw := &errWriter{w: w}
	bw.printf("%s\n", colorBold.Sprint(v.Classification.Label))
	bw.printf("%s\n\n", colorDim.Sprint(v.Caption))

	if v.Empty || v.Stats == nil {
		bw.printf("No data for the current selection.\n\n")
	} else {
		s := v.Stats
		bw.printf("%s\n", colorBold.Sprint("Summary"))
		bw.printf("  Mean    %s\n", dashboard.FormatValue(def, s.Mean))
		bw.printf("  Median  %s\n", dashboard.FormatValue(def, s.Median))
		bw.printf("  Min     %s\n", dashboard.FormatValue(def, s.Min))
		bw.printf("  Max     %s\n", dashboard.FormatValue(def, s.Max))
		bw.printf("  Count   %d\n", s.Count)
		bw.printf("  Values  %d\n\n", s.Values)
	}

	if len(v.Classification.Legend) > 0 {
		bw.printf("%s\n", colorBold.Sprint("Legend"))
		for _, e := range v.Classification.Legend {
			bw.printf("  %s %s to %s\n", Swatch(e.Color),
				dashboard.FormatValue(def, e.From), dashboard.FormatValue(def, e.To))
		}
		bw.printf("  %s No data\n\n", Swatch(dashboard.NoDataColor))
	}
	if bw.err != nil {
		return bw.err
	}

	return renderTable(w, v.Table, catalog)
}

func renderTable(w io.Writer, rows []dashboard.RankedRow, catalog *region.Catalog) error {
	defs := catalog.Defs()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"#", "Region"}
	for _, d := range defs {
		header = append(header, d.Label)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")+"\t"); err != nil {
		return eris.Wrap(err, "report: render table")
	}

	for _, r := range rows {
		cells := []string{strconv.Itoa(r.Rank), r.Key}
		for _, d := range defs {
			v, ok := r.Metrics[d.Name]
			if !ok {
				cells = append(cells, "No data")
				continue
			}
			cells = append(cells, dashboard.FormatValue(d, v))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t"); err != nil {
			return eris.Wrap(err, "report: render table")
		}
	}
	return tw.Flush()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
