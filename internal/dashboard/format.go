package dashboard

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/regionmap/internal/region"
)

// largeValue is the magnitude above which count and currency values are
// shown as whole numbers with thousands separators.
const largeValue = 100

var printer = message.NewPrinter(language.English)

// FormatValue renders a metric value for tables and info panels. Rates use
// one decimal place plus the metric suffix; counts and currency use
// thousands separators and no decimals once above 100, one decimal below.
func FormatValue(def region.MetricDef, v float64) string {
	if def.Kind == region.KindRate {
		return printer.Sprintf("%.1f", v) + def.Suffix
	}

	var s string
	if math.Abs(v) > largeValue {
		s = printer.Sprintf("%.0f", v)
	} else {
		s = printer.Sprintf("%.1f", v)
	}
	if def.Kind == region.KindCurrency {
		s = "$" + s
	}
	return s + def.Suffix
}

// FormatOptional renders a possibly-null value, using "No data" for nil.
func FormatOptional(def region.MetricDef, v *float64) string {
	if v == nil {
		return "No data"
	}
	return FormatValue(def, *v)
}

// DetailLine is one labelled value in a region's info panel.
type DetailLine struct {
	Metric string `json:"metric"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

// Details returns the info-panel lines for a clicked region, one per known
// metric in catalog order.
func Details(r region.Record, catalog *region.Catalog) []DetailLine {
	defs := catalog.Defs()
	lines := make([]DetailLine, 0, len(defs))
	for _, def := range defs {
		line := DetailLine{Metric: def.Name, Label: def.Label, Value: "No data"}
		if v, ok := r.Value(def.Name); ok {
			line.Value = FormatValue(def, v)
		}
		lines = append(lines, line)
	}
	return lines
}
