// Package dashboard implements the choropleth dashboard pipeline: region
// filtering, classification, summary statistics and ranking, driven by a
// serialised selection state.
package dashboard

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/region"
)

// ErrUnknownMetric is returned when a selection names a metric outside the
// catalog.
var ErrUnknownMetric = eris.New("dashboard: unknown metric")

// Selection is the user's current choice driving the pipeline. Year is
// stored and echoed back but no stage reads it yet.
type Selection struct {
	Metric  string
	Regions RegionFilter
	Year    int
}

// SelectionView is the JSON form of a Selection.
type SelectionView struct {
	Metric  string   `json:"metric"`
	Regions []string `json:"regions"`
	Year    int      `json:"year"`
}

// View returns the JSON form of s.
func (s Selection) View() SelectionView {
	return SelectionView{Metric: s.Metric, Regions: s.Regions.Values(), Year: s.Year}
}

// View is every derived output of one pipeline run. Stats is nil when the
// selection is empty.
type View struct {
	Selection      SelectionView  `json:"selection"`
	Classification Classification `json:"classification"`
	Stats          *StatsSummary  `json:"stats"`
	Table          []RankedRow    `json:"table"`
	ActiveCount    int            `json:"active_count"`
	Empty          bool           `json:"empty"`
	Caption        string         `json:"caption"`
}

// Compute runs Filter, then Classify, Aggregate and Rank over records for
// the selection. It is pure: identical inputs give identical views.
func Compute(records []region.Record, sel Selection, catalog *region.Catalog, limit int) (View, error) {
	def, ok := catalog.Get(sel.Metric)
	if !ok {
		return View{}, eris.Wrapf(ErrUnknownMetric, "metric %q", sel.Metric)
	}

	active := Filter(records, sel.Regions)

	v := View{
		Selection:      sel.View(),
		Classification: Classify(active, def),
		Table:          Rank(active, def.Name, limit),
		ActiveCount:    len(active),
		Caption:        fmt.Sprintf("Year: %d | Regions: %d selected", sel.Year, len(active)),
	}

	stats, err := Aggregate(active, def.Name)
	switch {
	case err == nil:
		v.Stats = &stats
	case eris.Is(err, ErrEmptySelection):
		v.Empty = true
	default:
		return View{}, err
	}
	return v, nil
}
