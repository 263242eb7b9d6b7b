package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/regionmap/internal/region"
)

// DefaultKeyColumn is the metric table column holding the region key.
const DefaultKeyColumn = "key"

// missingTokens are cell values treated as "no value".
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"nan":  true,
	"-":    true,
}

// parseValue coerces a cell to a number. Thousands separators, a leading
// "$" and a trailing "%" are ignored. Missing, non-numeric and non-finite
// cells report false.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return 0, false
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// tableBuilder accumulates metric rows from header/record pairs.
type tableBuilder struct {
	header  []string
	keyIdx  int
	rows    []region.MetricRow
	skipped int
}

func newTableBuilder(header []string, keyIdx int) *tableBuilder {
	h := make([]string, len(header))
	for i, name := range header {
		h[i] = strings.TrimSpace(name)
	}
	return &tableBuilder{header: h, keyIdx: keyIdx}
}

// add appends one row; cols are the indexes of metric columns in record.
func (b *tableBuilder) add(key string, record []string, cols []int) {
	key = strings.TrimSpace(key)
	if key == "" {
		b.skipped++
		return
	}
	row := region.MetricRow{Key: key, Metrics: make(map[string]float64, len(cols))}
	for _, i := range cols {
		if i >= len(record) || i >= len(b.header) || i == b.keyIdx || b.header[i] == "" {
			continue
		}
		if v, ok := parseValue(record[i]); ok {
			row.Metrics[b.header[i]] = v
		}
	}
	b.rows = append(b.rows, row)
}

// findColumn returns the index of name in header, ignoring case and
// surrounding whitespace.
func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
