package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/region"
)

// CSVMetrics reads a metric table from a CSV file or URL. One column holds
// the region key; every other column is a metric named by its header.
type CSVMetrics struct {
	Location  string
	KeyColumn string
	Client    *Client
}

// NewCSVMetrics creates a CSVMetrics source.
func NewCSVMetrics(client *Client, location, keyColumn string) *CSVMetrics {
	return &CSVMetrics{Location: location, KeyColumn: keyColumn, Client: client}
}

// Name implements MetricSource.
func (s *CSVMetrics) Name() string { return "csv:" + s.Location }

// FetchMetrics implements MetricSource.
func (s *CSVMetrics) FetchMetrics(ctx context.Context) ([]region.MetricRow, error) {
	data, err := readLocation(ctx, s.Client, s.Location)
	if err != nil {
		return nil, err
	}
	rows, err := ParseMetricsCSV(bytes.NewReader(data), s.KeyColumn)
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", s.Location)
	}
	return rows, nil
}

// keyedRecord is the fixed part of a metric CSV row. The key column is
// renamed to "key" before decoding.
type keyedRecord struct {
	Key string `csv:"key"`
}

// ParseMetricsCSV decodes a metric table. Cells that are empty or not
// numeric are left out of the row's metrics.
func ParseMetricsCSV(r io.Reader, keyColumn string) ([]region.MetricRow, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty input")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	keyIdx := findColumn(header, keyColumn)
	if keyIdx < 0 {
		return nil, eris.Errorf("csv: key column %q not found", keyColumn)
	}

	b := newTableBuilder(header, keyIdx)
	decHeader := make([]string, len(header))
	for i := range header {
		decHeader[i] = "col_" + strconv.Itoa(i)
	}
	decHeader[keyIdx] = "key"

	dec, err := csvutil.NewDecoder(cr, decHeader...)
	if err != nil {
		return nil, eris.Wrap(err, "csv: create decoder")
	}

	for {
		var rec keyedRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "csv: decode line %d", len(b.rows)+b.skipped+2)
		}
		b.add(rec.Key, dec.Record(), dec.Unused())
	}

	if b.skipped > 0 {
		zap.L().Debug("source: skipped csv rows without key", zap.Int("skipped", b.skipped))
	}
	return b.rows, nil
}
