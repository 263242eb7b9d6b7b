package dashboard

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/region"
)

// ErrYearOutOfRange is returned when a year falls outside the configured
// slider range.
var ErrYearOutOfRange = eris.New("dashboard: year out of range")

// Dashboard owns the selection state and the last successful view. Each
// event validates the new selection, recomputes the whole pipeline and only
// then swaps selection and view in together; on failure both are left as
// they were. Events are serialised, so readers never see a new metric with
// an old filter.
type Dashboard struct {
	mu          sync.Mutex
	records     []region.Record
	catalog     *region.Catalog
	limit       int
	minYear     int
	maxYear     int
	sel         Selection
	view        View
	subscribers []func(View)
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithTableLimit sets the number of ranked table rows.
func WithTableLimit(n int) Option {
	return func(d *Dashboard) {
		d.limit = n
	}
}

// WithYearRange bounds the years SetYear accepts. A zero range accepts any
// year.
func WithYearRange(lo, hi int) Option {
	return func(d *Dashboard) {
		d.minYear, d.maxYear = lo, hi
	}
}

// New builds a dashboard over a loaded record set and runs the pipeline for
// the initial selection.
func New(records []region.Record, catalog *region.Catalog, initial Selection, opts ...Option) (*Dashboard, error) {
	d := &Dashboard{
		records: records,
		catalog: catalog,
		limit:   DefaultTableLimit,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.checkYear(initial.Year); err != nil {
		return nil, err
	}
	view, err := Compute(d.records, initial, d.catalog, d.limit)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: initial selection")
	}
	d.sel, d.view = initial, view
	return d, nil
}

// Subscribe registers fn to receive every view produced by a successful
// event. fn runs synchronously while the event is being handled and must not
// call back into the Dashboard.
func (d *Dashboard) Subscribe(fn func(View)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// SetMetric selects a metric. Unknown metrics are rejected with
// ErrUnknownMetric and the previous selection is kept.
func (d *Dashboard) SetMetric(name string) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.catalog.Has(name) {
		return d.view, eris.Wrapf(ErrUnknownMetric, "metric %q", name)
	}
	next := d.sel
	next.Metric = name
	return d.apply(next, "metric")
}

// SetRegions replaces the region filter.
func (d *Dashboard) SetRegions(f RegionFilter) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.sel
	next.Regions = f
	return d.apply(next, "regions")
}

// SetYear changes the selected year. The year is carried into the view but
// does not change any computed output.
func (d *Dashboard) SetYear(year int) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkYear(year); err != nil {
		return d.view, err
	}
	next := d.sel
	next.Year = year
	return d.apply(next, "year")
}

// Refresh recomputes the pipeline for the current selection.
func (d *Dashboard) Refresh() (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.sel, "refresh")
}

// Current returns the last successful view.
func (d *Dashboard) Current() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Selection returns the current selection.
func (d *Dashboard) Selection() Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel
}

// Catalog returns the metric catalog.
func (d *Dashboard) Catalog() *region.Catalog {
	return d.catalog
}

// Records returns the full record set in catalog order. Callers must treat
// the records as read-only.
func (d *Dashboard) Records() []region.Record {
	return d.records
}

// Record returns the record with the given key.
func (d *Dashboard) Record(key string) (region.Record, bool) {
	for _, r := range d.records {
		if r.Key == key {
			return r, true
		}
	}
	return region.Record{}, false
}

// Locate resolves a map click to the region containing it.
func (d *Dashboard) Locate(lat, lon float64) (region.Record, bool) {
	return region.Locate(d.records, lat, lon)
}

func (d *Dashboard) apply(next Selection, event string) (View, error) {
	view, err := Compute(d.records, next, d.catalog, d.limit)
	if err != nil {
		zap.L().Warn("dashboard: recompute failed, keeping previous view",
			zap.String("event", event),
			zap.Error(err),
		)
		return d.view, err
	}

	d.sel, d.view = next, view
	zap.L().Debug("dashboard: recomputed",
		zap.String("event", event),
		zap.String("metric", next.Metric),
		zap.Int("active", view.ActiveCount),
		zap.Int("year", next.Year),
	)
	for _, fn := range d.subscribers {
		fn(view)
	}
	return view, nil
}

func (d *Dashboard) checkYear(year int) error {
	if d.minYear == 0 && d.maxYear == 0 {
		return nil
	}
	if year < d.minYear || year > d.maxYear {
		return eris.Wrapf(ErrYearOutOfRange, "year %d not in [%d, %d]", year, d.minYear, d.maxYear)
	}
	return nil
}
