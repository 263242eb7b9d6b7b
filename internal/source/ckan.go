package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/region"
)

// CKANMetrics resolves a dataset on a CKAN portal (such as data.nsw.gov.au)
// through the package_show action and reads its first CSV or XLSX resource
// as a metric table.
type CKANMetrics struct {
	BaseURL   string
	Dataset   string
	KeyColumn string
	Client    *Client
}

// NewCKANMetrics creates a CKANMetrics source.
func NewCKANMetrics(client *Client, baseURL, dataset, keyColumn string) *CKANMetrics {
	return &CKANMetrics{BaseURL: baseURL, Dataset: dataset, KeyColumn: keyColumn, Client: client}
}

// Name implements MetricSource.
func (s *CKANMetrics) Name() string { return "ckan:" + s.Dataset }

type ckanResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Name      string         `json:"name"`
		Resources []CKANResource `json:"resources"`
	} `json:"result"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CKANResource is one downloadable file of a CKAN dataset.
type CKANResource struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	URL    string `json:"url"`
}

// FetchMetrics implements MetricSource.
func (s *CKANMetrics) FetchMetrics(ctx context.Context) ([]region.MetricRow, error) {
	res, err := s.Resource(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("source: using ckan resource",
		zap.String("dataset", s.Dataset),
		zap.String("resource", res.Name),
		zap.String("format", res.Format),
	)

	if strings.EqualFold(res.Format, "xlsx") {
		return NewXLSXMetrics(s.Client, res.URL, "", s.KeyColumn).FetchMetrics(ctx)
	}
	return NewCSVMetrics(s.Client, res.URL, s.KeyColumn).FetchMetrics(ctx)
}

// Resource looks up the dataset and returns its first CSV resource, or its
// first XLSX resource when there is no CSV.
func (s *CKANMetrics) Resource(ctx context.Context) (CKANResource, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/api/3/action/package_show?id=" + url.QueryEscape(s.Dataset)
	body, err := s.Client.Get(ctx, endpoint)
	if err != nil {
		return CKANResource{}, err
	}

	var resp ckanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CKANResource{}, eris.Wrap(err, "ckan: decode package_show")
	}
	if !resp.Success {
		return CKANResource{}, eris.Errorf("ckan: package_show %s failed: %s", s.Dataset, resp.Error.Message)
	}

	for _, format := range []string{"csv", "xlsx"} {
		for _, r := range resp.Result.Resources {
			if strings.EqualFold(strings.TrimSpace(r.Format), format) && r.URL != "" {
				return r, nil
			}
		}
	}
	return CKANResource{}, eris.Errorf("ckan: dataset %s has no csv or xlsx resource", s.Dataset)
}
