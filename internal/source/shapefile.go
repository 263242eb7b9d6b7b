package source

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/region"
)

// ShapefileSource reads boundaries from an ESRI shapefile. Location may be a
// local .shp, a local .zip, or a URL to a .zip, which is downloaded into
// TempDir and extracted before reading.
type ShapefileSource struct {
	Location string
	KeyField string
	TempDir  string
	Client   *Client
}

// NewShapefileSource creates a ShapefileSource.
func NewShapefileSource(client *Client, location, keyField, tempDir string) *ShapefileSource {
	return &ShapefileSource{Location: location, KeyField: keyField, TempDir: tempDir, Client: client}
}

// Name implements BoundarySource.
func (s *ShapefileSource) Name() string { return "shapefile:" + s.Location }

// FetchRegions implements BoundarySource.
func (s *ShapefileSource) FetchRegions(ctx context.Context) ([]region.Region, error) {
	shpPath, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := ReadShapefile(shpPath, s.KeyField)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("source: %s has no usable shapes", shpPath)
	}
	return regions, nil
}

// resolve returns the path of the .shp to read, downloading and extracting
// archives as needed.
func (s *ShapefileSource) resolve(ctx context.Context) (string, error) {
	loc := s.Location
	if !isRemote(loc) && !strings.HasSuffix(strings.ToLower(loc), ".zip") {
		return loc, nil
	}

	tempDir := s.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", eris.Wrap(err, "source: create temp dir")
	}

	zipPath := loc
	if isRemote(loc) {
		zipPath = filepath.Join(tempDir, path.Base(strings.SplitN(loc, "?", 2)[0]))
		if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
			zap.L().Debug("source: shapefile archive already downloaded", zap.String("path", zipPath))
		} else {
			data, err := s.Client.Get(ctx, loc)
			if err != nil {
				return "", err
			}
			if err := os.WriteFile(zipPath, data, 0o644); err != nil {
				return "", eris.Wrap(err, "source: write shapefile archive")
			}
		}
	}

	extractDir := filepath.Join(tempDir, strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath)))
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", err
	}
	return findFileByExt(extractDir, ".shp")
}

// ReadShapefile decodes every polygon record of a shapefile into a region
// keyed by the keyField attribute (matched case-insensitively). Records
// without a key or a polygon shape are skipped.
func ReadShapefile(shpPath, keyField string) ([]region.Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	keyIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, keyField) {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, eris.Errorf("source: shapefile %s has no field %q", shpPath, keyField)
	}

	var regions []region.Region
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		key := strings.TrimSpace(strings.TrimRight(reader.Attribute(keyIdx), "\x00"))
		poly, ok := shape.(*shp.Polygon)
		if key == "" || !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		regions = append(regions, region.Region{Key: key, Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Debug("source: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return regions, nil
}

// polygonToMultiPolygon converts a shapefile polygon to a MultiPolygon.
// Clockwise rings start a new polygon; counter-clockwise rings are holes in
// the polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(region.SRID)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("source: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) <= 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("source: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a closed XY ring: negative when the
// ring runs clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	for i := 0; i+3 < len(flat); i += 2 {
		sum += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return sum / 2
}

// extractZIP extracts the files of a ZIP archive into destDir, flattening
// any directories.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrapf(err, "source: open zip %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return eris.Wrap(err, "source: create extract dir")
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(f, filepath.Join(destDir, filepath.Base(f.Name))); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "source: open zip entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, maxBodyBytes)); err != nil {
		return eris.Wrapf(err, "source: extract %s", f.Name)
	}
	return eris.Wrapf(os.WriteFile(dest, buf.Bytes(), 0o644), "source: write %s", dest)
}

// findFileByExt finds the first file with the given extension in dir.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "source: read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("source: no %s file found in %s", ext, dir)
}
