package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regionmap/internal/dashboard"
	"github.com/sells-group/regionmap/internal/source"
)

func init() {
	color.NoColor = true
}

// executeCommand runs the root command in a temp dir holding configYAML and
// returns its stdout.
func executeCommand(t *testing.T, configYAML string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", configYAML)
	t.Chdir(dir)

	prev := cfg
	t.Cleanup(func() {
		cfg = prev
		showMetric, showYear, showMapOut, showRegions = "", 0, "", nil
		exportOut, exportMetric, exportRegions = "ranking.xlsx", "", nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

const quietConfig = `
log:
  level: error
cache:
  driver: none
`

func TestShowCommand(t *testing.T) {
	mapPath := filepath.Join(t.TempDir(), "map.geojson")
	out, err := executeCommand(t, quietConfig,
		"show", "--metric", "median_income", "--regions", "Sydney,Newcastle", "--year", "2020", "--map", mapPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Median Income")
	assert.Contains(t, out, "Year: 2020 | Regions: 2 selected")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Legend")
	assert.Contains(t, out, "Sydney")
	assert.Contains(t, out, "Newcastle")
	assert.NotContains(t, out, "Tamworth")

	data, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	var layer struct {
		Type     string           `json:"type"`
		Features []map[string]any `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &layer))
	assert.Equal(t, "FeatureCollection", layer.Type)
	assert.Len(t, layer.Features, 2)
}

func TestShowCommand_UnknownMetric(t *testing.T) {
	_, err := executeCommand(t, quietConfig, "show", "--metric", "rainfall")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown metric")
}

func TestShowCommand_YearOutOfRange(t *testing.T) {
	_, err := executeCommand(t, quietConfig, "show", "--year", "1999")
	require.Error(t, err)
	assert.ErrorContains(t, err, "year out of range")
}

func TestExportCommand(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "ranking.xlsx")
	out, err := executeCommand(t, quietConfig, "export", "--out", outPath, "--metric", "crime_rate")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Wrote %d rows", len(source.FallbackCities)))

	f, err := xlsx.OpenFile(outPath)
	require.NoError(t, err)
	sheet, ok := f.Sheet[dashboard.ExportSheet]
	require.True(t, ok)
	assert.Len(t, sheet.Rows, len(source.FallbackCities)+1)
	assert.Equal(t, "Rank", sheet.Rows[0].Cells[0].Value)
}

func TestExportRows_IgnoresTableLimit(t *testing.T) {
	c := testConfig()
	c.Dashboard.TableLimit = 3
	withConfig(t, c)

	env, err := initDashboard(context.Background(), "export")
	require.NoError(t, err)
	defer env.Close()

	assert.Len(t, env.Dashboard.Current().Table, 3)
	rows := exportRows(env.Dashboard)
	assert.Len(t, rows, len(source.FallbackCities))
	assert.Equal(t, 1, rows[0].Rank)
}

func TestApplySelection_NoFlagsAndAll(t *testing.T) {
	withConfig(t, testConfig())
	env, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer env.Close()

	_, err = applySelection(env.Dashboard, "", []string{}, 0)
	assert.NoError(t, err, "no flags leaves the selection alone")

	_, err = applySelection(env.Dashboard, "", []string{dashboard.AllRegions}, 0)
	require.NoError(t, err)
	assert.True(t, env.Dashboard.Selection().Regions.IsAll())
}

func TestCacheClearCommand(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		out, err := executeCommand(t, quietConfig, "cache", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Cache disabled")
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "cache.db")
		conf := fmt.Sprintf("log:\n  level: error\ncache:\n  driver: sqlite\n  dsn: %s\n", dsn)
		out, err := executeCommand(t, conf, "cache", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Cleared sqlite cache.")
	})

	t.Run("invalid driver", func(t *testing.T) {
		_, err := executeCommand(t, "log:\n  level: error\ncache:\n  driver: memcached\n", "cache", "clear")
		assert.Error(t, err)
	})
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestRunServer_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := getFreePort(t)
	srv := &http.Server{
		Addr: fmt.Sprintf("127.0.0.1:%d", port),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	// Wait for server to be ready.
	var ready bool
	for i := 0; i < 40; i++ {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
		if err == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServer_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), Handler: http.NotFoundHandler()}
	err = runServer(context.Background(), srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
