package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regionmap/internal/dashboard"
	"github.com/sells-group/regionmap/internal/report"
)

var (
	showMetric  string
	showRegions []string
	showYear    int
	showMapOut  string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the dashboard view for a selection",
	Long:  "Loads the data, applies the selection flags and prints the summary statistics, colour legend and ranked table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initDashboard(cmd.Context(), "show")
		if err != nil {
			return err
		}
		defer env.Close()

		view, err := applySelection(env.Dashboard, showMetric, showRegions, showYear)
		if err != nil {
			return err
		}

		if showMapOut != "" {
			if err := writeMapLayer(showMapOut, env.Dashboard, view); err != nil {
				return err
			}
		}

		return report.Render(cmd.OutOrStdout(), view, env.Dashboard.Catalog())
	},
}

// applySelection feeds the non-zero flags to d as selection events and
// returns the resulting view.
func applySelection(d *dashboard.Dashboard, metric string, regions []string, year int) (dashboard.View, error) {
	view := d.Current()
	var err error
	if metric != "" {
		if view, err = d.SetMetric(metric); err != nil {
			return view, err
		}
	}
	if len(regions) > 0 {
		f, ferr := dashboard.ParseFilter(regions)
		if ferr != nil {
			return view, ferr
		}
		if view, err = d.SetRegions(f); err != nil {
			return view, err
		}
	}
	if year != 0 {
		if view, err = d.SetYear(year); err != nil {
			return view, err
		}
	}
	return view, nil
}

func writeMapLayer(path string, d *dashboard.Dashboard, view dashboard.View) error {
	fc := dashboard.MapFeatures(d.Records(), view.Classification)
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "encode map layer")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write map layer %s", path)
	}
	return nil
}

func init() {
	showCmd.Flags().StringVar(&showMetric, "metric", "", "metric to display (default from config)")
	showCmd.Flags().StringSliceVar(&showRegions, "regions", nil, "comma-separated region keys (default all)")
	showCmd.Flags().IntVar(&showYear, "year", 0, "selected year (default from config)")
	showCmd.Flags().StringVar(&showMapOut, "map", "", "also write the coloured map layer as GeoJSON to this path")
	rootCmd.AddCommand(showCmd)
}
