package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/dashboard"
)

var (
	exportOut     string
	exportMetric  string
	exportRegions []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full ranked table to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initDashboard(cmd.Context(), "export")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := applySelection(env.Dashboard, exportMetric, exportRegions, 0); err != nil {
			return err
		}

		rows := exportRows(env.Dashboard)
		if err := dashboard.ExportXLSX(exportOut, rows, env.Dashboard.Catalog()); err != nil {
			return err
		}

		zap.L().Info("exported ranking",
			zap.String("path", exportOut),
			zap.Int("rows", len(rows)),
			zap.String("metric", env.Dashboard.Selection().Metric),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), exportOut)
		return nil
	},
}

// exportRows ranks every region in the current selection, not just the
// table's visible rows.
func exportRows(d *dashboard.Dashboard) []dashboard.RankedRow {
	sel := d.Selection()
	active := dashboard.Filter(d.Records(), sel.Regions)
	return dashboard.Rank(active, sel.Metric, len(active))
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "ranking.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportMetric, "metric", "", "metric to rank by (default from config)")
	exportCmd.Flags().StringSliceVar(&exportRegions, "regions", nil, "comma-separated region keys (default all)")
	rootCmd.AddCommand(exportCmd)
}
