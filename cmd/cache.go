package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the boundary cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached boundary catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		c, err := cache.Open(cmd.Context(), cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		if c == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled; nothing to clear.")
			return nil
		}
		defer func() { _ = c.Close() }()

		if err := c.Clear(cmd.Context()); err != nil {
			return eris.Wrap(err, "clear cache")
		}
		zap.L().Info("cache cleared", zap.String("driver", cfg.Cache.Driver))
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cache.\n", driverName(cfg.Cache.Driver))
		return nil
	},
}

func driverName(d string) string {
	if d == "" {
		return "memory"
	}
	return d
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
