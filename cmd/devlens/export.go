package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/devlens/annotation"
)

func newExportCmd(logLevel *string) *cobra.Command {
	var (
		configPath string
		format     string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print stored annotations to stdout",
		Example: `  devlens export --format markdown
  devlens export --format json --status pending > pending.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, closeDB, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			filter, err := annotation.ParseFilter(status)
			if err != nil {
				return err
			}
			list := annotation.Filtered(store.Read(), filter)

			switch format {
			case "json":
				out, err := annotation.ExportJSON(list)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, out)
			case "markdown", "md":
				fmt.Fprintln(os.Stdout, annotation.ExportMarkdown(list))
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to devlens.yaml config file")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or json")
	cmd.Flags().StringVar(&status, "status", "", "status filter: pending, in-progress, resolved, dismissed")

	return cmd
}
