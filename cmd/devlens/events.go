package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/devlens/dbopen"
	"github.com/hazyhaar/devlens/observability"
)

func newEventsCmd(logLevel *string) *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "events",
		Short:   "Print recent annotation events",
		Example: `  devlens events --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := dbopen.Open(cfg.Storage.Path, dbopen.WithSchema(observability.Schema))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			events, err := observability.NewEventLogger(db).RecentEvents(context.Background(), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to devlens.yaml config file")
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to print")

	return cmd
}
