// Command devlens is the development overlay daemon: it attaches to a page
// in Chrome, injects the stats/inspector/annotation overlay, and serves the
// annotation dashboard over HTTP and MCP.
//
// Usage:
//
//	devlens serve --url http://localhost:3000      # attach overlay + dashboard
//	devlens serve --config devlens.yaml
//	devlens export --format markdown               # dump stored annotations
//	devlens inspect --html page.html --selector s  # re-locate an element
//	devlens hash-token                             # hash an admin token
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:     "devlens",
		Short:   "Development page overlay: live stats, element inspector, click-to-annotate",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newServeCmd(&logLevel))
	rootCmd.AddCommand(newExportCmd(&logLevel))
	rootCmd.AddCommand(newEventsCmd(&logLevel))
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newHashTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
