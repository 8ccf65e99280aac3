package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/devlens/annotation"
	"github.com/hazyhaar/devlens/dashboard"
	"github.com/hazyhaar/devlens/dbopen"
	"github.com/hazyhaar/devlens/observability"
	"github.com/hazyhaar/devlens/overlay"
	"github.com/hazyhaar/devlens/perf"
)

func newServeCmd(logLevel *string) *cobra.Command {
	var (
		configPath string
		targetURL  string
		addr       string
		remote     string
		headless   bool
		stealth    bool
		mcpStdio   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Attach the overlay to a page and serve the annotation dashboard",
		Long: `Start a devlens session.

With --url, a browser is launched (or joined via --remote), the overlay is
injected into the page, and annotations persist to the configured SQLite
database. Without --url, only the dashboard is served over the stored
annotations.

With --mcp, annotation tools are additionally exposed over MCP on stdio so
coding agents can read and act on page feedback.`,
		Example: `  devlens serve --url http://localhost:3000
  devlens serve --config devlens.yaml --mcp
  devlens serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Dashboard.Addr = addr
			}
			if remote != "" {
				cfg.Browser.Remote = remote
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if cmd.Flags().Changed("stealth") {
				cfg.Browser.Stealth = stealth
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, logger, cfg, targetURL, mcpStdio)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to devlens.yaml config file")
	cmd.Flags().StringVar(&targetURL, "url", "", "page URL to attach the overlay to")
	cmd.Flags().StringVar(&addr, "addr", "", "dashboard listen address (overrides config)")
	cmd.Flags().StringVar(&remote, "remote", "", "WebSocket URL of an external Chrome (overrides config)")
	cmd.Flags().BoolVar(&headless, "headless", false, "launch the browser headless")
	cmd.Flags().BoolVar(&stealth, "stealth", false, "apply the stealth browser profile")
	cmd.Flags().BoolVar(&mcpStdio, "mcp", false, "also expose annotation tools over MCP on stdio")

	return cmd
}

func loadConfig(path string) (*overlay.Config, error) {
	if path == "" {
		return overlay.DefaultConfig(), nil
	}
	cfg, err := overlay.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *overlay.Config, logger *slog.Logger) (*annotation.Store, *sql.DB, func(), error) {
	db, err := dbopen.Open(cfg.Storage.Path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	kv, err := annotation.NewSQLiteKV(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	events := observability.NewEventLogger(db)
	store, err := annotation.NewStore(ctx, kv,
		annotation.WithStorageKey(cfg.Storage.Key),
		annotation.WithLogger(logger),
		annotation.WithMutationSink(func(ctx context.Context, action string, a annotation.Annotation) {
			events.LogEvent(ctx, observability.Event{
				Action:       action,
				AnnotationID: a.ID,
				Selector:     a.Selector,
			})
		}),
	)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return store, db, func() { db.Close() }, nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *overlay.Config, targetURL string, mcpStdio bool) error {
	store, db, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	var session *overlay.Session
	var stats dashboard.StatsProvider
	var snapshot dashboard.SnapshotProvider
	if targetURL != "" {
		samples := observability.NewSampleWriter(db, 100, 5*time.Second)
		defer samples.Close()

		session, err = overlay.StartSession(ctx, *cfg, targetURL, store, overlay.Options{
			ProcessInfo: selfProcessInfo,
			Logger:      logger,
			OnStats:     samples.RecordStats,
			Toast: func(msg, desc string) {
				logger.Info("overlay: toast", "message", msg, "description", desc)
			},
		})
		if err != nil {
			return err
		}
		defer session.Close()
		o := session.Overlay()
		stats = func() dashboard.StatsSnapshot {
			return dashboard.StatsSnapshot{
				Perf:    o.Sampler().Last(),
				Process: o.ProcessMemory(),
			}
		}
		snapshot = func(ctx context.Context) (string, error) {
			return session.SnapshotHTML()
		}
	}

	srv, err := dashboard.NewServer(store, dashboard.Config{
		Addr:           cfg.Dashboard.Addr,
		Origins:        cfg.Dashboard.Origins,
		AdminTokenHash: cfg.Dashboard.AdminTokenHash,
		Stats:          stats,
		Snapshot:       snapshot,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()

	if mcpStdio {
		mcpServer := mcp.NewServer(&mcp.Implementation{Name: "devlens", Version: version}, nil)
		srv.RegisterMCP(mcpServer)
		go func() {
			errCh <- mcpServer.Run(ctx, &mcp.StdioTransport{})
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			logger.Error("devlens: fatal", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("devlens: dashboard shutdown", "error", serr)
	}
	return err
}

// selfProcessInfo reports this daemon's own memory for the stats panel when
// no external provider is wired.
func selfProcessInfo(ctx context.Context) (*perf.ProcessInfo, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &perf.ProcessInfo{
		PID:       os.Getpid(),
		RSSBytes:  m.Sys,
		HeapBytes: m.HeapAlloc,
	}, nil
}
