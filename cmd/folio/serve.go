package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/server"
	"github.com/jackzampolin/folio/internal/store"
)

var (
	serveHost string
	servePort string
	logFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Folio server",
	Long: `Start the Folio HTTP server.

The server opens the sqlite store in the home directory (or the path set
by storage.database), loads LLM providers from config.yaml and reloads
them when the file changes.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes store status)
  - /api/*  - Generation, products, configurations and settings

Examples:
  folio serve                    # Start on the configured port (default 8080)
  folio serve --port 3000        # Start on custom port
  folio serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		logger, err := newLogger(cfg.LogLevel, logFormat)
		if err != nil {
			return err
		}
		mgr.SetLogger(logger)
		if f := mgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		dbPath := h.ResolveDatabase(cfg.Storage.Database)
		backend, err := store.Open(ctx, dbPath, store.OpenOptions{Logger: logger})
		if err != nil {
			return err
		}
		logger.Info("opened store", "path", dbPath)

		st := store.New(backend, storeLimits(cfg))

		mgr.WatchConfig()

		host, port := serveHost, servePort
		if !cmd.Flags().Changed("host") && cfg.Server.Host != "" {
			host = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") && cfg.Server.Port != "" {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: mgr,
			Store:         st,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			_ = st.Close()
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// newLogger builds the process logger from the configured level and format.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(serveCmd)
}
