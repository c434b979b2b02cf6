package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and maintain the local store",
	Long: `Inspect and maintain the sqlite store directly, without a running server.

The store lives at ~/.folio/folio.db unless storage.database says otherwise.
Stop the server before clearing collections; it does not watch the file.

Examples:
  folio db status               # Show the database path and collection sizes
  folio db clear debug_logs     # Drop every recorded LLM call`,
}

// openStore opens the configured database for a one-shot command.
func openStore(ctx context.Context) (*store.Store, string, error) {
	h, err := getHome()
	if err != nil {
		return nil, "", err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, "", err
	}
	cfg := mgr.Get()
	path := h.ResolveDatabase(cfg.Storage.Database)
	backend, err := store.Open(ctx, path, store.OpenOptions{})
	if err != nil {
		return nil, "", err
	}
	return store.New(backend, storeLimits(cfg)), path, nil
}

func storeLimits(cfg *config.Config) store.Limits {
	return store.Limits{
		MaxProducts:       cfg.Storage.MaxProducts,
		MaxConfigurations: cfg.Storage.MaxConfigurations,
		MaxDebugLogs:      cfg.Storage.MaxDebugLogs,
	}
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database path and collection sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, path, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Printf("Database: %s\n", path)
		rows := []struct {
			name string
			n    func(context.Context) (int, error)
			max  int
		}{
			{"products", st.Products.Len, st.Products.Max()},
			{"configurations", st.Configurations.Len, st.Configurations.Max()},
			{"debug_logs", st.DebugLogs.Len, st.DebugLogs.Max()},
		}
		for _, r := range rows {
			n, err := r.n(ctx)
			if err != nil {
				return fmt.Errorf("read %s: %w", r.name, err)
			}
			fmt.Printf("  %-16s %3d / %d\n", r.name, n, r.max)
		}

		settings, err := config.NewStore(st.Backend()).GetAll(ctx)
		if err != nil {
			return fmt.Errorf("read settings: %w", err)
		}
		fmt.Printf("  %-16s %3d overrides\n", "settings", len(settings))
		return nil
	},
}

var dbClearCmd = &cobra.Command{
	Use:       "clear <products|configurations|debug_logs>",
	Short:     "Delete every entry in one collection",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"products", "configurations", "debug_logs"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var clearFn func(context.Context) error
		switch args[0] {
		case "products":
			clearFn = st.Products.Clear
		case "configurations":
			clearFn = st.Configurations.Clear
		case "debug_logs":
			clearFn = st.DebugLogs.Clear
		default:
			return fmt.Errorf("unknown collection %q", args[0])
		}
		if err := clearFn(ctx); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", args[0])
		return nil
	},
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved database path",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		fmt.Println(h.ResolveDatabase(mgr.Get().Storage.Database))
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbStatusCmd, dbClearCmd, dbPathCmd)
	rootCmd.AddCommand(dbCmd)
}
