package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Context-driven generation of structured advisory content",
	Long: `Folio turns a small business context (role, industry, service, situation)
into structured advisory products: discovery questions, checklists,
playbooks and dossiers.

Each product is built from section drivers. Every driver becomes one
LLM call with a JSON schema; drivers that do not apply to the context
return nothing and are left out. Products can be saved, curated,
annotated and enriched with dissections and follow-up questions.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.folio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: ~/.folio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory manager, creating the directory.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig loads the config file named by --config, else the one in the
// home directory, else the default search path.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	file := cfgFile
	if file == "" && h != nil && h.ConfigExists() {
		file = h.ConfigPath()
	}
	return config.NewManager(file)
}
