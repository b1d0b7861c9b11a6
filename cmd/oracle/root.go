package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/config"
	"github.com/jackzampolin/oracle/internal/home"
	"github.com/jackzampolin/oracle/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Themed crypto prophecies with follow-up insights",
	Long: `Oracle generates short, mystical prophecies about crypto markets and
answers follow-up requests for deeper insight into a prophecy.

Prophecies are stored in DefraDB when it is reachable and in a local JSON
file otherwise. Themes: general, defi, nft, dao.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: {home}/config.yaml, ./config.yaml or ~/.oracle/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "oracle home directory (default: ~/.oracle)",
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

// getHome returns the home directory, creating it if needed.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig reads --config, else {home}/config.yaml when present, else the
// default search path.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(h.ConfigPath()); err == nil {
			path = h.ConfigPath()
		}
	}
	return config.NewManager(path)
}
