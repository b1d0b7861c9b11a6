package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/server"
)

var (
	serveHost string
	servePort string
	logFile   string
	logLevel  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the oracle server",
	Long: `Start the oracle HTTP server.

With store.force_local (the default) prophecies are kept in
{home}/data/prophecies.json. Otherwise the server connects to DefraDB at
defra.url, or starts a DefraDB container when defra.url is empty and stops it
again on shutdown. If DefraDB cannot be reached, the local file is used.

The server provides:
  - /health                        Basic server health check
  - /ready                         Readiness (store mode, DefraDB health)
  - /status                        Detailed status
  - /api/prophecies                Generate (POST) and list (GET)
  - /api/prophecies/{id}           Get a stored prophecy
  - /api/prophecies/{id}/insight   Deeper reading of a prophecy
  - /api/insight                   Deeper reading of the latest prophecy
  - /swagger                       API docs

Examples:
  oracle serve                        # Start on default port 8080
  oracle serve --port 3000            # Start on custom port
  oracle serve --log-file --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		logger, closeLog, err := newLogger(logFile, logLevel, h.LogPath())
		if err != nil {
			return err
		}
		defer closeLog()

		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")
	serveCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	serveCmd.Flags().Lookup("log-file").NoOptDefVal = "default"
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
}

// newLogger builds a text logger on stdout, teeing to a file when path is
// set. "default" selects defaultPath.
func newLogger(path, level, defaultPath string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if path != "" {
		if path == "default" {
			path = defaultPath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
