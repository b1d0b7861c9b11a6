package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/config"
	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/home"
	"github.com/jackzampolin/oracle/internal/schema"
)

var defraCmd = &cobra.Command{
	Use:   "defra",
	Short: "Manage the DefraDB node that stores prophecies",
	Long: `Manage the DefraDB node oracle uses as its remote prophecy ledger.

oracle serve only talks to DefraDB when store.force_local is false. With
defra.url empty it runs the node in a Docker container (data under
~/.oracle/defradb/) and these commands manage that container by hand.
When DefraDB cannot be reached, prophecies go to the local JSON file.

Examples:
  oracle defra start                    # Start the node and deploy the Prophecy schema
  oracle defra status                   # Container, health, stored prophecy count
  oracle defra get prophecy_1700000000  # Read one prophecy from the node
  oracle defra logs --tail 50`,
}

// defraSession carries what every defra subcommand needs.
type defraSession struct {
	home *home.Dir
	cfg  *config.Config
	mgr  *defra.DockerManager
}

// nodeURL prefers an externally managed node over the local container.
func (s *defraSession) nodeURL() string {
	if s.cfg.Defra.URL != "" {
		return s.cfg.Defra.URL
	}
	return s.mgr.URL()
}

func runDefra(fn func(cmd *cobra.Command, args []string, s *defraSession) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cfgMgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		if err := h.EnsureDefraDataPath(); err != nil {
			return err
		}
		mgr, err := defra.NewDockerManager(defra.DockerConfig{
			ContainerName: cfg.Defra.ContainerName,
			HomePath:      h.Path(),
			Image:         cfg.Defra.Image,
			DataPath:      h.DefraDataPath(),
			HostPort:      cfg.Defra.Port,
		})
		if err != nil {
			return err
		}
		defer mgr.Close()

		return fn(cmd, args, &defraSession{home: h, cfg: cfg, mgr: mgr})
	}
}

// storeUsage explains whether oracle serve will write prophecies to this node.
func storeUsage(cfg *config.Config) string {
	switch {
	case cfg.Store.ForceLocal:
		return "unused: store.force_local=true keeps prophecies in the local file"
	case cfg.Defra.URL != "":
		return fmt.Sprintf("external: oracle serve stores prophecies at %s", cfg.Defra.URL)
	default:
		return "managed: oracle serve starts this container and stores prophecies in it"
	}
}

// DefraReport is the output of oracle defra status.
type DefraReport struct {
	Container  string `json:"container" yaml:"container"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Health     string `json:"health,omitempty" yaml:"health,omitempty"`
	Prophecies *int   `json:"prophecies,omitempty" yaml:"prophecies,omitempty"`
	Account    string `json:"account" yaml:"account"`
	Store      string `json:"store" yaml:"store"`
	Note       string `json:"note,omitempty" yaml:"note,omitempty"`
}

var defraStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DefraDB container and deploy the Prophecy schema",
	Long: `Create or start the DefraDB container, wait for it to answer, and
deploy the Prophecy collection. Running it against a started node is a no-op.`,
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		ctx := cmd.Context()

		fmt.Println("Starting DefraDB...")
		if err := s.mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start DefraDB: %w", err)
		}
		if err := schema.Initialize(ctx, defra.NewClient(s.mgr.URL()), slog.Default()); err != nil {
			return fmt.Errorf("DefraDB started but the Prophecy schema was not deployed: %w", err)
		}

		fmt.Printf("DefraDB is running at %s\n", s.mgr.URL())
		fmt.Printf("Store: %s\n", storeUsage(s.cfg))
		return nil
	}),
}

var defraStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the DefraDB container (prophecies are kept)",
	Long: `Stop the DefraDB container. Stored prophecies stay in the data directory;
while it is down oracle serve writes new prophecies to the local file.`,
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		if err := s.mgr.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop DefraDB: %w", err)
		}
		fmt.Println("DefraDB stopped")
		return nil
	}),
}

var defraStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the DefraDB node and how many prophecies it holds",
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		ctx := cmd.Context()

		status, err := s.mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		report := DefraReport{
			Container: string(status),
			Account:   s.cfg.Defra.Account,
			Store:     storeUsage(s.cfg),
		}

		if status != defra.StatusRunning && s.cfg.Defra.URL == "" {
			report.Note = "run 'oracle defra start' to bring the node up"
			return api.Output(report)
		}

		report.URL = s.nodeURL()
		client := defra.NewClient(report.URL)
		if err := client.HealthCheck(ctx); err != nil {
			report.Health = "unhealthy"
			report.Note = err.Error()
			return api.Output(report)
		}
		report.Health = "healthy"

		n, err := defra.NewQuery(schema.ProphecyCollection).Count(ctx, client)
		if err != nil {
			report.Note = fmt.Sprintf("prophecy count unavailable (schema not deployed?): %v", err)
		} else {
			report.Prophecies = &n
		}
		return api.Output(report)
	}),
}

var defraGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Read a prophecy directly from DefraDB",
	Args:  cobra.ExactArgs(1),
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		remote := contentstore.NewDefraRemote(contentstore.DefraConfig{
			Client:  defra.NewClient(s.nodeURL()),
			Account: s.cfg.Defra.Account,
		})
		rec, err := remote.Get(cmd.Context(), args[0])
		if errors.Is(err, contentstore.ErrRemoteMiss) {
			return fmt.Errorf("prophecy %s is not stored in DefraDB", args[0])
		}
		if err != nil {
			return fmt.Errorf("read from %s (is the node running?): %w", s.nodeURL(), err)
		}
		return api.Output(map[string]any{
			"id":         rec.ID,
			"text":       rec.Text,
			"theme":      rec.Theme,
			"timestamp":  rec.Timestamp,
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		})
	}),
}

var logsTail string

var defraLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show DefraDB container logs",
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		logs, err := s.mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}
		fmt.Print(logs)
		return nil
	}),
}

var defraRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the DefraDB container",
	Long: `Stop and remove the DefraDB container. The data directory under
~/.oracle/defradb/ is left alone, so a later start sees the same prophecies.`,
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		if err := s.mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}
		fmt.Printf("Removed %s (data kept in %s)\n", s.mgr.ContainerName(), s.home.DefraDataPath())
		return nil
	}),
}

var defraWaitTimeout time.Duration

var defraWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until DefraDB accepts requests",
	RunE: runDefra(func(cmd *cobra.Command, args []string, s *defraSession) error {
		if err := s.mgr.WaitReady(cmd.Context(), defraWaitTimeout); err != nil {
			return fmt.Errorf("DefraDB not ready: %w", err)
		}
		fmt.Println("DefraDB is ready")
		return nil
	}),
}

func init() {
	defraLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	defraWaitCmd.Flags().DurationVar(&defraWaitTimeout, "timeout", 30*time.Second, "How long to wait")

	defraCmd.AddCommand(
		defraStartCmd,
		defraStopCmd,
		defraStatusCmd,
		defraGetCmd,
		defraLogsCmd,
		defraRemoveCmd,
		defraWaitCmd,
	)
	rootCmd.AddCommand(defraCmd)
}
