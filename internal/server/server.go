package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/config"
	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/home"
	"github.com/jackzampolin/oracle/internal/prophecy"
	"github.com/jackzampolin/oracle/internal/providers"
	"github.com/jackzampolin/oracle/internal/server/endpoints"
	"github.com/jackzampolin/oracle/internal/svcctx"
)

// Server is the oracle HTTP server.
// When the content store is configured for DefraDB without an external URL,
// it also manages the DefraDB container: starting it on Init and stopping it
// on shutdown.
type Server struct {
	httpServer   *http.Server
	home         *home.Dir
	configMgr    *config.Manager
	dockerCfg    defra.DockerConfig
	generator    providers.LLMClient
	defraManager *defra.DockerManager
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host, then 127.0.0.1)
	Host string
	// Port is the port to listen on (default: server.port, then 8080)
	Port string
	// Home is the oracle home directory (local store, DefraDB data)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support.
	// Defaults are used when nil.
	ConfigManager *config.Manager
	// DefraConfig overrides settings for a managed DefraDB container
	DefraConfig defra.DockerConfig
	// Generator replaces the configured LLM client (tests)
	Generator providers.LLMClient
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	s := &Server{
		home:      cfg.Home,
		configMgr: cfg.ConfigManager,
		dockerCfg: cfg.DefraConfig,
		generator: cfg.Generator,
		logger:    cfg.Logger,
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			// Store mode and the LLM client are fixed for the life of the process.
			s.logger.Info("configuration changed; restart to apply store and llm settings",
				"force_local", c.Store.ForceLocal, "model", c.LLM.Model)
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Init builds the content store, the LLM client and the prophecy service.
// In remote mode it first connects to DefraDB, starting a managed container
// when defra.url is empty. A DefraDB that cannot be reached does not fail
// Init; the content store falls back to local storage instead.
func (s *Server) Init(ctx context.Context) error {
	cfg := config.DefaultConfig()
	if s.configMgr != nil {
		cfg = s.configMgr.Get()
	}

	if err := s.home.EnsureExists(); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	localPath := cfg.Store.LocalPath
	if localPath == "" {
		localPath = s.home.ProphecyStorePath()
	}
	local, err := contentstore.NewLocalStore(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}

	var (
		remote      contentstore.RemoteStore
		defraClient *defra.Client
	)
	if !cfg.Store.ForceLocal {
		defraClient = s.connectDefra(ctx, cfg)
		if defraClient != nil {
			remote = contentstore.NewDefraRemote(contentstore.DefraConfig{
				Client:  defraClient,
				Account: cfg.Defra.Account,
				Logger:  s.logger,
			})
		}
	}

	store := contentstore.New(ctx, contentstore.Config{
		ForceLocal:    cfg.Store.ForceLocal,
		DualWrite:     cfg.Store.DualWrite,
		RemoteTimeout: cfg.RemoteTimeout(),
		Breaker: contentstore.BreakerConfig{
			MaxFailures: cfg.Store.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout(),
		},
	}, remote, local, s.logger)

	gen := s.generator
	if gen == nil {
		gen = newGenerator(cfg)
	}

	svc, err := prophecy.NewService(prophecy.Config{
		Generator:         gen,
		Store:             store,
		Context:           prophecy.NewInsightContext(cfg.Prophecy.MaxTracked, cfg.Prophecy.MaxInsightsPerID),
		Model:             cfg.LLM.Model,
		ProphecyMaxTokens: cfg.LLM.ProphecyMaxTokens,
		InsightMaxTokens:  cfg.LLM.InsightMaxTokens,
		Temperature:       cfg.LLM.Temperature,
		RecallFromStore:   cfg.Prophecy.RecallFromStore,
		Logger:            s.logger,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.services = &svcctx.Services{
		Prophecy:     svc,
		ContentStore: store,
		DefraClient:  defraClient,
		DefraManager: s.defraManager,
		Config:       cfg,
		Logger:       s.logger,
		Home:         s.home,
	}
	s.mu.Unlock()

	s.logger.Info("oracle ready", "store", store.Mode(), "generator", gen.Name(), "model", cfg.LLM.Model)
	return nil
}

// connectDefra returns a client for the configured DefraDB node, or nil when
// a managed container cannot be started.
func (s *Server) connectDefra(ctx context.Context, cfg *config.Config) *defra.Client {
	if cfg.Defra.URL != "" {
		s.logger.Info("using external DefraDB", "url", cfg.Defra.URL)
		return defra.NewClient(cfg.Defra.URL)
	}

	dcfg := s.dockerCfg
	if dcfg.ContainerName == "" {
		dcfg.ContainerName = cfg.Defra.ContainerName
	}
	if dcfg.HomePath == "" {
		dcfg.HomePath = s.home.Path()
	}
	if dcfg.Image == "" {
		dcfg.Image = cfg.Defra.Image
	}
	if dcfg.DataPath == "" {
		if err := s.home.EnsureDefraDataPath(); err != nil {
			s.logger.Warn("cannot create DefraDB data directory", "error", err)
			return nil
		}
		dcfg.DataPath = s.home.DefraDataPath()
	}
	if dcfg.HostPort == "" {
		dcfg.HostPort = cfg.Defra.Port
	}

	mgr, err := defra.NewDockerManager(dcfg)
	if err != nil {
		s.logger.Warn("cannot manage DefraDB container", "error", err)
		return nil
	}

	s.logger.Info("starting DefraDB", "container", mgr.ContainerName())
	if err := mgr.Start(ctx); err != nil {
		s.logger.Warn("failed to start DefraDB", "error", err)
		_ = mgr.Close()
		return nil
	}
	s.defraManager = mgr
	return defra.NewClient(mgr.URL())
}

func newGenerator(cfg *config.Config) providers.LLMClient {
	var gen providers.LLMClient
	if cfg.LLM.Provider == providers.MockClientName {
		gen = providers.NewMockClient()
	} else {
		gen = providers.NewOpenAIClient(providers.OpenAIConfig{
			APIKey:       cfg.ResolvedAPIKey(),
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
			MaxRetries:   cfg.LLM.MaxRetries,
			Timeout:      cfg.LLMTimeout(),
		})
	}
	return providers.NewRateLimitedClient(gen, cfg.LLM.RequestsPerMinute)
}

// Start initializes services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		_ = s.Close()
		s.setNotRunning()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if s.configMgr != nil {
		s.configMgr.WatchConfig()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and managed DefraDB.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.defraManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.defraManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
	}
	if err := s.Close(); err != nil {
		s.logger.Error("DefraDB manager close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the Docker client of a managed DefraDB. The container is left running.
func (s *Server) Close() error {
	if s.defraManager == nil {
		return nil
	}
	return s.defraManager.Close()
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Services returns the initialized services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Endpoints returns the endpoint registry (used to build CLI commands).
func (s *Server) Endpoints() *api.Registry {
	return s.endpointRegistry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.Services(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until Init has completed.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Services() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
