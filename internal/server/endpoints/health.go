package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/prophecy"
	"github.com/jackzampolin/oracle/internal/svcctx"
)

// Values reported for DefraDB in /ready and /status.
const (
	DefraHealthy        = "healthy"
	DefraUnhealthy      = "unhealthy"
	DefraDisabled       = "disabled"
	DefraNotInitialized = "not_initialized"
	DefraExternal       = "external"
)

// Values reported for the text generator in /status.
const (
	LLMHealthy   = "healthy"
	LLMUnhealthy = "unhealthy"
)

const llmHealthTimeout = 10 * time.Second

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Defra  string `json:"defra,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
// The server is ready once the prophecy service exists. A remote store whose
// DefraDB is down reports "degraded" since writes fall back to the local file.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Readiness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ContentStoreFrom(r.Context())
	if store == nil || svcctx.ProphecyFrom(r.Context()) == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Store:  "not_initialized",
			Defra:  DefraNotInitialized,
		})
		return
	}

	resp := HealthResponse{Status: "ok", Store: string(store.Mode()), Defra: DefraDisabled}
	if store.Mode() == contentstore.ModeRemote {
		resp.Defra = defraHealth(r)
		if resp.Defra != DefraHealthy {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes DefraDB)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			fmt.Printf("Store:  %s\n", resp.Store)
			fmt.Printf("Defra:  %s\n", resp.Defra)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server  string      `json:"server"`
	Store   StoreStatus `json:"store"`
	LLM     LLMStatus   `json:"llm"`
	Defra   DefraStatus `json:"defra"`
	Tracked int         `json:"tracked"`
	LastID  string      `json:"last_id,omitempty"`
}

// StoreStatus shows the content store mode.
type StoreStatus struct {
	Mode      string `json:"mode"`
	LocalPath string `json:"local_path"`
	Breaker   string `json:"breaker,omitempty"`
}

// LLMStatus shows the text generator in use and whether it answers.
type LLMStatus struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Health   string `json:"health,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DefraStatus shows DefraDB container and health status.
type DefraStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
	URL       string `json:"url,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{Server: "starting"}

	resp.Defra.Container = DefraNotInitialized
	resp.Defra.Health = DefraNotInitialized
	if mgr := svcctx.DefraManagerFrom(ctx); mgr != nil {
		status, err := mgr.Status(ctx)
		if err != nil {
			resp.Defra.Container = "error"
		} else {
			resp.Defra.Container = string(status)
		}
		resp.Defra.URL = mgr.URL()
	} else if client := svcctx.DefraClientFrom(ctx); client != nil {
		resp.Defra.Container = DefraExternal
		resp.Defra.URL = client.URL()
	}

	store := svcctx.ContentStoreFrom(ctx)
	if store != nil {
		resp.Server = "running"
		resp.Store = StoreStatus{
			Mode:      string(store.Mode()),
			LocalPath: store.LocalPath(),
			Breaker:   store.BreakerState(),
		}
		if svcctx.DefraClientFrom(ctx) == nil {
			resp.Defra.Container = DefraDisabled
			resp.Defra.Health = DefraDisabled
		} else {
			resp.Defra.Health = defraHealth(r)
		}
	}

	if svc := svcctx.ProphecyFrom(ctx); svc != nil {
		resp.LLM.Provider = svc.Generator()
		resp.LLM.Health, resp.LLM.Error = llmHealth(r, svc)
		resp.Tracked = svc.Tracked()
		resp.LastID, _ = svc.Last()
	}
	if cfg := svcctx.ConfigFrom(ctx); cfg != nil {
		resp.LLM.Model = cfg.LLM.Model
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func defraHealth(r *http.Request) string {
	client := svcctx.DefraClientFrom(r.Context())
	if client == nil {
		return DefraNotInitialized
	}
	if err := client.HealthCheck(r.Context()); err != nil {
		return DefraUnhealthy
	}
	return DefraHealthy
}

func llmHealth(r *http.Request, svc *prophecy.Service) (string, string) {
	ctx, cancel := context.WithTimeout(r.Context(), llmHealthTimeout)
	defer cancel()
	if err := svc.CheckGenerator(ctx); err != nil {
		return LLMUnhealthy, err.Error()
	}
	return LLMHealthy, ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
