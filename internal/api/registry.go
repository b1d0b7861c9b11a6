package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Endpoints implementing Grouped are nested under a shared subcommand.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running oracle server via HTTP.

These commands require a running server (oracle serve).
Use --server to specify a custom server URL.

Examples:
  oracle api status                                  # Store mode and DefraDB health
  oracle api prophecy generate --theme defi          # Ask for a DeFi prophecy
  oracle api insight                                 # Deeper reading of the last prophecy
  oracle api prophecy insight prophecy_1700000000    # ...or of a specific one`,
	}

	groups := make(map[string]*cobra.Command)
	for _, ep := range r.endpoints {
		cmd := ep.Command(getServerURL)
		g, ok := ep.(Grouped)
		if !ok {
			apiCmd.AddCommand(cmd)
			continue
		}
		use, short := g.Group()
		parent, exists := groups[use]
		if !exists {
			parent = &cobra.Command{Use: use, Short: short}
			groups[use] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(cmd)
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
