// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/oracle/internal/config"
	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/home"
	"github.com/jackzampolin/oracle/internal/prophecy"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Prophecy     *prophecy.Service
	ContentStore *contentstore.Store
	// DefraClient is nil when the store runs local-only.
	DefraClient *defra.Client
	// DefraManager is nil unless serve manages the DefraDB container.
	DefraManager *defra.DockerManager
	Config       *config.Config
	Logger       *slog.Logger
	Home         *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ProphecyFrom extracts the prophecy service from context.
func ProphecyFrom(ctx context.Context) *prophecy.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prophecy
	}
	return nil
}

// ContentStoreFrom extracts the content store from context.
func ContentStoreFrom(ctx context.Context) *contentstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.ContentStore
	}
	return nil
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// DefraManagerFrom extracts the DefraDB container manager from context.
func DefraManagerFrom(ctx context.Context) *defra.DockerManager {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraManager
	}
	return nil
}

// ConfigFrom extracts the configuration snapshot from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
