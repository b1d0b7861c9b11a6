package contentstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// RemoteStore is a ledger-like store reached over the network.
// Get returns ErrRemoteMiss when the id is not stored remotely.
type RemoteStore interface {
	// Setup verifies the account and deploys whatever the store needs.
	Setup(ctx context.Context) error
	Put(ctx context.Context, id string, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
}

// BreakerConfig tunes the circuit breaker wrapped around remote calls.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // how long to stay open before probing
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// guardedRemote applies a per-call timeout and a circuit breaker to a RemoteStore.
type guardedRemote struct {
	inner   RemoteStore
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func newGuardedRemote(inner RemoteStore, timeout time.Duration, cfg BreakerConfig, logger *slog.Logger) *guardedRemote {
	cfg = cfg.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A miss means the node answered.
			return err == nil || errors.Is(err, ErrRemoteMiss)
		},
	})
	return &guardedRemote{inner: inner, timeout: timeout, cb: cb}
}

func (g *guardedRemote) Put(ctx context.Context, id string, rec Record) error {
	_, err := g.execute(ctx, func(ctx context.Context) (any, error) {
		return nil, g.inner.Put(ctx, id, rec)
	})
	return err
}

func (g *guardedRemote) Get(ctx context.Context, id string) (Record, error) {
	v, err := g.execute(ctx, func(ctx context.Context) (any, error) {
		return g.inner.Get(ctx, id)
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// State reports the breaker state.
func (g *guardedRemote) State() gobreaker.State {
	return g.cb.State()
}

func (g *guardedRemote) execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	v, err := g.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return v, err
}
