package contentstore

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls how the Store picks and uses its backends.
type Config struct {
	// ForceLocal skips the remote store entirely.
	ForceLocal bool
	// DualWrite also writes locally after a successful remote write.
	DualWrite bool
	// RemoteTimeout bounds each remote call. Zero means 10s.
	RemoteTimeout time.Duration
	Breaker       BreakerConfig
}

// Store persists records remotely when it can and locally when it cannot.
// The mode is fixed at construction. Operations never return errors; failures
// are logged and absorbed into the boolean results.
type Store struct {
	mode      Mode
	dualWrite bool
	remote    *guardedRemote
	local     *LocalStore
	logger    *slog.Logger
}

// New decides the store mode. With ForceLocal or a nil remote the store is
// local-only; otherwise remote.Setup runs once and any failure selects local mode.
func New(ctx context.Context, cfg Config, remote RemoteStore, local *LocalStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RemoteTimeout == 0 {
		cfg.RemoteTimeout = 10 * time.Second
	}

	s := &Store{
		mode:      ModeLocal,
		dualWrite: cfg.DualWrite,
		local:     local,
		logger:    logger,
	}

	switch {
	case cfg.ForceLocal:
		logger.Info("content store using local storage", "reason", "force_local", "path", local.Path())
	case remote == nil:
		logger.Info("content store using local storage", "reason", "no remote configured", "path", local.Path())
	default:
		setupCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
		err := remote.Setup(setupCtx)
		cancel()
		if err != nil {
			logger.Warn("remote store setup failed, falling back to local storage", "error", err, "path", local.Path())
			break
		}
		s.mode = ModeRemote
		s.remote = newGuardedRemote(remote, cfg.RemoteTimeout, cfg.Breaker, logger)
		logger.Info("content store using remote storage")
	}

	return s
}

// Mode returns the mode chosen at construction.
func (s *Store) Mode() Mode {
	return s.mode
}

// LocalPath returns the path of the local fallback file.
func (s *Store) LocalPath() string {
	return s.local.Path()
}

// BreakerState reports the remote circuit breaker state, or "" in local mode.
func (s *Store) BreakerState() string {
	if s.remote == nil {
		return ""
	}
	return s.remote.State().String()
}

// Put stores rec under id. In remote mode a successful remote write returns
// true without touching the local file unless DualWrite is set. Otherwise the
// result reports whether the local write succeeded.
func (s *Store) Put(ctx context.Context, id string, rec Record) bool {
	rec.ID = id

	if s.mode == ModeRemote {
		err := s.remote.Put(ctx, id, rec)
		if err == nil {
			if s.dualWrite {
				if lerr := s.local.Put(id, rec); lerr != nil {
					s.logger.Warn("dual write to local store failed", "id", id, "error", lerr)
				}
			}
			return true
		}
		s.logger.Warn("remote put failed, writing locally", "id", id, "error", err)
	}

	if err := s.local.Put(id, rec); err != nil {
		s.logger.Error("local put failed", "id", id, "error", err)
		return false
	}
	return true
}

// Get returns the record stored under id. In remote mode any remote error or
// miss falls through to the local file.
func (s *Store) Get(ctx context.Context, id string) (Record, bool) {
	if s.mode == ModeRemote {
		rec, err := s.remote.Get(ctx, id)
		if err == nil {
			return rec, true
		}
		if errors.Is(err, ErrRemoteMiss) {
			s.logger.Debug("remote miss, checking local store", "id", id)
		} else {
			s.logger.Warn("remote get failed, checking local store", "id", id, "error", err)
		}
	}

	rec, ok, err := s.local.Get(id)
	if err != nil {
		s.logger.Error("local get failed", "id", id, "error", err)
		return Record{}, false
	}
	return rec, ok
}

// List returns up to limit locally stored records, newest first.
func (s *Store) List(limit int) []Record {
	records, err := s.local.List(limit)
	if err != nil {
		s.logger.Error("local list failed", "error", err)
		return nil
	}
	return records
}
