package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/schema"
)

// DefraConfig configures the DefraDB-backed remote store.
type DefraConfig struct {
	Client *defra.Client
	// Account tags every stored document with its owner.
	Account string
	// SetupAttempts bounds the health-check retries in Setup.
	SetupAttempts uint
	SetupDelay    time.Duration
	Logger        *slog.Logger
}

// DefraRemote stores prophecies in a DefraDB Prophecy collection.
type DefraRemote struct {
	client   *defra.Client
	account  string
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// NewDefraRemote creates a RemoteStore backed by DefraDB.
func NewDefraRemote(cfg DefraConfig) *DefraRemote {
	if cfg.SetupAttempts == 0 {
		cfg.SetupAttempts = 3
	}
	if cfg.SetupDelay == 0 {
		cfg.SetupDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DefraRemote{
		client:   cfg.Client,
		account:  cfg.Account,
		attempts: cfg.SetupAttempts,
		delay:    cfg.SetupDelay,
		logger:   cfg.Logger,
	}
}

// Setup waits for the node to report healthy, then deploys the collection schema.
func (d *DefraRemote) Setup(ctx context.Context) error {
	err := retry.Do(
		func() error { return d.client.HealthCheck(ctx) },
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Debug("defra not ready", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	if err := schema.Initialize(ctx, d.client, d.logger); err != nil {
		return fmt.Errorf("deploy schema: %w", err)
	}
	return nil
}

// Put upserts the record keyed by its prophecy id.
func (d *DefraRemote) Put(ctx context.Context, id string, rec Record) error {
	fields := map[string]any{
		"prophecy_id": id,
		"text":        rec.Text,
		"theme":       rec.Theme,
		"timestamp":   rec.Timestamp,
		"created_at":  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"account":     d.account,
	}

	result, err := d.client.Upsert(ctx, schema.ProphecyCollection, "prophecy_id", fields)
	if err != nil {
		return fmt.Errorf("defra put %s: %w", id, err)
	}
	d.logger.Debug("prophecy stored in defra", "id", id, "doc_id", result.DocID, "cid", result.CID)
	return nil
}

// Get fetches the record for id.
func (d *DefraRemote) Get(ctx context.Context, id string) (Record, error) {
	if err := defra.ValidateID(id); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRemoteMiss, err)
	}

	resp, err := defra.NewQuery(schema.ProphecyCollection).
		Filter("prophecy_id", id).
		Fields("prophecy_id", "text", "theme", "timestamp", "created_at").
		Limit(1).
		Execute(ctx, d.client)
	if err != nil {
		return Record{}, fmt.Errorf("defra get %s: %w", id, err)
	}
	if msg := resp.Error(); msg != "" {
		return Record{}, fmt.Errorf("defra get %s: %s", id, msg)
	}

	docs := resp.Docs(schema.ProphecyCollection)
	if len(docs) == 0 {
		return Record{}, ErrRemoteMiss
	}
	return recordFromDoc(id, docs[0])
}

func recordFromDoc(id string, doc map[string]any) (Record, error) {
	rec := Record{ID: id}
	rec.Text, _ = doc["text"].(string)
	rec.Theme, _ = doc["theme"].(string)

	switch ts := doc["timestamp"].(type) {
	case float64:
		rec.Timestamp = int64(ts)
	case json.Number:
		n, err := ts.Int64()
		if err != nil {
			return Record{}, fmt.Errorf("defra get %s: bad timestamp: %w", id, err)
		}
		rec.Timestamp = n
	}

	createdAt, _ := doc["created_at"].(string)
	rec.CreatedAt = parseCreatedAt(createdAt, rec.Timestamp)
	return rec, nil
}

var _ RemoteStore = (*DefraRemote)(nil)
