package prophecy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/providers"
)

const (
	DefaultProphecyMaxTokens = 150
	DefaultInsightMaxTokens  = 300
	DefaultTemperature       = 0.8
)

// Store is the persistence the service writes through.
type Store interface {
	Put(ctx context.Context, id string, rec contentstore.Record) bool
	Get(ctx context.Context, id string) (contentstore.Record, bool)
}

// Config holds the service's collaborators and generation parameters.
type Config struct {
	Generator providers.LLMClient
	Store     Store
	// Context is created with default limits when nil.
	Context *InsightContext

	Model             string
	ProphecyMaxTokens int
	InsightMaxTokens  int
	Temperature       float64

	// RecallFromStore lets Insight consult the store for ids missing from
	// the context, e.g. after a restart.
	RecallFromStore bool

	Now    func() time.Time
	Logger *slog.Logger
}

// Service generates prophecies and answers insight requests about them.
type Service struct {
	gen             providers.LLMClient
	store           Store
	insights        *InsightContext
	model           string
	prophecyTokens  int
	insightTokens   int
	temperature     float64
	recallFromStore bool
	now             func() time.Time
	logger          *slog.Logger
}

// NewService creates a prophecy service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Generator == nil {
		return nil, errors.New("prophecy: generator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("prophecy: store is required")
	}
	if cfg.Context == nil {
		cfg.Context = NewInsightContext(0, 0)
	}
	if cfg.ProphecyMaxTokens <= 0 {
		cfg.ProphecyMaxTokens = DefaultProphecyMaxTokens
	}
	if cfg.InsightMaxTokens <= 0 {
		cfg.InsightMaxTokens = DefaultInsightMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		gen:             cfg.Generator,
		store:           cfg.Store,
		insights:        cfg.Context,
		model:           cfg.Model,
		prophecyTokens:  cfg.ProphecyMaxTokens,
		insightTokens:   cfg.InsightMaxTokens,
		temperature:     cfg.Temperature,
		recallFromStore: cfg.RecallFromStore,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}, nil
}

// Generate asks the generator for a prophecy on theme and stores it.
// Storage failures are logged and do not fail the call; only a generator
// failure returns an error, always a *GenerationError.
func (s *Service) Generate(ctx context.Context, theme string) (text, id string, err error) {
	selected := SelectTheme(theme)

	result, err := s.gen.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(selected.SystemPrompt()),
			providers.UserMessage(prophecyInstruction),
		},
		Model:       s.model,
		MaxTokens:   s.prophecyTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Error("prophecy generation failed", "theme", selected, "error", err)
		return "", "", &GenerationError{Op: "generate", Err: err}
	}
	text = result.Content

	now := s.now()
	id = s.insights.Record(now.Unix(), text, selected)
	s.logger.Info("prophecy generated", "id", id, "theme", selected, "tokens", result.TotalTokens)

	if !s.store.Put(ctx, id, contentstore.NewRecord(id, text, string(selected), now)) {
		s.logger.Warn("prophecy not persisted", "id", id)
	}
	return text, id, nil
}

// Insight asks the generator for a deeper reading of the prophecy with the
// given id. Unknown ids yield CannotRecallMessage and generator failures
// yield InsightFallbackMessage; neither is an error.
func (s *Service) Insight(ctx context.Context, id string) (string, error) {
	text, theme, ok := s.insights.Lookup(id)
	if !ok && s.recallFromStore {
		text, theme, ok = s.recall(ctx, id)
	}
	if !ok {
		s.logger.Debug("insight requested for unknown prophecy", "id", id)
		return CannotRecallMessage, nil
	}

	result, err := s.gen.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(insightSystemPrompt),
			providers.UserMessage(insightPrompt(text, theme)),
		},
		Model:       s.model,
		MaxTokens:   s.insightTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Error("insight generation failed", "id", id, "error", &GenerationError{Op: "insight", Err: err})
		return InsightFallbackMessage, nil
	}

	s.insights.AppendInsight(id, result.Content)
	return result.Content, nil
}

func (s *Service) recall(ctx context.Context, id string) (string, Theme, bool) {
	rec, ok := s.store.Get(ctx, id)
	if !ok {
		return "", "", false
	}
	theme := Theme(rec.Theme)
	if rec.Theme != "" {
		theme = SelectTheme(rec.Theme)
	}
	s.insights.Seed(id, rec.Text, theme)
	s.logger.Info("prophecy recalled from store", "id", id)
	return rec.Text, theme, true
}

// History returns the insights given so far for id, oldest first.
func (s *Service) History(id string) []string {
	return s.insights.History(id)
}

// Last returns the most recently generated prophecy id.
func (s *Service) Last() (string, bool) {
	return s.insights.Last()
}

// Tracked returns how many prophecies the service remembers.
func (s *Service) Tracked() int {
	return s.insights.Len()
}

// Reset forgets all remembered prophecies and insights.
func (s *Service) Reset() {
	s.insights.Reset()
}

// CheckGenerator reports whether the text generator is reachable.
func (s *Service) CheckGenerator(ctx context.Context) error {
	return s.gen.HealthCheck(ctx)
}

// Generator returns the name of the underlying text generator.
func (s *Service) Generator() string {
	return s.gen.Name()
}
