package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/ai"
	"github.com/facetrace/attendance/internal/alerts"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/config"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
	"github.com/facetrace/attendance/internal/store"
)

// components bundles the wired domain layer shared by all commands.
type components struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	store    *store.Store
	repo     *identity.Repository
	matcher  *recognize.Matcher
	ledger   *attendance.Ledger
	alerts   *alerts.Ledger
	detector *alerts.PatternDetector
	provider embedding.Provider
}

// buildComponents wires the domain layer from configuration.
func buildComponents() (*components, error) {
	cfg := config.Load()
	log := logger.New()

	st, err := store.New(cfg.Storage.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	repo, err := identity.NewRepository(st, cfg.Storage.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("initializing identity repository: %w", err)
	}

	ledger := attendance.NewLedger(st, repo, log)
	alertLedger := alerts.NewLedger(st, cfg.Alerts.Cap, log)

	return &components{
		cfg:      cfg,
		log:      log,
		store:    st,
		repo:     repo,
		matcher:  recognize.NewMatcher(repo, cfg.Recognition.Threshold, log),
		ledger:   ledger,
		alerts:   alertLedger,
		detector: alerts.NewPatternDetector(ledger, alertLedger, cfg.Alerts.ShiftThreshold, log),
		provider: embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim),
	}, nil
}

// aiProvider picks the configured insight backend: OpenAI first, then
// Gemini. Returns nil when neither key is set; insights then use the
// local heuristic.
func (c *components) aiProvider(ctx context.Context) ai.Provider {
	if c.cfg.OpenAI.Token != "" {
		return ai.NewOpenAIProvider(c.cfg.OpenAI.Token)
	}
	if c.cfg.Gemini.APIKey != "" {
		provider, err := ai.NewGeminiProvider(ctx, c.cfg.Gemini.APIKey)
		if err != nil {
			c.log.Warnw("gemini provider unavailable", logger.FieldError, err)
			return nil
		}
		return provider
	}
	return nil
}
