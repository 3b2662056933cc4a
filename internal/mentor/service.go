package mentor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/journal"
)

// Analysis is one generated trade review.
type Analysis struct {
	Account     string    `json:"account"`
	Provider    string    `json:"provider"`
	TradeCount  int       `json:"trade_count"`
	Markdown    string    `json:"markdown"`
	Plain       string    `json:"plain"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service produces reviews of recent trades. Calls are rate limited and never
// retried here.
type Service struct {
	gen       Generator
	limiter   *rate.Limiter
	maxTrades int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService wraps gen. A nil gen yields a service whose Analyze always fails
// with a transient error.
func NewService(gen Generator, cfg *config.Mentor, logger *zap.Logger) *Service {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Service{
		gen:       gen,
		limiter:   rate.NewLimiter(limit, burst),
		maxTrades: cfg.MaxTrades,
		timeout:   cfg.Timeout,
		logger:    logger.Named("mentor"),
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.gen != nil
}

// Analyze reviews the most recent trades of a most-recent-first list.
func (s *Service) Analyze(ctx context.Context, label string, trades []journal.Trade) (Analysis, error) {
	window := Window(trades, s.maxTrades)
	if len(window) == 0 {
		return Analysis{}, &journal.ValidationError{Field: "trades", Reason: "no trades available to analyze"}
	}
	if s.gen == nil {
		return Analysis{}, fmt.Errorf("%w: mentor provider is not configured", journal.ErrTransient)
	}

	prompt, err := BuildPrompt(label, window)
	if err != nil {
		return Analysis{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Analysis{}, fmt.Errorf("%w: rate limiter wait failed: %v", journal.ErrTransient, err)
	}

	s.logger.Debug("Requesting analysis",
		zap.String("provider", s.gen.Name()),
		zap.String("account", label),
		zap.Int("trades", len(window)),
	)
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("Analysis failed", zap.String("provider", s.gen.Name()), zap.Error(err))
		return Analysis{}, fmt.Errorf("generate analysis: %w", journal.AsTransient(err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Analysis{}, fmt.Errorf("%w: empty analysis from %s", journal.ErrTransient, s.gen.Name())
	}

	return Analysis{
		Account:     label,
		Provider:    s.gen.Name(),
		TradeCount:  len(window),
		Markdown:    text,
		Plain:       PlainText(text),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
