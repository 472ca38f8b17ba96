package narrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/reliability"
)

// FallbackText stands in for narration whenever the generator cannot answer.
const FallbackText = "The story could not be generated at this time."

// ErrGeneratorUnavailable wraps the last provider error once retries run out.
var ErrGeneratorUnavailable = errors.New("narrative generator unavailable")

type GatewayConfig struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 250 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 4 * time.Second
	}
	return c
}

// Budget is the longest a single Generate call can take: every attempt
// running to its timeout plus the backoff between attempts.
func (c GatewayConfig) Budget() time.Duration {
	c = c.withDefaults()
	total := time.Duration(c.MaxRetries+1) * c.Timeout
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		total += reliability.ExponentialBackoff(attempt, c.BackoffBase, c.BackoffCap)
	}
	return total
}

// Gateway wraps a Provider with per-attempt deadlines, bounded retries and
// failure recording. Generate never fails: callers get FallbackText instead.
type Gateway struct {
	provider Provider
	name     string
	cfg      GatewayConfig
	sink     ErrorSink
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewGateway(provider Provider, name string, cfg GatewayConfig, sink ErrorSink, logger *zap.Logger, metrics *observability.Metrics) *Gateway {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	return &Gateway{
		provider: provider,
		name:     name,
		cfg:      cfg.withDefaults(),
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
}

// Generate returns the provider's text for prompt, or FallbackText.
func (g *Gateway) Generate(ctx context.Context, prompt string) string {
	text, err := g.TryGenerate(ctx, prompt)
	if err != nil {
		return FallbackText
	}
	return text
}

// TryGenerate is Generate with the failure exposed. The failure has already
// been logged and recorded by the time it is returned.
func (g *Gateway) TryGenerate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := reliability.Sleep(ctx, reliability.ExponentialBackoff(attempt-1, g.cfg.BackoffBase, g.cfg.BackoffCap)); err != nil {
				lastErr = err
				break
			}
		}
		attempts++
		text, err := g.attempt(ctx, prompt)
		if err == nil {
			g.metrics.ObserveGenerator(g.name, "ok", time.Since(start))
			return text, nil
		}
		lastErr = err
		g.countError(err)
		g.logger.Warn("generator attempt failed",
			zap.String("provider", g.name),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		if !reliability.IsRetryable(ctx, err) {
			break
		}
	}

	g.metrics.ObserveGenerator(g.name, "fallback", time.Since(start))
	g.logger.Error("generator unavailable, using fallback text",
		zap.String("provider", g.name),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	g.sink.RecordFailure(ctx, Failure{
		Provider: g.name,
		Prompt:   prompt,
		Attempts: attempts,
		Err:      lastErr,
		At:       time.Now(),
	})
	return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, prompt string) (string, error) {
	if g.provider == nil {
		return "", fmt.Errorf("no provider configured: %w", reliability.ErrPermanent)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	text, err := g.provider.GenerateContent(attemptCtx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gateway) countError(err error) {
	if g.metrics == nil {
		return
	}
	code := "error"
	var se *reliability.StatusError
	switch {
	case errors.As(err, &se):
		code = strconv.Itoa(se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	case errors.Is(err, ErrEmptyResponse):
		code = "empty"
	}
	g.metrics.ProviderErrors.WithLabelValues(g.name, code).Inc()
}
