package narrator

import (
	"context"
	"errors"
	"fmt"
)

// FallbackProvider attempts a primary provider first and falls back on error.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
}

func NewFallbackProvider(primary, fallback Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, fallback: fallback}
}

func (p *FallbackProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if p == nil || p.primary == nil {
		if p != nil && p.fallback != nil {
			return p.fallback.GenerateContent(ctx, prompt)
		}
		return "", fmt.Errorf("fallback provider misconfigured")
	}

	text, err := p.primary.GenerateContent(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return "", err
	}
	if p.fallback == nil {
		return "", err
	}

	fallbackText, fallbackErr := p.fallback.GenerateContent(ctx, prompt)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary provider error: %w; fallback provider error: %v", err, fallbackErr)
	}
	return fallbackText, nil
}
