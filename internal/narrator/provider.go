// Package narrator is the gateway to the external text generator that
// classifies player actions and narrates their outcomes.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned by providers that answered with no text.
var ErrEmptyResponse = errors.New("generator returned empty text")

// Provider is an external text-generation backend.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Config controls provider construction.
type Config struct {
	Mode         string
	GoogleAPIKey string
	GeminiModel  string
	HTTPURL      string
}

// NewProvider builds the provider selected by cfg.Mode and returns it with a
// short label for logs and metrics.
func NewProvider(ctx context.Context, cfg Config) (Provider, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoProvider(ctx, cfg)
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", err
		}
		return p, "gemini", nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, "", errors.New("generator HTTP url is required for http mode")
		}
		return NewHTTPProvider(cfg.HTTPURL), "http", nil
	case "mock":
		return NewMockProvider(), "mock", nil
	default:
		return nil, "", fmt.Errorf("unsupported generator provider mode %q", cfg.Mode)
	}
}

func newAutoProvider(ctx context.Context, cfg Config) (Provider, string, error) {
	var secondary Provider
	secondaryName := ""
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		secondary = NewHTTPProvider(cfg.HTTPURL)
		secondaryName = "http"
	}

	if strings.TrimSpace(cfg.GoogleAPIKey) != "" {
		gemini, err := NewGeminiProvider(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err == nil {
			if secondary != nil {
				return NewFallbackProvider(gemini, secondary), "gemini+http", nil
			}
			return gemini, "gemini", nil
		}
		if secondary == nil {
			return nil, "", err
		}
	}

	if secondary != nil {
		return secondary, secondaryName, nil
	}
	return NewMockProvider(), "mock", nil
}
