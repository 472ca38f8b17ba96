package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/character"
	"github.com/antoniostano/ironhand/internal/config"
	"github.com/antoniostano/ironhand/internal/dice"
	"github.com/antoniostano/ironhand/internal/game"
	"github.com/antoniostano/ironhand/internal/httpapi"
	"github.com/antoniostano/ironhand/internal/narrator"
	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/registry"
	"github.com/antoniostano/ironhand/internal/session"
)

const messageTimeoutMargin = 30 * time.Second

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     session.Store
	Characters   character.Store
	Registry     *registry.Registry
	Orchestrator *game.Orchestrator
	Metrics      *observability.Metrics
	Storage      string
	Generator    string

	// Cleanup should be called on shutdown, after the HTTP server has
	// stopped, to drain session workers and release the database.
	Cleanup func(ctx context.Context) error
}

// MessageTimeout leaves room for the two generator calls of a checked action
// to exhaust their retries before the message deadline passes.
func MessageTimeout(cfg narrator.GatewayConfig) time.Duration {
	return 2*cfg.Budget() + messageTimeoutMargin
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	stores, err := openStores(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	provider, label, err := narrator.NewProvider(ctx, narrator.Config{
		Mode:         cfg.GeneratorProvider,
		GoogleAPIKey: cfg.GoogleAPIKey,
		GeminiModel:  cfg.GeminiModel,
		HTTPURL:      cfg.GeneratorHTTPURL,
	})
	if err != nil {
		_ = stores.close()
		return nil, fmt.Errorf("generator provider init failed: %w", err)
	}
	logger.Info("generator provider selected", zap.String("provider", label))

	var sink narrator.ErrorSink = narrator.NopSink{}
	var fileSink *narrator.FileSink
	if cfg.GeneratorErrorLog != "" && cfg.GeneratorErrorLog != os.DevNull {
		fileSink, err = narrator.NewFileSink(cfg.GeneratorErrorLog)
		if err != nil {
			_ = stores.close()
			return nil, fmt.Errorf("generator error log init failed: %w", err)
		}
		sink = fileSink
	}

	gatewayCfg := narrator.GatewayConfig{
		Timeout:    cfg.GeneratorTimeout,
		MaxRetries: cfg.GeneratorMaxRetries,
	}
	gateway := narrator.NewGateway(provider, label, gatewayCfg, sink, logger.Named("narrator"), metrics)

	roller := dice.NewRoller()
	reg := registry.New(logger.Named("registry"), metrics)
	orchestrator := game.New(game.Dependencies{
		Sessions:       stores.sessions,
		Characters:     stores.characters,
		Narrator:       gateway,
		Broadcaster:    reg,
		Roller:         roller,
		Logger:         logger.Named("game"),
		Metrics:        metrics,
		MessageTimeout: MessageTimeout(gatewayCfg),
	})

	api := httpapi.New(cfg, httpapi.Dependencies{
		Sessions:     stores.sessions,
		Characters:   stores.characters,
		Registry:     reg,
		Orchestrator: orchestrator,
		Roller:       roller,
		Logger:       logger.Named("http"),
		Metrics:      metrics,
		Ready:        stores.ping,
		Info: map[string]string{
			"storage":   string(stores.backend),
			"generator": label,
		},
	})

	cleanup := func(ctx context.Context) error {
		var errs []string
		reg.Close()
		if err := orchestrator.Close(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("drain session workers: %v", err))
		}
		if fileSink != nil {
			if err := fileSink.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := stores.close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return errors.New(strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     stores.sessions,
		Characters:   stores.characters,
		Registry:     reg,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Storage:      string(stores.backend),
		Generator:    label,
		Cleanup:      cleanup,
	}, nil
}
