package narrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antoniostano/ironhand/internal/policy"
)

const (
	DefaultErrorLogPath = "generator_error.log"
	maxPromptExcerpt    = 512
)

// Failure describes a generation request that exhausted its attempts.
type Failure struct {
	Provider string
	Prompt   string
	Attempts int
	Err      error
	At       time.Time
}

// ErrorSink durably records generator failures for operators.
type ErrorSink interface {
	RecordFailure(ctx context.Context, f Failure)
}

// NopSink discards failures.
type NopSink struct{}

func (NopSink) RecordFailure(context.Context, Failure) {}

// FileSink appends one JSON line per failure to a file. Credentials and
// contact details are masked before writing.
type FileSink struct {
	logger *zap.Logger
}

// NewFileSink opens path for appending, creating it when missing.
func NewFileSink(path string) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultErrorLogPath
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &FileSink{logger: logger}, nil
}

func (s *FileSink) RecordFailure(_ context.Context, f Failure) {
	if s == nil || s.logger == nil {
		return
	}
	prompt := f.Prompt
	if len(prompt) > maxPromptExcerpt {
		prompt = prompt[:maxPromptExcerpt] + "..."
	}
	prompt, _ = policy.Redact(prompt)
	errText := ""
	if f.Err != nil {
		errText, _ = policy.Redact(f.Err.Error())
	}
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	s.logger.Error("generator request failed",
		zap.String("provider", f.Provider),
		zap.Int("attempts", f.Attempts),
		zap.Time("failed_at", at.UTC()),
		zap.String("prompt", prompt),
		zap.String("error", errText),
	)
}

func (s *FileSink) Close() error {
	if s == nil || s.logger == nil {
		return nil
	}
	_ = s.logger.Sync()
	return nil
}
