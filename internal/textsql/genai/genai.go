// Package genai talks to the text generation backend. Callers see a single
// Complete call that returns the whole completion; streamed responses are
// drained inside the client.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"school-query-workers/internal/common/config"
	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/metrics"
)

var (
	ErrTimeout         = errors.New("GENAI_TIMEOUT")
	ErrUnavailable     = errors.New("GENAI_UNAVAILABLE")
	ErrEmptyCompletion = errors.New("GENAI_EMPTY_COMPLETION")
)

// Purposes label the two uses of the backend.
const (
	PurposeGenerate   = "generate_sql"
	PurposeSynthesize = "synthesize_answer"
)

// Completer turns a prompt into a completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New returns the Completer selected by cfg.Provider.
func New(cfg config.GenAIConfig) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gateway":
		return NewGatewayClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}

// Call runs one completion for purpose, records its latency and converts
// failures into structured errors. Timeouts and transport failures are
// both terminal; nothing here retries.
func Call(ctx context.Context, c Completer, purpose, prompt string) (string, error) {
	start := time.Now()
	text, err := c.Complete(ctx, prompt)
	status := "ok"
	defer func() {
		metrics.GenerationDuration.WithLabelValues(purpose, status).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		if isTimeout(ctx, err) {
			status = "timeout"
			return "", apperrors.NewGenAITimeoutError(purpose, err)
		}
		status = "error"
		return "", apperrors.NewGenAIUnavailableError(purpose, err)
	}
	if strings.TrimSpace(text) == "" {
		status = "empty"
		return "", apperrors.NewGenAIUnavailableError(purpose, ErrEmptyCompletion)
	}
	return text, nil
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// classify maps a transport error to the package sentinels.
func classify(ctx context.Context, err error) error {
	if isTimeout(ctx, err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
