package provider

import (
	"context"
	"fmt"
	"log/slog"

	"lorisbot/internal/domain"
)

// Step is one entry of an ordered fallback sequence: a provider name and
// the full operation attempted against it (invocation plus any response
// parsing, so a malformed response falls through to the next provider).
type Step[T any] struct {
	Name string
	Call func(ctx context.Context) (T, error)
}

// AttemptAll tries each step in order and returns the first success along
// with the ordered attempt record. Provider fallback is the only retry
// logic in the pipeline; a step is never re-tried against the same
// provider.
func AttemptAll[T any](ctx context.Context, steps []Step[T], logger *slog.Logger) (T, []domain.ProviderAttempt, error) {
	var zero T
	var lastErr error
	attempts := make([]domain.ProviderAttempt, 0, len(steps))

	for i, s := range steps {
		out, err := s.Call(ctx)
		if err == nil {
			attempts = append(attempts, domain.ProviderAttempt{Provider: s.Name, Outcome: domain.AttemptOK})
			if i > 0 {
				logger.Info("fallback provider succeeded",
					"provider", s.Name,
					"attempt", i+1,
				)
			}
			return out, attempts, nil
		}
		lastErr = err
		attempts = append(attempts, domain.ProviderAttempt{Provider: s.Name, Outcome: err.Error()})
		logger.Warn("provider failed, trying next",
			"provider", s.Name,
			"attempt", i+1,
			"error", err,
		)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return zero, attempts, fmt.Errorf("all providers failed: %w", lastErr)
}

// TranscribeChain tries multiple transcription providers in order, falling
// back to the next one when the current fails.
type TranscribeChain struct {
	transcribers []domain.Transcriber
	logger       *slog.Logger
}

func NewTranscribeChain(transcribers []domain.Transcriber, logger *slog.Logger) *TranscribeChain {
	return &TranscribeChain{transcribers: transcribers, logger: logger}
}

// Transcribe returns the first successful transcript and the ordered
// attempt record, which always covers every provider tried.
func (c *TranscribeChain) Transcribe(ctx context.Context, audioPath string) (string, []domain.ProviderAttempt, error) {
	steps := make([]Step[string], len(c.transcribers))
	for i, t := range c.transcribers {
		t := t
		steps[i] = Step[string]{
			Name: t.Name(),
			Call: func(ctx context.Context) (string, error) { return t.Transcribe(ctx, audioPath) },
		}
	}
	return AttemptAll(ctx, steps, c.logger)
}
