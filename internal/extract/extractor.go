package extract

import (
	"context"
	"log/slog"
	"time"

	"lorisbot/internal/domain"
	"lorisbot/internal/provider"
)

// dateLayout is the timestamp written when the model could not find a date.
const dateLayout = "2006-01-02 15:04:05"

// Extractor turns free text into the purchase schema by trying each chat
// provider in order. Invocation and parsing both count as the provider's
// attempt: a provider that answers with garbage falls through to the next
// one, and total exhaustion degrades to an explicit error-result instead of
// an error.
type Extractor struct {
	providers []domain.ChatProvider
	now       func() time.Time
	logger    *slog.Logger
}

type ExtractorConfig struct {
	Providers []domain.ChatProvider
	Now       func() time.Time // defaults to time.Now
	Logger    *slog.Logger
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Extractor{
		providers: cfg.Providers,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
}

// FromText never returns an error: for any input, including the empty
// string, the result is either a populated schema or a Failure carrying the
// last provider's message.
func (e *Extractor) FromText(ctx context.Context, text string) *domain.Result {
	user := BuildPrompt(text)

	steps := make([]provider.Step[*domain.PurchaseInfo], len(e.providers))
	for i, p := range e.providers {
		p := p
		steps[i] = provider.Step[*domain.PurchaseInfo]{
			Name: p.Name(),
			Call: func(ctx context.Context) (*domain.PurchaseInfo, error) {
				raw, err := p.Complete(ctx, SystemPrompt, user)
				if err != nil {
					return nil, err
				}
				return Parse(raw)
			},
		}
	}

	info, attempts, err := provider.AttemptAll(ctx, steps, e.logger)
	if err != nil {
		e.logger.Error("structured extraction exhausted all providers", "error", err)
		return domain.FailedResult("failed to process text with all configured providers", err, attempts)
	}

	if info.Date == domain.DefaultDate {
		// Documented heuristic: a receipt without a readable date gets the
		// processing timestamp.
		e.logger.Warn("date field missing in extracted information, using current timestamp")
		info.Date = e.now().Format(dateLayout)
	}

	e.logger.Info("structured info extracted",
		"store", info.StoreName,
		"amount", info.Amount,
		"providers_tried", len(attempts),
	)

	return &domain.Result{Info: info, Attempts: attempts}
}
