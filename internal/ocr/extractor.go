package ocr

import (
	"context"
	"log/slog"

	"lorisbot/internal/domain"
)

// TextSink receives cleaned OCR text for auditing, keyed by the source
// image path.
type TextSink interface {
	SaveOCRText(imagePath, text string) error
}

// Extractor runs recognition and the cleanup pass, and persists the cleaned
// text to the side-channel store.
type Extractor struct {
	rec     domain.Recognizer
	cleaner *Cleaner
	sink    TextSink
	logger  *slog.Logger
}

type ExtractorConfig struct {
	Recognizer domain.Recognizer
	Cleaner    *Cleaner
	Sink       TextSink // optional
	Logger     *slog.Logger
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.Cleaner == nil {
		cfg.Cleaner = NewCleaner(nil)
	}
	return &Extractor{
		rec:     cfg.Recognizer,
		cleaner: cfg.Cleaner,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
	}
}

// ExtractText returns the cleaned OCR text for an image. An empty string
// with nil error means the image had no usable text.
func (e *Extractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	raw, err := e.rec.Text(ctx, imagePath)
	if err != nil {
		return "", err
	}

	cleaned := e.cleaner.Clean(raw)
	e.logger.Info("ocr text extracted", "image", imagePath, "text_len", len(cleaned))

	if e.sink != nil {
		if err := e.sink.SaveOCRText(imagePath, cleaned); err != nil {
			// Audit copy only; the pipeline result does not depend on it.
			e.logger.Warn("cannot save ocr text", "image", imagePath, "err", err)
		}
	}

	return cleaned, nil
}
