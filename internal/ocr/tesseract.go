package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"lorisbot/internal/domain"
)

// Tesseract implements domain.Recognizer with a local tesseract engine.
// A gosseract client is not safe for reuse across images, so one is created
// per call.
type Tesseract struct {
	languages []string
	logger    *slog.Logger
}

type TesseractConfig struct {
	Languages []string // tesseract language codes, e.g. "por", "eng"
	Logger    *slog.Logger
}

func NewTesseract(cfg TesseractConfig) *Tesseract {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"por", "eng"}
	}
	return &Tesseract{languages: cfg.Languages, logger: cfg.Logger}
}

func (t *Tesseract) Text(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("set ocr languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set ocr image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}

	t.logger.Debug("ocr engine output", "image", imagePath, "text_len", len(text))
	return text, nil
}

var _ domain.Recognizer = (*Tesseract)(nil)
