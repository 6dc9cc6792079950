package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"lorisbot/internal/domain"
	"lorisbot/internal/storage"
	"lorisbot/internal/whatsapp"
)

// Webhook event kinds returned by Classify.
const (
	KindMessage      = "message"
	KindStatusUpdate = "message_status_update"
	KindUnknown      = "unknown"
)

// MediaFetcher resolves a media id and stores its bytes locally.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID, destPath string) error
}

// ReplySender posts a text reply to the sender.
type ReplySender interface {
	SendText(ctx context.Context, to, body string) error
}

// ImageTextExtractor returns cleaned OCR text for a stored image.
type ImageTextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// AudioTranscriber runs the transcription fallback chain over a stored
// audio file.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, []domain.ProviderAttempt, error)
}

// InfoExtractor turns free text into the purchase schema. Never errors;
// total provider exhaustion comes back as a failed Result.
type InfoExtractor interface {
	FromText(ctx context.Context, text string) *domain.Result
}

// Service is the webhook dispatcher: it classifies deliveries, guards
// against re-delivery, routes messages by type through the extraction
// pipeline, and sends the formatted reply. One delivery is handled at a
// time, synchronously; the envelope it returns becomes the HTTP response
// body.
type Service struct {
	store       *storage.Store
	ledger      *storage.Ledger // optional
	fetcher     MediaFetcher
	sender      ReplySender
	ocr         ImageTextExtractor
	transcriber AudioTranscriber
	extractor   InfoExtractor
	logger      *slog.Logger
}

type Config struct {
	Store       *storage.Store
	Ledger      *storage.Ledger
	Fetcher     MediaFetcher
	Sender      ReplySender
	OCR         ImageTextExtractor
	Transcriber AudioTranscriber
	Extractor   InfoExtractor
	Logger      *slog.Logger
}

func New(cfg Config) *Service {
	return &Service{
		store:       cfg.Store,
		ledger:      cfg.Ledger,
		fetcher:     cfg.Fetcher,
		sender:      cfg.Sender,
		ocr:         cfg.OCR,
		transcriber: cfg.Transcriber,
		extractor:   cfg.Extractor,
		logger:      cfg.Logger,
	}
}

// Classify determines the event kind from the payload: any messages
// anywhere make it a message event, statuses alone a status update,
// anything else unknown.
func Classify(w *whatsapp.Webhook) string {
	if w == nil {
		return KindUnknown
	}
	hasStatuses := false
	for _, entry := range w.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				return KindMessage
			}
			if len(change.Value.Statuses) > 0 {
				hasStatuses = true
			}
		}
	}
	if hasStatuses {
		return KindStatusUpdate
	}
	return KindUnknown
}

// HandleWebhook is the main entrypoint for webhook deliveries.
func (s *Service) HandleWebhook(ctx context.Context, w *whatsapp.Webhook) Envelope {
	if w == nil || len(w.Entry) == 0 {
		s.logger.Error("invalid webhook format received")
		return errorEnvelope("invalid webhook format")
	}

	kind := Classify(w)
	s.logger.Info("processing webhook", "kind", kind)

	if kind != KindMessage {
		return Envelope{Status: StatusOK, Message: fmt.Sprintf("processed %s webhook", kind)}
	}

	// Only the first entry/change/message of a delivery is processed;
	// batched payloads are not iterated.
	if len(w.Entry[0].Changes) == 0 || len(w.Entry[0].Changes[0].Value.Messages) == 0 {
		return errorEnvelope("message webhook carries no message in first entry")
	}
	msg := &w.Entry[0].Changes[0].Value.Messages[0]
	return s.handleMessage(ctx, msg)
}

func (s *Service) handleMessage(ctx context.Context, msg *whatsapp.Message) Envelope {
	if msg.ID == "" || msg.Type == "" {
		s.logger.Error("invalid message format received")
		return errorEnvelope("invalid message format")
	}

	switch msg.Type {
	case "text", "image", "audio":
	default:
		s.logger.Warn("unsupported message type", "type", msg.Type, "message_id", msg.ID)
		return Envelope{
			Status:  StatusNotImplemented,
			Message: fmt.Sprintf("unsupported message type: %s", msg.Type),
		}
	}

	// Guard before any network or provider call: redelivery is a declared
	// platform behavior and must stay a cheap no-op.
	if s.store.AlreadyProcessed(msg.Type, msg.ID, msg.MimeType()) {
		s.logger.Info("message already processed", "message_id", msg.ID)
		return Envelope{Status: StatusSkipped, Message: "message already processed"}
	}

	s.logger.Info("handling message", "type", msg.Type, "message_id", msg.ID, "from", msg.From)

	result, err := s.extractResult(ctx, msg)
	if err != nil {
		// Media could not be fetched: the pipeline aborts for this message.
		// Nothing is written and no reply goes out, so a redelivery gets a
		// full retry.
		s.logger.Error("media fetch failed", "message_id", msg.ID, "err", err)
		return errorEnvelope(err.Error())
	}

	out := result.JSON()
	if err := s.store.WriteResult(msg.ID, out); err != nil {
		// The reply still goes out; the guard artifact for media messages
		// is the media file itself.
		s.logger.Error("cannot persist output json", "message_id", msg.ID, "err", err)
	}
	s.record(ctx, msg, result, out)

	if err := s.sender.SendText(ctx, msg.From, whatsapp.NormalizeReply(out)); err != nil {
		s.logger.Error("reply send failed", "message_id", msg.ID, "err", err)
		return errorEnvelope(err.Error())
	}

	s.logger.Info("message handled successfully", "message_id", msg.ID)
	return Envelope{
		Status:  StatusSuccess,
		Message: "message handled successfully",
		Data:    json.RawMessage(out),
	}
}

// extractResult runs the type-specific extraction path and the structured
// extractor. A returned error means media could not be fetched and the
// pipeline must abort; every provider-side failure instead surfaces through
// a Failure result so the output file and ledger still record the delivery.
func (s *Service) extractResult(ctx context.Context, msg *whatsapp.Message) (*domain.Result, error) {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return domain.FailedResult("invalid message", fmt.Errorf("text message without body"), nil), nil
		}
		return s.extractor.FromText(ctx, msg.Text.Body), nil

	case "image":
		path, err := s.fetchMedia(ctx, msg)
		if err != nil {
			return nil, err
		}
		text, err := s.ocr.ExtractText(ctx, path)
		if err != nil {
			return domain.FailedResult("ocr failed", err, nil), nil
		}
		// Empty text means the image had nothing usable; the extractor
		// still runs and degrades to schema defaults.
		return s.extractor.FromText(ctx, text), nil

	case "audio":
		path, err := s.fetchMedia(ctx, msg)
		if err != nil {
			return nil, err
		}
		transcript, attempts, err := s.transcriber.Transcribe(ctx, path)
		if err != nil {
			return domain.FailedResult("failed to transcribe audio with all configured providers", err, attempts), nil
		}
		result := s.extractor.FromText(ctx, transcript)
		result.Attempts = append(attempts, result.Attempts...)
		return result, nil

	default:
		return domain.FailedResult("unsupported message type", fmt.Errorf("type %s", msg.Type), nil), nil
	}
}

func (s *Service) fetchMedia(ctx context.Context, msg *whatsapp.Message) (string, error) {
	ref := msg.MediaRef()
	if ref == nil {
		return "", fmt.Errorf("%s message without media reference", msg.Type)
	}
	path := s.store.ArtifactPath(msg.Type, msg.ID, ref.MimeType)
	if err := s.fetcher.FetchMedia(ctx, ref.ID, path); err != nil {
		return "", err
	}
	s.logger.Debug("media saved locally", "message_id", msg.ID, "path", path)
	return path, nil
}

func (s *Service) record(ctx context.Context, msg *whatsapp.Message, result *domain.Result, out string) {
	if s.ledger == nil {
		return
	}
	status := StatusSuccess
	if result.Failed() {
		status = "failed"
	}
	sha := ""
	if ref := msg.MediaRef(); ref != nil {
		sha = ref.SHA256
	}
	err := s.ledger.Record(ctx, storage.LedgerEntry{
		MessageID: msg.ID,
		Sender:    msg.From,
		Kind:      msg.Type,
		Status:    status,
		SHA256:    sha,
		Attempts:  result.Attempts,
		Result:    out,
	})
	if err != nil {
		s.logger.Error("cannot record result in ledger", "message_id", msg.ID, "err", err)
	}
}
