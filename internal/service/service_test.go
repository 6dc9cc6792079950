package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"lorisbot/internal/domain"
	"lorisbot/internal/storage"
	"lorisbot/internal/whatsapp"
)

type mockFetcher struct {
	err   error
	calls int
}

func (m *mockFetcher) FetchMedia(ctx context.Context, mediaID, destPath string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(destPath, []byte("media-bytes"), 0o644)
}

type mockSender struct {
	err  error
	to   string
	body string
}

func (m *mockSender) SendText(ctx context.Context, to, body string) error {
	m.to = to
	m.body = body
	return m.err
}

type mockOCR struct {
	text string
	err  error
}

func (m *mockOCR) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return m.text, m.err
}

type mockTranscriber struct {
	text     string
	attempts []domain.ProviderAttempt
	err      error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audioPath string) (string, []domain.ProviderAttempt, error) {
	return m.text, m.attempts, m.err
}

type mockExtractor struct {
	result *domain.Result
	lastIn string
}

func (m *mockExtractor) FromText(ctx context.Context, text string) *domain.Result {
	m.lastIn = text
	return m.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func okResult() *domain.Result {
	info := domain.NewPurchaseInfo()
	info.StoreName = "Mercado Central"
	info.Amount = 45.90
	return &domain.Result{
		Info:     &info,
		Attempts: []domain.ProviderAttempt{{Provider: "openai", Outcome: domain.AttemptOK}},
	}
}

type fixture struct {
	svc       *Service
	store     *storage.Store
	fetcher   *mockFetcher
	sender    *mockSender
	extractor *mockExtractor
	ocr       *mockOCR
	trans     *mockTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		store:     store,
		fetcher:   &mockFetcher{},
		sender:    &mockSender{},
		extractor: &mockExtractor{result: okResult()},
		ocr:       &mockOCR{text: "Total: 45.90\nMercado Central"},
		trans:     &mockTranscriber{text: "gastei quarenta e cinco reais no mercado"},
	}
	f.svc = New(Config{
		Store:       store,
		Fetcher:     f.fetcher,
		Sender:      f.sender,
		OCR:         f.ocr,
		Transcriber: f.trans,
		Extractor:   f.extractor,
		Logger:      testLogger(),
	})
	return f
}

func textWebhook(id, body string) *whatsapp.Webhook {
	return &whatsapp.Webhook{
		Object: "whatsapp_business_account",
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Value: whatsapp.Value{
					Messages: []whatsapp.Message{{
						From: "5511999999999",
						ID:   id,
						Type: "text",
						Text: &whatsapp.TextMessage{Body: body},
					}},
				},
			}},
		}},
	}
}

func mediaWebhook(id, msgType, mime string) *whatsapp.Webhook {
	msg := whatsapp.Message{From: "5511999999999", ID: id, Type: msgType}
	media := &whatsapp.MediaMessage{MimeType: mime, ID: "media-" + id, SHA256: "checksum"}
	switch msgType {
	case "image":
		msg.Image = media
	case "audio":
		msg.Audio = media
	}
	return &whatsapp.Webhook{
		Object: "whatsapp_business_account",
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Value: whatsapp.Value{Messages: []whatsapp.Message{msg}},
			}},
		}},
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(textWebhook("wamid.1", "oi")); got != KindMessage {
		t.Fatalf("expected message, got %q", got)
	}

	statuses := &whatsapp.Webhook{
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Value: whatsapp.Value{Statuses: []whatsapp.Status{{ID: "wamid.1", Status: "delivered"}}},
			}},
		}},
	}
	if got := Classify(statuses); got != KindStatusUpdate {
		t.Fatalf("expected status update, got %q", got)
	}

	if got := Classify(&whatsapp.Webhook{Entry: []whatsapp.Entry{{}}}); got != KindUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := Classify(nil); got != KindUnknown {
		t.Fatalf("expected unknown for nil, got %q", got)
	}
}

func TestHandleWebhook_TextMessage(t *testing.T) {
	f := newFixture(t)

	env := f.svc.HandleWebhook(context.Background(), textWebhook("wamid.1", "gastei 45,90 no mercado"))
	if env.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", env)
	}
	if f.extractor.lastIn != "gastei 45,90 no mercado" {
		t.Fatalf("extractor got wrong text: %q", f.extractor.lastIn)
	}
	if f.sender.to != "5511999999999" {
		t.Fatalf("reply sent to wrong recipient: %q", f.sender.to)
	}
	if f.sender.body == "" {
		t.Fatal("expected a reply body")
	}
}

func TestHandleWebhook_DuplicateIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := textWebhook("wamid.2", "gastei 45,90")

	first := f.svc.HandleWebhook(ctx, w)
	if first.Status != StatusSuccess {
		t.Fatalf("expected success on first delivery, got %+v", first)
	}

	second := f.svc.HandleWebhook(ctx, w)
	if second.Status != StatusSkipped {
		t.Fatalf("expected skipped on redelivery, got %+v", second)
	}
	if second.Message != "message already processed" {
		t.Fatalf("unexpected skip message: %q", second.Message)
	}
}

func TestHandleWebhook_ImageMessage(t *testing.T) {
	f := newFixture(t)

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.3", "image", "image/jpeg"))
	if env.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", env)
	}
	if f.fetcher.calls != 1 {
		t.Fatalf("expected media fetched once, got %d", f.fetcher.calls)
	}
	if f.extractor.lastIn != "Total: 45.90\nMercado Central" {
		t.Fatalf("extractor got wrong text: %q", f.extractor.lastIn)
	}
}

func TestHandleWebhook_ImageDuplicateGuardedByArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := mediaWebhook("wamid.4", "image", "image/jpeg")

	f.svc.HandleWebhook(ctx, w)
	env := f.svc.HandleWebhook(ctx, w)
	if env.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %+v", env)
	}
	if f.fetcher.calls != 1 {
		t.Fatalf("expected no second fetch, got %d", f.fetcher.calls)
	}
}

func TestHandleWebhook_AudioMessage_PrependsTranscriptionAttempts(t *testing.T) {
	f := newFixture(t)
	f.trans.attempts = []domain.ProviderAttempt{
		{Provider: "openai-whisper", Outcome: "timeout"},
		{Provider: "groq-whisper", Outcome: domain.AttemptOK},
	}

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.5", "audio", "audio/ogg; codecs=opus"))
	if env.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", env)
	}
	if f.extractor.lastIn != "gastei quarenta e cinco reais no mercado" {
		t.Fatalf("extractor got wrong text: %q", f.extractor.lastIn)
	}
}

func TestHandleWebhook_AudioTranscriptionFails(t *testing.T) {
	f := newFixture(t)
	f.trans.err = errors.New("all providers failed: bad audio")

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.6", "audio", "audio/ogg"))
	// An exhausted transcription chain still acknowledges the delivery and
	// replies with the error document.
	if env.Status != StatusSuccess {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	if f.sender.body == "" {
		t.Fatal("expected an error reply body")
	}
}

func TestHandleWebhook_MediaFetchFails_Aborts(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("status 404")

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.7", "image", "image/jpeg"))
	if env.Status != StatusError {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.HTTPStatus() != 500 {
		t.Fatalf("expected 500, got %d", env.HTTPStatus())
	}
	// Aborted: no reply, no output file, nothing for the guard to find, so
	// a redelivery retries from scratch.
	if f.sender.body != "" {
		t.Fatalf("reply sent for aborted message: %q", f.sender.body)
	}
	if _, err := os.Stat(f.store.OutputPath("wamid.7")); err == nil {
		t.Fatal("output json written for aborted message")
	}

	f.fetcher.err = nil
	retry := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.7", "image", "image/jpeg"))
	if retry.Status != StatusSuccess {
		t.Fatalf("expected success on retry, got %+v", retry)
	}
}

func TestHandleWebhook_AudioFetchFails_Aborts(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("resolve media media-wamid.12: status 500")

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.12", "audio", "audio/ogg"))
	if env.Status != StatusError {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if f.sender.body != "" {
		t.Fatalf("reply sent for aborted message: %q", f.sender.body)
	}
}

func TestHandleWebhook_OCRFailureDegradesToFailureDocument(t *testing.T) {
	// Unlike a fetch failure, an OCR engine failure happens after the media
	// artifact exists; the delivery is acknowledged with the error document.
	f := newFixture(t)
	f.ocr.err = errors.New("tesseract failed")

	env := f.svc.HandleWebhook(context.Background(), mediaWebhook("wamid.13", "image", "image/jpeg"))
	if env.Status != StatusSuccess {
		t.Fatalf("expected success envelope with error document, got %+v", env)
	}
	if f.sender.body == "" {
		t.Fatal("expected an error reply body")
	}
}

func TestHandleWebhook_UnsupportedType(t *testing.T) {
	f := newFixture(t)
	w := &whatsapp.Webhook{
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Value: whatsapp.Value{Messages: []whatsapp.Message{{
					From: "5511999999999",
					ID:   "wamid.8",
					Type: "sticker",
				}}},
			}},
		}},
	}

	env := f.svc.HandleWebhook(context.Background(), w)
	if env.Status != StatusNotImplemented {
		t.Fatalf("expected not_implemented, got %+v", env)
	}
}

func TestHandleWebhook_StatusUpdate(t *testing.T) {
	f := newFixture(t)
	w := &whatsapp.Webhook{
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Value: whatsapp.Value{Statuses: []whatsapp.Status{{ID: "wamid.9", Status: "read"}}},
			}},
		}},
	}

	env := f.svc.HandleWebhook(context.Background(), w)
	if env.Status != StatusOK {
		t.Fatalf("expected ok, got %+v", env)
	}
}

func TestHandleWebhook_EmptyEntry(t *testing.T) {
	f := newFixture(t)

	env := f.svc.HandleWebhook(context.Background(), &whatsapp.Webhook{})
	if env.Status != StatusError {
		t.Fatalf("expected error, got %+v", env)
	}
	if env.HTTPStatus() != 500 {
		t.Fatalf("expected 500, got %d", env.HTTPStatus())
	}
}

func TestHandleWebhook_SendFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("send: connection refused")

	env := f.svc.HandleWebhook(context.Background(), textWebhook("wamid.10", "gastei 10"))
	if env.Status != StatusError {
		t.Fatalf("expected error when reply fails, got %+v", env)
	}
}

func TestHandleWebhook_ReplyIsNormalized(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleWebhook(context.Background(), textWebhook("wamid.11", "gastei 45,90"))
	for _, c := range f.sender.body {
		if c == '[' || c == ']' {
			t.Fatalf("reply not normalized: %q", f.sender.body)
		}
	}
}
