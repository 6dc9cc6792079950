package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lorisbot/internal/config"
	"lorisbot/internal/service"
	"lorisbot/internal/whatsapp"
)

// maxBodyBytes caps inbound webhook bodies; Cloud API deliveries are small.
const maxBodyBytes = 1 << 20

// Server exposes the webhook surface: the GET verification handshake, the
// POST delivery endpoint, and a health probe.
type Server struct {
	cfg    config.WhatsAppConfig
	svc    *service.Service
	logger *slog.Logger
}

type Config struct {
	Config  config.WhatsAppConfig
	Service *service.Service
	Logger  *slog.Logger
}

func New(cfg Config) *Server {
	return &Server{
		cfg:    cfg.Config,
		svc:    cfg.Service,
		logger: cfg.Logger,
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	path := s.cfg.WebhookPath
	if path == "" {
		path = "/wpp-webhook"
	}
	mux.HandleFunc("GET "+path, s.handleVerification)
	mux.HandleFunc("POST "+path, s.handleDelivery)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// The pipeline runs inside the request: media download, OCR and up
		// to two provider round-trips per stage all happen before the
		// response is written.
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server ready", "addr", srv.Addr, "path", s.cfg.WebhookPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleVerification handles the webhook verification handshake: echo the
// challenge iff the mode is "subscribe" and the token matches.
func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "" || token == "" {
		s.logger.Warn("verification request missing parameters")
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}

	if mode == "subscribe" && token == s.cfg.VerifyToken {
		s.logger.Info("webhook verified")
		// The challenge is echoed verbatim; the provider compares it
		// byte-for-byte. Plain text keeps browsers from interpreting it.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	s.logger.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "verification failed", http.StatusForbidden)
}

// handleDelivery processes a webhook delivery. Any failure past validation
// comes back as the uniform JSON envelope; nothing propagates as an
// unhandled fault.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	if s.cfg.AppSecret != "" {
		if !s.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
			logger.Warn("invalid webhook signature")
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	fixed, err := whatsapp.RenameReservedKeys(body)
	if err != nil {
		logger.Warn("malformed webhook body", "err", err)
		writeJSON(w, http.StatusBadRequest, service.Envelope{
			Status:  service.StatusError,
			Message: fmt.Sprintf("invalid webhook format: %v", err),
		})
		return
	}

	var webhook whatsapp.Webhook
	if err := json.Unmarshal(fixed, &webhook); err != nil {
		logger.Warn("webhook body does not match schema", "err", err)
		writeJSON(w, http.StatusBadRequest, service.Envelope{
			Status:  service.StatusError,
			Message: fmt.Sprintf("invalid webhook format: %v", err),
		})
		return
	}
	if webhook.Object == "" || len(webhook.Entry) == 0 {
		writeJSON(w, http.StatusBadRequest, service.Envelope{
			Status:  service.StatusError,
			Message: "invalid webhook format: missing object or entry",
		})
		return
	}

	env := s.svc.HandleWebhook(r.Context(), &webhook)
	logger.Info("webhook handled", "status", env.Status)
	writeJSON(w, env.HTTPStatus(), env)
}

// verifySignature checks the X-Hub-Signature-256 header.
func (s *Server) verifySignature(body []byte, signature string) bool {
	if len(signature) < 7 || signature[:7] != "sha256=" {
		return false
	}
	expected := signature[7:]

	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(computed))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
