package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Subdirectories of the data directory. Media artifacts, the OCR
// side-channel, and the per-message JSON output each get their own.
const (
	dirImages    = "images"
	dirAudio     = "audio"
	dirDocuments = "documents"
	dirOCR       = "ocr"
	dirJSON      = "json"
)

// Store is the local filesystem layout. The artifact path doubles as the
// idempotency key: its existence means "already processed", not "file is
// valid" (no checksum re-verification).
type Store struct {
	root   string
	logger *slog.Logger
}

func NewStore(root string, logger *slog.Logger) (*Store, error) {
	for _, d := range []string{dirImages, dirAudio, dirDocuments, dirOCR, dirJSON} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("cannot create data directory %s: %w", d, err)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

// mimeExtensions maps WhatsApp media MIME types to file extensions.
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpeg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"audio/ogg":       ".ogg",
	"audio/mpeg":      ".mp3",
	"audio/mp4":       ".m4a",
	"audio/aac":       ".aac",
	"audio/amr":       ".amr",
	"application/pdf": ".pdf",
}

// ExtensionForMIME returns the extension for a media MIME type. WhatsApp
// appends codec parameters ("audio/ogg; codecs=opus"), which are ignored.
func ExtensionForMIME(mimeType string) string {
	base := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if ext, ok := mimeExtensions[base]; ok {
		return ext
	}
	return ".bin"
}

// ArtifactPath derives the durable path for a message. For media messages
// this is the download target; for text messages, which have no media, the
// persisted JSON output stands in as the artifact.
func (s *Store) ArtifactPath(msgType, messageID, mimeType string) string {
	switch msgType {
	case "image":
		return filepath.Join(s.root, dirImages, messageID+ExtensionForMIME(mimeType))
	case "audio":
		return filepath.Join(s.root, dirAudio, messageID+ExtensionForMIME(mimeType))
	case "document":
		return filepath.Join(s.root, dirDocuments, messageID+ExtensionForMIME(mimeType))
	default:
		return s.OutputPath(messageID)
	}
}

// OutputPath is where the final ExtractionResult JSON for a message lives.
func (s *Store) OutputPath(messageID string) string {
	return filepath.Join(s.root, dirJSON, messageID+".json")
}

// AlreadyProcessed is the duplicate guard: it checks nothing but filesystem
// existence, so it stays cheap enough to run before any network call.
func (s *Store) AlreadyProcessed(msgType, messageID, mimeType string) bool {
	_, err := os.Stat(s.ArtifactPath(msgType, messageID, mimeType))
	return err == nil
}

// WriteResult persists the output JSON for a message. Written once, never
// updated: the duplicate guard keeps reprocessing from reaching this point.
func (s *Store) WriteResult(messageID, data string) error {
	path := s.OutputPath(messageID)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write output json: %w", err)
	}
	s.logger.Info("output json saved", "path", path)
	return nil
}

// SaveOCRText writes the cleaned OCR text next to the image artifact,
// keyed by the artifact base name.
func (s *Store) SaveOCRText(imagePath, text string) error {
	base := filepath.Base(imagePath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
	path := filepath.Join(s.root, dirOCR, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write ocr text: %w", err)
	}
	s.logger.Info("ocr text saved", "path", path)
	return nil
}
