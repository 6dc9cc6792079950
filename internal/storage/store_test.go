package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestNewStore_CreatesLayout(t *testing.T) {
	root := t.TempDir()
	if _, err := NewStore(root, testLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range []string{"images", "audio", "documents", "ocr", "json"} {
		if _, err := os.Stat(filepath.Join(root, d)); err != nil {
			t.Fatalf("expected directory %s: %v", d, err)
		}
	}
}

func TestExtensionForMIME(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"image/jpeg", ".jpeg"},
		{"image/png", ".png"},
		{"audio/ogg", ".ogg"},
		{"audio/ogg; codecs=opus", ".ogg"},
		{"audio/mpeg", ".mp3"},
		{"application/x-unknown", ".bin"},
		{"", ".bin"},
	}
	for _, tc := range cases {
		if got := ExtensionForMIME(tc.mime); got != tc.want {
			t.Fatalf("ExtensionForMIME(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}

func TestAlreadyProcessed_MediaGuard(t *testing.T) {
	s := testStore(t)

	if s.AlreadyProcessed("image", "wamid.1", "image/jpeg") {
		t.Fatal("expected not processed before download")
	}

	path := s.ArtifactPath("image", "wamid.1", "image/jpeg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !s.AlreadyProcessed("image", "wamid.1", "image/jpeg") {
		t.Fatal("expected processed after artifact exists")
	}
}

func TestAlreadyProcessed_KeyedByExtension(t *testing.T) {
	s := testStore(t)

	path := s.ArtifactPath("audio", "wamid.2", "audio/ogg; codecs=opus")
	if err := os.WriteFile(path, []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Same id with a different MIME type maps to a different artifact, so the
	// guard does not fire.
	if s.AlreadyProcessed("audio", "wamid.2", "audio/mpeg") {
		t.Fatal("guard fired for a different extension")
	}
	if !s.AlreadyProcessed("audio", "wamid.2", "audio/ogg") {
		t.Fatal("guard missed the matching extension")
	}
}

func TestAlreadyProcessed_TextUsesOutputJSON(t *testing.T) {
	s := testStore(t)

	if s.AlreadyProcessed("text", "wamid.3", "") {
		t.Fatal("expected not processed before output written")
	}
	if err := s.WriteResult("wamid.3", `{"store_name": "Mercado Central"}`); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if !s.AlreadyProcessed("text", "wamid.3", "") {
		t.Fatal("expected processed after output written")
	}
}

func TestWriteResult_Content(t *testing.T) {
	s := testStore(t)

	doc := `{"amount": 45.9}`
	if err := s.WriteResult("wamid.4", doc); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	data, err := os.ReadFile(s.OutputPath("wamid.4"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != doc {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestSaveOCRText_KeyedByImageBase(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	imagePath := s.ArtifactPath("image", "wamid.5", "image/jpeg")
	if err := s.SaveOCRText(imagePath, "Total: 45.90\nMercado Central"); err != nil {
		t.Fatalf("SaveOCRText: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "ocr", "wamid.5.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Mercado Central") {
		t.Fatalf("unexpected ocr text: %q", data)
	}
}
