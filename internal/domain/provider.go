package domain

import "context"

// ChatProvider is the interface all LLM chat providers must implement.
type ChatProvider interface {
	// Complete sends a system/user message pair and returns the raw
	// assistant response body.
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
	Healthy(ctx context.Context) error
}

// Transcriber converts a locally stored audio file to text. Each
// implementation carries its own provider-specific request shape.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Name() string
}

// Recognizer runs optical character recognition over a locally stored
// image. An empty string with a nil error means the engine found no text,
// which callers must treat as "nothing usable" rather than a failure.
type Recognizer interface {
	Text(ctx context.Context, imagePath string) (string, error)
}
