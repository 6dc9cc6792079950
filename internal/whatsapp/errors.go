package whatsapp

import "fmt"

// MediaResolutionError means the media-info endpoint could not resolve a
// media id to a download URL.
type MediaResolutionError struct {
	MediaID    string
	StatusCode int
	Err        error
}

func (e *MediaResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve media %s: %v", e.MediaID, e.Err)
	}
	return fmt.Sprintf("resolve media %s: status %d", e.MediaID, e.StatusCode)
}

func (e *MediaResolutionError) Unwrap() error { return e.Err }

// DownloadError means the signed-URL download failed. Callers must treat a
// partially written file as invalid; no cleanup is performed.
type DownloadError struct {
	MediaID string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download media %s: %v", e.MediaID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// SendError carries the provider's status code and response body when a
// message send fails. There is no retry on send failure.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("whatsapp send failed with status %d: %s", e.StatusCode, e.Body)
}
