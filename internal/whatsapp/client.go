package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"lorisbot/internal/config"
)

const graphAPIBase = "https://graph.facebook.com"

// Client talks to the Meta Graph API: media info, media download, message
// send. All calls are bearer-token authenticated and go through a pooled
// HTTP client with explicit timeouts.
type Client struct {
	accessToken   string
	phoneNumberID string
	apiVersion    string
	baseURL       string
	client        *http.Client
	logger        *slog.Logger
}

type ClientConfig struct {
	Config  config.WhatsAppConfig
	BaseURL string // override for tests; defaults to the Graph API
	Client  *http.Client
	Logger  *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphAPIBase
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Client{
		accessToken:   cfg.Config.AccessToken,
		phoneNumberID: cfg.Config.PhoneNumberID,
		apiVersion:    cfg.Config.APIVersion,
		baseURL:       cfg.BaseURL,
		client:        cfg.Client,
		logger:        cfg.Logger,
	}
}

// MediaInfo resolves a media id to its signed download URL and MIME type.
func (c *Client) MediaInfo(ctx context.Context, mediaID string) (*Media, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, mediaID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &MediaResolutionError{MediaID: mediaID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &MediaResolutionError{MediaID: mediaID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &MediaResolutionError{MediaID: mediaID, StatusCode: resp.StatusCode}
	}

	var media Media
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, &MediaResolutionError{MediaID: mediaID, Err: err}
	}
	return &media, nil
}

// Download streams the signed URL's bytes to destPath. On a mid-stream
// failure the partial file is left in place and a DownloadError returned;
// callers must not trust the file after an error.
func (c *Client) Download(ctx context.Context, media *Media, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", media.URL, nil)
	if err != nil {
		return &DownloadError{MediaID: media.ID, Err: err}
	}
	// Signed Graph API URLs still require the bearer token.
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return &DownloadError{MediaID: media.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{MediaID: media.ID, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return &DownloadError{MediaID: media.ID, Err: err}
	}
	defer f.Close()

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		return &DownloadError{MediaID: media.ID, Err: err}
	}

	c.logger.Info("media downloaded", "media_id", media.ID, "path", destPath, "bytes", written)
	return nil
}

// FetchMedia resolves and downloads a message's media in one go, storing it
// at destPath. The signed URL from the resolve step is used exactly once.
func (c *Client) FetchMedia(ctx context.Context, mediaID, destPath string) error {
	media, err := c.MediaInfo(ctx, mediaID)
	if err != nil {
		return err
	}
	return c.Download(ctx, media, destPath)
}

// SendText posts a text message to the recipient. Non-2xx responses come
// back as a SendError with the status and body attached.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &SendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Info("message sent", "to", to, "body_len", len(body))
	return nil
}
