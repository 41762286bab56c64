package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/petwatch/petwatch-go/internal/errors"
	"github.com/petwatch/petwatch-go/internal/httpclient"
)

// maxErrorBodySize bounds how much of a failing provider response is
// captured into the error message.
const maxErrorBodySize = 4 * 1024

// DiscordProvider posts notifications to a Discord channel webhook. Snapshots
// are attached as multipart file uploads.
type DiscordProvider struct {
	name       string
	enabled    bool
	webhookURL string
	client     *httpclient.Client
}

// NewDiscordProvider creates a Discord webhook provider.
func NewDiscordProvider(enabled bool, webhookURL string, client *httpclient.Client) *DiscordProvider {
	return &DiscordProvider{
		name:       "discord",
		enabled:    enabled,
		webhookURL: webhookURL,
		client:     client,
	}
}

func (p *DiscordProvider) GetName() string { return p.name }
func (p *DiscordProvider) IsEnabled() bool { return p.enabled }

// ValidateConfig checks the webhook URL is set.
func (p *DiscordProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if strings.TrimSpace(p.webhookURL) == "" {
		return fmt.Errorf("discord webhook URL is required")
	}
	return nil
}

// Send posts the notification to the webhook. An unreadable image degrades to
// a content-only post.
func (p *DiscordProvider) Send(ctx context.Context, n *Notification) error {
	var image []byte
	var filename string
	if n.ImagePath != "" {
		if data, err := os.ReadFile(n.ImagePath); err == nil {
			image = data
			filename = filepath.Base(n.ImagePath)
		}
	}

	var body bytes.Buffer
	var contentType string
	if image != nil {
		writer := multipart.NewWriter(&body)
		if err := writer.WriteField("content", n.Message); err != nil {
			return fmt.Errorf("failed to build discord form: %w", err)
		}
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("failed to build discord form: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return fmt.Errorf("failed to build discord form: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to build discord form: %w", err)
		}
		contentType = writer.FormDataContentType()
	} else {
		payload, err := json.Marshal(map[string]string{"content": n.Message})
		if err != nil {
			return fmt.Errorf("failed to marshal discord payload: %w", err)
		}
		body.Write(payload)
		contentType = "application/json"
	}

	resp, err := p.client.Post(ctx, p.webhookURL, contentType, &body)
	if err != nil {
		return errors.New(err).
			Component("discord").
			Category(errors.CategoryNetwork).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// Discord returns 204 for plain posts and 200 when wait=true or files
	// are attached.
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return errors.Newf("discord webhook returned status %d: %s", resp.StatusCode, string(respBody)).
		Component("discord").
		Category(errors.CategoryDelivery).
		Build()
}
