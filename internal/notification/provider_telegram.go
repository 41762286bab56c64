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

const telegramAPIBase = "https://api.telegram.org"

// TelegramProvider delivers notifications through the Telegram Bot API.
// When a snapshot is attached it uses sendPhoto with the message as caption,
// otherwise sendMessage.
type TelegramProvider struct {
	name    string
	enabled bool
	token   string
	chatID  string
	apiBase string
	client  *httpclient.Client
}

// NewTelegramProvider creates a Telegram provider.
func NewTelegramProvider(enabled bool, token, chatID string, client *httpclient.Client) *TelegramProvider {
	return &TelegramProvider{
		name:    "telegram",
		enabled: enabled,
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  client,
	}
}

func (p *TelegramProvider) GetName() string { return p.name }
func (p *TelegramProvider) IsEnabled() bool { return p.enabled }

// ValidateConfig checks required credentials.
func (p *TelegramProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if strings.TrimSpace(p.token) == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if strings.TrimSpace(p.chatID) == "" {
		return fmt.Errorf("telegram chat id is required")
	}
	return nil
}

// Send delivers the notification, attaching the snapshot when available.
// A missing or unreadable image falls back to a text-only message.
func (p *TelegramProvider) Send(ctx context.Context, n *Notification) error {
	if n.ImagePath != "" {
		image, err := os.ReadFile(n.ImagePath)
		if err == nil {
			return p.sendPhoto(ctx, n.Message, filepath.Base(n.ImagePath), image)
		}
		// image is best-effort, deliver the text instead
	}
	return p.sendMessage(ctx, n.Message)
}

func (p *TelegramProvider) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": p.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.token)
	resp, err := p.client.Post(ctx, url, "application/json", payload)
	if err != nil {
		return errors.New(err).
			Component("telegram").
			Category(errors.CategoryNetwork).
			Build()
	}
	return checkTelegramResponse(resp)
}

func (p *TelegramProvider) sendPhoto(ctx context.Context, caption, filename string, image []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", p.chatID); err != nil {
		return fmt.Errorf("failed to build telegram form: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("failed to build telegram form: %w", err)
	}
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("failed to build telegram form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("failed to build telegram form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build telegram form: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", p.apiBase, p.token)
	resp, err := p.client.Post(ctx, url, writer.FormDataContentType(), &body)
	if err != nil {
		return errors.New(err).
			Component("telegram").
			Category(errors.CategoryNetwork).
			Build()
	}
	return checkTelegramResponse(resp)
}

// checkTelegramResponse drains and closes the response body and converts
// non-200 statuses into delivery errors carrying the API description.
func checkTelegramResponse(resp *http.Response) error {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return errors.Newf("telegram API returned status %d: %s", resp.StatusCode, string(body)).
		Component("telegram").
		Category(errors.CategoryDelivery).
		Build()
}
