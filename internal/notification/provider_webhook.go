package notification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/petwatch/petwatch-go/internal/errors"
	"github.com/petwatch/petwatch-go/internal/httpclient"
)

// webhookPayload is the JSON document posted to generic webhook endpoints.
type webhookPayload struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Label      string         `json:"label,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Message    string         `json:"message"`
	Timestamp  time.Time      `json:"timestamp"`
	Image      string         `json:"image,omitempty"` // base64-encoded JPEG
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WebhookProvider posts notifications as JSON to one or more user-defined
// endpoints. Endpoints are tried in order and the first accepted delivery
// wins; an error is returned only when every endpoint fails.
type WebhookProvider struct {
	name        string
	enabled     bool
	urls        []string
	headers     map[string]string
	bearerToken string
	client      *httpclient.Client
}

// NewWebhookProvider creates a generic webhook provider.
func NewWebhookProvider(enabled bool, urls []string, headers map[string]string, bearerToken string, client *httpclient.Client) *WebhookProvider {
	return &WebhookProvider{
		name:        "webhook",
		enabled:     enabled,
		urls:        urls,
		headers:     headers,
		bearerToken: bearerToken,
		client:      client,
	}
}

func (p *WebhookProvider) GetName() string { return p.name }
func (p *WebhookProvider) IsEnabled() bool { return p.enabled }

// ValidateConfig checks that at least one endpoint is configured.
func (p *WebhookProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if len(p.urls) == 0 {
		return fmt.Errorf("webhook requires at least one URL")
	}
	for _, u := range p.urls {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("webhook URL must not be empty")
		}
	}
	return nil
}

// Send posts the notification JSON to the configured endpoints.
func (p *WebhookProvider) Send(ctx context.Context, n *Notification) error {
	payload := webhookPayload{
		ID:         n.ID,
		Kind:       string(n.Kind),
		Label:      n.Label,
		Confidence: n.Confidence,
		Message:    n.Message,
		Timestamp:  n.Timestamp,
		Metadata:   n.Metadata,
	}
	if n.ImagePath != "" {
		if data, err := os.ReadFile(n.ImagePath); err == nil {
			payload.Image = base64.StdEncoding.EncodeToString(data)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var errs []error
	for _, url := range p.urls {
		if err := p.post(ctx, url, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component("webhook").
		Category(errors.CategoryDelivery).
		Build()
}

func (p *WebhookProvider) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if p.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.bearerToken)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(respBody))
}
