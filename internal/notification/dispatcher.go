package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/httpclient"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/observability"
)

// Dispatcher fans a notification out to every enabled provider. Each platform
// gets an independent attempt under its own timeout; a failure on one never
// aborts the others and there is no automatic retry. The aggregated
// DeliveryReport tells the caller exactly what happened per platform.
type Dispatcher struct {
	providers   []Provider
	timeout     time.Duration
	rateLimiter *RateLimiter
	deduper     *Deduper
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewDispatcher builds a dispatcher from notification settings. Providers are
// instantiated in a fixed order so reports and logs are deterministic.
func NewDispatcher(settings *conf.NotificationSettings, client *httpclient.Client, metrics *observability.Metrics) (*Dispatcher, error) {
	p := settings.Providers
	providers := []Provider{
		NewTelegramProvider(p.Telegram.Enabled, p.Telegram.Token, p.Telegram.ChatID, client),
		NewDiscordProvider(p.Discord.Enabled, p.Discord.WebhookURL, client),
		NewWebhookProvider(p.Webhook.Enabled, p.Webhook.URLs, p.Webhook.Headers, p.Webhook.BearerToken, client),
		NewShoutrrrProvider(p.Shoutrrr.Enabled, p.Shoutrrr.URLs, settings.DeliveryTimeout),
		NewMQTTProvider(p.MQTT.Enabled, p.MQTT.Broker, p.MQTT.Topic, p.MQTT.Username, p.MQTT.Password, "", p.MQTT.Retain),
		NewConsoleProvider(p.Console.Enabled),
	}

	enabled := make([]Provider, 0, len(providers))
	for _, prov := range providers {
		if !prov.IsEnabled() {
			continue
		}
		if err := prov.ValidateConfig(); err != nil {
			return nil, err
		}
		enabled = append(enabled, prov)
	}

	timeout := settings.DeliveryTimeout
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}

	return &Dispatcher{
		providers:   enabled,
		timeout:     timeout,
		rateLimiter: NewRateLimiter(settings.RateLimit.RequestsPerMinute, settings.RateLimit.BurstSize),
		deduper:     NewDeduper(settings.DedupeWindow),
		metrics:     metrics,
		logger:      logging.ForService("notification"),
	}, nil
}

// Providers returns the enabled providers in dispatch order.
func (d *Dispatcher) Providers() []Provider {
	return d.providers
}

// Notify delivers the notification to every enabled provider and returns the
// aggregated report. Deduplicated or rate-limited notifications yield a
// report with no results.
func (d *Dispatcher) Notify(ctx context.Context, n *Notification) *DeliveryReport {
	report := &DeliveryReport{
		NotificationID: n.ID,
		Label:          n.Label,
		Timestamp:      n.Timestamp,
	}

	if !d.deduper.ShouldSend(n) {
		d.logger.Debug("duplicate notification suppressed", "id", n.ID, "label", n.Label)
		return report
	}
	if !d.rateLimiter.Allow() {
		d.logger.Warn("notification dropped by rate limiter", "id", n.ID, "label", n.Label)
		return report
	}

	for _, prov := range d.providers {
		report.Results = append(report.Results, d.attempt(ctx, prov, n))
	}

	d.logger.Info("notification dispatched",
		"id", n.ID,
		"label", n.Label,
		"succeeded", report.Succeeded(),
		"failed", report.Failed())
	return report
}

// attempt runs one provider delivery under the per-call timeout.
func (d *Dispatcher) attempt(ctx context.Context, prov Provider, n *Notification) PlatformResult {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	name := prov.GetName()
	if d.metrics != nil {
		d.metrics.DeliveriesAttempted.WithLabelValues(name).Inc()
	}

	start := time.Now()
	err := prov.Send(callCtx, n)
	duration := time.Since(start)

	result := PlatformResult{
		Platform: name,
		Success:  err == nil,
		Duration: duration,
	}
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		d.logger.Error("delivery failed", "provider", name, "id", n.ID, "error", err)
		if d.metrics != nil {
			d.metrics.DeliveriesFailed.WithLabelValues(name).Inc()
		}
	} else {
		d.logger.Debug("delivery succeeded", "provider", name, "id", n.ID, "duration", duration)
		if d.metrics != nil {
			d.metrics.DeliveriesSucceeded.WithLabelValues(name).Inc()
		}
	}
	if d.metrics != nil {
		d.metrics.DeliveryDuration.WithLabelValues(name).Observe(duration.Seconds())
	}
	return result
}

// Close releases provider resources that hold connections.
func (d *Dispatcher) Close() {
	for _, prov := range d.providers {
		if closer, ok := prov.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
