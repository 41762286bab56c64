// validate.go: configuration validation, fails fast with descriptive errors.
package conf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateSettings checks the loaded settings for errors. Credential fields
// of enabled providers are required; numeric tunables must be non-negative.
func ValidateSettings(settings *Settings) error {
	if err := validateDetectionSettings(&settings.Detection); err != nil {
		return err
	}
	if err := validateSnapshotSettings(&settings.Snapshot); err != nil {
		return err
	}
	if err := validateNotificationSettings(&settings.Notification); err != nil {
		return err
	}
	if settings.WebServer.Enabled && settings.WebServer.Port == "" {
		return fmt.Errorf("webserver.port is required when the web server is enabled")
	}
	if settings.Database.Enabled && settings.Database.Path == "" {
		return fmt.Errorf("database.path is required when the database is enabled")
	}
	return nil
}

func validateDetectionSettings(d *DetectionSettings) error {
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("detection.confidence must be between 0.0 and 1.0, got %v", d.Confidence)
	}
	if d.SkipFrames < 0 {
		return fmt.Errorf("detection.skipframes must be >= 0, got %d", d.SkipFrames)
	}
	if d.PersistenceFrames < 0 {
		return fmt.Errorf("detection.persistenceframes must be >= 0, got %d", d.PersistenceFrames)
	}
	return nil
}

func validateSnapshotSettings(s *SnapshotSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.Path == "" {
		return fmt.Errorf("snapshot.path is required when snapshots are enabled")
	}
	if s.MaxCount < 0 {
		return fmt.Errorf("snapshot.maxcount must be >= 0, got %d", s.MaxCount)
	}
	return nil
}

func validateNotificationSettings(n *NotificationSettings) error {
	if n.CooldownSeconds < 0 {
		return fmt.Errorf("notification.cooldownseconds must be >= 0, got %d", n.CooldownSeconds)
	}
	if n.QueueSize <= 0 {
		return fmt.Errorf("notification.queuesize must be > 0, got %d", n.QueueSize)
	}
	if !n.Enabled {
		return nil
	}

	p := &n.Providers
	if p.Telegram.Enabled {
		if strings.TrimSpace(p.Telegram.Token) == "" {
			return fmt.Errorf("telegram provider is enabled but notification.providers.telegram.token is not set")
		}
		if strings.TrimSpace(p.Telegram.ChatID) == "" {
			return fmt.Errorf("telegram provider is enabled but notification.providers.telegram.chatid is not set")
		}
	}
	if p.Discord.Enabled {
		if err := validateHTTPURL("notification.providers.discord.webhookurl", p.Discord.WebhookURL); err != nil {
			return err
		}
	}
	if p.Webhook.Enabled {
		if len(p.Webhook.URLs) == 0 {
			return fmt.Errorf("webhook provider is enabled but notification.providers.webhook.urls is empty")
		}
		for _, u := range p.Webhook.URLs {
			if err := validateHTTPURL("notification.providers.webhook.urls", u); err != nil {
				return err
			}
		}
	}
	if p.Shoutrrr.Enabled && len(p.Shoutrrr.URLs) == 0 {
		return fmt.Errorf("shoutrrr provider is enabled but notification.providers.shoutrrr.urls is empty")
	}
	if p.MQTT.Enabled {
		if strings.TrimSpace(p.MQTT.Broker) == "" {
			return fmt.Errorf("mqtt provider is enabled but notification.providers.mqtt.broker is not set")
		}
		if strings.TrimSpace(p.MQTT.Topic) == "" {
			return fmt.Errorf("mqtt provider is enabled but notification.providers.mqtt.topic is not set")
		}
	}
	return nil
}

// validateHTTPURL checks that a URL is a parseable http or https URL with a host.
func validateHTTPURL(field, urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%s: invalid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: URL scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL host is required", field)
	}
	return nil
}
