package conf

import (
	"strings"
	"testing"
)

func validSettings() *Settings {
	return &Settings{
		Detection: DetectionSettings{
			Confidence:        0.5,
			PersistenceFrames: 5,
		},
		Snapshot: SnapshotSettings{
			Enabled:  true,
			Path:     "snapshots",
			MaxCount: 100,
		},
		Notification: NotificationSettings{
			Enabled:         true,
			CooldownSeconds: 300,
			QueueSize:       64,
			Providers: ProvidersSettings{
				Console: ConsoleSettings{Enabled: true},
			},
		},
	}
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	if err := ValidateSettings(validSettings()); err != nil {
		t.Fatalf("expected valid settings, got error: %v", err)
	}
}

func TestValidateSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "confidence out of range",
			mutate:  func(s *Settings) { s.Detection.Confidence = 1.5 },
			wantErr: "confidence",
		},
		{
			name:    "negative persistence frames",
			mutate:  func(s *Settings) { s.Detection.PersistenceFrames = -1 },
			wantErr: "persistenceframes",
		},
		{
			name:    "negative cooldown",
			mutate:  func(s *Settings) { s.Notification.CooldownSeconds = -5 },
			wantErr: "cooldownseconds",
		},
		{
			name:    "snapshots enabled without path",
			mutate:  func(s *Settings) { s.Snapshot.Path = "" },
			wantErr: "snapshot.path",
		},
		{
			name:    "negative snapshot capacity",
			mutate:  func(s *Settings) { s.Snapshot.MaxCount = -1 },
			wantErr: "maxcount",
		},
		{
			name: "telegram enabled without token",
			mutate: func(s *Settings) {
				s.Notification.Providers.Telegram = TelegramSettings{Enabled: true, ChatID: "42"}
			},
			wantErr: "telegram.token",
		},
		{
			name: "telegram enabled without chat id",
			mutate: func(s *Settings) {
				s.Notification.Providers.Telegram = TelegramSettings{Enabled: true, Token: "abc"}
			},
			wantErr: "chatid",
		},
		{
			name: "discord enabled with bad URL",
			mutate: func(s *Settings) {
				s.Notification.Providers.Discord = DiscordSettings{Enabled: true, WebhookURL: "ftp://example.com"}
			},
			wantErr: "scheme",
		},
		{
			name: "webhook enabled without URLs",
			mutate: func(s *Settings) {
				s.Notification.Providers.Webhook = WebhookSettings{Enabled: true}
			},
			wantErr: "webhook.urls",
		},
		{
			name: "mqtt enabled without broker",
			mutate: func(s *Settings) {
				s.Notification.Providers.MQTT = MQTTSettings{Enabled: true, Topic: "petwatch/alerts"}
			},
			wantErr: "mqtt.broker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(settings)
			err := ValidateSettings(settings)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestDisabledProvidersSkipCredentialChecks(t *testing.T) {
	settings := validSettings()
	settings.Notification.Providers.Telegram = TelegramSettings{Enabled: false}
	settings.Notification.Providers.MQTT = MQTTSettings{Enabled: false}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("disabled providers must not require credentials: %v", err)
	}
}

func TestDisabledNotificationsSkipProviderChecks(t *testing.T) {
	settings := validSettings()
	settings.Notification.Enabled = false
	settings.Notification.Providers.Telegram = TelegramSettings{Enabled: true}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("provider checks must be skipped when notifications are disabled: %v", err)
	}
}
