// config.go: settings struct and functions to load and save the PetWatch configuration.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Log rotation types
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to log file
	Rotation string // rotation type: daily, weekly or size
	MaxSize  int64  // max size in bytes for size rotation
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of this node, used in notifications and logs
	Log  LogConfig // main log file settings
}

// DetectionSettings describes how detection events from the camera
// collaborator are interpreted.
type DetectionSettings struct {
	Confidence        float64 // minimum confidence for a detection to count as present
	SkipFrames        int     // frames skipped between processed frames by the capture loop
	PersistenceFrames int     // consecutive frames required to confirm a detection
	Source            string  // event source: "simulate" or path to a JSONL events file
}

// SnapshotSettings contains settings for detection snapshot storage.
type SnapshotSettings struct {
	Enabled  bool   // save detection snapshots
	Path     string // directory for snapshot images
	MaxCount int    // maximum number of snapshots to keep, oldest deleted first
}

// TelegramSettings contains Telegram bot credentials.
type TelegramSettings struct {
	Enabled bool
	Token   string // bot token from @BotFather
	ChatID  string // chat to deliver to
}

// DiscordSettings contains Discord webhook settings.
type DiscordSettings struct {
	Enabled    bool
	WebhookURL string
}

// WebhookSettings contains generic webhook settings.
type WebhookSettings struct {
	Enabled     bool
	URLs        []string          // endpoints, tried in order until one succeeds
	Headers     map[string]string // extra HTTP headers
	BearerToken string            // optional bearer token
}

// ShoutrrrSettings routes notifications through shoutrrr service URLs.
type ShoutrrrSettings struct {
	Enabled bool
	URLs    []string
}

// MQTTSettings contains MQTT broker settings for the MQTT backend.
type MQTTSettings struct {
	Enabled  bool
	Broker   string // tcp://host:port
	Topic    string
	Username string
	Password string
	Retain   bool
}

// ConsoleSettings enables the stderr console backend, mainly for testing.
type ConsoleSettings struct {
	Enabled bool
}

// ProvidersSettings groups the per-platform backend settings.
type ProvidersSettings struct {
	Telegram TelegramSettings
	Discord  DiscordSettings
	Webhook  WebhookSettings
	Shoutrrr ShoutrrrSettings
	MQTT     MQTTSettings
	Console  ConsoleSettings
}

// RateLimitSettings bounds outbound delivery attempts.
type RateLimitSettings struct {
	RequestsPerMinute int
	BurstSize         int
}

// NotificationSettings contains the alerting policy and backend settings.
type NotificationSettings struct {
	Enabled         bool
	CooldownSeconds int               // minimum seconds between alerts for the same label
	QueueSize       int               // bounded delivery queue size
	DeliveryTimeout time.Duration     // per-backend call timeout
	GracePeriod     time.Duration     // shutdown grace period for in-flight deliveries
	DedupeWindow    time.Duration     // suppress identical notifications within this window
	RateLimit       RateLimitSettings // token bucket over all deliveries
	Providers       ProvidersSettings
}

// DatabaseSettings contains notification history storage settings.
type DatabaseSettings struct {
	Enabled bool
	Path    string // path to sqlite database file
}

// WebServerSettings contains settings for the status HTTP server.
type WebServerSettings struct {
	Enabled bool
	Port    string
}

// Settings is the root configuration struct.
type Settings struct {
	Debug bool // true to enable debug logging

	Main         MainSettings
	Detection    DetectionSettings
	Snapshot     SnapshotSettings
	Notification NotificationSettings
	Database     DatabaseSettings
	WebServer    WebServerSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the list of paths searched for config.yaml,
// most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "petwatch"),
	}, nil
}

// createDefaultConfig writes a config file with default values and re-reads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configDir := filepath.Join(configPaths[len(configPaths)-1])
	configPath := filepath.Join(configDir, "config.yaml")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return err
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// SaveYAMLConfig writes settings to a YAML file. The write is atomic: data is
// written to a temp file in the target directory and renamed into place.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Cooldown returns the cooldown as a time.Duration.
func (n *NotificationSettings) Cooldown() time.Duration {
	return time.Duration(n.CooldownSeconds) * time.Second
}
