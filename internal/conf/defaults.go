// defaults.go: default values for all configuration parameters.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for every configuration parameter.
// Credential fields deliberately have no defaults; a provider enabled without
// credentials fails validation instead of silently defaulting.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main
	viper.SetDefault("main.name", "PetWatch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "petwatch.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)

	// Detection
	viper.SetDefault("detection.confidence", 0.5)
	viper.SetDefault("detection.skipframes", 0)
	viper.SetDefault("detection.persistenceframes", 5)
	viper.SetDefault("detection.source", "simulate")

	// Snapshot storage
	viper.SetDefault("snapshot.enabled", true)
	viper.SetDefault("snapshot.path", "snapshots")
	viper.SetDefault("snapshot.maxcount", 100)

	// Notifications
	viper.SetDefault("notification.enabled", true)
	viper.SetDefault("notification.cooldownseconds", 300)
	viper.SetDefault("notification.queuesize", 64)
	viper.SetDefault("notification.deliverytimeout", 30*time.Second)
	viper.SetDefault("notification.graceperiod", 10*time.Second)
	viper.SetDefault("notification.dedupewindow", 30*time.Second)
	viper.SetDefault("notification.ratelimit.requestsperminute", 60)
	viper.SetDefault("notification.ratelimit.burstsize", 10)

	// Providers, all disabled by default
	viper.SetDefault("notification.providers.telegram.enabled", false)
	viper.SetDefault("notification.providers.discord.enabled", false)
	viper.SetDefault("notification.providers.webhook.enabled", false)
	viper.SetDefault("notification.providers.shoutrrr.enabled", false)
	viper.SetDefault("notification.providers.mqtt.enabled", false)
	viper.SetDefault("notification.providers.mqtt.retain", false)
	viper.SetDefault("notification.providers.console.enabled", true)

	// Notification history database
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "petwatch.db")

	// Status web server
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8090")
}
