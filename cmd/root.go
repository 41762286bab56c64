// Package cmd assembles the petwatch command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petwatch/petwatch-go/cmd/cleanup"
	"github.com/petwatch/petwatch-go/cmd/notify"
	"github.com/petwatch/petwatch-go/cmd/watch"
	"github.com/petwatch/petwatch-go/internal/conf"
)

// RootCommand creates and returns the root command with all subcommands.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "petwatch",
		Short: "PetWatch pet camera notification core",
		Long: "PetWatch turns detection events from a camera into debounced, " +
			"rate-limited notifications with snapshots, delivered to the " +
			"configured messaging platforms.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		watch.Command(settings),
		notify.Command(settings),
		cleanup.Command(settings),
	)

	return rootCmd
}

// setupFlags defines global flags. Command line values override the config
// file through viper.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Detection.PersistenceFrames, "persistence-frames", viper.GetInt("detection.persistenceframes"), "Consecutive frames required to confirm a detection")
	rootCmd.PersistentFlags().IntVar(&settings.Notification.CooldownSeconds, "cooldown", viper.GetInt("notification.cooldownseconds"), "Minimum seconds between alerts for the same label")
	rootCmd.PersistentFlags().StringVar(&settings.Detection.Source, "source", viper.GetString("detection.source"), "Event source: \"simulate\" or path to a JSONL events file")
}
