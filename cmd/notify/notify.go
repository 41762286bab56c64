// Package notify implements the notify command: send a test notification
// through the configured platforms and report the per-platform outcome.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/httpclient"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/notification"
)

// Command returns the notify subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var message string
	var imagePath string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification to all enabled platforms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, settings, message, imagePath)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "PetWatch test notification", "Message to send")
	cmd.Flags().StringVar(&imagePath, "image", "", "Optional image to attach")
	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, message, imagePath string) error {
	logging.Init(settings.Debug)

	client := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Notification.DeliveryTimeout})
	defer client.Close()

	dispatcher, err := notification.NewDispatcher(&settings.Notification, client, nil)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer dispatcher.Close()

	if len(dispatcher.Providers()) == 0 {
		return fmt.Errorf("no notification platforms are enabled")
	}

	n := notification.NewSystem(notification.KindTest, message, time.Now())
	n.ImagePath = imagePath

	report := dispatcher.Notify(cmd.Context(), n)

	out := cmd.OutOrStdout()
	for _, result := range report.Results {
		status := "ok"
		if !result.Success {
			status = "FAILED: " + strings.TrimSpace(result.Error)
		}
		fmt.Fprintf(out, "%-10s %-8s %s\n", result.Platform, result.Duration.Round(time.Millisecond), status)
	}

	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d platforms failed", report.Failed(), len(report.Results))
	}
	fmt.Fprintf(out, "delivered to %d platform(s)\n", report.Succeeded())
	return nil
}
