// Package watch implements the main watch command: run the detection
// pipeline with delivery, storage and the status server until interrupted.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/datastore"
	"github.com/petwatch/petwatch-go/internal/detection"
	"github.com/petwatch/petwatch-go/internal/errors"
	"github.com/petwatch/petwatch-go/internal/httpclient"
	"github.com/petwatch/petwatch-go/internal/httpserver"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/monitor"
	"github.com/petwatch/petwatch-go/internal/notification"
	"github.com/petwatch/petwatch-go/internal/observability"
	"github.com/petwatch/petwatch-go/internal/snapshot"
)

// Command returns the watch subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the event source and deliver notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), settings)
		},
	}
}

func run(ctx context.Context, settings *conf.Settings) error {
	logging.Init(settings.Debug)
	logger := logging.ForService("watch")

	if settings.Main.Log.Enabled {
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "watch", slog.LevelInfo)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer closeLog()
		logger = fileLogger
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	source, err := newSource(settings)
	if err != nil {
		return err
	}
	defer source.Close()

	var store *snapshot.Store
	if settings.Snapshot.Enabled {
		store, err = snapshot.NewStore(settings.Snapshot.Path, settings.Snapshot.MaxCount)
		if err != nil {
			return fmt.Errorf("failed to create snapshot store: %w", err)
		}
	}

	client := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Notification.DeliveryTimeout})
	defer client.Close()

	var worker *notification.Worker
	var db datastore.Interface
	if settings.Notification.Enabled {
		dispatcher, err := notification.NewDispatcher(&settings.Notification, client, metrics)
		if err != nil {
			return fmt.Errorf("failed to create dispatcher: %w", err)
		}
		defer dispatcher.Close()

		worker = notification.NewWorker(dispatcher, settings.Notification.QueueSize, settings.Notification.GracePeriod, metrics)

		if settings.Database.Enabled {
			db, err = datastore.New(settings.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to create datastore: %w", err)
			}
			if err := db.Open(); err != nil {
				return fmt.Errorf("failed to open datastore: %w", err)
			}
			defer db.Close()
			worker.SetReportSink(persistReport(db))
		}

		worker.Start(ctx)
		defer worker.Stop()
	}

	mon := monitor.New(settings, store, worker, metrics)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Run(ctx, source)
	})

	if settings.WebServer.Enabled {
		server := httpserver.New(&settings.WebServer, mon, worker, db, metrics)
		g.Go(server.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// newSource builds the event source from settings: the simulator or a JSONL
// replay file.
func newSource(settings *conf.Settings) (detection.Source, error) {
	src := settings.Detection.Source
	if src == "" || src == "simulate" {
		return detection.NewSimulatedSource(nil, 200*time.Millisecond), nil
	}
	fileSource, err := detection.NewFileSource(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open event source: %w", err)
	}
	return fileSource, nil
}

// persistReport converts a finished delivery into datastore records.
func persistReport(db datastore.Interface) notification.ReportSink {
	logger := logging.ForService("watch")
	return func(n *notification.Notification, report *notification.DeliveryReport) {
		record := &datastore.NotificationRecord{
			UUID:       n.ID,
			Kind:       string(n.Kind),
			Label:      n.Label,
			Confidence: n.Confidence,
			Message:    n.Message,
			ImagePath:  n.ImagePath,
			CreatedAt:  n.Timestamp,
		}
		for _, result := range report.Results {
			record.Deliveries = append(record.Deliveries, datastore.DeliveryRecord{
				Platform:   result.Platform,
				Success:    result.Success,
				DurationMs: result.Duration.Milliseconds(),
				Error:      result.Error,
			})
		}
		if err := db.Save(record); err != nil {
			logger.Error("failed to persist notification", "id", n.ID, "error", err)
		}
	}
}
