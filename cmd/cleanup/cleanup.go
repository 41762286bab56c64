// Package cleanup implements the cleanup command: enforce the snapshot
// capacity limit and prune old notification history.
package cleanup

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/datastore"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/snapshot"
)

// Command returns the cleanup subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Rotate snapshots and prune old notification history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, settings, retentionDays)
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "Delete notification history older than this many days")
	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, retentionDays int) error {
	logging.Init(settings.Debug)
	out := cmd.OutOrStdout()

	if settings.Snapshot.Enabled {
		store, err := snapshot.NewStore(settings.Snapshot.Path, settings.Snapshot.MaxCount)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		evicted, err := store.Rotate()
		if err != nil {
			return fmt.Errorf("snapshot rotation failed: %w", err)
		}
		fmt.Fprintf(out, "snapshots: evicted %d file(s)\n", evicted)
	}

	if settings.Database.Enabled {
		db, err := datastore.New(settings.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to create datastore: %w", err)
		}
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open datastore: %w", err)
		}
		defer db.Close()

		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		removed, err := db.Prune(cutoff)
		if err != nil {
			return fmt.Errorf("history prune failed: %w", err)
		}
		fmt.Fprintf(out, "history: removed %d record(s) older than %s\n", removed, cutoff.Format("2006-01-02"))
	}

	return nil
}
