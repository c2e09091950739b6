package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/partflow/partflow/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim orphaned chunk objects",
	Long: `Remove temp chunk objects whose upload session has expired.

Sessions expire in the metadata store on their own TTL, but expiry only
evicts metadata: chunks of uploads that were never completed or aborted
stay behind in the storage backend. This command scans the chunk prefix
of a bucket and deletes every chunk group whose session no longer exists.

Run this periodically to reclaim storage space from abandoned uploads.`,
	RunE: runSweep,
}

var sweepBucket string

func init() {
	sweepCmd.Flags().StringVar(&sweepBucket, "bucket", "", "bucket to sweep (required)")
	_ = sweepCmd.MarkFlagRequired("bucket")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	service, closeBackends, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	slog.Info("starting sweep", "bucket", sweepBucket)

	removed, err := service.SweepOrphans(ctx, sweepBucket)
	if err != nil {
		return fmt.Errorf("sweep orphans: %w", err)
	}

	slog.Info("sweep complete", "bucket", sweepBucket, "objects_removed", removed)
	return nil
}
