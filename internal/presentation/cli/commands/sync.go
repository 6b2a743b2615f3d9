package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ikolvi/quicui-core/internal/application"
	"github.com/ikolvi/quicui-core/internal/application/syncer"
	"github.com/ikolvi/quicui-core/internal/presentation/cli/output"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize pending screens with the remote",
		Long: `Run a sync pass pushing all pending local changes to the remote.

A pass that fails is retried automatically with exponential backoff before
giving up. Records whose remote copy diverged are flagged as conflicts and
left for 'quicui conflicts resolve'.

With --interval the command keeps running and starts a new pass on every
tick until interrupted.`,
		Example: `  # Run a single sync pass
  quicui sync

  # Sync continuously every 30 seconds
  quicui sync --interval 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), interval)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "keep syncing on this interval (0 runs once)")

	return cmd
}

func runSync(ctx context.Context, interval time.Duration) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	if interval <= 0 {
		return runSyncPass(ctx, container, formatter)
	}

	formatter.Info("Syncing every %s, press Ctrl-C to stop", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := runSyncPass(ctx, container, formatter); err != nil {
			formatter.Error("%v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func runSyncPass(ctx context.Context, container *application.Container, formatter *output.Formatter) error {
	orch := container.Syncer()

	pending, err := container.Store().GetNeedingSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending records: %w", err)
	}
	if len(pending) == 0 && container.OfflineQueue().QueueDepth() == 0 {
		formatter.Info("Nothing to sync")
		return nil
	}

	if n, err := container.OfflineQueue().Drain(ctx); err != nil {
		formatter.Warning("Offline queue drain stopped after %d item(s): %v", n, err)
	} else if n > 0 {
		formatter.Info("Replayed %d queued operation(s)", n)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status, err := orch.Status(ctx)
	if err != nil {
		return err
	}

	switch {
	case status.ConflictCount > 0:
		formatter.Warning("Sync finished with %d conflict(s), see 'quicui conflicts list'", status.ConflictCount)
	case status.LastCompleted != nil && status.State != syncer.StateFailed:
		formatter.Success("Synced %d screen(s) in %s",
			status.LastCompleted.ItemsSynced, status.LastCompleted.Duration.Round(time.Millisecond))
	default:
		formatter.Success("Sync complete")
	}
	return nil
}
