package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ikolvi/quicui-core/internal/application"
	"github.com/ikolvi/quicui-core/internal/presentation/cli/output"
)

// SyncStatusView is the status surface rendered for scripting and display.
type SyncStatusView struct {
	State         string     `json:"state"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	GaveUp        bool       `json:"gave_up,omitempty"`
	RetryCount    int        `json:"retry_count,omitempty"`
	PendingCount  int        `json:"pending_count"`
	ConflictCount int        `json:"conflict_count"`
	ItemsSynced   int        `json:"items_synced,omitempty"`
	TotalRecords  int        `json:"total_records"`
	PayloadBytes  int64      `json:"payload_bytes"`
	QueueDepth    int        `json:"offline_queue_depth"`
	StoragePath   string     `json:"storage_path"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync and store status",
		Long: `Display the state of the sync machine and the local screen store.

This includes:
  • Current sync machine state and when the last pass completed
  • Pending and conflicted record counts
  • Offline queue depth and total cached payload size`,
		Example: `  # Show current status
  quicui status

  # Get status as JSON for scripting
  quicui status -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}

	return cmd
}

func runStatus(ctx context.Context) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	view, err := buildStatusView(ctx, container)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(view)
	}
	return printStatusText(formatter, view)
}

func buildStatusView(ctx context.Context, container *application.Container) (*SyncStatusView, error) {
	status, err := container.Syncer().Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync status: %w", err)
	}

	total, err := container.Store().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	size, err := container.Store().TotalPayloadSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to size payloads: %w", err)
	}

	view := &SyncStatusView{
		State:         string(status.State),
		LastSyncAt:    status.LastSyncAt,
		LastError:     status.LastError,
		GaveUp:        status.GaveUp,
		RetryCount:    status.RetryCount,
		PendingCount:  status.PendingCount,
		ConflictCount: status.ConflictCount,
		TotalRecords:  total,
		PayloadBytes:  size,
		QueueDepth:    container.OfflineQueue().QueueDepth(),
		StoragePath:   container.Config().Storage.Path,
	}
	if status.LastCompleted != nil {
		view.ItemsSynced = status.LastCompleted.ItemsSynced
	}
	return view, nil
}

func printStatusText(formatter *output.Formatter, view *SyncStatusView) error {
	formatter.Header("Sync")
	formatter.Item("State", formatter.SyncStateText(view.State))

	lastSync := "never"
	if view.LastSyncAt != nil {
		lastSync = output.RelativeTime(*view.LastSyncAt)
	}
	formatter.Item("Last Sync", lastSync)
	if view.ItemsSynced > 0 {
		formatter.Item("Items Synced", fmt.Sprintf("%d", view.ItemsSynced))
	}
	if view.LastError != "" {
		formatter.Item("Last Error", view.LastError)
	}
	if view.GaveUp {
		formatter.Warning("Automatic retries exhausted, run 'quicui sync' to retry")
	}

	formatter.Println("")
	formatter.Header("Store")
	formatter.Item("Records", fmt.Sprintf("%d", view.TotalRecords))
	formatter.Item("Pending", fmt.Sprintf("%d", view.PendingCount))
	formatter.Item("Conflicts", fmt.Sprintf("%d", view.ConflictCount))
	formatter.Item("Payload Size", fmt.Sprintf("%d bytes", view.PayloadBytes))
	formatter.Item("Offline Queue", fmt.Sprintf("%d", view.QueueDepth))
	formatter.Item("Path", view.StoragePath)

	if view.ConflictCount > 0 {
		formatter.Println("")
		formatter.Warning("%d conflict(s) need resolution, see 'quicui conflicts list'", view.ConflictCount)
	}
	return nil
}
