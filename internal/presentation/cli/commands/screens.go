package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ikolvi/quicui-core/internal/domain/screen"
	"github.com/ikolvi/quicui-core/internal/presentation/cli/output"
)

// ScreenView is a record rendered for JSON output.
type ScreenView struct {
	LocalID        int64  `json:"local_id"`
	ScreenID       string `json:"screen_id"`
	Name           string `json:"name"`
	Version        int64  `json:"version"`
	Status         string `json:"status"`
	FailedAttempts int    `json:"failed_attempts,omitempty"`
	HasConflict    bool   `json:"has_conflict,omitempty"`
	IsDeleted      bool   `json:"is_deleted,omitempty"`
	Payload        string `json:"payload,omitempty"`
}

// NewScreensCmd creates the screens command group.
func NewScreensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screens",
		Short: "Manage locally cached screen records",
	}

	cmd.AddCommand(newScreensListCmd())
	cmd.AddCommand(newScreensShowCmd())
	cmd.AddCommand(newScreensDeleteCmd())

	return cmd
}

func newScreensListCmd() *cobra.Command {
	var status string
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached screen records",
		Example: `  # List all screens
  quicui screens list

  # List only records awaiting sync
  quicui screens list --status pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreensList(cmd.Context(), status, includeDeleted)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by sync status: pending, synced, failed")
	cmd.Flags().BoolVar(&includeDeleted, "deleted", false, "include soft-deleted records")

	return cmd
}

func runScreensList(ctx context.Context, status string, includeDeleted bool) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	filter := &screen.Filter{IncludeDeleted: includeDeleted}
	if status != "" {
		s := screen.SyncStatus(status)
		if s != screen.StatusPending && s != screen.StatusSynced && s != screen.StatusFailed {
			return fmt.Errorf("unknown status %q", status)
		}
		filter.Status = []screen.SyncStatus{s}
	}

	records, err := container.Store().List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list screens: %w", err)
	}

	if formatter.Format() == output.FormatJSON {
		views := make([]ScreenView, 0, len(records))
		for _, rec := range records {
			views = append(views, toScreenView(rec, false))
		}
		return formatter.JSON(views)
	}

	if len(records) == 0 {
		return formatter.Info("No screens stored")
	}

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "SCREEN"}, {Header: "NAME"}, {Header: "VERSION"},
			{Header: "STATUS"}, {Header: "MODIFIED"}, {Header: "FLAGS"},
		},
	}
	for _, rec := range records {
		flags := ""
		if rec.HasConflict {
			flags += "conflict "
		}
		if rec.IsDeleted {
			flags += "deleted"
		}
		table.Rows = append(table.Rows, []string{
			rec.ScreenID,
			rec.Name,
			fmt.Sprintf("%d", rec.Version),
			formatter.StatusText(string(rec.SyncStatus)),
			output.RelativeTime(rec.LocalModifiedAt),
			flags,
		})
	}
	return formatter.Table(table)
}

func newScreensShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <screen-id>",
		Short: "Show a cached screen record with its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreensShow(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runScreensShow(ctx context.Context, screenID string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	rec, err := container.Store().GetByScreenID(ctx, screenID)
	if err != nil {
		return fmt.Errorf("failed to load screen %s: %w", screenID, err)
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(toScreenView(rec, true))
	}

	formatter.Header(rec.ScreenID)
	formatter.Item("Name", rec.Name)
	formatter.Item("Version", fmt.Sprintf("%d", rec.Version))
	formatter.Item("Status", formatter.StatusText(string(rec.SyncStatus)))
	formatter.Item("Modified", output.RelativeTime(rec.LocalModifiedAt))
	if rec.LastSyncedAt != nil {
		formatter.Item("Last Synced", output.RelativeTime(*rec.LastSyncedAt))
	}
	if rec.FailedAttempts > 0 {
		formatter.Item("Failed Attempts", fmt.Sprintf("%d", rec.FailedAttempts))
	}
	if rec.HasConflict {
		formatter.Warning("Remote diverged, resolve with 'quicui conflicts resolve %s'", rec.ScreenID)
	}
	formatter.Println("")
	return formatter.Println("%s", rec.JSONPayload)
}

func newScreensDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <screen-id>",
		Short: "Delete a screen locally, removed remotely on next sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreensDelete(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runScreensDelete(ctx context.Context, screenID string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	rec, err := container.Store().GetByScreenID(ctx, screenID)
	if err != nil {
		return fmt.Errorf("failed to load screen %s: %w", screenID, err)
	}

	rec.SoftDelete()
	if _, err := container.Store().Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to delete screen %s: %w", screenID, err)
	}

	return formatter.Success("Screen %s deleted, remote copy removed on next sync", screenID)
}

func toScreenView(rec *screen.Record, withPayload bool) ScreenView {
	v := ScreenView{
		LocalID:        rec.LocalID,
		ScreenID:       rec.ScreenID,
		Name:           rec.Name,
		Version:        rec.Version,
		Status:         string(rec.SyncStatus),
		FailedAttempts: rec.FailedAttempts,
		HasConflict:    rec.HasConflict,
		IsDeleted:      rec.IsDeleted,
	}
	if withPayload {
		v.Payload = rec.JSONPayload
	}
	return v
}
