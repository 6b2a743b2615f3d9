package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ikolvi/quicui-core/internal/application"
	"github.com/ikolvi/quicui-core/internal/application/syncer"
	"github.com/ikolvi/quicui-core/internal/presentation/cli/output"
)

// ConflictView is a conflicted record rendered for JSON output.
type ConflictView struct {
	ScreenID      string `json:"screen_id"`
	Name          string `json:"name"`
	LocalVersion  int64  `json:"local_version"`
	LocalPayload  string `json:"local_payload"`
	RemotePayload string `json:"remote_payload"`
}

// NewConflictsCmd creates the conflicts command group.
func NewConflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect and resolve sync conflicts",
		Long: `List records whose remote copy diverged from the local edit, and
resolve them by keeping the local payload or accepting the remote one.
Resolution re-syncs the chosen side immediately.`,
	}

	cmd.AddCommand(newConflictsListCmd())
	cmd.AddCommand(newConflictsResolveCmd())

	return cmd
}

func newConflictsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with unresolved conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsList(cmd.Context())
		},
	}
	return cmd
}

func runConflictsList(ctx context.Context) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	records, err := container.Store().GetWithConflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if formatter.Format() == output.FormatJSON {
		views := make([]ConflictView, 0, len(records))
		for _, rec := range records {
			views = append(views, ConflictView{
				ScreenID:      rec.ScreenID,
				Name:          rec.Name,
				LocalVersion:  rec.Version,
				LocalPayload:  rec.JSONPayload,
				RemotePayload: rec.RemoteVersion,
			})
		}
		return formatter.JSON(views)
	}

	if len(records) == 0 {
		return formatter.Success("No conflicts")
	}

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "SCREEN"}, {Header: "NAME"}, {Header: "LOCAL"}, {Header: "REMOTE"},
		},
	}
	for _, rec := range records {
		table.Rows = append(table.Rows, []string{
			rec.ScreenID,
			rec.Name,
			output.TruncatePayload(rec.JSONPayload, 40),
			output.TruncatePayload(rec.RemoteVersion, 40),
		})
	}
	if err := formatter.Table(table); err != nil {
		return err
	}
	return formatter.Info("Resolve with 'quicui conflicts resolve <screen-id>'")
}

func newConflictsResolveCmd() *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "resolve <screen-id>",
		Short: "Resolve a conflict interactively or with --keep",
		Example: `  # Choose interactively
  quicui conflicts resolve welcome

  # Keep the local payload without prompting
  quicui conflicts resolve welcome --keep local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsResolve(cmd.Context(), args[0], keep)
		},
	}

	cmd.Flags().StringVar(&keep, "keep", "", "winning side: local or remote (prompts when omitted)")

	return cmd
}

func runConflictsResolve(ctx context.Context, screenID, keep string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	resolution, err := pickResolution(ctx, formatter, container, screenID, keep)
	if err != nil {
		return err
	}
	if resolution == "" {
		return formatter.Info("Resolution aborted")
	}

	if err := container.Syncer().ResolveConflict(ctx, screenID, resolution); err != nil {
		return fmt.Errorf("failed to resolve conflict for %s: %w", screenID, err)
	}

	return formatter.Success("Conflict on %s resolved (%s)", screenID, resolution)
}

// pickResolution maps --keep to a resolution, or prompts when it is empty.
// An empty resolution with nil error means the user aborted.
func pickResolution(ctx context.Context, formatter *output.Formatter, container *application.Container, screenID, keep string) (syncer.Resolution, error) {
	switch strings.ToLower(keep) {
	case "local":
		return syncer.ResolutionKeepLocal, nil
	case "remote":
		return syncer.ResolutionAcceptRemote, nil
	case "":
	default:
		return "", fmt.Errorf("unknown --keep value %q, want local or remote", keep)
	}

	rec, err := container.Store().GetByScreenID(ctx, screenID)
	if err != nil {
		return "", fmt.Errorf("failed to load screen %s: %w", screenID, err)
	}

	formatter.Header(fmt.Sprintf("Conflict on %s", rec.ScreenID))
	formatter.Item("Local", output.TruncatePayload(rec.JSONPayload, 100))
	formatter.Item("Remote", output.TruncatePayload(rec.RemoteVersion, 100))
	formatter.Println("")

	rl, err := readline.New("Keep [l]ocal, accept [r]emote, or [a]bort? ")
	if err != nil {
		return "", fmt.Errorf("could not create prompt: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "l", "local":
			return syncer.ResolutionKeepLocal, nil
		case "r", "remote":
			return syncer.ResolutionAcceptRemote, nil
		case "a", "abort", "q":
			return "", nil
		default:
			formatter.Warning("Please answer l, r, or a")
		}
	}
}
