package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ikolvi/quicui-core/internal/presentation/cli/output"
)

// NewFlowsCmd creates the flows command group.
func NewFlowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Manage registered flow definitions",
	}

	cmd.AddCommand(newFlowsListCmd())
	cmd.AddCommand(newFlowsPreloadCmd())
	cmd.AddCommand(newFlowsValidateCmd())

	return cmd
}

func newFlowsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flows registered in the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowsList()
		},
	}
	return cmd
}

func runFlowsList() error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	registry := container.Config().Flows.Registry
	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(registry)
	}
	if len(registry) == 0 {
		return formatter.Info("No flows registered, add them under flows.registry in the config")
	}

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := output.TableData{
		Columns: []output.TableColumn{{Header: "FLOW"}, {Header: "LOCATOR"}},
	}
	for _, id := range ids {
		table.Rows = append(table.Rows, []string{id, registry[id]})
	}
	return formatter.Table(table)
}

func newFlowsPreloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preload [flow-id...]",
		Short: "Load and cache flow definitions ahead of navigation",
		Long: `Load the named flows (or every registered flow when none are named)
into the definition cache. All loads must succeed; a single failure fails
the whole preload and nothing extra is cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowsPreload(cmd.Context(), args)
		},
	}
	return cmd
}

func runFlowsPreload(ctx context.Context, flowIDs []string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	registry := container.Config().Flows.Registry
	if len(flowIDs) == 0 {
		for id := range registry {
			flowIDs = append(flowIDs, id)
		}
		sort.Strings(flowIDs)
	}
	if len(flowIDs) == 0 {
		return formatter.Info("No flows registered, nothing to preload")
	}

	locators := make(map[string]string, len(flowIDs))
	for _, id := range flowIDs {
		locator, ok := registry[id]
		if !ok {
			return fmt.Errorf("flow %s is not registered", id)
		}
		locators[id] = locator
	}

	if err := container.FlowLoader().Preload(ctx, locators); err != nil {
		return fmt.Errorf("preload failed: %w", err)
	}

	return formatter.Success("Preloaded %d flow(s)", len(locators))
}

func newFlowsValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <flow-id>",
		Short: "Parse and validate a registered flow definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowsValidate(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runFlowsValidate(ctx context.Context, flowID string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	locator, ok := container.Config().Flows.Registry[flowID]
	if !ok {
		return fmt.Errorf("flow %s is not registered", flowID)
	}

	def, err := container.FlowLoader().Load(ctx, flowID, locator)
	if err != nil {
		return fmt.Errorf("flow %s is invalid: %w", flowID, err)
	}

	first, err := def.FirstScreenID()
	if err != nil {
		return fmt.Errorf("flow %s is invalid: %w", flowID, err)
	}

	return formatter.Success("Flow %s is valid, %d screen(s), entry %s",
		flowID, len(def.Screens), first)
}
