package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/coordinator"
	"github.com/embedworks/picosync/internal/devtool"
	"github.com/embedworks/picosync/internal/ui"
)

var resetHard bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the device",
	Long: `Soft-reset the device MCU, or --hard for a full board reset.

Runs as an exclusive operation: open sessions are suspended first and
restored afterward per the repl_restore configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		op := "soft-reset"
		if resetHard {
			op = "reset"
		}

		opts := coordinator.Options{
			Preempt:       true,
			Restore:       a.restoreBehavior(),
			StrictConnect: true,
		}

		err = a.coord.RunExclusive(cmd.Context(), opts, func(ctx context.Context) error {
			_, err := a.tool.Invoke(ctx, devtool.NewCommand(op))
			return err
		})
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		fmt.Printf("%s Device reset\n", ui.RenderPass("✓"))
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetHard, "hard", false, "full board reset instead of a soft MCU reset")
	rootCmd.AddCommand(resetCmd)
}
