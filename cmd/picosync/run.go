package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/coordinator"
	"github.com/embedworks/picosync/internal/devtool"
)

var runCmd = &cobra.Command{
	Use:   "run <file.py>",
	Short: "Run a local script on the device",
	Long: `Execute a local Python file on the device as a one-shot session.

The script's output streams to this terminal. The command is remembered,
so if an exclusive operation (sync, reset) interrupts the run, the
coordinator replays it afterward in preference to reopening the REPL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		opts := coordinator.Options{
			Restore:       a.restoreBehavior(),
			StrictConnect: true,
		}

		return a.coord.RunExclusive(ctx, opts, func(ctx context.Context) error {
			h, err := a.sessions.RunOneShot(ctx, devtool.NewCommand("run", args[0]))
			if err != nil {
				return fmt.Errorf("failed to start %s: %w", args[0], err)
			}
			if waiter, ok := h.(interface{ Wait() error }); ok {
				return waiter.Wait()
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
