package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/devtool"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List candidate serial devices",
	Long: `Enumerate serial ports the device tool can see. Useful for picking a
device.port value or a --port argument.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		res, err := a.tool.InvokeGlobal(cmd.Context(), devtool.NewCommand("devs"))
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}

		out := strings.TrimSpace(string(res.Stdout))
		if out == "" {
			fmt.Println("No devices found.")
			return nil
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
