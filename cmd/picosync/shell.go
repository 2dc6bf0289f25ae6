package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/embedworks/picosync/internal/ui"
)

var shellCmd = &cobra.Command{
	Use:     "shell",
	Aliases: []string{"repl"},
	Short:   "Open an interactive REPL on the device",
	Long: `Attach this terminal to the device REPL.

The session runs the device tool under a pty; keystrokes pass straight
through, including Ctrl-C (which interrupts the running program on the
device, not picosync). Exit with Ctrl-X.

While the REPL is open, an exclusive operation such as sync suspends it,
runs, and reopens it according to the repl_restore configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		h, err := a.sessions.OpenInteractive(ctx)
		if err != nil {
			return fmt.Errorf("failed to open REPL: %w", err)
		}

		fmt.Printf("%s Connected to %s (Ctrl-X to exit)\n", ui.RenderPass("✓"), a.cfg.Device.Port)

		fd := int(os.Stdin.Fd())
		restore := func() {}
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				_ = a.sessions.CloseInteractive(true)
				return fmt.Errorf("failed to set raw mode: %w", err)
			}
			restore = func() { _ = term.Restore(fd, oldState) }
		}
		defer restore()

		// Keystrokes flow to the pty until stdin closes or the REPL
		// process exits. The tool handles Ctrl-X by detaching, which ends
		// the process and unblocks the output copy.
		go func() {
			_, _ = io.Copy(h, os.Stdin)
		}()
		_, _ = io.Copy(os.Stdout, h)

		restore()
		if err := a.sessions.CloseInteractive(true); err != nil {
			a.logger.Printf("closing REPL: %v", err)
		}
		fmt.Println("\nDisconnected.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
