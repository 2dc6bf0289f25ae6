package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/ui"
	"github.com/embedworks/picosync/internal/workspace"
)

const defaultIgnoreRules = `# Paths excluded from sync. Last match wins; prefix with ! to re-include.
.git/
.picosync/
__pycache__/
*.pyc
.venv/
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a picosync workspace in the current directory",
	Long: `Create the .picosync workspace directory with a starter ignore file.

The workspace directory holds the sync baseline manifest, the ignore
rules, and the configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		if existing := workspace.FindFrom(cwd); existing != "" {
			fmt.Printf("%s Workspace already exists at %s\n", ui.RenderWarn("⚠"), existing)
			return nil
		}

		if err := workspace.Init(cwd); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}

		ignorePath := workspace.IgnorePath(cwd)
		if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
			if err := os.WriteFile(ignorePath, []byte(defaultIgnoreRules), 0o644); err != nil {
				return fmt.Errorf("failed to write ignore file: %w", err)
			}
		}

		fmt.Printf("%s Initialized workspace in %s\n", ui.RenderPass("✓"), filepath.Join(cwd, workspace.DirName))
		fmt.Printf("   Edit %s to set device.port, or pass --port per command\n", workspace.ConfigPath(cwd))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
