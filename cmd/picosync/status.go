package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/manifest"
	"github.com/embedworks/picosync/internal/syncer"
	"github.com/embedworks/picosync/internal/ui"
)

var statusRemote bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show changes since the last sync baseline",
	Long: `Build a manifest of the local tree and classify every path against
the last sync baseline.

With --remote, the device tree is listed live and the comparison runs
against it instead, distinguishing paths that were never synced
(local-only) from paths added since the last baseline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		local, err := a.buildLocal()
		if err != nil {
			return err
		}
		baseline, err := a.loadBaseline()
		if err != nil {
			return err
		}

		var diff []manifest.DiffEntry
		if statusRemote {
			listing, err := listRemote(cmd.Context(), a, syncer.NewToolFS(a.tool))
			if err != nil {
				return err
			}
			diff = manifest.DiffAgainstRemote(local, baseline, listing)
		} else {
			if baseline == nil {
				baseline = manifest.NewManifest(a.cfg.SyncLocalRoot)
			}
			diff = manifest.Diff(baseline, local)
		}

		printDiff(diff, local.Len())
		return nil
	},
}

// printDiff renders a classified listing with counts.
func printDiff(diff []manifest.DiffEntry, tracked int) {
	if len(diff) == 0 {
		fmt.Printf("%s Up to date (%d files tracked)\n", ui.RenderPass("✓"), tracked)
		return
	}

	counts := make(map[manifest.Classification]int)
	for _, e := range diff {
		counts[e.Class]++
		switch e.Class {
		case manifest.Added:
			fmt.Printf("  %s %s\n", ui.RenderPass("A"), e.Path)
		case manifest.Modified:
			fmt.Printf("  %s %s\n", ui.RenderAccent("M"), e.Path)
		case manifest.Deleted:
			fmt.Printf("  %s %s\n", ui.RenderErr("D"), e.Path)
		case manifest.LocalOnly:
			fmt.Printf("  %s %s\n", ui.RenderWarn("?"), e.Path)
		}
	}

	fmt.Println()
	fmt.Printf("%d added, %d modified, %d deleted, %d local-only\n",
		counts[manifest.Added], counts[manifest.Modified],
		counts[manifest.Deleted], counts[manifest.LocalOnly])
}

func init() {
	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "compare against a live device listing")
	rootCmd.AddCommand(statusCmd)
}
