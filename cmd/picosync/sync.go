package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/coordinator"
	"github.com/embedworks/picosync/internal/manifest"
	"github.com/embedworks/picosync/internal/syncer"
	"github.com/embedworks/picosync/internal/ui"
	"github.com/embedworks/picosync/internal/workspace"
)

var (
	syncDown   bool
	syncDelete bool
	syncDryRun bool
	syncYes    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local tree with the device",
	Long: `Compute the difference between the local tree and the device and copy
changed files across.

By default the local tree is uploaded to the device (local->remote);
--down reverses the direction. Sync is additive and overwriting: paths
deleted on the source side are reported but never removed from the
destination unless --delete is given, which asks for confirmation.

On full success the baseline manifest is replaced, so the next status
and sync start from this point.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		local, err := a.buildLocal()
		if err != nil {
			return err
		}
		baseline, err := a.loadBaseline()
		if err != nil {
			return err
		}

		fs := syncer.NewToolFS(a.tool)
		listing, err := listRemote(ctx, a, fs)
		if err != nil {
			return err
		}

		diff := manifest.DiffAgainstRemote(local, baseline, listing)
		if len(diff) == 0 {
			fmt.Printf("%s Nothing to sync (%d files tracked)\n", ui.RenderPass("✓"), local.Len())
			return nil
		}

		direction := syncer.LocalToRemote
		if syncDown {
			direction = syncer.RemoteToLocal
		}

		if syncDelete && !syncDryRun && !syncYes {
			ok, err := confirmDelete(diff, direction)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		applier := syncer.NewApplier(fs, a.coord, a.cfg.SyncLocalRoot, a.logger)
		opts := syncer.Options{
			Delete:  syncDelete,
			DryRun:  syncDryRun,
			Restore: a.restoreBehavior(),
			Progress: func(path string, done, total int) {
				if path != "" {
					fmt.Printf("  [%d/%d] %s\n", done+1, total, path)
				}
			},
		}

		start := time.Now()
		res, err := applier.ApplyDiff(ctx, diff, direction, opts)
		if err != nil {
			return err
		}

		printSyncResult(res, direction, time.Since(start), syncDryRun)

		// The baseline is replaced wholesale, and only after a fully
		// successful apply: a partial sync must not pretend its failed
		// paths are in sync.
		if !syncDryRun && res.Failed == 0 {
			current, err := a.buildLocal()
			if err != nil {
				return fmt.Errorf("sync succeeded but baseline rebuild failed: %w", err)
			}
			if err := manifest.Save(current, workspace.ManifestPath(a.root)); err != nil {
				return fmt.Errorf("sync succeeded but baseline save failed: %w", err)
			}
		}

		if res.Failed > 0 {
			return fmt.Errorf("%d file(s) failed to sync", res.Failed)
		}
		return nil
	},
}

// listRemote fetches the device tree listing under one exclusive
// acquisition with a strict handshake.
func listRemote(ctx context.Context, a *app, fs syncer.RemoteFS) (manifest.RemoteListing, error) {
	opts := coordinator.Options{
		Restore:       a.restoreBehavior(),
		StrictConnect: true,
	}
	return coordinator.RunExclusiveResult(ctx, a.coord, opts,
		func(ctx context.Context) (manifest.RemoteListing, error) {
			return fs.List(ctx)
		})
}

// confirmDelete prompts before destructive sync.
func confirmDelete(diff []manifest.DiffEntry, direction syncer.Direction) (bool, error) {
	doomed := syncer.DeleteCandidates(diff, direction)
	if doomed == 0 {
		return true, nil
	}

	var ok bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Delete %d file(s) on the destination?", doomed)).
		Description("Files removed on the source side will be permanently deleted.").
		Value(&ok)
	if err := confirm.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// printSyncResult renders the aggregate batch summary.
func printSyncResult(res *syncer.Result, direction syncer.Direction, elapsed time.Duration, dryRun bool) {
	verb := "Synced"
	if dryRun {
		verb = "Would sync"
	}

	if res.Failed == 0 {
		fmt.Printf("%s %s %d file(s) %s in %v\n",
			ui.RenderPass("✓"), verb, res.Succeeded, direction, elapsed.Round(time.Millisecond))
	} else {
		fmt.Printf("%s %d succeeded, %d failed (%s)\n",
			ui.RenderWarn("⚠"), res.Succeeded, res.Failed, direction)
		for i, p := range res.FailedPaths {
			fmt.Printf("   %s %s: %v\n", ui.RenderErr("✗"), p, res.Errors[i])
		}
	}
	if res.Skipped > 0 {
		fmt.Printf("   %s\n", ui.RenderDim(fmt.Sprintf("%d deletion(s) skipped (use --delete to remove)", res.Skipped)))
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDown, "down", false, "sync from the device to the local tree")
	syncCmd.Flags().BoolVar(&syncDelete, "delete", false, "delete destination files removed on the source side")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report what would change without copying")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "skip the --delete confirmation prompt")
	rootCmd.AddCommand(syncCmd)
}
