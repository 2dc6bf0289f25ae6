package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/logging"
	"github.com/embedworks/picosync/internal/manifest"
	"github.com/embedworks/picosync/internal/syncer"
	"github.com/embedworks/picosync/internal/ui"
	"github.com/embedworks/picosync/internal/watcher"
	"github.com/embedworks/picosync/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the local tree and sync changes to the device",
	Long: `Continuously watch the local tree; saves are debounced and uploaded to
the device in batches. Each batch preempts any still-queued earlier
batch, so only the latest state of a rapidly edited file is pushed.

Deletions are never propagated by watch; run 'picosync sync --delete'
to remove files from the device. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		matcher, err := a.ignoreMatcher()
		if err != nil {
			return err
		}

		fs := syncer.NewToolFS(a.tool)
		applier := syncer.NewApplier(fs, a.coord, a.cfg.SyncLocalRoot, a.logger)

		syncFn := func(ctx context.Context, changed []string) error {
			local, err := a.buildLocal()
			if err != nil {
				return err
			}
			baseline, err := a.loadBaseline()
			if err != nil {
				return err
			}
			if baseline == nil {
				baseline = manifest.NewManifest(a.cfg.SyncLocalRoot)
			}

			diff := narrowDiff(manifest.Diff(baseline, local), changed)
			if len(diff) == 0 {
				return nil
			}

			opts := syncer.Options{Restore: a.restoreBehavior()}
			res, err := applier.ApplyDiff(ctx, diff, syncer.LocalToRemote, opts)
			if err != nil {
				return err
			}
			fmt.Printf("%s Pushed %d file(s)", ui.RenderPass("✓"), res.Succeeded)
			if res.Failed > 0 {
				fmt.Printf(", %s", ui.RenderErr(fmt.Sprintf("%d failed", res.Failed)))
			}
			fmt.Println()

			if res.Failed == 0 {
				if err := manifest.Save(local, workspace.ManifestPath(a.root)); err != nil {
					a.logger.Printf("baseline save failed: %v", err)
				}
			}
			return nil
		}

		wcfg := &watcher.Config{
			DebounceInterval: a.cfg.Timing.WatchDebounce,
			Logger: logging.New("[watch] ", logging.Options{
				File:       a.cfg.Log.File,
				MaxSizeMB:  a.cfg.Log.MaxSizeMB,
				MaxBackups: a.cfg.Log.MaxBackups,
			}),
		}
		w, err := watcher.New(a.cfg.SyncLocalRoot, matcher, syncFn, wcfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", a.cfg.SyncLocalRoot)
		return w.Start(ctx)
	},
}

// narrowDiff keeps only diff entries for paths the watcher reported,
// minus deletions: watch never removes device files.
func narrowDiff(diff []manifest.DiffEntry, changed []string) []manifest.DiffEntry {
	set := make(map[string]struct{}, len(changed))
	for _, p := range changed {
		set[p] = struct{}{}
	}

	var out []manifest.DiffEntry
	for _, e := range diff {
		if e.Class == manifest.Deleted {
			continue
		}
		if _, ok := set[e.Path]; ok {
			out = append(out, e)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
