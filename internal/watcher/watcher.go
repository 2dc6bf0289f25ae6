// Package watcher runs the auto-sync loop: it watches the local tree for
// changes, batches rapid updates with debouncing, and hands the batched
// set to a sync callback.
//
// The watcher never touches the device itself; the callback is expected
// to route its work through the coordinator.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/embedworks/picosync/internal/ignore"
	"github.com/embedworks/picosync/internal/manifest"
)

// SyncFunc receives the debounced set of changed relative paths.
type SyncFunc func(ctx context.Context, changed []string) error

// Config holds watcher configuration.
type Config struct {
	// DebounceInterval is how long a change must sit quiet before it is
	// handed to the sync callback. Rapid saves batch together.
	DebounceInterval time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 400 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher observes a local tree and triggers syncs.
type Watcher struct {
	root    string
	matcher *ignore.Matcher
	syncFn  SyncFunc
	config  *Config

	fsw *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]time.Time

	wg sync.WaitGroup
}

// New creates a Watcher over root. Paths excluded by the matcher are
// never reported; ignored directories are not watched at all.
func New(root string, matcher *ignore.Matcher, syncFn SyncFunc, config *Config) (*Watcher, error) {
	if syncFn == nil {
		return nil, fmt.Errorf("syncFn cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		root:    root,
		matcher: matcher,
		syncFn:  syncFn,
		config:  config,
		fsw:     fsw,
		pending: make(map[string]time.Time),
	}, nil
}

// Start watches the tree until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.config.Logger.Printf("Watching: %s", w.root)

	w.wg.Add(2)
	go w.watchEvents(ctx)
	go w.flushLoop(ctx)

	<-ctx.Done()
	if err := w.fsw.Close(); err != nil {
		w.config.Logger.Printf("Error closing watcher: %v", err)
	}
	w.wg.Wait()
	return nil
}

// addRecursive registers dir and every non-ignored subdirectory.
// fsnotify watches are not recursive on their own.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.config.Logger.Printf("Warning: cannot watch %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := w.relPath(p)
		if rel != "" && w.matcher.Matches(rel, true) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.config.Logger.Printf("Warning: cannot watch %s: %v", p, err)
		}
		return nil
	})
}

func (w *Watcher) relPath(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." {
		return ""
	}
	return manifest.NormalizePath(rel)
}

// watchEvents queues filesystem events for debounced processing.
func (w *Watcher) watchEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			rel := w.relPath(event.Name)
			if rel == "" {
				continue
			}

			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.matcher.Matches(rel, true) {
						_ = w.addRecursive(event.Name)
					}
					continue
				}
			}

			if w.matcher.Matches(rel, false) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[rel] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// flushLoop periodically hands quiesced changes to the sync callback.
func (w *Watcher) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush collects paths that have been quiet for the debounce interval.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()

	w.pendingMu.Lock()
	var ready []string
	for p, queuedAt := range w.pending {
		if now.Sub(queuedAt) >= w.config.DebounceInterval {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	w.pendingMu.Unlock()

	if len(ready) == 0 {
		return
	}

	w.config.Logger.Printf("Processing %d change(s)", len(ready))
	if err := w.syncFn(ctx, ready); err != nil {
		w.config.Logger.Printf("Sync failed: %v", err)
	}
}
