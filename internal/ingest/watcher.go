package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/config"
)

// Watcher drives fsnotify events for a set of watch roots into a debounced,
// per-path serialized dispatch against a Pipeline.
type Watcher struct {
	watches []config.WatchConfig
	pipeline *Pipeline
	debouncer *Debouncer
	dispatcher *PathDispatcher
	log *zap.Logger

	fsw *fsnotify.Watcher
	cancel context.CancelFunc
	wg sync.WaitGroup
}

// NewWatcher builds a Watcher over the given watch roots. debounceWindow of
// zero uses DefaultDebounceWindow.
func NewWatcher(watches []config.WatchConfig, pipeline *Pipeline, debounceWindow time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watches: watches,
		pipeline: pipeline,
		dispatcher: NewPathDispatcher(),
		fsw: fsw,
		log: log,
	}
	w.debouncer = NewDebouncer(debounceWindow, w.dispatch)
	return w, nil
}

// Start registers every enabled watch root (recursively, one fsnotify watch
// per directory since fsnotify does not watch subtrees) and begins the
// event loop in a background goroutine. Start is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.watches {
		if !root.Enabled {
			continue
		}
		if err := w.addTree(root.Path); err != nil {
			w.log.Warn("ingest: failed to watch root", zap.String("path", root.Path), zap.Error(err))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(runCtx)

	return nil
}

// Stop halts the event loop and releases the underlying fsnotify handle.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.debouncer.Stop()
	_ = w.fsw.Close()
}

// addTree walks root and adds every directory (including root itself) to
// the fsnotify watch list, matching the "watch the whole subtree" contract
// session transcript layouts need even though fsnotify only watches single
// directories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.log.Warn("ingest: failed to watch directory", zap.String("path", path), zap.Error(addErr))
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("ingest: watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("ingest: failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.debouncer.Notify(event.Name)
}

// dispatch is the Debouncer's fire callback: it hands the settled path to
// the per-path dispatcher, which serializes concurrent fires for the same
// path and lets distinct paths proceed in parallel.
func (w *Watcher) dispatch(path string) {
	w.dispatcher.Run(path, func() {
		if err := w.pipeline.ProcessPath(context.Background(), path); err != nil {
			w.log.Error("ingest: process path failed", zap.String("path", path), zap.Error(err))
		}
	})
}
