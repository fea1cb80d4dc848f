package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 200 * time.Millisecond

// Watcher reruns the pipeline whenever the input file is rewritten.
// Runs triggered by the pipeline's own save are absorbed by the runner's
// fingerprint cache.
type Watcher struct {
	runner *Runner
	log    *zap.Logger
}

// NewWatcher creates a watcher bound to the runner's input file.
func NewWatcher(runner *Runner, log *zap.Logger) *Watcher {
	return &Watcher{runner: runner, log: log}
}

// Watch blocks until ctx is cancelled, rerunning the pipeline after each
// write to the input file. Events are debounced since editors and the
// pipeline itself produce bursts of writes.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	input := w.runner.Config().InputPath
	// watch the directory: rename-over-write (our own save path) drops
	// watches placed on the file itself
	if err := fw.Add(filepath.Dir(input)); err != nil {
		return err
	}
	base := filepath.Base(input)
	w.log.Info("watching for changes", zap.String("path", input))

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				fire = debounce.C
			} else {
				// drain an already-expired timer before Reset so a
				// stale tick can't fire ahead of the new window
				if !debounce.Stop() {
					select {
					case <-fire:
					default:
					}
				}
				debounce.Reset(debounceDelay)
			}

		case <-fire:
			debounce, fire = nil, nil
			result, err := w.runner.Run(ctx)
			switch {
			case errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				w.log.Error("watch-triggered run failed", zap.Error(err))
			case result.Skipped:
				w.log.Debug("change was our own write, nothing to do")
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
