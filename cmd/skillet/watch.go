package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

const reloadDebounce = 300 * time.Millisecond

// skillWatcher reports changes anywhere under a skills root.
type skillWatcher struct {
	root    string
	watcher *fsnotify.Watcher
}

func newSkillWatcher(root string) (*skillWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &skillWatcher{root: root, watcher: watcher}
	if err := w.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it. fsnotify is not
// recursive.
func (w *skillWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

// Run forwards debounced change notifications to changed until ctx is done.
func (w *skillWatcher) Run(ctx context.Context, changed chan<- struct{}) {
	defer w.watcher.Close()

	events := make(chan fsnotify.Event)
	go debounceEvents(ctx, events, changed, reloadDebounce)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						logger.G(ctx).WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			if event.Has(fsnotify.Chmod) {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Warn("skill watcher error")
		}
	}
}

// debounceEvents collapses bursts of events into one notification sent
// after delay of quiet.
func debounceEvents(ctx context.Context, input <-chan fsnotify.Event, output chan<- struct{}, delay time.Duration) {
	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case _, ok := <-input:
			if !ok {
				timer.Stop()
				return
			}
			timer.Reset(delay)
		case <-timer.C:
			select {
			case output <- struct{}{}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
