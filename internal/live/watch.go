package live

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const maxWatchDepth = 32

// watcher turns filesystem events under the projects roots into wake pokes
// for the engine loop. fsnotify does not watch recursively, so every
// directory is registered individually and directories that appear later
// are registered from their create events.
type watcher struct {
	fs   *fsnotify.Watcher
	wake chan struct{}
}

func newWatcher(dirs []string) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &watcher{fs: fw, wake: make(chan struct{}, 1)}
	watched := 0
	for _, dir := range dirs {
		root := filepath.Join(dir, "projects")
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		watched += w.addTree(root, 0)
	}
	if watched == 0 {
		fw.Close()
		return nil, fmt.Errorf("no watchable projects root under %v", dirs)
	}
	return w, nil
}

func (w *watcher) addTree(dir string, depth int) int {
	if depth > maxWatchDepth {
		return 0
	}
	if err := w.fs.Add(dir); err != nil {
		warnf("watch_add", "dir=%s err=%v", dir, err)
		return 0
	}
	added := 1
	entries, err := os.ReadDir(dir)
	if err != nil {
		return added
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path) // follows symlinks
		if err == nil && info.IsDir() {
			added += w.addTree(path, depth+1)
		}
	}
	return added
}

// Wake delivers at most one pending poke; bursts coalesce.
func (w *watcher) Wake() <-chan struct{} { return w.wake }

func (w *watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addTree(ev.Name, 0)
				}
			}
			w.poke()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			warnf("watch_error", "err=%v", err)
		}
	}
}

func (w *watcher) poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) Close() error { return w.fs.Close() }
