package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/b-harvest/relbuild/internal/application/ports"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to the files a snapshot of the same options would
// retain. Directories a snapshot skips are not watched.
type Watcher struct {
	root     string
	include  []string
	excluded map[string]bool
	debounce time.Duration
	logger   ports.Logger

	fw      *fsnotify.Watcher
	ignores *ignoreSet
	pending map[string]bool
}

// NewWatcher creates a Watcher for opts.SourceDir. StagingDir is unused.
func NewWatcher(opts ports.SnapshotOptions, debounce time.Duration, logger ports.Logger) (*Watcher, error) {
	root, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, e := range opts.Exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}
	return &Watcher{
		root:     root,
		include:  opts.Include,
		excluded: excluded,
		debounce: debounce,
		logger:   logger,
		ignores:  newIgnoreSet(),
		pending:  make(map[string]bool),
	}, nil
}

// Watch calls onChange with the sorted relative paths of every retained file
// touched during one quiet period. onChange runs on the calling goroutine;
// events that arrive meanwhile are reported by the next call. Watch returns
// nil when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()
	w.fw = fw

	if err := w.addTree(w.root, false); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				arm()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher error: %w", err)
		case <-fire:
			fire = nil
			if len(w.pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(w.pending))
			for rel := range w.pending {
				changed = append(changed, rel)
			}
			sort.Strings(changed)
			w.pending = make(map[string]bool)
			onChange(changed)
		}
	}
}

// handle records event and reports whether it is relevant.
func (w *Watcher) handle(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.skipped(event.Name, splitRel(rel)) {
				return false
			}
			// files written before the directory was added produce no events
			if err := w.addTree(event.Name, true); err != nil && w.logger != nil {
				w.logger.Debug("Cannot watch %s: %v", rel, err)
			}
			return len(w.pending) > 0
		}
	}

	if !w.relevant(rel) {
		return false
	}
	w.pending[filepath.ToSlash(rel)] = true
	return true
}

// addTree watches dir and every directory below it that a snapshot would
// descend into. With record set, retained files found on the way are marked
// as changed.
func (w *Watcher) addTree(dir string, record bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		segments := splitRel(rel)

		if !d.IsDir() {
			if record && w.relevant(rel) {
				w.pending[filepath.ToSlash(rel)] = true
			}
			return nil
		}
		if rel != "." && w.skipped(p, segments) {
			return filepath.SkipDir
		}
		if err := w.ignores.load(p, segments); err != nil {
			return err
		}
		return w.fw.Add(p)
	})
}

func (w *Watcher) skipped(abs string, segments []string) bool {
	return skipDir(abs, segments) || w.excluded[abs] || w.ignores.ignored(segments, true)
}

func (w *Watcher) relevant(rel string) bool {
	segments := splitRel(rel)
	for i := 1; i < len(segments); i++ {
		if skipDir(filepath.Join(w.root, filepath.Join(segments[:i]...)), segments[:i]) {
			return false
		}
	}
	return !w.ignores.ignored(segments, false) && retained(filepath.ToSlash(rel), w.include)
}
