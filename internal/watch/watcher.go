// Package watch keeps a stored index current while files change.
package watch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/cybertec-postgresql/rbxref/internal/analysis"
	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
)

// tick is how often pending changes are checked against the debounce delay.
const tick = 50 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	Discovery discovery.Options
	Analysis  analysis.Options
	Registry  *analysis.Registry
	Store     index.Backend
	Debounce  time.Duration // quiet period before a changed file is re-indexed
	Timeout   time.Duration // per-file analysis timeout, zero for none

	// OnUpdate, when set, is called after each re-indexed or removed file.
	OnUpdate func(Update)
}

// Update reports the outcome of one debounced change.
type Update struct {
	Path    string // relative, slash-separated
	Removed bool
	Entry   *index.FileEntry
	Err     error
}

// Watcher re-indexes files below a root directory as they change.
type Watcher struct {
	root    string
	opts    Options
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time // absolute path -> last event
}

// New creates a watcher and registers root and its non-ignored
// subdirectories. Changes are only processed once Run is called.
func New(root string, opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:    absRoot,
		opts:    opts,
		watcher: fw,
		pending: make(map[string]time.Time),
	}
	if err := w.addRecursive(absRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until ctx is cancelled, then releases the
// watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.processEvents(ctx) })
	g.Go(func() error { return w.processPending(ctx) })
	return g.Wait()
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, !discovery.Ignored(rel, w.opts.Discovery.Ignore)
}

// addRecursive adds a directory and all its subdirectories to the watch list
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if _, ok := w.relative(path); !ok {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, ok := w.relative(event.Name); !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Error("%v", err)
					}
					w.markTree(event.Name)
					continue
				}
			}
			w.mark(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: %v", err)
		}
	}
}

func (w *Watcher) mark(path string) {
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// markTree queues the files of a directory that appeared in one piece,
// e.g. by a move or an archive extraction.
func (w *Watcher) markTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			w.mark(path)
		}
		return nil
	})
}

func (w *Watcher) processPending(ctx context.Context) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			for _, path := range w.due(time.Now()) {
				w.update(ctx, path)
			}
		}
	}
}

// due removes and returns the paths that have been quiet for the debounce delay.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.opts.Debounce {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

func (w *Watcher) update(ctx context.Context, path string) {
	rel, _ := w.relative(path)
	u := Update{Path: rel}

	file, ok, err := discovery.Stat(w.root, path, w.opts.Discovery)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		u.Removed = true
		u.Err = w.remove(ctx, rel)
	case err != nil:
		u.Err = err
	case !ok:
		return
	default:
		u.Entry, u.Err = w.reindex(ctx, file)
	}

	log := logger.Default().File(rel)
	switch {
	case u.Err != nil:
		log.Error("update failed: %v", u.Err)
	case u.Removed:
		log.Info("removed")
	default:
		log.Zerolog().Info().
			Str("language", u.Entry.Language).
			Int("symbols", len(u.Entry.Symbols)).
			Int("loc", u.Entry.LOC).
			Msg("re-indexed")
	}
	if w.opts.OnUpdate != nil {
		w.opts.OnUpdate(u)
	}
}

func (w *Watcher) reindex(ctx context.Context, file discovery.DiscoveredFile) (*index.FileEntry, error) {
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}
	entry, err := analysis.AnalyzeFile(ctx, w.opts.Registry, file, w.opts.Analysis)
	if err != nil {
		return nil, err
	}
	return entry, w.opts.Store.PutFile(ctx, entry)
}

// remove drops rel from the index, or every file below it when rel was a
// directory.
func (w *Watcher) remove(ctx context.Context, rel string) error {
	snap, err := w.opts.Store.Load(ctx)
	if stderrors.Is(err, index.ErrNoIndex) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, path := range snap.Paths() {
		if path == rel || strings.HasPrefix(path, rel+"/") {
			if err := w.opts.Store.DeleteFile(ctx, path); err != nil {
				return err
			}
			if w.opts.Analysis.XrefDir != "" {
				os.Remove(analysis.XrefPath(w.opts.Analysis.XrefDir, path))
			}
		}
	}
	return nil
}
