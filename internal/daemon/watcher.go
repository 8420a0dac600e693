package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

const (
	// DefaultQuietWindow is how long the tree must stay unchanged before a rebuild.
	DefaultQuietWindow = 300 * time.Millisecond
	// DefaultMaxDelay bounds how long a steady stream of changes can postpone a rebuild.
	DefaultMaxDelay = 5 * time.Second
)

// WatcherOptions configures a Watcher. Root and Runner are required.
type WatcherOptions struct {
	Root        string
	DeployDir   string // Changes below it are ignored
	Runner      *Runner
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// Watcher monitors a source tree and requests a rebuild after changes settle.
type Watcher struct {
	root      string
	deployDir string
	runner    *Runner
	quiet     time.Duration
	maxDelay  time.Duration
	watcher   *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}
}

// NewWatcher creates a watcher covering every directory below Root.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Root == "" {
		return nil, ferrors.ValidationError("watch root is required").Build()
	}
	if opts.Runner == nil {
		return nil, ferrors.ValidationError("runner is required").Build()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	deployDir := opts.DeployDir
	if deployDir != "" {
		if deployDir, err = filepath.Abs(deployDir); err != nil {
			return nil, fmt.Errorf("failed to resolve deploy directory: %w", err)
		}
	}
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = DefaultQuietWindow
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:      root,
		deployDir: deployDir,
		runner:    opts.Runner,
		quiet:     opts.QuietWindow,
		maxDelay:  opts.MaxDelay,
		watcher:   fw,
		watched:   make(map[string]struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// addTree watches dir and every directory below it that is not ignored.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish between the event and the walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.watched[path]; ok {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return ferrors.FileSystemError("failed to watch directory").WithCause(err).WithContext("path", path).Build()
		}
		w.watched[path] = struct{}{}
		return nil
	})
}

// ignored reports paths whose changes never trigger a rebuild: the deploy
// directory, hidden files and editor scratch files.
func (w *Watcher) ignored(path string) bool {
	if w.deployDir != "" && (path == w.deployDir || strings.HasPrefix(path, w.deployDir+string(filepath.Separator))) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return isEditorTemp(filepath.Base(path))
}

func isEditorTemp(name string) bool {
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".swx"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"),
		name == "4913":
		return true
	}
	return false
}

// Run processes file events until ctx is canceled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	slog.Info("Watching for changes", logfields.Path(w.root), slog.Int("directories", w.Watched()))

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	var (
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		changed string
	)
	fire := func(trigger string) {
		quietTimer.Stop()
		maxTimer.Stop()
		quietC, maxC = nil, nil
		w.runner.Request(trigger + ":" + changed)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			changed = event.Name

			resetTimer(quietTimer, w.quiet)
			quietC = quietTimer.C
			if maxC == nil {
				resetTimer(maxTimer, w.maxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			fire("quiet")
		case <-maxC:
			fire("max_delay")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.watched, event.Name)
		w.mu.Unlock()
	}
	return !w.ignored(event.Name)
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
