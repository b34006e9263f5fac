// SPDX-License-Identifier: MPL-2.0

// Package watch regenerates outputs when the build graph's inputs change.
//
// A generated recipe depends on descriptors, the workspace configuration
// and the set of files that source globs match, never on file contents.
// The watcher therefore reacts to any change of a descriptor file but only
// to creation, removal and renaming of other files. Changes within the
// debounce window are coalesced into one callback, and callbacks never
// overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/mkgen/mkgen/pkg/buildfile"
)

const defaultDebounce = 300 * time.Millisecond

var (
	// defaultIgnores are never watched: VCS metadata and editor droppings.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}

	defaultDescriptors = []string{
		"**/" + buildfile.CUEName,
		"**/" + buildfile.HCLName,
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the root directory to watch; empty means the working
		// directory.
		BaseDir string

		// Descriptors are extra doublestar patterns, relative to BaseDir,
		// whose every write triggers regeneration (e.g. the config file).
		// Package descriptors are always included.
		Descriptors []string

		// Ignore are extra patterns that never trigger, typically the build
		// and publish roots so that writing outputs does not loop.
		Ignore []string

		// Debounce is the quiet period after the last event. Zero or
		// negative values fall back to the default.
		Debounce time.Duration

		// OnChange receives the changed paths relative to BaseDir, sorted.
		OnChange func(ctx context.Context, changed []string) error

		Logger *log.Logger
	}

	// Watcher monitors BaseDir. Run must be called exactly once.
	Watcher struct {
		cfg         Config
		fsw         *fsnotify.Watcher
		logger      *log.Logger
		descriptors []string
		ignores     []string
		debounce    time.Duration
		baseDir     string
		started     atomic.Bool
	}
)

// New validates cfg and registers every non-ignored directory under
// BaseDir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Descriptors, "descriptor"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:         cfg,
		fsw:         fsw,
		logger:      logger,
		descriptors: slices.Concat(defaultDescriptors, cfg.Descriptors),
		ignores:     slices.Concat(defaultIgnores, cfg.Ignore),
		debounce:    debounce,
		baseDir:     absBase,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled, which is a clean return.
// Fatal watcher errors are returned.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		running  atomic.Bool
		stopped  bool
		inflight sync.WaitGroup
	)

	// fire is scheduled with time.AfterFunc and so may start after
	// cancellation. Calls are registered in inflight under mu so that Run
	// does not return while a callback is still executing. A busy callback
	// reschedules rather than drops the pending set.
	fire := func() {
		mu.Lock()
		if stopped || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("generation in progress, deferring")
			mu.Lock()
			if timer != nil && !stopped {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Info("inputs changed", "files", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("regeneration failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			rel = filepath.ToSlash(rel)
			if !w.relevant(rel, evt.Op) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// relevant reports whether an event on rel can change the generated
// outputs.
func (w *Watcher) relevant(rel string, op fsnotify.Op) bool {
	if matchAny(w.ignores, rel) {
		return false
	}
	if matchAny(w.descriptors, rel) {
		return op != fsnotify.Chmod
	}
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.ignoredDir(path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "error", err)
	}
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && (matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/"))
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
