package draftlint

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/draftlint/internal/syntax"
)

// DefaultDebounce is how long Watch waits after the last change before
// linting again.
const DefaultDebounce = 100 * time.Millisecond

// Watch lints root, then lints it again whenever a supported file under
// root is created, written, removed or renamed, until ctx is cancelled.
// Bursts of changes closer together than debounce (DefaultDebounce when
// zero) trigger a single run. onLint receives the result of every run; a
// failed run does not end the watch.
//
// Watch returns nil when ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, root string, debounce time.Duration, onLint func(Stats, error)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("draftlint: resolve %s: %w", root, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("draftlint: watch: %w", err)
	}
	defer w.Close()

	if err := e.watchTree(w, absRoot, absRoot); err != nil {
		return fmt.Errorf("draftlint: watch: %w", err)
	}

	onLint(e.LintDirectory(ctx, absRoot))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.handleEvent(w, absRoot, event) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("draftlint: watch error", slog.Any("error", err))
		case <-timer.C:
			onLint(e.LintDirectory(ctx, absRoot))
		}
	}
}

// watchTree adds dir and every lintable directory beneath it to w.
func (e *Engine) watchTree(w *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Removed between the event and the walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && e.skipDir(root, path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (e *Engine) skipDir(root, path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || skipDirs[name] || e.excluded(root, path)
}

// handleEvent reports whether event warrants another lint run. New
// directories are watched as they appear.
func (e *Engine) handleEvent(w *fsnotify.Watcher, root string, event fsnotify.Event) bool {
	if e.excluded(root, event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if e.skipDir(root, event.Name) {
				return false
			}
			if err := e.watchTree(w, root, event.Name); err != nil {
				e.logger.Warn("draftlint: watch directory",
					slog.String("path", event.Name),
					slog.Any("error", err),
				)
			}
			return true
		}
	}

	_, supported := syntax.LanguageForFile(event.Name)
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return supported
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A removed directory has no extension.
		return supported || filepath.Ext(event.Name) == ""
	}
	return false
}
