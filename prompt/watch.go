package prompt

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// templateGlob matches override template files anywhere under the override dir.
const templateGlob = "**/*.tmpl"

// reloadDebounce is how long to wait for further file events before reloading.
const reloadDebounce = 500 * time.Millisecond

// LoadDir loads template overrides from dir. Each *.tmpl file overrides the
// user-template text of the built-in whose ID matches the file's base name
// (without extension); unmatched files register as new fast-capability
// templates. Malformed files are logged and skipped, never fatal.
func (s *Store) LoadDir(dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	matches, err := doublestar.Glob(os.DirFS(dir), templateGlob)
	if err != nil {
		return fmt.Errorf("glob templates in %s: %w", dir, err)
	}

	for _, rel := range matches {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Failed to read template override", "path", path, "error", err)
			continue
		}

		id := strings.TrimSuffix(filepath.Base(rel), ".tmpl")
		if err := s.overrideUserText(id, string(data)); err != nil {
			logger.Warn("Failed to parse template override", "path", path, "error", err)
			continue
		}
		logger.Debug("Loaded template override", "id", id, "path", path)
	}

	return nil
}

// Watch reloads template overrides from dir whenever files change.
// Blocks until ctx is cancelled; callers run it in a goroutine.
func (s *Store) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify watches are not recursive; overrides in subdirectories load
	// via the glob, so every directory needs its own watch.
	dirs, err := watchTargets(dir)
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	// Debounce: editors produce bursts of write events per save.
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if !strings.HasSuffix(event.Name, ".tmpl") {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Template watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			if err := s.LoadDir(dir, logger); err != nil {
				logger.Warn("Template reload failed", "dir", dir, "error", err)
			} else {
				logger.Info("Reloaded template overrides", "dir", dir)
			}
		}
	}
}

// watchTargets lists dir and every subdirectory beneath it.
func watchTargets(dir string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
