// Package allowlist loads the engine's permanent allow-list from a file and
// keeps it current as the file changes, so trusted clients can be added
// without a restart.
package allowlist

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Target receives the replacement allow-list on load and reload.
type Target interface {
	SetAllowlist(keys []string)
}

// Watcher reloads an allow-list file into a Target whenever it changes.
type Watcher struct {
	path   string
	target Target
	logger *slog.Logger
}

// NewWatcher loads the file once and returns a watcher for it.
func NewWatcher(path string, target Target, logger *slog.Logger) (*Watcher, error) {
	w := &Watcher{path: path, target: target, logger: logger}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Run watches the file's directory until ctx is cancelled. Watching the
// directory instead of the file survives rename-based atomic writes.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Error("allowlist reload failed", slog.Any("error", err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("allowlist watch error", slog.Any("error", err))
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload() error {
	keys, err := Load(w.path)
	if err != nil {
		return err
	}
	w.target.SetAllowlist(keys)
	w.logger.Info("allowlist loaded",
		slog.String("path", w.path),
		slog.Int("entries", len(keys)),
	)
	return nil
}

// Load parses an allow-list file: one client key per line, blank lines and
// '#' comments ignored.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open allowlist: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	}
	return keys, nil
}
