package allowlist

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTarget struct {
	mu   sync.Mutex
	keys []string
}

func (c *captureTarget) SetAllowlist(keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append([]string(nil), keys...)
}

func (c *captureTarget) current() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

func TestLoad_ParsesEntriesAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.txt")
	content := "# trusted monitors\n10.0.0.1\n\n  10.0.0.2  \n# tail comment\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, keys)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestNewWatcher_LoadsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.txt")
	require.NoError(t, os.WriteFile(path, []byte("192.0.2.1\n"), 0o600))

	target := &captureTarget{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := NewWatcher(path, target, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, target.current())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.txt")
	require.NoError(t, os.WriteFile(path, []byte("192.0.2.1\n"), 0o600))

	target := &captureTarget{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	w, err := NewWatcher(path, target, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("192.0.2.1\n192.0.2.2\n"), 0o600))

	assert.Eventually(t, func() bool {
		return len(target.current()) == 2
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}
