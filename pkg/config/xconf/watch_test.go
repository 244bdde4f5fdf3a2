package xconf

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

func TestWatchRejectsBytesConfig(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a: 1"), FormatYAML)
	require.NoError(t, err)
	_, err = Watch(cfg, nil)
	require.ErrorIs(t, err, ErrNotReloadable)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "name: v1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var reloads atomic.Int32
	w, err := Watch(cfg, func(c Config, err error) {
		if err == nil && c.Client().String("name") == "v2" {
			reloads.Add(1)
		}
	}, WithDebounce(10*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	w.Start()
	w.Start()
	t.Cleanup(func() { assert.NoError(t, w.Stop()) })

	writeFile(t, dir, "other.yaml", "name: ignored\n")
	writeFile(t, dir, "app.yaml", "name: v2\n")
	assert.Eventually(t, func() bool { return reloads.Load() > 0 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, "v2", cfg.Client().String("name"))
}

func TestWatcherStop(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", "name: v1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	t.Run("未启动", func(t *testing.T) {
		w, err := Watch(cfg, nil)
		require.NoError(t, err)
		require.NoError(t, w.Stop())
		require.NoError(t, w.Stop())
		w.Start()
	})

	t.Run("回调中停止", func(t *testing.T) {
		stopped := make(chan error, 1)
		var w *Watcher
		w, err := Watch(cfg, func(Config, error) {
			select {
			case stopped <- w.Stop():
			default:
			}
		}, WithDebounce(time.Millisecond), WithWatchLogger(xlog.Discard()))
		require.NoError(t, err)
		w.Start()
		writeFile(t, filepath.Dir(path), "app.yaml", "name: v3\n")

		select {
		case err := <-stopped:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			require.NoError(t, w.Stop())
			t.Fatal("回调未触发")
		}
	})
}
