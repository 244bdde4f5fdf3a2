package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appConfig struct {
	Name string `koanf:"name"`
	Port int    `koanf:"port"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		cfg, err := New(writeFile(t, dir, "a.yml", "app:\n  name: api\n  port: 8080\n"))
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, cfg.Format())
		assert.Equal(t, "api", cfg.Client().String("app.name"))

		var app appConfig
		require.NoError(t, cfg.Unmarshal("app", &app))
		assert.Equal(t, appConfig{Name: "api", Port: 8080}, app)
	})

	t.Run("JSON", func(t *testing.T) {
		cfg, err := New(writeFile(t, dir, "a.json", `{"app":{"name":"api","port":"9090"}}`))
		require.NoError(t, err)
		var app appConfig
		require.NoError(t, cfg.Unmarshal("app", &app))
		assert.Equal(t, 9090, app.Port, "弱类型转换")
	})

	t.Run("空文件", func(t *testing.T) {
		cfg, err := New(writeFile(t, dir, "empty.yaml", ""))
		require.NoError(t, err)
		assert.Empty(t, cfg.Client().Keys())
	})

	t.Run("错误", func(t *testing.T) {
		_, err := New("")
		require.ErrorIs(t, err, ErrEmptyPath)
		_, err = New(writeFile(t, dir, "a.toml", "x = 1"))
		require.ErrorIs(t, err, ErrUnsupportedFormat)
		_, err = New(filepath.Join(dir, "missing.yaml"))
		require.ErrorIs(t, err, ErrLoadFailed)
		_, err = New(writeFile(t, dir, "bad.json", "{"))
		require.ErrorIs(t, err, ErrParseFailed)
	})
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a:\n  b: 1\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Client().Int("a.b"))
	assert.Empty(t, cfg.Path())
	require.ErrorIs(t, cfg.Reload(), ErrNotReloadable)

	_, err = NewFromBytes(nil, Format("toml"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	cfg, err = NewFromBytes([]byte("a/b: 2\n"), FormatYAML, WithDelim("/"), WithTag(""))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Client().Int("a/b"))
}

func TestUnmarshalErrors(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"app":{"port":"not-a-number"}}`), FormatJSON)
	require.NoError(t, err)
	var app appConfig
	require.ErrorIs(t, cfg.Unmarshal("app", &app), ErrUnmarshalFailed)
	assert.Panics(t, func() { MustUnmarshal(cfg, "app", &app) })
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "name: v1\n")
	cfg, err := New(path)
	require.NoError(t, err)
	old := cfg.Client()

	writeFile(t, dir, "app.yaml", "name: v2\n")
	require.NoError(t, cfg.Reload())
	assert.Equal(t, "v2", cfg.Client().String("name"))
	assert.Equal(t, "v1", old.String("name"), "旧实例保持快照")

	writeFile(t, dir, "app.yaml", "name: [")
	require.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, "v2", cfg.Client().String("name"), "失败时保留上一次结果")
}

func TestConcurrentReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", "name: v\nport: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			var app appConfig
			assert.NoError(t, cfg.Unmarshal("", &app))
			assert.Equal(t, "v", app.Name)
		}()
	}
	wg.Wait()
}
