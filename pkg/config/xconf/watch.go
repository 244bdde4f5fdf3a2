package xconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// DefaultDebounce 默认防抖时间
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 重载完成后调用，err 为重载失败原因。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   xlog.Logger
}

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。非正数被忽略。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithWatchLogger 设置日志。
func WithWatchLogger(l xlog.Logger) WatchOption {
	return func(o *watchOptions) { o.logger = l }
}

// Watcher 监视配置文件并在变更后自动 Reload。
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	logger   xlog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopped bool
	done    chan struct{}
}

// Watch 为从文件创建的配置创建监视器，调用 Start 后生效。
//
// 监视的是文件所在目录：编辑器常以“写临时文件再 rename”的方式保存，
// 直接监视文件会丢失后续事件。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok || kc.path == "" {
		return nil, ErrNotReloadable
	}
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fs.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fs.Close())
	}
	return &Watcher{
		cfg:      kc,
		fs:       fs,
		callback: callback,
		debounce: o.debounce,
		logger:   xlog.OrDefault(o.logger).With(xlog.Component("config_watch")),
		done:     make(chan struct{}),
	}, nil
}

// Start 在后台开始监视，重复调用无效果。
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

// Stop 停止监视，幂等。返回后不会再开始新的回调，可以在回调中调用。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	started := w.started
	w.mu.Unlock()

	err := w.fs.Close()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	name := filepath.Base(w.cfg.path)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(context.Background(), "fsnotify error", xlog.Err(err))
			w.notify(fmt.Errorf("xconf: watch: %w", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	err := w.cfg.Reload()
	if err != nil {
		w.logger.Warn(context.Background(), "config reload failed", xlog.Err(err), slog.String("path", w.cfg.path))
	} else {
		w.logger.Debug(context.Background(), "config reloaded", slog.String("path", w.cfg.path))
	}
	w.notify(err)
}

func (w *Watcher) notify(err error) {
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}
