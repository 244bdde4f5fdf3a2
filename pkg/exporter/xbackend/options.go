package xbackend

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
)

// 默认值
const (
	// DefaultHealthTimeout 健康检查默认超时
	DefaultHealthTimeout = 5 * time.Second

	// DefaultAsyncSlowWorkers 异步慢导出钩子的 worker 数
	DefaultAsyncSlowWorkers = 2

	// DefaultAsyncSlowQueueSize 异步慢导出钩子的队列长度
	DefaultAsyncSlowQueueSize = 256
)

// SlowExportHook 同步慢导出钩子，在 Export 返回前执行。
type SlowExportHook func(ctx context.Context, info SlowExport)

// AsyncSlowExportHook 异步慢导出钩子，队列满时通知被丢弃。
type AsyncSlowExportHook func(info SlowExport)

// Options 后端导出器共享配置
type Options struct {
	Logger  xlog.Logger
	Metrics *xmetrics.Recorder
	Clock   clockz.Clock

	// Timeout 单次 Export 的发送超时，0 表示只受调用方 ctx 约束
	Timeout time.Duration

	// HealthTimeout Ping 的超时
	HealthTimeout time.Duration

	// SlowThreshold 耗时不低于该值的 Export 触发慢导出钩子，0 关闭检测
	SlowThreshold time.Duration

	SlowHook           SlowExportHook
	AsyncSlowHook      AsyncSlowExportHook
	AsyncSlowWorkers   int
	AsyncSlowQueueSize int
}

// Option 配置选项
type Option func(*Options)

// DefaultOptions 返回默认配置。
func DefaultOptions() Options {
	return Options{
		Clock:              clockz.RealClock,
		HealthTimeout:      DefaultHealthTimeout,
		AsyncSlowWorkers:   DefaultAsyncSlowWorkers,
		AsyncSlowQueueSize: DefaultAsyncSlowQueueSize,
	}
}

// WithLogger 设置日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics 设置自监控指标。
func WithMetrics(m *xmetrics.Recorder) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithClock 设置时间源。
func WithClock(c clockz.Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// WithTimeout 单次发送超时，非正数表示不限制。
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = max(d, 0) }
}

// WithHealthTimeout Ping 超时，非正数被忽略。
func WithHealthTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.HealthTimeout = d
		}
	}
}

// WithSlowThreshold 慢导出阈值。
func WithSlowThreshold(d time.Duration) Option {
	return func(o *Options) { o.SlowThreshold = max(d, 0) }
}

// WithSlowHook 同步慢导出钩子。
func WithSlowHook(h SlowExportHook) Option {
	return func(o *Options) { o.SlowHook = h }
}

// WithAsyncSlowHook 异步慢导出钩子。
func WithAsyncSlowHook(h AsyncSlowExportHook) Option {
	return func(o *Options) { o.AsyncSlowHook = h }
}

// WithAsyncSlowWorkers 异步钩子 worker 数，非正数被忽略。
func WithAsyncSlowWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.AsyncSlowWorkers = n
		}
	}
}

// WithAsyncSlowQueueSize 异步钩子队列长度，非正数被忽略。
func WithAsyncSlowQueueSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.AsyncSlowQueueSize = n
		}
	}
}
