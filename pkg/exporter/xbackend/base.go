package xbackend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtel/pkg/exporter/xresilient"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// SendFunc 把一批 span 发送到后端。返回的错误按 xresilient.ResultFromError 分类。
type SendFunc func(ctx context.Context, spans []xsdk.SpanData) error

// Base 后端导出器的共享内核：关闭状态、发送超时、结果分类、
// 日志、指标、慢导出检测与统计。各后端导出器内嵌使用。
type Base struct {
	name   string
	opts   Options
	logger xlog.Logger
	slow   *slowDetector
	stats  counters

	stopped      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewBase 创建 Base，name 同时用作日志组件名与指标的 component 标签。
func NewBase(name string, opts ...Option) (*Base, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := xlog.OrDefault(o.Logger).With(xlog.Exporter(name))
	slow, err := newSlowDetector(o, logger)
	if err != nil {
		return nil, err
	}
	return &Base{name: name, opts: o, logger: logger, slow: slow}, nil
}

// Name 导出器名称。
func (b *Base) Name() string { return b.name }

// Logger 带 exporter 属性的日志。
func (b *Base) Logger() xlog.Logger { return b.logger }

// Options 生效的配置。
func (b *Base) Options() Options { return b.opts }

// Stopped 是否已关闭。
func (b *Base) Stopped() bool { return b.stopped.Load() }

// Stats 返回统计快照。
func (b *Base) Stats() Stats { return b.stats.snapshot() }

// Export 调用 send 发送 spans 并记录结果。
//
// 关闭后返回 ExportFailure，空批次直接成功。send 的 panic 被恢复并视为永久失败。
func (b *Base) Export(ctx context.Context, spans []xsdk.SpanData, send SendFunc) xsdk.ExportResult {
	if b.stopped.Load() {
		return xsdk.ExportFailure
	}
	if len(spans) == 0 {
		return xsdk.ExportSuccess
	}
	if send == nil {
		return xsdk.ExportFailure
	}
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	start := b.opts.Clock.Now()
	err := b.safeSend(ctx, spans, send)
	elapsed := b.opts.Clock.Since(start)
	result := xresilient.ResultFromError(err)
	n := len(spans)

	b.stats.batches.Add(1)
	switch result {
	case xsdk.ExportSuccess:
		b.stats.exported.Add(int64(n))
	case xsdk.ExportFailureRetryable:
		b.stats.retryable.Add(int64(n))
		b.logger.Warn(ctx, "export failed, retryable", xlog.Err(err), xlog.Count(int64(n)))
	default:
		b.stats.failed.Add(int64(n))
		b.opts.Metrics.SpansDropped(ctx, b.name, int64(n))
		b.logger.Warn(ctx, "export failed, dropping spans", xlog.Err(err), xlog.Count(int64(n)))
	}
	b.opts.Metrics.Exported(ctx, b.name, result.String(), n, elapsed)

	if b.slow.observe(ctx, SlowExport{Exporter: b.name, Spans: n, Duration: elapsed, Result: result.String()}) {
		b.stats.slow.Add(1)
	}
	return result
}

func (b *Base) safeSend(ctx context.Context, spans []xsdk.SpanData, send SendFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Stack(ctx, "send panicked", xlog.Err(fmt.Errorf("%v", r)))
			err = xresilient.NewPermanentError(fmt.Errorf("xbackend: send panicked: %v", r))
		}
	}()
	return send(ctx, spans)
}

// Ping 在 HealthTimeout 内执行 ping 并计数。
func (b *Base) Ping(ctx context.Context, ping func(ctx context.Context) error) error {
	if ping == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.opts.HealthTimeout)
	defer cancel()
	b.stats.pings.Add(1)
	if err := ping(ctx); err != nil {
		b.stats.pingErrors.Add(1)
		return fmt.Errorf("%s: ping: %w", b.name, err)
	}
	return nil
}

// Shutdown 标记关闭、停止慢导出钩子并执行 closeFn，幂等，错误只在首次返回。
func (b *Base) Shutdown(ctx context.Context, closeFn func(ctx context.Context) error) error {
	first := false
	b.shutdownOnce.Do(func() {
		first = true
		b.stopped.Store(true)
		var errs []error
		if closeFn != nil {
			errs = append(errs, closeFn(ctx))
		}
		errs = append(errs, b.slow.close(ctx))
		b.shutdownErr = errors.Join(errs...)
	})
	if !first {
		return nil
	}
	return b.shutdownErr
}
