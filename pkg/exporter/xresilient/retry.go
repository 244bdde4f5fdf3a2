package xresilient

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// RetryExporter 在同一次 Export 调用内重试 ExportFailureRetryable。
//
// ExportFailure 与 ctx 结束不重试。用尽次数后返回最后一次的结果，
// 由上游（Batch 处理器或持久化 worker）决定是否保留数据。
type RetryExporter struct {
	next xsdk.SpanExporter
	cfg  config
}

var _ xsdk.SpanExporter = (*RetryExporter)(nil)

// NewRetryExporter 包装 next。
func NewRetryExporter(next xsdk.SpanExporter, opts ...Option) (*RetryExporter, error) {
	if next == nil {
		return nil, ErrNilExporter
	}
	return &RetryExporter{next: next, cfg: newConfig("retry_exporter", opts)}, nil
}

// Export 实现 xsdk.SpanExporter。
func (e *RetryExporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	// ctx 在首次尝试前结束时保持可重试
	last := xsdk.ExportFailureRetryable
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(e.cfg.maxAttempts)),
		retry.RetryIf(IsRetryable),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return e.cfg.backoff.NextDelay(toInt(n) + 1)
		}),
		retry.WithTimer(e.cfg.clock),
		retry.OnRetry(func(n uint, err error) {
			e.cfg.logger.Debug(ctx, "retry export", xlog.Err(err), xlog.Count(int64(len(spans))))
			if e.cfg.onRetry != nil {
				e.cfg.onRetry(toInt(n)+1, err)
			}
		}),
		retry.LastErrorOnly(true),
	).Do(func() error {
		last = e.next.Export(ctx, spans)
		return ErrorFromResult(last)
	})
	if err != nil {
		e.cfg.logger.Debug(ctx, "export gave up", xlog.Err(err), xlog.Result(last.String()))
	}
	return last
}

// Flush 转发给被装饰的导出器。
func (e *RetryExporter) Flush(ctx context.Context) xsdk.ExportResult {
	return e.next.Flush(ctx)
}

// Shutdown 转发给被装饰的导出器。
func (e *RetryExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}

func toInt(n uint) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}
