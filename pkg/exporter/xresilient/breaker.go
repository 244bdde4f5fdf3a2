package xresilient

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// TripPolicy 闭合状态下判断是否打开熔断。
type TripPolicy interface {
	ReadyToTrip(counts gobreaker.Counts) bool
}

// TripPolicyFunc 函数适配器
type TripPolicyFunc func(counts gobreaker.Counts) bool

// ReadyToTrip 实现 TripPolicy。
func (f TripPolicyFunc) ReadyToTrip(counts gobreaker.Counts) bool { return f(counts) }

// ConsecutiveFailures 连续失败达到 n 次时打开。
func ConsecutiveFailures(n uint32) TripPolicy {
	n = max(n, 1)
	return TripPolicyFunc(func(c gobreaker.Counts) bool {
		return c.ConsecutiveFailures >= n
	})
}

// FailureRatio 请求数不少于 minRequests 且失败率不低于 ratio 时打开。
func FailureRatio(ratio float64, minRequests uint32) TripPolicy {
	ratio = min(max(ratio, 0), 1)
	return TripPolicyFunc(func(c gobreaker.Counts) bool {
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	})
}

// BreakerExporter 以熔断器保护下游。
//
// 只有 ExportFailureRetryable 计为失败：ExportFailure 来自数据本身，不反映下游健康度。
// 熔断打开期间 Export 不调用下游，直接返回 ExportFailureRetryable。
//
// Ready 可作为 xpersist.WithExportCondition 的条件，熔断期间持久化 worker 暂停读取文件。
type BreakerExporter struct {
	next xsdk.SpanExporter
	cb   *gobreaker.CircuitBreaker[xsdk.ExportResult]
	cfg  config
}

var _ xsdk.SpanExporter = (*BreakerExporter)(nil)

// NewBreakerExporter 包装 next。
func NewBreakerExporter(next xsdk.SpanExporter, opts ...Option) (*BreakerExporter, error) {
	if next == nil {
		return nil, ErrNilExporter
	}
	b := &BreakerExporter{next: next, cfg: newConfig("breaker_exporter", opts)}
	b.cb = gobreaker.NewCircuitBreaker[xsdk.ExportResult](gobreaker.Settings{
		Name:        b.cfg.name,
		MaxRequests: b.cfg.halfOpenRequests,
		Interval:    b.cfg.interval,
		Timeout:     b.cfg.openTimeout,
		ReadyToTrip: b.cfg.trip.ReadyToTrip,
		IsSuccessful: func(err error) bool {
			return !IsRetryable(err)
		},
		OnStateChange: b.stateChanged,
	})
	return b, nil
}

func (b *BreakerExporter) stateChanged(name string, from, to gobreaker.State) {
	b.cfg.logger.Warn(context.Background(), "breaker state changed",
		slog.String("from", from.String()), slog.String("to", to.String()))
	if b.cfg.onStateChange != nil {
		b.cfg.onStateChange(name, from, to)
	}
}

// Export 实现 xsdk.SpanExporter。
func (b *BreakerExporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	result, err := b.cb.Execute(func() (xsdk.ExportResult, error) {
		r := b.next.Export(ctx, spans)
		return r, ErrorFromResult(r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return xsdk.ExportFailureRetryable
	}
	return result
}

// Ready 熔断未打开时返回 true。
func (b *BreakerExporter) Ready() bool {
	return b.cb.State() != gobreaker.StateOpen
}

// State 当前熔断状态。
func (b *BreakerExporter) State() gobreaker.State { return b.cb.State() }

// Counts 当前计数。
func (b *BreakerExporter) Counts() gobreaker.Counts { return b.cb.Counts() }

// Flush 转发给被装饰的导出器。
func (b *BreakerExporter) Flush(ctx context.Context) xsdk.ExportResult {
	return b.next.Flush(ctx)
}

// Shutdown 转发给被装饰的导出器。
func (b *BreakerExporter) Shutdown(ctx context.Context) error {
	return b.next.Shutdown(ctx)
}
