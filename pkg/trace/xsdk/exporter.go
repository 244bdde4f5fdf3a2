package xsdk

import (
	"context"
	"errors"
	"sync"
)

// ExportResult 导出结果。数值越大越严重，MultiSpanExporter 取最大值。
type ExportResult int

const (
	// ExportSuccess 成功
	ExportSuccess ExportResult = iota
	// ExportFailureRetryable 失败，稍后重试可能成功（网络抖动、限流）
	ExportFailureRetryable
	// ExportFailure 失败且重试无意义（编码错误、配置错误）
	ExportFailure
)

// String 返回结果名
func (r ExportResult) String() string {
	switch r {
	case ExportSuccess:
		return "success"
	case ExportFailureRetryable:
		return "failure_retryable"
	default:
		return "failure"
	}
}

// Merge 合并两个结果：任一终止失败即失败，否则任一可重试即可重试。
func (r ExportResult) Merge(other ExportResult) ExportResult {
	return max(r, other)
}

// SpanExporter 把 SpanData 交给后端。
//
// Export 由处理器串行调用，不会并发；实现无需自行加锁，但 Shutdown 可能与 Export 并发。
type SpanExporter interface {
	// Export 导出一批 span
	Export(ctx context.Context, spans []SpanData) ExportResult

	// Flush 刷新导出器内部缓冲
	Flush(ctx context.Context) ExportResult

	// Shutdown 释放资源，之后的 Export 应返回 ExportFailure
	Shutdown(ctx context.Context) error
}

// =============================================================================
// MultiSpanExporter
// =============================================================================

type multiSpanExporter struct {
	exporters []SpanExporter
}

// MultiSpanExporter 把每次调用转发给全部子导出器，nil 被忽略。
func MultiSpanExporter(exporters ...SpanExporter) SpanExporter {
	list := make([]SpanExporter, 0, len(exporters))
	for _, e := range exporters {
		if e != nil {
			list = append(list, e)
		}
	}
	return &multiSpanExporter{exporters: list}
}

func (m *multiSpanExporter) Export(ctx context.Context, spans []SpanData) ExportResult {
	result := ExportSuccess
	for _, e := range m.exporters {
		result = result.Merge(e.Export(ctx, spans))
	}
	return result
}

func (m *multiSpanExporter) Flush(ctx context.Context) ExportResult {
	result := ExportSuccess
	for _, e := range m.exporters {
		result = result.Merge(e.Flush(ctx))
	}
	return result
}

func (m *multiSpanExporter) Shutdown(ctx context.Context) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// InMemoryExporter
// =============================================================================

// InMemoryExporter 把 span 保存在内存中，用于测试和调试。
type InMemoryExporter struct {
	mu       sync.Mutex
	spans    []SpanData
	stopped  bool
	result   ExportResult
	exports  int
	flushes  int
	shutdown int
}

// NewInMemoryExporter 创建 InMemoryExporter。
func NewInMemoryExporter() *InMemoryExporter {
	return &InMemoryExporter{}
}

// SetResult 设置后续 Export 的返回值；非 Success 时不保存 span。
func (e *InMemoryExporter) SetResult(r ExportResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = r
}

// Export 实现 SpanExporter。
func (e *InMemoryExporter) Export(_ context.Context, spans []SpanData) ExportResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ExportFailure
	}
	e.exports++
	if e.result != ExportSuccess {
		return e.result
	}
	e.spans = append(e.spans, spans...)
	return ExportSuccess
}

// Flush 实现 SpanExporter。
func (e *InMemoryExporter) Flush(context.Context) ExportResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
	if e.stopped {
		return ExportFailure
	}
	return ExportSuccess
}

// Shutdown 实现 SpanExporter。
func (e *InMemoryExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.shutdown++
	return nil
}

// Spans 返回已导出 span 的副本。
func (e *InMemoryExporter) Spans() []SpanData {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SpanData, len(e.spans))
	copy(out, e.spans)
	return out
}

// Reset 清空已导出 span 并恢复可用状态。
func (e *InMemoryExporter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = nil
	e.stopped = false
	e.result = ExportSuccess
}

// ExportCalls 返回 Export 被调用的次数（不含 Shutdown 之后）。
func (e *InMemoryExporter) ExportCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}

// FlushCalls 返回 Flush 被调用的次数。
func (e *InMemoryExporter) FlushCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushes
}

// ShutdownCalls 返回 Shutdown 被调用的次数。
func (e *InMemoryExporter) ShutdownCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown
}
