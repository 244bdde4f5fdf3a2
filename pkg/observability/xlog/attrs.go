package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	// KeyError 错误
	KeyError = "error"
	// KeyStack 堆栈
	KeyStack = "stack"
	// KeyDuration 耗时
	KeyDuration = "duration"
	// KeyCount 计数
	KeyCount = "count"
	// KeyComponent 组件名，如 batch_processor、export_worker
	KeyComponent = "component"
	// KeyExporter 导出器名称
	KeyExporter = "exporter"
	// KeyResult 导出结果
	KeyResult = "result"
	// KeySpanName span 名称
	KeySpanName = "span_name"

	// KeyTraceID trace ID，由 EnrichHandler 注入
	KeyTraceID = "trace_id"
	// KeySpanID span ID，由 EnrichHandler 注入
	KeySpanID = "span_id"
	// KeyTraceFlags trace flags，由 EnrichHandler 注入
	KeyTraceFlags = "trace_flags"
	// KeyService 服务名，Builder.SetService 设置的固定属性
	KeyService = "service"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Exporter 创建导出器名称属性
func Exporter(name string) slog.Attr {
	return slog.String(KeyExporter, name)
}

// Result 创建导出结果属性
func Result(r string) slog.Attr {
	return slog.String(KeyResult, r)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// SpanName 创建 span 名称属性
func SpanName(name string) slog.Attr {
	return slog.String(KeySpanName, name)
}
