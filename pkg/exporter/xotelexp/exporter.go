package xotelexp

import (
	"context"
	"errors"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "otel_exporter"

// ErrNilExporter OTel 导出器为 nil
var ErrNilExporter = errors.New("xotelexp: nil otel exporter")

// Exporter 把 span 转交给任意 OTel SpanExporter（OTLP、stdouttrace、Zipkin 等）。
type Exporter struct {
	base *xbackend.Base
	next sdktrace.SpanExporter
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 包装 OTel 导出器，Shutdown 时一并关闭。
func New(next sdktrace.SpanExporter, opts ...xbackend.Option) (*Exporter, error) {
	if next == nil {
		return nil, ErrNilExporter
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, next: next}, nil
}

// Export 实现 xsdk.SpanExporter。OTel 导出器的错误均视为可重试。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, func(ctx context.Context, spans []xsdk.SpanData) error {
		return e.next.ExportSpans(ctx, ToReadOnlySpans(spans))
	})
}

// Flush OTel SpanExporter 没有刷新语义，直接成功。
func (e *Exporter) Flush(context.Context) xsdk.ExportResult {
	return xsdk.ExportSuccess
}

// Shutdown 关闭 OTel 导出器，幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, e.next.Shutdown)
}

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
