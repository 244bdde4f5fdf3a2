package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// EnrichHandler 从 context 中提取 SpanContext 并注入 trace_id、span_id、trace_flags。
//
// SpanContext 由 xspanctx.ContextWithSpanContext 写入；xsdk 的 StartActive
// 和 xpropagation 的中间件都会写入。ctx 中没有有效 SpanContext 时原样透传。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler。
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 根据 slog 约定，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if sc := xspanctx.FromContext(ctx); sc.IsValid() {
			r = r.Clone()
			r.AddAttrs(
				slog.String(KeyTraceID, sc.TraceID().String()),
				slog.String(KeySpanID, sc.SpanID().String()),
				slog.String(KeyTraceFlags, sc.TraceFlags().String()),
			)
		}
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler。分组后注入的 trace 字段也会位于该分组下。
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
