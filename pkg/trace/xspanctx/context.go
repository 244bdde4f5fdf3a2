package xspanctx

import "context"

// contextKey 私有类型，避免与其他包的 context key 冲突。
type contextKey string

const keySpanContext = contextKey("xspanctx:span_context")

// ContextWithSpanContext 把 SpanContext 放入 context。
//
// ctx 为 nil 时以 context.Background() 为基础。
func ContextWithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keySpanContext, sc)
}

// ContextWithRemoteSpanContext 把 SpanContext 标记为 Remote 后放入 context。
// 用于传播中间件保存提取结果。
func ContextWithRemoteSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return ContextWithSpanContext(ctx, sc.WithRemote(true))
}

// FromContext 取出 context 中的 SpanContext，不存在时返回零值（IsValid 为 false）。
func FromContext(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(keySpanContext).(SpanContext)
	return sc
}
