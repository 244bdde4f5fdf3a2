package xscope

import "context"

type ctxKey struct{ key Key }

// ContextManager 基于 context.Context 的管理器。
//
// 值只沿 ctx 派生链可见，以 context.Background() 新起的 goroutine 看不到。
// Scope.Close 为空操作：丢弃派生 ctx 即结束作用域。
type ContextManager struct{}

// NewContextManager 创建 ContextManager。
func NewContextManager() *ContextManager {
	return &ContextManager{}
}

// Value 实现 Manager。
func (*ContextManager) Value(ctx context.Context, key Key) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(ctxKey{key})
}

// WithValue 实现 Manager。
func (*ContextManager) WithValue(ctx context.Context, key Key, value any) (context.Context, Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{key}, value), noopScope{}
}

// Name 实现 Manager。
func (*ContextManager) Name() string { return NameContext }

var _ Manager = (*ContextManager)(nil)
