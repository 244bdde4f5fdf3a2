// Package xscope 提供"当前活跃值"（活跃 span、当前 baggage）的存取策略。
//
// 两种实现：
//
//   - NewContextManager：值挂在 context.Context 上，随派生 context 传递，
//     这是 Go 的惯用方式，也是默认策略。
//   - NewStackManager：值压入按 goroutine 划分的栈，同一 goroutine 内
//     无需传递 ctx 即可取到；跨 goroutine 需要显式传递 SpanContext。
//
// WithValue 返回派生 ctx 和 Scope，调用方必须在作用域结束时 Close：
//
//	ctx, scope := mgr.WithValue(ctx, xscope.SpanKey, span)
//	defer scope.Close()
package xscope
