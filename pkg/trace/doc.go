// Package trace 是追踪 SDK 的核心。
//
// 子包列表：
//   - xspanctx: TraceID/SpanID/TraceFlags/TraceState 与 SpanContext
//   - xsampling: 采样器
//   - xsdk: Span 状态机、TracerProvider、SpanProcessor 与 SpanExporter 契约
//   - xpropagation: W3C traceparent/baggage 传播及 HTTP/gRPC 接入
//   - xbaggage: 不可变 baggage
//   - xscope: 可插拔的上下文管理器
//   - xregistry: 进程级组件的显式持有者
//   - xshim: 外部 span 对象与 SpanContext 的弱关联表
package trace
