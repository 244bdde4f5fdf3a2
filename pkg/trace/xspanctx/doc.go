// Package xspanctx 定义链路追踪的不可变标识类型。
//
// # 核心类型
//
//   - [TraceID]: 16 字节 trace 标识，全零为无效哨兵值
//   - [SpanID]: 8 字节 span 标识，全零为无效哨兵值
//   - [TraceFlags]: 1 字节标志位，bit0 表示已采样
//   - [TraceState]: 有序的厂商键值列表，最多 32 项，最近设置的在前
//   - [SpanContext]: 以上字段加 Remote 标记组成的不可变值
//
// 所有类型均为值语义，可安全地在 goroutine 间传递。
//
// # 解析与格式化
//
// ParseTraceID / ParseSpanID 只接受小写十六进制（W3C Trace Context 要求），
// 长度或字符不合法时返回 [ErrInvalidFormat]，不会 panic。
// String() 始终输出小写十六进制。
//
// # Context 传递
//
// [ContextWithRemoteSpanContext] 用于传播中间件把提取到的远端 SpanContext
// 放入 context，SDK 创建 span 时会把它作为隐式父级。
package xspanctx
