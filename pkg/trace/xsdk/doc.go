// Package xsdk 是链路追踪的核心实现：TracerProvider、Tracer、Span 以及处理器与导出器管线。
//
// # 数据流
//
//	TracerProvider ── Tracer ── SpanBuilder.Start ── Span
//	                                                  │ End
//	                                                  ▼
//	                          SpanProcessor.OnEnd(SpanData)
//	                                                  │
//	                  Simple: 同步导出   Batch: 环形队列 + 后台批量导出
//	                                                  ▼
//	                                         SpanExporter.Export
//
// # 采样
//
// 每次 Start 时按 TracerProvider 当前的 TraceConfig 调用采样器：
// Drop 得到只有 SpanContext 的非 recording span；RecordOnly 记录但不设置采样标志；
// RecordAndSample 记录并设置采样标志。TraceConfig 可以通过
// UpdateActiveTraceConfig 在运行时原子替换，已开始的 span 不受影响。
//
// # 活跃 span
//
// StartActive 通过 xscope.Manager 把 span 设为活跃，后续未显式指定父级的
// SpanBuilder 以活跃 span 为父级。默认使用基于 context 的管理器。
//
// # 生命周期
//
// Shutdown 只执行一次：依次关闭所有处理器（处理器负责关闭自己的导出器），
// 之后创建的 span 都是非 recording 的。ForceFlush 刷新全部处理器。
package xsdk
