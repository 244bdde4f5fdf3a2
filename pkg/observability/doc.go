// Package observability 提供 SDK 自身的可观测性子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入当前 span 的 trace_id/span_id
//   - xmetrics: SDK 自监控指标（队列丢弃、导出结果、worker 间隔），基于 OTel metric
//   - xrotate: 日志文件轮转，供 xlog 与文件日志导出器使用
package observability
