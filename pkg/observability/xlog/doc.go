// Package xlog 基于 log/slog 的结构化日志，SDK 内部的日志出口。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelDebug).
//		SetFormat("json").
//		SetService("checkout").
//		SetRotation("/var/log/xtel/sdk.log").
//		Build()
//	defer cleanup()
//
// Builder 采用 first-error-wins：第一个配置错误在 Build 时返回。
//
// # 追踪字段注入
//
// EnrichHandler 默认启用，从 ctx 读取 xspanctx.FromContext 的结果，
// 有效时注入 trace_id、span_id、trace_flags。对启用 enrich 的 logger
// 调用 WithGroup 后，这些字段会落在分组内。
//
// # 全局 Logger
//
// [Default] 惰性创建（stderr、Warn、text），[SetDefault] 替换，
// [ResetDefault] 仅用于测试。SDK 组件通过 [OrDefault] 取得兜底 Logger，
// 测试中可注入 [Discard]。
package xlog
