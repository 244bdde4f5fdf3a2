// Package xresilient 为 xsdk.SpanExporter 提供重试、熔断与限流装饰器。
//
// 错误分类沿用 PermanentError/TemporaryError：
//   - ExportFailureRetryable ⇔ 可重试错误（网络、限流、超时）
//   - ExportFailure ⇔ 永久错误（编码、鉴权、配置）
//
// 后端导出器用 ResultFromError 把客户端错误映射为 ExportResult。
//
// 典型组合（由外向内）：
//
//	breaker, _ := xresilient.NewBreakerExporter(kafkaExporter)
//	retrying, _ := xresilient.NewRetryExporter(breaker, xresilient.WithMaxAttempts(3))
//	persisted, _ := xpersist.NewSpanExporterDecorator(retrying, dir,
//	    xpersist.WithExportCondition(breaker.Ready))
//
// 多个实例共享下游配额时，在最内层加 RateLimitExporter：
//
//	limiter, _ := xresilient.NewRedisLimiter(rdb, "xtel:kafka", xresilient.PerSecond(5000))
//	limited, _ := xresilient.NewRateLimitExporter(kafkaExporter, limiter)
package xresilient
