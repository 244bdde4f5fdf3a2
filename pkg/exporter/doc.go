// Package exporter 提供 xsdk.SpanExporter 的实现与装饰器。
//
// 子包列表：
//   - xbackend: 后端导出器共用的超时、统计、慢导出钩子与关闭逻辑
//   - xresilient: 重试、熔断、限流装饰器与错误分类
//   - xspanjson: span 的 JSON 表示
//   - xlogexp: 写到 io.Writer、轮转文件或 xlog
//   - xotelexp: 转交 OpenTelemetry SpanExporter
//   - xredisexp, xkafkaexp, xpulsarexp, xchexp, xmongoexp: 各存储与消息后端
package exporter
