// Package xotelexp 连接 OpenTelemetry Go SDK 的导出器生态。
//
// SpanData 经 tracetest.SpanStub 转为 sdktrace.ReadOnlySpan 后交给任意
// OTel SpanExporter，因此 OTLP/gRPC、OTLP/HTTP、stdouttrace 等可直接复用。
// 另提供 SpanContext 与 Resource 的双向转换，便于与使用 OTel API 的代码互通。
package xotelexp
