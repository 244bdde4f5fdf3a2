// Package export 提供 span 的异步导出管线。
//
//   - xworker: 周期性读取批次并交给导出器，间隔随结果自适应
//   - xpersist: 先落盘再导出的 SpanExporter 装饰器
package export
