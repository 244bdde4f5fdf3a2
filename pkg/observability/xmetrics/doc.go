// Package xmetrics 记录 SDK 自身的运行指标，基于 OpenTelemetry metric API。
//
// # 指标
//
//   - xtel.spans.started / xtel.spans.ended：span 生命周期计数，属性 sampled
//   - xtel.spans.dropped：队列溢出或写盘失败丢弃的 span，属性 component
//   - xtel.export.spans：导出的 span 数，属性 component / result
//   - xtel.export.duration：单次导出耗时（秒），属性 component / result
//   - xtel.worker.delay：导出 worker 当前等待间隔（秒）
//   - xtel.worker.batches：worker 处理的批次，属性 outcome
//
// # 使用
//
//	rec, err := xmetrics.New(xmetrics.WithMeterProvider(mp))
//	provider := xsdk.NewTracerProvider(xsdk.WithMetrics(rec))
//
// nil *Recorder 的所有方法都是空操作，组件无需判空。
package xmetrics
