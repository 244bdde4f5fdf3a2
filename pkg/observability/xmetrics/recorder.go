package xmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xtel"

	metricSpansStarted   = "xtel.spans.started"
	metricSpansEnded     = "xtel.spans.ended"
	metricSpansDropped   = "xtel.spans.dropped"
	metricExportSpans    = "xtel.export.spans"
	metricExportDuration = "xtel.export.duration"
	metricWorkerDelay    = "xtel.worker.delay"
	metricWorkerBatches  = "xtel.worker.batches"
)

// 属性 key
const (
	AttrSampled   = "sampled"
	AttrComponent = "component"
	AttrResult    = "result"
	AttrOutcome   = "outcome"
)

// Outcome worker 一个周期的结果
const (
	OutcomeExported = "exported"
	OutcomeRetry    = "retry"
	OutcomeEmpty    = "empty"
	OutcomeBlocked  = "blocked"
)

type config struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
}

// Option Recorder 配置选项
type Option func(*config)

// WithInstrumentationName 设置 meter 名称
func WithInstrumentationName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel.GetMeterProvider()
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *config) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// Recorder SDK 自监控指标记录器，并发安全。
type Recorder struct {
	started        metric.Int64Counter
	ended          metric.Int64Counter
	dropped        metric.Int64Counter
	exportSpans    metric.Int64Counter
	exportDuration metric.Float64Histogram
	workerDelay    metric.Float64Gauge
	workerBatches  metric.Int64Counter
}

// New 创建 Recorder。
func New(opts ...Option) (*Recorder, error) {
	cfg := &config{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	r := &Recorder{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&r.started, metricSpansStarted, "spans started"},
		{&r.ended, metricSpansEnded, "spans ended"},
		{&r.dropped, metricSpansDropped, "spans dropped before export"},
		{&r.exportSpans, metricExportSpans, "spans handed to exporters"},
		{&r.workerBatches, metricWorkerBatches, "batches processed by export workers"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, c.name, err)
		}
	}

	r.exportDuration, err = meter.Float64Histogram(
		metricExportDuration,
		metric.WithDescription("export call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricExportDuration, err)
	}

	r.workerDelay, err = meter.Float64Gauge(
		metricWorkerDelay,
		metric.WithDescription("current export worker delay"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricWorkerDelay, err)
	}
	return r, nil
}

// SpanStarted 记录一个 recording span 的开始。
func (r *Recorder) SpanStarted(ctx context.Context, sampled bool) {
	if r == nil {
		return
	}
	r.started.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrSampled, sampled)))
}

// SpanEnded 记录一个 recording span 的结束。
func (r *Recorder) SpanEnded(ctx context.Context, sampled bool) {
	if r == nil {
		return
	}
	r.ended.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrSampled, sampled)))
}

// SpansDropped 记录被丢弃的 span 数量。
func (r *Recorder) SpansDropped(ctx context.Context, component string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.Add(ctx, n, metric.WithAttributes(attribute.String(AttrComponent, component)))
}

// Exported 记录一次导出调用。
func (r *Recorder) Exported(ctx context.Context, component, result string, n int, d time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrComponent, component),
		attribute.String(AttrResult, result),
	)
	r.exportSpans.Add(ctx, int64(n), attrs)
	r.exportDuration.Record(ctx, d.Seconds(), attrs)
}

// WorkerDelay 记录 worker 当前的等待间隔。
func (r *Recorder) WorkerDelay(ctx context.Context, d time.Duration) {
	if r == nil {
		return
	}
	r.workerDelay.Record(ctx, d.Seconds())
}

// WorkerBatch 记录 worker 一个周期的结果。
func (r *Recorder) WorkerBatch(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.workerBatches.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}
