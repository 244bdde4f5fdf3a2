package xsdk

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xsampling"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// InstrumentationScope 产生 span 的插桩库标识。
type InstrumentationScope struct {
	Name      string
	Version   string
	SchemaURL string
}

// Tracer 创建 span 的入口，由 TracerProvider.Tracer 获得。
type Tracer struct {
	provider *TracerProvider
	scope    InstrumentationScope
}

// Scope 返回插桩库标识。
func (t *Tracer) Scope() InstrumentationScope { return t.scope }

// Provider 返回所属 TracerProvider。
func (t *Tracer) Provider() *TracerProvider { return t.provider }

// SpanBuilder 开始构建一个 span，名称为空时使用 DefaultSpanName。
func (t *Tracer) SpanBuilder(name string) *SpanBuilder {
	if name == "" {
		name = DefaultSpanName
	}
	return &SpanBuilder{tracer: t, name: name}
}

// SpanBuilder span 的构建参数。不可并发使用。
type SpanBuilder struct {
	tracer    *Tracer
	name      string
	kind      xspanctx.SpanKind
	parent    xspanctx.SpanContext
	parentSet bool
	noParent  bool
	attrs     []attribute.KeyValue
	links     []xspanctx.Link
	startTime time.Time
}

// SetParent 显式指定父级，覆盖之前的 SetNoParent。
func (b *SpanBuilder) SetParent(sc xspanctx.SpanContext) *SpanBuilder {
	b.parent = sc
	b.parentSet = true
	b.noParent = false
	return b
}

// SetNoParent 强制作为根 span，忽略活跃 span 和 ctx 中的远端父级。
func (b *SpanBuilder) SetNoParent() *SpanBuilder {
	b.parent = xspanctx.SpanContext{}
	b.parentSet = false
	b.noParent = true
	return b
}

// SetSpanKind 设置类型，默认 Internal。
func (b *SpanBuilder) SetSpanKind(kind xspanctx.SpanKind) *SpanBuilder {
	b.kind = kind
	return b
}

// SetAttributes 追加初始属性，采样器可见。
func (b *SpanBuilder) SetAttributes(kv ...attribute.KeyValue) *SpanBuilder {
	b.attrs = append(b.attrs, kv...)
	return b
}

// AddLink 追加链接，无效 SpanContext 被忽略。
func (b *SpanBuilder) AddLink(sc xspanctx.SpanContext, attrs ...attribute.KeyValue) *SpanBuilder {
	if sc.IsValid() {
		b.links = append(b.links, xspanctx.Link{SpanContext: sc, Attributes: attrs})
	}
	return b
}

// SetStartTime 指定开始时间，默认取 provider 时钟。
func (b *SpanBuilder) SetStartTime(t time.Time) *SpanBuilder {
	b.startTime = t
	return b
}

// resolveParent 顺序：显式父级、无父级、活跃 span、ctx 中的远端 SpanContext。
func (b *SpanBuilder) resolveParent(ctx context.Context) xspanctx.SpanContext {
	switch {
	case b.parentSet:
		return b.parent
	case b.noParent:
		return xspanctx.SpanContext{}
	}
	if active := b.tracer.provider.ActiveSpan(ctx); active != nil {
		return active.SpanContext()
	}
	return xspanctx.FromContext(ctx)
}

// Start 创建并开始 span。
//
// 流程：解析父级、按当前 TraceConfig 采样、分配 ID、构造 span，
// recording span 依注册顺序调用处理器的 OnStart。
func (b *SpanBuilder) Start(ctx context.Context) *Span {
	if ctx == nil {
		ctx = context.Background()
	}
	p := b.tracer.provider
	parent := b.resolveParent(ctx)
	cfg := p.ActiveTraceConfig()
	limits := cfg.SpanLimits()

	traceID := parent.TraceID()
	if !parent.IsValid() {
		parent = xspanctx.SpanContext{}
		traceID = p.idGenerator.NewTraceID()
	}
	spanID := p.idGenerator.NewSpanID()

	res := cfg.Sampler().ShouldSample(xsampling.Parameters{
		ParentContext: parent,
		TraceID:       traceID,
		Name:          b.name,
		Kind:          b.kind,
		Attributes:    b.attrs,
		Links:         b.links,
	})

	var flags xspanctx.TraceFlags
	sc := xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags.WithSampled(res.Decision.IsSampled()),
		TraceState: res.TraceState,
	})

	s := &Span{
		sc:       sc,
		parent:   parent,
		kind:     b.kind,
		name:     b.name,
		resource: p.resource,
		scope:    b.tracer.scope,
		provider: p,
		clock:    p.clock,
		limits:   limits,
	}
	if !res.Decision.IsRecording() || p.isShutdown.Load() {
		return s
	}

	s.recording = true
	s.startTime = b.startTime
	if s.startTime.IsZero() {
		s.startTime = p.clock.Now()
	}
	s.attrs = newAttributeMap(limits.AttributeCountLimit, limits.AttributeValueLengthLimit)
	for _, kv := range b.attrs {
		s.attrs.set(kv)
	}
	for _, kv := range res.Attributes {
		s.attrs.set(kv)
	}
	for _, l := range b.links {
		s.appendLink(l)
	}

	p.metrics.SpanStarted(ctx, sc.IsSampled())
	for _, sp := range p.spanProcessors() {
		sp.OnStart(parent, s)
	}
	return s
}

// StartActive 开始 span 并设为活跃，返回的 ctx 同时携带 SpanContext（供日志注入）。
// 调用方须在作用域结束时 Close 返回的 Scope。
func (b *SpanBuilder) StartActive(ctx context.Context) (context.Context, *Span, xscope.Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := b.Start(ctx)
	ctx, scope := b.tracer.provider.ctxManager.WithValue(ctx, xscope.SpanKey, s)
	return xspanctx.ContextWithSpanContext(ctx, s.SpanContext()), s, scope
}
