package xpropagation

import (
	"context"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xbaggage"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

type config struct {
	propagator TextMapPropagator
	baggage    *BaggagePropagator
	tracer     *xsdk.Tracer
	manager    xscope.Manager
	logger     xlog.Logger
}

// Option HTTP 中间件与 gRPC 拦截器的选项
type Option func(*config)

// WithPropagator 设置 SpanContext 传播器，默认 TraceContext{}。
func WithPropagator(p TextMapPropagator) Option {
	return func(c *config) {
		if p != nil {
			c.propagator = p
		}
	}
}

// WithoutBaggage 不传播 baggage。
func WithoutBaggage() Option {
	return func(c *config) { c.baggage = nil }
}

// WithTracer 服务端为每个请求创建 Server span，并使用 tracer 所属 provider 的 ContextManager。
func WithTracer(t *xsdk.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithContextManager 设置 baggage 与活跃 span 的存取方式，优先于 WithTracer 推导出的管理器。
func WithContextManager(m xscope.Manager) Option {
	return func(c *config) { c.manager = m }
}

// WithLogger 设置日志。
func WithLogger(l xlog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) *config {
	c := &config{
		propagator: TraceContext{},
		baggage:    &BaggagePropagator{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.manager == nil {
		if c.tracer != nil {
			c.manager = c.tracer.Provider().ContextManager()
		} else {
			c.manager = xscope.NewContextManager()
		}
	}
	c.logger = xlog.OrDefault(c.logger).With(xlog.Component("propagation"))
	return c
}

// =============================================================================
// 提取与注入
// =============================================================================

// extract 把远端 SpanContext 与 baggage 放入 ctx，返回的 Scope 须在请求结束时关闭。
func (c *config) extract(ctx context.Context, getter Getter) (context.Context, xscope.Scope) {
	if sc, ok := c.propagator.Extract(getter); ok {
		ctx = xspanctx.ContextWithRemoteSpanContext(ctx, sc)
	} else if v := getter.Get(HeaderTraceparent); len(v) > 0 {
		c.logger.Debug(ctx, "invalid traceparent discarded")
	}
	if c.baggage == nil {
		return ctx, nopScope{}
	}
	b, ok := c.baggage.Extract(getter)
	if !ok {
		return ctx, nopScope{}
	}
	return c.manager.WithValue(ctx, xscope.BaggageKey, b)
}

func (c *config) inject(ctx context.Context, setter Setter) {
	c.propagator.Inject(CurrentSpanContext(ctx, c.manager), setter)
	if c.baggage != nil {
		c.baggage.Inject(CurrentBaggage(ctx, c.manager), setter)
	}
}

// startServerSpan 配置了 tracer 时开始 Server span 并设为活跃。
func (c *config) startServerSpan(ctx context.Context, name string) (context.Context, *xsdk.Span, xscope.Scope) {
	if c.tracer == nil {
		return ctx, nil, nopScope{}
	}
	return c.tracer.SpanBuilder(name).SetSpanKind(xspanctx.SpanKindServer).StartActive(ctx)
}

// CurrentSpanContext 返回活跃 span 的 SpanContext，没有活跃 span 时回退到 ctx 中的远端 SpanContext。
func CurrentSpanContext(ctx context.Context, m xscope.Manager) xspanctx.SpanContext {
	if m != nil {
		if s, ok := m.Value(ctx, xscope.SpanKey).(*xsdk.Span); ok && s != nil {
			return s.SpanContext()
		}
	}
	return xspanctx.FromContext(ctx)
}

// CurrentBaggage 返回当前 baggage，不存在时返回 xbaggage.Empty()。
func CurrentBaggage(ctx context.Context, m xscope.Manager) *xbaggage.Baggage {
	if m != nil {
		if b, ok := m.Value(ctx, xscope.BaggageKey).(*xbaggage.Baggage); ok && b != nil {
			return b
		}
	}
	return xbaggage.Empty()
}

type nopScope struct{}

func (nopScope) Close() {}
