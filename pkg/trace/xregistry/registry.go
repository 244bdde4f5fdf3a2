package xregistry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xbaggage"
	"github.com/omeyang/xtel/pkg/trace/xpropagation"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

type options struct {
	provider        *xsdk.TracerProvider
	providerOptions []xsdk.Option
	propagator      xpropagation.TextMapPropagator
	baggage         *xpropagation.BaggagePropagator
	manager         xscope.Manager
	managerName     string
	logger          xlog.Logger
}

// Option Registry 选项
type Option func(*options)

// WithTracerProvider 使用已创建的 TracerProvider，其 ContextManager 即 Registry 的管理器。
func WithTracerProvider(tp *xsdk.TracerProvider) Option {
	return func(o *options) { o.provider = tp }
}

// WithProviderOptions 由 Registry 创建 TracerProvider 时附加的选项。
func WithProviderOptions(opts ...xsdk.Option) Option {
	return func(o *options) { o.providerOptions = append(o.providerOptions, opts...) }
}

// WithPropagator 设置 SpanContext 传播器，默认 TraceContext。
func WithPropagator(p xpropagation.TextMapPropagator) Option {
	return func(o *options) { o.propagator = p }
}

// WithBaggagePropagator 设置 baggage 传播器，nil 表示不传播 baggage。
func WithBaggagePropagator(p *xpropagation.BaggagePropagator) Option {
	return func(o *options) { o.baggage = p }
}

// WithContextManager 设置活跃 span 与 baggage 的存取策略。
func WithContextManager(m xscope.Manager) Option {
	return func(o *options) { o.manager = m }
}

// WithContextManagerName 按名称选择策略："context" 或 "stack"。
func WithContextManagerName(name string) Option {
	return func(o *options) { o.managerName = name }
}

// WithLogger 设置日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Registry 聚合追踪组件。创建后只读，可并发使用。
type Registry struct {
	provider   *xsdk.TracerProvider
	propagator xpropagation.TextMapPropagator
	baggage    *xpropagation.BaggagePropagator
	manager    xscope.Manager
	logger     xlog.Logger
}

// New 创建 Registry。
func New(opts ...Option) (*Registry, error) {
	o := options{
		propagator: xpropagation.TraceContext{},
		baggage:    &xpropagation.BaggagePropagator{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.provider != nil {
		if err := checkProviderManager(o); err != nil {
			return nil, err
		}
	}
	if o.propagator == nil {
		o.propagator = xpropagation.TraceContext{}
	}

	manager := o.manager
	if manager == nil && o.managerName != "" && o.provider == nil {
		m, err := xscope.ByName(o.managerName)
		if err != nil {
			return nil, fmt.Errorf("xregistry: %w", err)
		}
		manager = m
	}

	logger := xlog.OrDefault(o.logger)
	provider := o.provider
	if provider == nil {
		popts := []xsdk.Option{xsdk.WithLogger(logger)}
		if manager != nil {
			popts = append(popts, xsdk.WithContextManager(manager))
		}
		provider = xsdk.NewTracerProvider(append(popts, o.providerOptions...)...)
	}
	if manager == nil {
		manager = provider.ContextManager()
	}

	r := &Registry{
		provider:   provider,
		propagator: o.propagator,
		baggage:    o.baggage,
		manager:    manager,
		logger:     logger.With(xlog.Component("registry")),
	}
	r.logger.Debug(context.Background(), "registry created", slog.String("context_manager", manager.Name()))
	return r, nil
}

// checkProviderManager 已有 provider 时，管理器必须就是 provider 使用的那一个，
// 否则 StartActive 写入的活跃 span 对 Registry 不可见。
func checkProviderManager(o options) error {
	if len(o.providerOptions) > 0 {
		return ErrProviderConflict
	}
	own := o.provider.ContextManager()
	if o.manager != nil && o.manager != own {
		return fmt.Errorf("%w: context manager differs from the provider's", ErrProviderConflict)
	}
	if o.manager == nil && o.managerName != "" {
		name := o.managerName
		if name != own.Name() {
			return fmt.Errorf("%w: context manager %q, provider uses %q", ErrProviderConflict, name, own.Name())
		}
	}
	return nil
}

// TracerProvider 返回 TracerProvider。
func (r *Registry) TracerProvider() *xsdk.TracerProvider { return r.provider }

// Tracer 是 TracerProvider().Tracer 的简写。
func (r *Registry) Tracer(name string, opts ...xsdk.TracerOption) *xsdk.Tracer {
	return r.provider.Tracer(name, opts...)
}

// Propagator 返回 SpanContext 传播器。
func (r *Registry) Propagator() xpropagation.TextMapPropagator { return r.propagator }

// BaggagePropagator 返回 baggage 传播器，可能为 nil。
func (r *Registry) BaggagePropagator() *xpropagation.BaggagePropagator { return r.baggage }

// ContextManager 返回活跃 span 与 baggage 的管理器。
func (r *Registry) ContextManager() xscope.Manager { return r.manager }

// =============================================================================
// 当前上下文
// =============================================================================

// CurrentSpan 返回活跃 span，不存在时为 nil。
func (r *Registry) CurrentSpan(ctx context.Context) *xsdk.Span {
	s, _ := r.manager.Value(ctx, xscope.SpanKey).(*xsdk.Span)
	return s
}

// CurrentBaggage 返回当前 baggage，不存在时返回 xbaggage.Empty()。
func (r *Registry) CurrentBaggage(ctx context.Context) *xbaggage.Baggage {
	return xpropagation.CurrentBaggage(ctx, r.manager)
}

// WithBaggage 把 b 设为当前 baggage，返回的 Scope 须关闭。
func (r *Registry) WithBaggage(ctx context.Context, b *xbaggage.Baggage) (context.Context, xscope.Scope) {
	return r.manager.WithValue(ctx, xscope.BaggageKey, b)
}

// Inject 把当前 SpanContext 与 baggage 写入载体。
func (r *Registry) Inject(ctx context.Context, setter xpropagation.Setter) {
	r.propagator.Inject(xpropagation.CurrentSpanContext(ctx, r.manager), setter)
	if r.baggage != nil {
		r.baggage.Inject(r.CurrentBaggage(ctx), setter)
	}
}

// Extract 从载体读取远端 SpanContext 与 baggage 放入 ctx。
// 返回的 Scope 须在处理结束时关闭。
func (r *Registry) Extract(ctx context.Context, getter xpropagation.Getter) (context.Context, xscope.Scope) {
	if sc, ok := r.propagator.Extract(getter); ok {
		ctx = xspanctx.ContextWithRemoteSpanContext(ctx, sc)
	}
	if r.baggage != nil {
		if b, ok := r.baggage.Extract(getter); ok {
			return r.WithBaggage(ctx, b)
		}
	}
	return ctx, noopScope{}
}

// PropagationOptions 返回与 Registry 一致的 HTTP/gRPC 边界选项。
func (r *Registry) PropagationOptions(tracer *xsdk.Tracer) []xpropagation.Option {
	opts := []xpropagation.Option{
		xpropagation.WithPropagator(r.propagator),
		xpropagation.WithContextManager(r.manager),
		xpropagation.WithLogger(r.logger),
	}
	if r.baggage == nil {
		opts = append(opts, xpropagation.WithoutBaggage())
	}
	if tracer != nil {
		opts = append(opts, xpropagation.WithTracer(tracer))
	}
	return opts
}

// =============================================================================
// 生命周期
// =============================================================================

// ForceFlush 刷新 TracerProvider。
func (r *Registry) ForceFlush(ctx context.Context) error {
	return r.provider.ForceFlush(ctx)
}

// Shutdown 关闭 TracerProvider，幂等。
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

type noopScope struct{}

func (noopScope) Close() {}
