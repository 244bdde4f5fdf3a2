package xsdk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// DefaultTracerName Tracer 名称为空时使用
const DefaultTracerName = "unknown"

type providerConfig struct {
	traceConfig TraceConfig
	processors  []SpanProcessor
	idGenerator xspanctx.IDGenerator
	resource    *Resource
	ctxManager  xscope.Manager
	clock       clockz.Clock
	logger      xlog.Logger
	metrics     *xmetrics.Recorder
}

// Option TracerProvider 配置选项
type Option func(*providerConfig)

// WithTraceConfig 设置初始 TraceConfig。
func WithTraceConfig(cfg TraceConfig) Option {
	return func(c *providerConfig) { c.traceConfig = cfg }
}

// WithSpanProcessor 追加处理器，按注册顺序调用。
func WithSpanProcessor(p SpanProcessor) Option {
	return func(c *providerConfig) {
		if p != nil {
			c.processors = append(c.processors, p)
		}
	}
}

// WithIDGenerator 设置 ID 生成器。
func WithIDGenerator(g xspanctx.IDGenerator) Option {
	return func(c *providerConfig) {
		if g != nil {
			c.idGenerator = g
		}
	}
}

// WithResource 设置资源，与默认资源合并（同名 key 以 r 为准）。
func WithResource(r *Resource) Option {
	return func(c *providerConfig) { c.resource = DefaultResource().Merge(r) }
}

// WithContextManager 设置活跃 span 的存取策略，默认 xscope.NewContextManager()。
func WithContextManager(m xscope.Manager) Option {
	return func(c *providerConfig) {
		if m != nil {
			c.ctxManager = m
		}
	}
}

// WithClock 设置时间源，测试中可注入 clockz.NewFakeClock()。
func WithClock(clock clockz.Clock) Option {
	return func(c *providerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger 设置 SDK 内部日志。
func WithLogger(l xlog.Logger) Option {
	return func(c *providerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics 设置自监控指标。
func WithMetrics(m *xmetrics.Recorder) Option {
	return func(c *providerConfig) { c.metrics = m }
}

// TracerProvider 持有 TraceConfig、处理器链、ID 生成器、资源和活跃 span 策略。
//
// 配置通过 atomic.Pointer 读写，处理器列表写时复制，span 创建路径上无锁。
type TracerProvider struct {
	config     atomic.Pointer[TraceConfig]
	processors atomic.Pointer[[]SpanProcessor]
	procMu     sync.Mutex

	idGenerator xspanctx.IDGenerator
	resource    *Resource
	ctxManager  xscope.Manager
	clock       clockz.Clock
	logger      xlog.Logger
	metrics     *xmetrics.Recorder

	tracersMu sync.Mutex
	tracers   map[InstrumentationScope]*Tracer

	isShutdown   atomic.Bool
	shutdownOnce sync.Once
}

// NewTracerProvider 创建 TracerProvider。
func NewTracerProvider(opts ...Option) *TracerProvider {
	cfg := providerConfig{
		traceConfig: DefaultTraceConfig(),
		idGenerator: xspanctx.NewRandomIDGenerator(),
		resource:    DefaultResource(),
		ctxManager:  xscope.NewContextManager(),
		clock:       clockz.RealClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	p := &TracerProvider{
		idGenerator: cfg.idGenerator,
		resource:    cfg.resource,
		ctxManager:  cfg.ctxManager,
		clock:       cfg.clock,
		logger:      xlog.OrDefault(cfg.logger).With(xlog.Component("tracer_provider")),
		metrics:     cfg.metrics,
		tracers:     make(map[InstrumentationScope]*Tracer),
	}
	tc := cfg.traceConfig
	p.config.Store(&tc)
	procs := append([]SpanProcessor(nil), cfg.processors...)
	p.processors.Store(&procs)
	return p
}

// ActiveTraceConfig 返回当前 TraceConfig。
func (p *TracerProvider) ActiveTraceConfig() TraceConfig {
	return *p.config.Load()
}

// UpdateActiveTraceConfig 替换 TraceConfig，对之后开始的 span 生效。
func (p *TracerProvider) UpdateActiveTraceConfig(cfg TraceConfig) {
	p.config.Store(&cfg)
}

// AddSpanProcessor 追加处理器。Shutdown 之后调用被忽略。
func (p *TracerProvider) AddSpanProcessor(sp SpanProcessor) {
	if sp == nil || p.isShutdown.Load() {
		return
	}
	p.procMu.Lock()
	defer p.procMu.Unlock()
	old := *p.processors.Load()
	next := make([]SpanProcessor, len(old), len(old)+1)
	copy(next, old)
	next = append(next, sp)
	p.processors.Store(&next)
}

func (p *TracerProvider) spanProcessors() []SpanProcessor {
	return *p.processors.Load()
}

// Resource 返回资源。
func (p *TracerProvider) Resource() *Resource { return p.resource }

// ContextManager 返回活跃 span 的存取策略。
func (p *TracerProvider) ContextManager() xscope.Manager { return p.ctxManager }

// Clock 返回时间源。
func (p *TracerProvider) Clock() clockz.Clock { return p.clock }

// ActiveSpan 返回 ctx（或当前 goroutine）上的活跃 span，不存在时为 nil。
func (p *TracerProvider) ActiveSpan(ctx context.Context) *Span {
	s, _ := p.ctxManager.Value(ctx, xscope.SpanKey).(*Span)
	return s
}

// TracerOption Tracer 的选项
type TracerOption func(*InstrumentationScope)

// WithInstrumentationVersion 设置版本。
func WithInstrumentationVersion(v string) TracerOption {
	return func(s *InstrumentationScope) { s.Version = v }
}

// WithSchemaURL 设置 schema URL。
func WithSchemaURL(u string) TracerOption {
	return func(s *InstrumentationScope) { s.SchemaURL = u }
}

// Tracer 返回 (name, version, schemaURL) 对应的 Tracer，相同参数返回同一实例。
func (p *TracerProvider) Tracer(name string, opts ...TracerOption) *Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	scope := InstrumentationScope{Name: name}
	for _, opt := range opts {
		opt(&scope)
	}

	p.tracersMu.Lock()
	defer p.tracersMu.Unlock()
	if t, ok := p.tracers[scope]; ok {
		return t
	}
	t := &Tracer{provider: p, scope: scope}
	p.tracers[scope] = t
	return t
}

// IsShutdown 是否已关闭。
func (p *TracerProvider) IsShutdown() bool {
	return p.isShutdown.Load()
}

// Shutdown 关闭全部处理器，错误合并返回。之后创建的 span 均为非 recording。
// 只有第一次调用生效，后续调用返回 nil。
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.isShutdown.Store(true)
		var errs []error
		for _, sp := range p.spanProcessors() {
			if e := sp.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)
		if err != nil {
			p.logger.Warn(ctx, "span processor shutdown failed", xlog.Err(err))
		}
	})
	return err
}

// ForceFlush 依次刷新全部处理器，错误合并返回。
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, sp := range p.spanProcessors() {
		if e := sp.ForceFlush(ctx); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}
