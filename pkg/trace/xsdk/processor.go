package xsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// SpanProcessor span 生命周期钩子，按注册顺序同步调用。
type SpanProcessor interface {
	// OnStart recording span 开始时调用
	OnStart(parent xspanctx.SpanContext, s *Span)

	// OnEnd recording span 结束时调用
	OnEnd(s SpanData)

	// Shutdown 关闭处理器，幂等
	Shutdown(ctx context.Context) error

	// ForceFlush 导出所有已结束但尚未导出的 span
	ForceFlush(ctx context.Context) error
}

// =============================================================================
// 处理器选项
// =============================================================================

// BatchSpanProcessor 默认值
const (
	DefaultMaxQueueSize       = 2048
	DefaultMaxExportBatchSize = 512
	DefaultScheduleDelay      = 5 * time.Second
	DefaultExportTimeout      = 30 * time.Second
)

type processorConfig struct {
	maxQueueSize       int
	maxExportBatchSize int
	scheduleDelay      time.Duration
	exportTimeout      time.Duration
	exportUnsampled    bool
	clock              clockz.Clock
	logger             xlog.Logger
	metrics            *xmetrics.Recorder
}

func newProcessorConfig(opts []ProcessorOption) processorConfig {
	cfg := processorConfig{
		maxQueueSize:       DefaultMaxQueueSize,
		maxExportBatchSize: DefaultMaxExportBatchSize,
		scheduleDelay:      DefaultScheduleDelay,
		exportTimeout:      DefaultExportTimeout,
		clock:              clockz.RealClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.maxExportBatchSize = min(cfg.maxExportBatchSize, cfg.maxQueueSize)
	cfg.logger = xlog.OrDefault(cfg.logger)
	return cfg
}

// ProcessorOption Simple/Batch 处理器的选项
type ProcessorOption func(*processorConfig)

// WithMaxQueueSize 队列容量，非正数被忽略。
func WithMaxQueueSize(n int) ProcessorOption {
	return func(c *processorConfig) {
		if n > 0 {
			c.maxQueueSize = n
		}
	}
}

// WithMaxExportBatchSize 单批最大数量，不超过队列容量。
func WithMaxExportBatchSize(n int) ProcessorOption {
	return func(c *processorConfig) {
		if n > 0 {
			c.maxExportBatchSize = n
		}
	}
}

// WithScheduleDelay 定时导出间隔。
func WithScheduleDelay(d time.Duration) ProcessorOption {
	return func(c *processorConfig) {
		if d > 0 {
			c.scheduleDelay = d
		}
	}
}

// WithExportTimeout 单次导出的超时。
func WithExportTimeout(d time.Duration) ProcessorOption {
	return func(c *processorConfig) {
		if d > 0 {
			c.exportTimeout = d
		}
	}
}

// WithExportUnsampled 同时导出 RecordOnly（未采样）的 span。
func WithExportUnsampled() ProcessorOption {
	return func(c *processorConfig) { c.exportUnsampled = true }
}

// WithProcessorClock 设置时间源。
func WithProcessorClock(clock clockz.Clock) ProcessorOption {
	return func(c *processorConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithProcessorLogger 设置日志。
func WithProcessorLogger(l xlog.Logger) ProcessorOption {
	return func(c *processorConfig) { c.logger = l }
}

// WithProcessorMetrics 设置自监控指标。
func WithProcessorMetrics(m *xmetrics.Recorder) ProcessorOption {
	return func(c *processorConfig) { c.metrics = m }
}

// exportSafely 导出器 panic 被恢复并记为 ExportFailure。
func exportSafely(ctx context.Context, logger xlog.Logger, exporter SpanExporter, spans []SpanData) (result ExportResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Stack(ctx, "span exporter panicked", xlog.Err(fmt.Errorf("%v", r)), xlog.Count(int64(len(spans))))
			result = ExportFailure
		}
	}()
	return exporter.Export(ctx, spans)
}

// =============================================================================
// MultiSpanProcessor
// =============================================================================

type multiSpanProcessor struct {
	processors []SpanProcessor
}

// MultiSpanProcessor 按顺序委托给全部子处理器，nil 被忽略。
func MultiSpanProcessor(processors ...SpanProcessor) SpanProcessor {
	list := make([]SpanProcessor, 0, len(processors))
	for _, p := range processors {
		if p != nil {
			list = append(list, p)
		}
	}
	return &multiSpanProcessor{processors: list}
}

func (m *multiSpanProcessor) OnStart(parent xspanctx.SpanContext, s *Span) {
	for _, p := range m.processors {
		p.OnStart(parent, s)
	}
}

func (m *multiSpanProcessor) OnEnd(s SpanData) {
	for _, p := range m.processors {
		p.OnEnd(s)
	}
}

func (m *multiSpanProcessor) Shutdown(ctx context.Context) error {
	var errs []error
	for _, p := range m.processors {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiSpanProcessor) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, p := range m.processors {
		if err := p.ForceFlush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// SimpleSpanProcessor
// =============================================================================

// SimpleSpanProcessor 在 OnEnd 调用方的 goroutine 上同步导出单个 span。
type SimpleSpanProcessor struct {
	exporter SpanExporter
	cfg      processorConfig
	logger   xlog.Logger

	mu           sync.Mutex
	stopped      atomic.Bool
	shutdownOnce sync.Once
}

// NewSimpleSpanProcessor 创建 SimpleSpanProcessor。只使用 WithExportUnsampled、
// WithProcessorLogger、WithProcessorMetrics、WithProcessorClock、WithExportTimeout。
func NewSimpleSpanProcessor(exporter SpanExporter, opts ...ProcessorOption) (*SimpleSpanProcessor, error) {
	if exporter == nil {
		return nil, ErrNilExporter
	}
	cfg := newProcessorConfig(opts)
	return &SimpleSpanProcessor{
		exporter: exporter,
		cfg:      cfg,
		logger:   cfg.logger.With(xlog.Component("simple_processor")),
	}, nil
}

// OnStart 空操作。
func (*SimpleSpanProcessor) OnStart(xspanctx.SpanContext, *Span) {}

// OnEnd 导出已采样的 span。
func (p *SimpleSpanProcessor) OnEnd(s SpanData) {
	if p.stopped.Load() || (!s.SpanContext.IsSampled() && !p.cfg.exportUnsampled) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.exportTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	start := p.cfg.clock.Now()
	result := exportSafely(ctx, p.logger, p.exporter, []SpanData{s})
	p.cfg.metrics.Exported(ctx, "simple_processor", result.String(), 1, p.cfg.clock.Since(start))
	if result != ExportSuccess {
		p.logger.Warn(ctx, "export span failed", xlog.Result(result.String()), xlog.SpanName(s.Name))
	}
}

// Shutdown 关闭导出器，只执行一次。
func (p *SimpleSpanProcessor) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.stopped.Store(true)
		p.mu.Lock()
		defer p.mu.Unlock()
		err = p.exporter.Shutdown(ctx)
	})
	return err
}

// ForceFlush 刷新导出器。
func (p *SimpleSpanProcessor) ForceFlush(ctx context.Context) error {
	if p.stopped.Load() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r := p.exporter.Flush(ctx); r != ExportSuccess {
		return fmt.Errorf("%w: %s", ErrExportFailed, r)
	}
	return nil
}
