package xworker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
)

const workerComponent = "export_worker"

// DefaultExportTimeout 单个周期内导出调用的默认超时
const DefaultExportTimeout = 30 * time.Second

// ExportStatus 一次导出的结果
type ExportStatus struct {
	// NeedsRetry 为 true 时批次保留，稍后重试
	NeedsRetry bool
}

// DataExporter 把一个批次的原始数据发送到下游。
type DataExporter interface {
	Export(ctx context.Context, data []byte) ExportStatus
}

// DataExporterFunc 函数适配器
type DataExporterFunc func(ctx context.Context, data []byte) ExportStatus

// Export 实现 DataExporter。
func (f DataExporterFunc) Export(ctx context.Context, data []byte) ExportStatus {
	return f(ctx, data)
}

// Batch 待导出的一块数据
type Batch struct {
	// Name 批次来源标识，如文件名
	Name string
	Data []byte
}

// BatchReader 批次来源。
type BatchReader interface {
	// ReadNextBatch 返回下一个可导出的批次
	ReadNextBatch(ctx context.Context) (*Batch, bool)

	// MarkBatchAsRead 确认批次已处理完毕，之后不再返回
	MarkBatchAsRead(ctx context.Context, b *Batch)

	// RemainingBatches 返回当前全部未确认批次，供 Flush 使用
	RemainingBatches(ctx context.Context) []*Batch
}

// =============================================================================
// 选项
// =============================================================================

type config struct {
	exportCondition func() bool
	clock           clockz.Clock
	logger          xlog.Logger
	metrics         *xmetrics.Recorder
	exportTimeout   time.Duration
}

// Option Worker 配置选项
type Option func(*config)

// WithExportCondition 每个周期开始前检查，返回 false 时跳过本周期。
func WithExportCondition(cond func() bool) Option {
	return func(c *config) {
		if cond != nil {
			c.exportCondition = cond
		}
	}
}

// WithClock 设置时间源。
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l xlog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics 设置自监控指标。
func WithMetrics(m *xmetrics.Recorder) Option {
	return func(c *config) { c.metrics = m }
}

// WithExportTimeout 每个周期导出调用的超时，非正数被忽略。
func WithExportTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.exportTimeout = d
		}
	}
}

// =============================================================================
// Worker
// =============================================================================

// Worker 周期性地从 BatchReader 读取批次并交给 DataExporter。
type Worker struct {
	reader   BatchReader
	exporter DataExporter
	delay    *Delay
	cfg      config
	logger   xlog.Logger

	// mu 串行化周期与 Flush
	mu sync.Mutex

	lifeMu  sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewWorker 创建 Worker，需调用 Start 开始调度。
func NewWorker(reader BatchReader, exporter DataExporter, delay *Delay, opts ...Option) (*Worker, error) {
	switch {
	case reader == nil:
		return nil, ErrNilReader
	case exporter == nil:
		return nil, ErrNilExporter
	case delay == nil:
		return nil, ErrNilDelay
	}
	cfg := config{
		exportCondition: func() bool { return true },
		clock:           clockz.RealClock,
		exportTimeout:   DefaultExportTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = xlog.OrDefault(cfg.logger)
	return &Worker{
		reader:   reader,
		exporter: exporter,
		delay:    delay,
		cfg:      cfg,
		logger:   cfg.logger.With(xlog.Component(workerComponent)),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start 启动后台 goroutine，首个周期在 Delay.Current() 之后执行。
// 重复调用或 CancelSynchronously 之后调用无效果。
func (w *Worker) Start() {
	w.lifeMu.Lock()
	defer w.lifeMu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.cfg.clock.After(w.delay.Current()):
		}
		// 等待期间可能已取消，此时不再开始新周期
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.cycle()
	}
}

// cycle 执行一个导出周期。
func (w *Worker) cycle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.exportTimeout)
	defer cancel()

	outcome := w.step(ctx)
	w.cfg.metrics.WorkerBatch(ctx, outcome)
	w.cfg.metrics.WorkerDelay(ctx, w.delay.Current())
}

func (w *Worker) step(ctx context.Context) string {
	if !w.cfg.exportCondition() {
		w.delay.Increase()
		return xmetrics.OutcomeBlocked
	}
	batch, ok := w.reader.ReadNextBatch(ctx)
	if !ok || batch == nil {
		w.delay.Increase()
		return xmetrics.OutcomeEmpty
	}
	if w.export(ctx, batch).NeedsRetry {
		w.delay.Increase()
		w.logger.Debug(ctx, "batch export deferred", slog.String("batch", batch.Name), xlog.Duration(w.delay.Current()))
		return xmetrics.OutcomeRetry
	}
	w.reader.MarkBatchAsRead(ctx, batch)
	w.delay.Decrease()
	return xmetrics.OutcomeExported
}

// export 恢复导出器 panic；panic 视为不可重试，批次被确认以免反复触发。
func (w *Worker) export(ctx context.Context, b *Batch) (status ExportStatus) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Stack(ctx, "data exporter panicked", xlog.Err(fmt.Errorf("%v", r)), slog.String("batch", b.Name))
			status = ExportStatus{}
		}
	}()
	return w.exporter.Export(ctx, b.Data)
}

// Flush 同步导出全部剩余批次。
//
// 每个批次除非需要重试都会被确认；任一批次需要重试或 ctx 结束时返回 false。
// Flush 不受 exportCondition 约束，CancelSynchronously 之后仍可调用。
func (w *Worker) Flush(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok := true
	for _, b := range w.reader.RemainingBatches(ctx) {
		if ctx.Err() != nil {
			return false
		}
		if w.export(ctx, b).NeedsRetry {
			ok = false
			continue
		}
		w.reader.MarkBatchAsRead(ctx, b)
	}
	if ctx.Err() != nil {
		return false
	}
	return ok
}

// CancelSynchronously 停止调度并等待进行中的周期结束，幂等。
func (w *Worker) CancelSynchronously() {
	w.lifeMu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	started := w.started
	w.lifeMu.Unlock()

	// 未启动时没有 goroutine 需要等待
	if started {
		<-w.done
	}
}
