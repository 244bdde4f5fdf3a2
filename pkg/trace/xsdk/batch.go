package xsdk

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// BatchState 批处理器的工作状态
type BatchState int32

const (
	// BatchIdle 队列为空，等待新 span
	BatchIdle BatchState = iota
	// BatchScheduled 队列非空，等待定时器或批量阈值触发
	BatchScheduled
	// BatchFlushing 正在调用导出器
	BatchFlushing
	// BatchShutDown 已关闭
	BatchShutDown
)

// String 返回状态名
func (s BatchState) String() string {
	switch s {
	case BatchIdle:
		return "idle"
	case BatchScheduled:
		return "scheduled"
	case BatchFlushing:
		return "flushing"
	case BatchShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

const batchComponent = "batch_processor"

// BatchSpanProcessor 把结束的 span 放入有界环形队列，由后台 goroutine 按批导出。
//
// 触发导出的条件：
//   - 队列达到 MaxExportBatchSize 时立即导出满批
//   - ScheduleDelay 定时器到期时导出队列中全部 span
//   - ForceFlush / Shutdown
//
// 队列满时丢弃最旧的 span 并计数，OnEnd 永不阻塞。
// 导出调用始终串行。
type BatchSpanProcessor struct {
	exporter SpanExporter
	cfg      processorConfig
	logger   xlog.Logger

	mu   sync.Mutex
	buf  []SpanData
	head int
	size int

	dropped atomic.Uint64
	state   atomic.Int32
	stopped atomic.Bool

	kick     chan struct{}
	flushReq chan chan ExportResult
	stopCh   chan struct{}
	done     chan struct{}

	shutdownOnce sync.Once
}

// NewBatchSpanProcessor 创建并启动 BatchSpanProcessor。
func NewBatchSpanProcessor(exporter SpanExporter, opts ...ProcessorOption) (*BatchSpanProcessor, error) {
	if exporter == nil {
		return nil, ErrNilExporter
	}
	cfg := newProcessorConfig(opts)
	p := &BatchSpanProcessor{
		exporter: exporter,
		cfg:      cfg,
		logger:   cfg.logger.With(xlog.Component(batchComponent)),
		buf:      make([]SpanData, cfg.maxQueueSize),
		kick:     make(chan struct{}, 1),
		flushReq: make(chan chan ExportResult),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// OnStart 空操作。
func (*BatchSpanProcessor) OnStart(xspanctx.SpanContext, *Span) {}

// OnEnd 把 span 放入队列。
func (p *BatchSpanProcessor) OnEnd(s SpanData) {
	if !s.SpanContext.IsSampled() && !p.cfg.exportUnsampled {
		return
	}
	p.mu.Lock()
	if p.stopped.Load() {
		p.mu.Unlock()
		p.drop(1)
		return
	}
	if p.size == len(p.buf) {
		// 覆盖最旧的
		p.buf[p.head] = SpanData{}
		p.head = (p.head + 1) % len(p.buf)
		p.size--
		p.drop(1)
	}
	p.buf[(p.head+p.size)%len(p.buf)] = s
	p.size++
	full := p.size >= p.cfg.maxExportBatchSize
	p.mu.Unlock()

	p.state.CompareAndSwap(int32(BatchIdle), int32(BatchScheduled))
	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

func (p *BatchSpanProcessor) drop(n int) {
	p.dropped.Add(uint64(n))
	p.cfg.metrics.SpansDropped(context.Background(), batchComponent, int64(n))
}

// Dropped 返回因队列满或关闭而被丢弃的 span 数。
func (p *BatchSpanProcessor) Dropped() uint64 {
	return p.dropped.Load()
}

// QueueLen 返回当前排队的 span 数。
func (p *BatchSpanProcessor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// State 返回当前状态。
func (p *BatchSpanProcessor) State() BatchState {
	return BatchState(p.state.Load())
}

// =============================================================================
// 后台 worker
// =============================================================================

func (p *BatchSpanProcessor) run() {
	defer close(p.done)
	timer := p.cfg.clock.After(p.cfg.scheduleDelay)
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.kick:
			p.exportBatches(true)
		case <-timer:
			p.exportBatches(false)
			timer = p.cfg.clock.After(p.cfg.scheduleDelay)
		case ack := <-p.flushReq:
			if p.stopped.Load() {
				ack <- ExportSuccess
				continue
			}
			result := p.exportBatches(false)
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.exportTimeout)
			result = result.Merge(p.exporter.Flush(ctx))
			cancel()
			ack <- result
		}
	}
}

// take 取出至多 maxExportBatchSize 个 span；onlyFull 时不足一批返回 nil。
// 关闭后只有 Shutdown 自身的最终导出（final）能取到数据。
func (p *BatchSpanProcessor) take(onlyFull, final bool) []SpanData {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped.Load() && !final {
		return nil
	}
	n := min(p.size, p.cfg.maxExportBatchSize)
	if n == 0 || (onlyFull && n < p.cfg.maxExportBatchSize) {
		return nil
	}
	batch := make([]SpanData, n)
	for i := range n {
		idx := (p.head + i) % len(p.buf)
		batch[i] = p.buf[idx]
		p.buf[idx] = SpanData{}
	}
	p.head = (p.head + n) % len(p.buf)
	p.size -= n
	return batch
}

// exportBatches 循环导出直到队列为空（或不足一批），返回合并后的结果。
func (p *BatchSpanProcessor) exportBatches(onlyFull bool) ExportResult {
	result := ExportSuccess
	for {
		batch := p.take(onlyFull, false)
		if batch == nil {
			break
		}
		result = result.Merge(p.export(context.Background(), batch))
	}
	if p.QueueLen() == 0 {
		p.state.CompareAndSwap(int32(BatchFlushing), int32(BatchIdle))
		p.state.CompareAndSwap(int32(BatchScheduled), int32(BatchIdle))
	} else {
		p.state.CompareAndSwap(int32(BatchFlushing), int32(BatchScheduled))
	}
	return result
}

func (p *BatchSpanProcessor) export(parent context.Context, batch []SpanData) ExportResult {
	if !p.stopped.Load() {
		p.state.Store(int32(BatchFlushing))
	}
	ctx, cancel := context.WithTimeout(parent, p.cfg.exportTimeout)
	defer cancel()

	start := p.cfg.clock.Now()
	result := exportSafely(ctx, p.logger, p.exporter, batch)
	elapsed := p.cfg.clock.Since(start)
	p.cfg.metrics.Exported(ctx, batchComponent, result.String(), len(batch), elapsed)
	if result != ExportSuccess {
		p.logger.Warn(ctx, "export batch failed",
			xlog.Result(result.String()), xlog.Count(int64(len(batch))), xlog.Duration(elapsed))
	} else {
		p.logger.Debug(ctx, "batch exported", xlog.Count(int64(len(batch))), xlog.Duration(elapsed))
	}
	return result
}

// ForceFlush 导出队列中全部 span 并刷新导出器，ctx 到期时返回 ErrFlushTimeout。
// 关闭后调用直接返回 nil。
func (p *BatchSpanProcessor) ForceFlush(ctx context.Context) error {
	if p.stopped.Load() {
		return nil
	}
	ack := make(chan ExportResult, 1)
	select {
	case p.flushReq <- ack:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFlushTimeout, ctx.Err())
	}
	select {
	case r := <-ack:
		if r != ExportSuccess {
			return fmt.Errorf("%w: %s", ErrExportFailed, r)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFlushTimeout, ctx.Err())
	}
}

// discard 清空队列，返回被移除的 span 数。
func (p *BatchSpanProcessor) discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.size
	for i := range n {
		p.buf[(p.head+i)%len(p.buf)] = SpanData{}
	}
	p.head, p.size = 0, 0
	return n
}

// Shutdown 停止后台 worker，导出剩余 span 并关闭导出器。只有首次调用生效。
//
// ctx 先到期时丢弃仍在队列中的 span 并返回 ErrShutdownTimeout；
// 导出器在进行中的导出结束后才被关闭。
func (p *BatchSpanProcessor) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.stopped.Store(true)
		p.mu.Unlock()
		close(p.stopCh)

		select {
		case <-p.done:
		case <-ctx.Done():
			if n := p.discard(); n > 0 {
				p.drop(n)
				p.logger.Warn(ctx, "shutdown timed out, spans discarded", xlog.Count(int64(n)))
			}
			p.state.Store(int32(BatchShutDown))
			err = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
			go p.shutdownExporterAfterWorker()
			return
		}

		// worker 已退出，剩余数据由当前 goroutine 串行导出
		for {
			batch := p.take(false, true)
			if batch == nil {
				break
			}
			p.export(ctx, batch)
		}
		p.state.Store(int32(BatchShutDown))
		err = p.exporter.Shutdown(ctx)
	})
	return err
}

func (p *BatchSpanProcessor) shutdownExporterAfterWorker() {
	<-p.done
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.exportTimeout)
	defer cancel()
	if err := p.exporter.Shutdown(ctx); err != nil {
		p.logger.Warn(ctx, "exporter shutdown failed", xlog.Err(err))
	}
}
