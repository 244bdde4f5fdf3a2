package xpersist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/export/xworker"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const decoratorComponent = "persistence"

// SpanExporterDecorator 先把 span 写入本地文件，再由后台 worker 交给被装饰的导出器。
//
// 进程重启后目录中遗留的文件会被继续发送。下游返回 ExportFailureRetryable 的
// 文件保留并在之后重试，无法解码的文件被丢弃。
type SpanExporterDecorator struct {
	exporter xsdk.SpanExporter
	writer   *FileWriter
	worker   *xworker.Worker
	sync     bool
	logger   xlog.Logger
	metrics  *xmetrics.Recorder
	clock    clockz.Clock

	stopped      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

var _ xsdk.SpanExporter = (*SpanExporterDecorator)(nil)

// NewSpanExporterDecorator 在 storageDir 上创建持久化装饰器并启动后台 worker。
func NewSpanExporterDecorator(exporter xsdk.SpanExporter, storageDir string, opts ...Option) (*SpanExporterDecorator, error) {
	if exporter == nil {
		return nil, ErrNilExporter
	}
	cfg := newConfig(opts)
	dir, err := OpenDirectory(storageDir)
	if err != nil {
		return nil, err
	}
	orch := NewFilesOrchestrator(dir, opts...)
	writer := NewFileWriter(orch, opts...)
	logger := cfg.logger.With(xlog.Component(decoratorComponent))

	worker, err := xworker.NewWorker(
		NewFileReader(orch),
		&spanDataExporter{exporter: exporter, logger: logger},
		xworker.DelayFromPreset(cfg.preset.DelayPreset()),
		xworker.WithExportCondition(cfg.exportCondition),
		xworker.WithClock(cfg.clock),
		xworker.WithLogger(cfg.logger),
		xworker.WithMetrics(cfg.metrics),
	)
	if err != nil {
		writer.Close()
		return nil, err
	}
	worker.Start()

	return &SpanExporterDecorator{
		exporter: exporter,
		writer:   writer,
		worker:   worker,
		sync:     cfg.preset.SynchronousWrite,
		logger:   logger,
		metrics:  cfg.metrics,
		clock:    cfg.clock,
	}, nil
}

// Export 把 spans 编码后写入文件。
//
// 写入成功即返回 ExportSuccess；异步队列已满返回 ExportFailureRetryable；
// 其他错误（如超过 MaxObjectSize）返回 ExportFailure。
func (d *SpanExporterDecorator) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	if d.stopped.Load() {
		return xsdk.ExportFailure
	}
	if len(spans) == 0 {
		return xsdk.ExportSuccess
	}
	start := d.clock.Now()
	result := d.persist(ctx, spans)
	d.metrics.Exported(ctx, decoratorComponent, result.String(), len(spans), d.clock.Since(start))
	if result != xsdk.ExportSuccess {
		d.metrics.SpansDropped(ctx, decoratorComponent, int64(len(spans)))
	}
	return result
}

func (d *SpanExporterDecorator) persist(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	chunk, err := EncodeChunk(spans)
	if err != nil {
		d.logger.Warn(ctx, "encode spans failed", xlog.Err(err), xlog.Count(int64(len(spans))))
		return xsdk.ExportFailure
	}
	if d.sync {
		err = d.writer.WriteSync(ctx, chunk)
	} else {
		err = d.writer.Write(chunk)
	}
	switch {
	case err == nil:
		return xsdk.ExportSuccess
	case errors.Is(err, ErrQueueFull):
		return xsdk.ExportFailureRetryable
	default:
		return xsdk.ExportFailure
	}
}

// Flush 落盘队列中的数据，同步发送全部文件，再刷新被装饰的导出器。
// 有文件需要重试时返回 ExportFailureRetryable。
func (d *SpanExporterDecorator) Flush(ctx context.Context) xsdk.ExportResult {
	if d.stopped.Load() {
		return xsdk.ExportSuccess
	}
	result := xsdk.ExportSuccess
	if err := d.writer.Flush(ctx); err != nil {
		result = xsdk.ExportFailureRetryable
	}
	if !d.worker.Flush(ctx) {
		result = result.Merge(xsdk.ExportFailureRetryable)
	}
	return result.Merge(d.exporter.Flush(ctx))
}

// Shutdown 停止 worker 与写入器后关闭被装饰的导出器，幂等。
// 未发送的文件留在目录中，下次启动时继续发送。
func (d *SpanExporterDecorator) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() {
		d.stopped.Store(true)
		stopped := make(chan struct{})
		go func() {
			d.worker.CancelSynchronously()
			d.writer.Close()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			d.shutdownErr = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		}
		d.shutdownErr = errors.Join(d.shutdownErr, d.exporter.Shutdown(ctx))
	})
	return d.shutdownErr
}

// spanDataExporter 把文件内容解码后交给 SpanExporter
type spanDataExporter struct {
	exporter xsdk.SpanExporter
	logger   xlog.Logger
}

func (e *spanDataExporter) Export(ctx context.Context, data []byte) xworker.ExportStatus {
	spans, err := DecodeChunks(data)
	if err != nil {
		e.logger.Warn(ctx, "discard undecodable batch", xlog.Err(err))
		return xworker.ExportStatus{}
	}
	if len(spans) == 0 {
		return xworker.ExportStatus{}
	}
	return xworker.ExportStatus{NeedsRetry: e.exporter.Export(ctx, spans) == xsdk.ExportFailureRetryable}
}
