package xpersist

import (
	"context"
	"sync"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

const writerComponent = "file_writer"

type writeReq struct {
	data []byte
	// ack 非 nil 时为 flush 标记
	ack chan struct{}
}

// FileWriter 通过 FilesOrchestrator 追加数据。
//
// Write 把数据交给后台 goroutine 异步落盘，队列满时丢弃并返回 ErrQueueFull；
// WriteSync 在调用方 goroutine 中同步写入并 fsync。
type FileWriter struct {
	orch   *FilesOrchestrator
	logger xlog.Logger

	queue chan writeReq
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewFileWriter 创建并启动 FileWriter，使用完毕需调用 Close。
func NewFileWriter(orch *FilesOrchestrator, opts ...Option) *FileWriter {
	cfg := newConfig(opts)
	w := &FileWriter{
		orch:   orch,
		logger: cfg.logger.With(xlog.Component(writerComponent)),
		queue:  make(chan writeReq, cfg.queueSize),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *FileWriter) loop() {
	defer close(w.done)
	for req := range w.queue {
		if req.ack != nil {
			close(req.ack)
			continue
		}
		w.write(context.Background(), req.data, false)
	}
}

func (w *FileWriter) write(ctx context.Context, data []byte, sync bool) error {
	if err := w.orch.Append(data, sync); err != nil {
		w.logger.Warn(ctx, "append to storage file failed", xlog.Err(err), xlog.Count(int64(len(data))))
		return err
	}
	return nil
}

// Write 异步写入。
func (w *FileWriter) Write(data []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- writeReq{data: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

// WriteSync 同步写入。
func (w *FileWriter) WriteSync(ctx context.Context, data []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	return w.write(ctx, data, true)
}

// Flush 等待此前提交的异步写入全部落盘。
func (w *FileWriter) Flush(ctx context.Context) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	ack := make(chan struct{})
	select {
	case w.queue <- writeReq{ack: ack}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 写完队列中的数据后停止后台 goroutine，幂等。
func (w *FileWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}
