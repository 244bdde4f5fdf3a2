package xpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

const (
	// MaxWorkers worker 数量上限
	MaxWorkers = 1 << 16
	// MaxQueueSize 队列长度上限
	MaxQueueSize = 1 << 24
)

// Option Pool 配置选项
type Option func(*options)

type options struct {
	logger xlog.Logger
	name   string
}

// WithLogger 设置 panic 日志的输出目标。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName 设置日志中的 pool 名称。
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Pool 固定数量 worker 消费有界队列。
type Pool[T any] struct {
	handler func(T)
	logger  xlog.Logger
	queue   chan T

	// mu 保护 closed 与向 queue 发送，Close 关闭 queue 前取写锁
	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
}

// New 创建并启动 Pool。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	switch {
	case handler == nil:
		return nil, ErrNilHandler
	case workers < 1 || workers > MaxWorkers:
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	case queueSize < 1 || queueSize > MaxQueueSize:
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}
	o := options{name: "pool"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	p := &Pool[T]{
		handler: handler,
		logger:  xlog.OrDefault(o.logger).With(xlog.Component(o.name)),
		queue:   make(chan T, queueSize),
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Stack(context.Background(), "pool task panicked",
				xlog.Err(fmt.Errorf("%v", r)), slog.String("task_type", fmt.Sprintf("%T", task)))
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 停止接收任务并等待队列耗尽，幂等。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收任务，等待队列耗尽或 ctx 结束。
// ctx 先结束时返回 ctx.Err()，剩余任务仍在后台处理，可通过 Done 等待。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 全部 worker 退出后关闭。
func (p *Pool[T]) Done() <-chan struct{} { return p.done }
