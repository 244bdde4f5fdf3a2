package xpool

import "errors"

var (
	// ErrNilHandler handler 为 nil
	ErrNilHandler = errors.New("xpool: nil handler")

	// ErrPoolStopped pool 已关闭
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrQueueFull 队列已满，任务被丢弃
	ErrQueueFull = errors.New("xpool: queue is full")

	// ErrInvalidWorkers worker 数量超出 [1, MaxWorkers]
	ErrInvalidWorkers = errors.New("xpool: invalid worker count")

	// ErrInvalidQueueSize 队列长度超出 [1, MaxQueueSize]
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")
)
