// Package xpool 泛型 worker pool，用于把慢导出通知等可丢弃任务移出导出路径。
//
//   - New 创建后立即启动 worker
//   - Submit 非阻塞，队列满返回 ErrQueueFull
//   - Close 等待队列中的任务处理完毕，Shutdown(ctx) 可限时
//   - handler panic 被恢复并记录堆栈，任务丢弃不重试
//
// Close/Shutdown 不可在 handler 内调用，否则死锁。
package xpool
