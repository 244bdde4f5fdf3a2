// Package xworker 提供带自适应间隔的后台导出 worker。
//
// Worker 位于本地缓冲（如 xpersist 的文件队列）与不可靠的下游之间，
// 由一个 goroutine 周期性地执行：
//
//	exportCondition() ──否──► Increase
//	      │是
//	ReadNextBatch ──无──► Increase
//	      │有
//	Export ──NeedsRetry──► Increase，保留批次
//	      │成功或不可重试
//	MarkBatchAsRead + Decrease
//
// 每个周期结束后等待 Delay.Current() 再开始下一个周期。
// 下游持续失败时间隔逐步放大到上限，恢复后逐步回落到下限。
//
// Flush 与周期共享同一把锁，二者不会交错执行；
// CancelSynchronously 停止调度并等待进行中的周期自然结束。
package xworker
