package xbackend

import "sync/atomic"

// Stats 导出统计快照
type Stats struct {
	// Batches Export 调用次数（不含空批次）
	Batches int64
	// Exported 成功发送的 span 数
	Exported int64
	// Retryable 可重试失败的 span 数
	Retryable int64
	// Failed 永久失败的 span 数
	Failed int64
	// SlowExports 慢导出次数
	SlowExports int64
	// Pings / PingErrors 健康检查次数与失败次数
	Pings      int64
	PingErrors int64
}

type counters struct {
	batches, exported, retryable, failed, slow atomic.Int64
	pings, pingErrors                          atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Batches:     c.batches.Load(),
		Exported:    c.exported.Load(),
		Retryable:   c.retryable.Load(),
		Failed:      c.failed.Load(),
		SlowExports: c.slow.Load(),
		Pings:       c.pings.Load(),
		PingErrors:  c.pingErrors.Load(),
	}
}
