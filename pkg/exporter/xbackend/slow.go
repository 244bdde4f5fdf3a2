package xbackend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omeyang/xtel/internal/xpool"
	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// SlowExport 慢导出信息
type SlowExport struct {
	Exporter string
	Spans    int
	Duration time.Duration
	Result   string
}

type slowDetector struct {
	threshold time.Duration
	hook      SlowExportHook
	logger    xlog.Logger

	mu   sync.RWMutex
	pool *xpool.Pool[SlowExport]
}

func newSlowDetector(o Options, logger xlog.Logger) (*slowDetector, error) {
	d := &slowDetector{threshold: o.SlowThreshold, hook: o.SlowHook, logger: logger}
	if o.AsyncSlowHook != nil && o.SlowThreshold > 0 {
		pool, err := xpool.New(o.AsyncSlowWorkers, o.AsyncSlowQueueSize, o.AsyncSlowHook,
			xpool.WithLogger(logger), xpool.WithName("slow_export_hook"))
		if err != nil {
			return nil, fmt.Errorf("xbackend: create slow hook pool: %w", err)
		}
		d.pool = pool
	}
	return d, nil
}

// observe 报告本次导出是否为慢导出。
func (d *slowDetector) observe(ctx context.Context, info SlowExport) bool {
	if d.threshold <= 0 || info.Duration < d.threshold {
		return false
	}
	if d.hook != nil {
		d.hook(ctx, info)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool != nil {
		if err := d.pool.Submit(info); err != nil && !errors.Is(err, xpool.ErrPoolStopped) {
			d.logger.Debug(ctx, "slow export notification dropped", xlog.Err(err))
		}
	}
	return true
}

func (d *slowDetector) close(ctx context.Context) error {
	d.mu.Lock()
	pool := d.pool
	d.pool = nil
	d.mu.Unlock()
	if pool == nil {
		return nil
	}
	return pool.Shutdown(ctx)
}
