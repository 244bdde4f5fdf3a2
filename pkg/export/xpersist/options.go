package xpersist

import (
	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
)

// DefaultQueueSize 异步写入队列的默认容量
const DefaultQueueSize = 256

type config struct {
	preset          PerformancePreset
	clock           clockz.Clock
	logger          xlog.Logger
	metrics         *xmetrics.Recorder
	exportCondition func() bool
	queueSize       int
}

func newConfig(opts []Option) config {
	cfg := config{
		preset:    Default(),
		clock:     clockz.RealClock,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = xlog.OrDefault(cfg.logger)
	return cfg
}

// Option 持久化组件的选项，orchestrator、writer 与 decorator 共用。
type Option func(*config)

// WithPreset 设置性能预设，默认 Default()。
func WithPreset(p PerformancePreset) Option {
	return func(c *config) { c.preset = p }
}

// WithClock 设置时间源，影响文件命名与年龄判断。
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

// WithExportCondition 后台 worker 每个周期前检查，返回 false 时跳过。
func WithExportCondition(cond func() bool) Option {
	return func(c *config) { c.exportCondition = cond }
}

// WithQueueSize 异步写入队列容量，非正数被忽略。
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}
