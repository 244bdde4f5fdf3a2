package xresilient

import (
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// 默认参数
const (
	DefaultMaxAttempts      = 3
	DefaultOpenTimeout      = 30 * time.Second
	DefaultHalfOpenRequests = 1
	DefaultTripThreshold    = 5
)

type config struct {
	name   string
	logger xlog.Logger

	// 重试
	maxAttempts int
	backoff     BackoffPolicy
	clock       clockz.Clock
	onRetry     func(attempt int, err error)

	// 熔断
	trip             TripPolicy
	openTimeout      time.Duration
	interval         time.Duration
	halfOpenRequests uint32
	onStateChange    func(name string, from, to gobreaker.State)
}

func newConfig(name string, opts []Option) config {
	c := config{
		name:             name,
		maxAttempts:      DefaultMaxAttempts,
		backoff:          NewExponentialBackoff(),
		clock:            clockz.RealClock,
		trip:             ConsecutiveFailures(DefaultTripThreshold),
		openTimeout:      DefaultOpenTimeout,
		halfOpenRequests: DefaultHalfOpenRequests,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	c.logger = xlog.OrDefault(c.logger).With(xlog.Component(c.name))
	return c
}

// Option 各装饰器共用的选项，各自忽略不相关的项。
type Option func(*config)

// WithName 日志与熔断器名称。
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l xlog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxAttempts 总尝试次数（含首次），小于 1 被忽略。
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff 设置退避策略。
func WithBackoff(b BackoffPolicy) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithClock 重试等待与限流恢复时间使用的时间源。
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithOnRetry 每次重试前调用，attempt 从 1 开始。
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *config) { c.onRetry = fn }
}

// WithTripPolicy 熔断判定，默认连续 5 次可重试失败。
func WithTripPolicy(p TripPolicy) Option {
	return func(c *config) {
		if p != nil {
			c.trip = p
		}
	}
}

// WithOpenTimeout 熔断打开后进入半开前的等待时间。
func WithOpenTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.openTimeout = d
		}
	}
}

// WithInterval 闭合状态下清零计数的周期，0 表示不清零。
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// WithHalfOpenRequests 半开状态允许通过的请求数。
func WithHalfOpenRequests(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.halfOpenRequests = n
		}
	}
}

// WithOnStateChange 熔断状态变化回调，在熔断器内部锁中执行，不能回调 State。
func WithOnStateChange(fn func(name string, from, to gobreaker.State)) Option {
	return func(c *config) { c.onStateChange = fn }
}
