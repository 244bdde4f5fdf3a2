package xresilient

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffPolicy 计算第 attempt 次失败后的等待时间，attempt 从 1 开始。
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff 固定间隔
type FixedBackoff time.Duration

// NextDelay 实现 BackoffPolicy。
func (b FixedBackoff) NextDelay(int) time.Duration {
	return max(time.Duration(b), 0)
}

// ExponentialBackoff 指数退避：
//
//	delay = min(initial * multiplier^(attempt-1) * (1 ± jitter), max)
type ExponentialBackoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
}

// BackoffOption ExponentialBackoff 选项
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay 首次重试前的等待，非正数被忽略。
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.initial = d
		}
	}
}

// WithMaxDelay 等待上限，非正数被忽略。
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.max = d
		}
	}
}

// WithMultiplier 增长倍数，小于 1 被忽略。
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		if m >= 1 {
			b.multiplier = m
		}
	}
}

// WithJitter 抖动比例，钳制到 [0, 1]。
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		if math.IsNaN(j) {
			j = 0
		}
		b.jitter = min(max(j, 0), 1)
	}
}

// NewExponentialBackoff 默认 100ms 起步、倍数 2、上限 5s、抖动 10%。
func NewExponentialBackoff(opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initial:    100 * time.Millisecond,
		max:        5 * time.Second,
		multiplier: 2,
		jitter:     0.1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.max = max(b.max, b.initial)
	return b
}

// NextDelay 实现 BackoffPolicy。
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	delay := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
	if b.jitter > 0 {
		delay *= 1 + (rand.Float64()*2-1)*b.jitter
	}
	// 溢出为 Inf 或 NaN 时所有比较为 false，需显式处理
	if math.IsNaN(delay) || delay >= float64(b.max) {
		return b.max
	}
	return max(time.Duration(delay), 0)
}
