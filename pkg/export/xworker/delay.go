package xworker

import (
	"math"
	"sync"
	"time"
)

// DelayPreset 构造 Delay 的参数组合
type DelayPreset struct {
	Initial    time.Duration
	Min        time.Duration
	Max        time.Duration
	ChangeRate float64
}

// Delay 在 [Min, Max] 区间内按比例伸缩的等待间隔，并发安全。
type Delay struct {
	mu      sync.Mutex
	current time.Duration
	min     time.Duration
	max     time.Duration
	rate    float64
}

// NewDelay 创建 Delay。
//
// max 小于 min 时取 min；initial 被限制在 [min, max]；
// changeRate 被限制在 [0, 1]，NaN 视为 0。
func NewDelay(initial, minDelay, maxDelay time.Duration, changeRate float64) *Delay {
	minDelay = max(minDelay, 0)
	maxDelay = max(maxDelay, minDelay)
	if math.IsNaN(changeRate) {
		changeRate = 0
	}
	return &Delay{
		current: min(max(initial, minDelay), maxDelay),
		min:     minDelay,
		max:     maxDelay,
		rate:    min(max(changeRate, 0), 1),
	}
}

// DelayFromPreset 按 preset 创建 Delay。
func DelayFromPreset(p DelayPreset) *Delay {
	return NewDelay(p.Initial, p.Min, p.Max, p.ChangeRate)
}

// Current 返回当前间隔。
func (d *Delay) Current() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Increase 放大间隔：min(current*(1+rate), max)。
func (d *Delay) Increase() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = min(scale(d.current, 1+d.rate), d.max)
}

// Decrease 缩小间隔：max(current*(1-rate), min)。
func (d *Delay) Decrease() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = max(scale(d.current, 1-d.rate), d.min)
}

// scale 乘法结果超出 Duration 范围时饱和到最大值
func scale(d time.Duration, factor float64) time.Duration {
	v := float64(d) * factor
	if v >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(v)
}
