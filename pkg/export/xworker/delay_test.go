package xworker

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayIncreaseDecrease(t *testing.T) {
	d := NewDelay(time.Second, 500*time.Millisecond, 2*time.Second, 0.5)
	assert.Equal(t, time.Second, d.Current())

	d.Increase()
	assert.Equal(t, 1500*time.Millisecond, d.Current())
	d.Increase()
	assert.Equal(t, 2*time.Second, d.Current(), "不超过上限")
	d.Increase()
	assert.Equal(t, 2*time.Second, d.Current())

	d.Decrease()
	assert.Equal(t, time.Second, d.Current())
	d.Decrease()
	assert.Equal(t, 500*time.Millisecond, d.Current(), "不低于下限")
	d.Decrease()
	assert.Equal(t, 500*time.Millisecond, d.Current())
}

func TestDelayIncreaseThenDecreaseSequence(t *testing.T) {
	d := NewDelay(time.Second, time.Second, 60*time.Second, 0.1)

	prev := d.Current()
	for i := range 10 {
		d.Increase()
		cur := d.Current()
		assert.Greater(t, cur, prev, "第 %d 次增长", i+1)
		assert.LessOrEqual(t, cur, 60*time.Second)
		prev = cur
	}

	d.Decrease()
	cur := d.Current()
	assert.Less(t, cur, prev)
	assert.GreaterOrEqual(t, cur, time.Second)
}

func TestNewDelayClamps(t *testing.T) {
	tests := []struct {
		name                 string
		initial, minD, maxD  time.Duration
		rate                 float64
		wantCurrent, wantMax time.Duration
		wantRate             float64
	}{
		{name: "初始值低于下限", initial: 0, minD: time.Second, maxD: 5 * time.Second, rate: 0.1, wantCurrent: time.Second, wantMax: 5 * time.Second, wantRate: 0.1},
		{name: "初始值高于上限", initial: time.Minute, minD: time.Second, maxD: 5 * time.Second, rate: 0.1, wantCurrent: 5 * time.Second, wantMax: 5 * time.Second, wantRate: 0.1},
		{name: "上限小于下限", initial: time.Second, minD: 3 * time.Second, maxD: time.Second, rate: 0.1, wantCurrent: 3 * time.Second, wantMax: 3 * time.Second, wantRate: 0.1},
		{name: "比率过大", initial: time.Second, minD: 0, maxD: time.Minute, rate: 3, wantCurrent: time.Second, wantMax: time.Minute, wantRate: 1},
		{name: "比率为负", initial: time.Second, minD: 0, maxD: time.Minute, rate: -1, wantCurrent: time.Second, wantMax: time.Minute, wantRate: 0},
		{name: "比率为 NaN", initial: time.Second, minD: 0, maxD: time.Minute, rate: math.NaN(), wantCurrent: time.Second, wantMax: time.Minute, wantRate: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDelay(tt.initial, tt.minD, tt.maxD, tt.rate)
			assert.Equal(t, tt.wantCurrent, d.Current())
			assert.Equal(t, tt.wantMax, d.max)
			assert.Equal(t, tt.wantRate, d.rate)
		})
	}
}

func TestDelayFromPreset(t *testing.T) {
	d := DelayFromPreset(DelayPreset{Initial: 5 * time.Second, Min: time.Second, Max: 20 * time.Second, ChangeRate: 0.1})
	assert.Equal(t, 5*time.Second, d.Current())
	d.Decrease()
	assert.Equal(t, 4500*time.Millisecond, d.Current())
}

func TestDelaySaturates(t *testing.T) {
	d := NewDelay(time.Duration(math.MaxInt64/2+1), 0, time.Duration(math.MaxInt64), 1)
	d.Increase()
	assert.Equal(t, time.Duration(math.MaxInt64), d.Current())
}

func TestDelayConcurrent(t *testing.T) {
	d := NewDelay(time.Second, 100*time.Millisecond, 10*time.Second, 0.2)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				if i%2 == 0 {
					d.Increase()
				} else {
					d.Decrease()
				}
				_ = d.Current()
			}
		}()
	}
	wg.Wait()
	cur := d.Current()
	assert.GreaterOrEqual(t, cur, 100*time.Millisecond)
	assert.LessOrEqual(t, cur, 10*time.Second)
}
