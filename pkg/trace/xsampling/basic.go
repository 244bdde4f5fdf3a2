package xsampling

import (
	"fmt"
	"math"
)

// alwaysOnSampler 全采样
type alwaysOnSampler struct{}

// alwaysOffSampler 不采样
type alwaysOffSampler struct{}

var (
	alwaysOnInstance  = &alwaysOnSampler{}
	alwaysOffInstance = &alwaysOffSampler{}
)

// AlwaysOn 返回全采样单例。
func AlwaysOn() Sampler { return alwaysOnInstance }

// AlwaysOff 返回不采样单例。
func AlwaysOff() Sampler { return alwaysOffInstance }

func (s *alwaysOnSampler) ShouldSample(p Parameters) Result {
	return Result{Decision: RecordAndSample, TraceState: parentTraceState(p)}
}

func (s *alwaysOnSampler) Description() string { return "AlwaysOnSampler" }

func (s *alwaysOffSampler) ShouldSample(p Parameters) Result {
	return Result{Decision: Drop, TraceState: parentTraceState(p)}
}

func (s *alwaysOffSampler) Description() string { return "AlwaysOffSampler" }

// RatioSampler 按 TraceID 比率采样。
//
// 采样条件为 low64(traceID) < ratio * 2^64。由于只依赖 TraceID，
// 同一条链路在所有进程中得到一致决策。
type RatioSampler struct {
	ratio      float64
	upperBound uint64
	desc       string
}

// TraceIDRatioBased 创建比率采样器，ratio 被钳制到 [0, 1]，NaN 视为 0。
func TraceIDRatioBased(ratio float64) *RatioSampler {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &RatioSampler{
		ratio:      ratio,
		upperBound: ratioToBound(ratio),
		desc:       fmt.Sprintf("TraceIdRatioBased{%g}", ratio),
	}
}

// NewTraceIDRatioBased 与 [TraceIDRatioBased] 相同，但越界时返回 [ErrInvalidRatio]。
func NewTraceIDRatioBased(ratio float64) (*RatioSampler, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	return TraceIDRatioBased(ratio), nil
}

// ratioToBound 把比率换算为 uint64 上界。ratio=1 由 ShouldSample 单独处理。
func ratioToBound(ratio float64) uint64 {
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return math.MaxUint64
	}
	// ratio < 1 时结果严格小于 2^64
	return uint64(ratio * math.Exp2(64))
}

// ShouldSample 实现 Sampler。
func (s *RatioSampler) ShouldSample(p Parameters) Result {
	decision := Drop
	switch {
	case s.ratio >= 1:
		decision = RecordAndSample
	case s.ratio > 0 && p.TraceID.Low64() < s.upperBound:
		decision = RecordAndSample
	}
	return Result{Decision: decision, TraceState: parentTraceState(p)}
}

// Description 实现 Sampler。
func (s *RatioSampler) Description() string { return s.desc }

// Ratio 返回采样比率。
func (s *RatioSampler) Ratio() float64 { return s.ratio }

func validateRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return ErrInvalidRatio
	}
	return nil
}

var (
	_ Sampler = (*alwaysOnSampler)(nil)
	_ Sampler = (*alwaysOffSampler)(nil)
	_ Sampler = (*RatioSampler)(nil)
)
