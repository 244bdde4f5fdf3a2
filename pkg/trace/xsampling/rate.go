package xsampling

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// RateSampler 对完整的 128 位 TraceID 做 xxhash 后按比率采样。
//
// 与 [RatioSampler] 不同，它不假设 TraceID 低 64 位均匀分布，
// 上游使用自增或带时间前缀的 ID 时仍能得到接近 ratio 的采样率。
// 决策只依赖 TraceID，同一条链路在所有使用该采样器的进程中一致。
type RateSampler struct {
	ratio      float64
	upperBound uint64
}

// NewRateSampler 创建哈希比率采样器，ratio 越界或为 NaN 时返回 ErrInvalidRatio。
func NewRateSampler(ratio float64) (*RateSampler, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	return &RateSampler{ratio: ratio, upperBound: ratioToBound(ratio)}, nil
}

// ShouldSample 实现 Sampler。
func (s *RateSampler) ShouldSample(p Parameters) Result {
	decision := Drop
	switch {
	case s.ratio >= 1:
		decision = RecordAndSample
	case s.ratio > 0 && xxhash.Sum64(p.TraceID[:]) < s.upperBound:
		decision = RecordAndSample
	}
	return Result{Decision: decision, TraceState: parentTraceState(p)}
}

// Description 实现 Sampler。
func (s *RateSampler) Description() string {
	return fmt.Sprintf("RateSampler{%g}", s.ratio)
}

// Ratio 返回采样比率。
func (s *RateSampler) Ratio() float64 { return s.ratio }

var _ Sampler = (*RateSampler)(nil)
