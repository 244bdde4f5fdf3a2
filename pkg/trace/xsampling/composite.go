package xsampling

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// CompositeMode 组合采样模式
type CompositeMode int

const (
	// ModeAll 取所有子采样器中最保守的决策（Drop < RecordOnly < RecordAndSample）
	//
	// 空列表时返回 RecordAndSample（取最小值的恒等元）
	ModeAll CompositeMode = iota

	// ModeAny 取所有子采样器中最宽松的决策
	//
	// 空列表时返回 Drop
	ModeAny
)

// String 返回组合模式的字符串表示
func (m CompositeMode) String() string {
	switch m {
	case ModeAll:
		return "ALL"
	case ModeAny:
		return "ANY"
	default:
		return "Unknown"
	}
}

// CompositeSampler 组合采样策略
//
// 与短路求值不同，所有子采样器都会被调用，它们返回的属性按顺序拼接。
// TraceState 取第一个子采样器的结果，无子采样器时继承父级。
type CompositeSampler struct {
	samplers []Sampler
	mode     CompositeMode
}

// Composite 创建组合采样器
//
// 非法 mode 返回 ErrInvalidMode，nil 子采样器返回 ErrNilSampler。
func Composite(mode CompositeMode, samplers ...Sampler) (*CompositeSampler, error) {
	if mode != ModeAll && mode != ModeAny {
		return nil, ErrInvalidMode
	}
	for _, s := range samplers {
		if s == nil {
			return nil, ErrNilSampler
		}
	}
	copied := make([]Sampler, len(samplers))
	copy(copied, samplers)
	return &CompositeSampler{samplers: copied, mode: mode}, nil
}

// All 是 Composite(ModeAll, ...) 的简写。
func All(samplers ...Sampler) (*CompositeSampler, error) {
	return Composite(ModeAll, samplers...)
}

// Any 是 Composite(ModeAny, ...) 的简写。
func Any(samplers ...Sampler) (*CompositeSampler, error) {
	return Composite(ModeAny, samplers...)
}

// ShouldSample 实现 Sampler。
func (s *CompositeSampler) ShouldSample(p Parameters) Result {
	if len(s.samplers) == 0 {
		d := RecordAndSample
		if s.mode == ModeAny {
			d = Drop
		}
		return Result{Decision: d, TraceState: parentTraceState(p)}
	}

	var attrs []attribute.KeyValue
	var out Result
	for i, child := range s.samplers {
		r := child.ShouldSample(p)
		attrs = append(attrs, r.Attributes...)
		if i == 0 {
			out = r
			continue
		}
		if s.mode == ModeAll && r.Decision < out.Decision {
			out.Decision = r.Decision
		}
		if s.mode == ModeAny && r.Decision > out.Decision {
			out.Decision = r.Decision
		}
	}
	out.Attributes = attrs
	return out
}

// Description 实现 Sampler。
func (s *CompositeSampler) Description() string {
	parts := make([]string, 0, len(s.samplers))
	for _, child := range s.samplers {
		parts = append(parts, child.Description())
	}
	return "Composite" + s.mode.String() + "{" + strings.Join(parts, ",") + "}"
}

// Mode 返回组合模式。
func (s *CompositeSampler) Mode() CompositeMode { return s.mode }

var _ Sampler = (*CompositeSampler)(nil)
