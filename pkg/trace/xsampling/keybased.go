package xsampling

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
)

// KeyBasedSampler 按 span 属性值做一致性采样。
//
// 对于相同的属性值，在相同的 ratio 下总是产生相同的决策，适用于：
//   - 按 tenant.id 采样，同一租户的请求采样行为一致
//   - 按 user.id 采样，便于完整复现单个用户的调用链
//
// span 缺少该属性时回退到 TraceID 比率采样，仍保持确定性。
type KeyBasedSampler struct {
	key      attribute.Key
	ratio    float64
	fallback *RatioSampler
}

// KeyBased 创建基于属性 key 的一致性采样器。
//
// ratio 越界或为 NaN 时返回 ErrInvalidRatio，key 为空时返回 ErrEmptyKey。
func KeyBased(ratio float64, key attribute.Key) (*KeyBasedSampler, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &KeyBasedSampler{
		key:      key,
		ratio:    ratio,
		fallback: TraceIDRatioBased(ratio),
	}, nil
}

// ShouldSample 实现 Sampler。
func (s *KeyBasedSampler) ShouldSample(p Parameters) Result {
	value, ok := lookup(p.Attributes, s.key)
	if !ok {
		return s.fallback.ShouldSample(p)
	}
	decision := Drop
	switch {
	case s.ratio >= 1:
		decision = RecordAndSample
	case s.ratio > 0:
		// xxhash 是确定性的，同一值在所有进程中产生相同哈希
		normalized := float64(xxhash.Sum64String(value)) / float64(math.MaxUint64)
		if normalized < s.ratio {
			decision = RecordAndSample
		}
	}
	return Result{Decision: decision, TraceState: parentTraceState(p)}
}

// Description 实现 Sampler。
func (s *KeyBasedSampler) Description() string {
	return fmt.Sprintf("KeyBased{%s,%g}", s.key, s.ratio)
}

// Ratio 返回采样比率。
func (s *KeyBasedSampler) Ratio() float64 { return s.ratio }

func lookup(attrs []attribute.KeyValue, key attribute.Key) (string, bool) {
	for _, kv := range attrs {
		if kv.Key == key && kv.Value.Type() != attribute.INVALID {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

var _ Sampler = (*KeyBasedSampler)(nil)
