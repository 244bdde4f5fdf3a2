package xshim

import (
	"github.com/omeyang/xtel/pkg/trace/xbaggage"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// BaggageShim 不可变的 baggage 包装。零值等价于空 baggage。
type BaggageShim struct {
	baggage *xbaggage.Baggage
}

// NewBaggageShim 包装 b，nil 视为空。
func NewBaggageShim(b *xbaggage.Baggage) *BaggageShim {
	if b == nil {
		b = xbaggage.Empty()
	}
	return &BaggageShim{baggage: b}
}

// Baggage 返回被包装的 baggage。
func (s *BaggageShim) Baggage() *xbaggage.Baggage {
	if s == nil || s.baggage == nil {
		return xbaggage.Empty()
	}
	return s.baggage
}

// Item 返回 key 对应的值。
func (s *BaggageShim) Item(key string) (string, bool) {
	e, ok := s.Baggage().Get(key)
	return e.Value, ok
}

// Items 返回全部条目，按 key 排序。
func (s *BaggageShim) Items() map[string]string {
	entries := s.Baggage().Entries()
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out
}

// maxBaggageDepth 父链超过该层数时合并，查找开销不随写入次数增长
const maxBaggageDepth = 8

// WithItem 返回追加了一条记录的新 BaggageShim，key 或 value 非法时返回原值。
func (s *BaggageShim) WithItem(key, value string) *BaggageShim {
	b := s.Baggage().ToBuilder()
	if !b.Put(key, value) {
		return s
	}
	nb := b.Build()
	if nb.Depth() > maxBaggageDepth {
		nb = nb.Flatten()
	}
	return &BaggageShim{baggage: nb}
}

// SpanContextShim 不可变的 (SpanContext, baggage) 组合。
type SpanContextShim struct {
	sc      xspanctx.SpanContext
	baggage *BaggageShim
}

// NewSpanContextShim 创建 SpanContextShim。
func NewSpanContextShim(sc xspanctx.SpanContext, b *xbaggage.Baggage) *SpanContextShim {
	return &SpanContextShim{sc: sc, baggage: NewBaggageShim(b)}
}

// SpanContext 返回 SpanContext。
func (s *SpanContextShim) SpanContext() xspanctx.SpanContext { return s.sc }

// BaggageShim 返回 baggage 包装。
func (s *SpanContextShim) BaggageShim() *BaggageShim { return s.baggage }

// BaggageItem 返回 baggage 中 key 对应的值。
func (s *SpanContextShim) BaggageItem(key string) (string, bool) {
	return s.baggage.Item(key)
}

// WithBaggageItem 返回追加 baggage 记录后的副本。
func (s *SpanContextShim) WithBaggageItem(key, value string) *SpanContextShim {
	return &SpanContextShim{sc: s.sc, baggage: s.baggage.WithItem(key, value)}
}

// ToShim 把 SpanContext 与 baggage 组合为 shim。
func ToShim(sc xspanctx.SpanContext, b *xbaggage.Baggage) *SpanContextShim {
	return NewSpanContextShim(sc, b)
}

// FromShim 拆出 SpanContext 与 baggage；nil shim 返回零值与空 baggage。
func FromShim(s *SpanContextShim) (xspanctx.SpanContext, *xbaggage.Baggage) {
	if s == nil {
		return xspanctx.SpanContext{}, xbaggage.Empty()
	}
	return s.sc, s.baggage.Baggage()
}
