package xshim

import (
	"sync"

	"github.com/omeyang/xtel/pkg/trace/xbaggage"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

type spanKey struct {
	traceID xspanctx.TraceID
	spanID  xspanctx.SpanID
}

func keyOf(sc xspanctx.SpanContext) spanKey {
	return spanKey{traceID: sc.TraceID(), spanID: sc.SpanID()}
}

// Table 以 (TraceID, SpanID) 为键的 SpanContextShim 表，可并发使用。
type Table struct {
	mu      sync.RWMutex
	entries map[spanKey]*SpanContextShim
}

// NewTable 创建空表。
func NewTable() *Table {
	return &Table{entries: make(map[spanKey]*SpanContextShim)}
}

// Get 返回 sc 对应的 shim。
func (t *Table) Get(sc xspanctx.SpanContext) (*SpanContextShim, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[keyOf(sc)]
	return s, ok
}

// GetBaggageItem 读取 sc 对应 baggage 中的 key。
func (t *Table) GetBaggageItem(sc xspanctx.SpanContext, key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[keyOf(sc)]
	if !ok {
		return "", false
	}
	return s.BaggageItem(key)
}

// SetBaggageItem 在 sc 的 baggage 中写入 key=value，条目不存在时先创建。
// 返回写入后的 shim。
func (t *Table) SetBaggageItem(sc xspanctx.SpanContext, key, value string) *SpanContextShim {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := keyOf(sc)
	s, ok := t.entries[k]
	if !ok {
		s = NewSpanContextShim(sc, nil)
	}
	s = s.WithBaggageItem(key, value)
	t.entries[k] = s
	return s
}

// Create 为 sc 创建空 baggage 的条目，已存在时返回已有条目。
func (t *Table) Create(sc xspanctx.SpanContext) *SpanContextShim {
	return t.CreateWithBaggage(sc, nil)
}

// CreateWithBaggage 为 sc 创建条目，已存在时返回已有条目。
func (t *Table) CreateWithBaggage(sc xspanctx.SpanContext, b *xbaggage.Baggage) *SpanContextShim {
	k := keyOf(sc)
	t.mu.RLock()
	s, ok := t.entries[k]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.entries[k]; ok {
		return s
	}
	s = NewSpanContextShim(sc, b)
	t.entries[k] = s
	return s
}

// Remove 删除 sc 对应的条目。
func (t *Table) Remove(sc xspanctx.SpanContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, keyOf(sc))
}

// Len 返回条目数。
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
