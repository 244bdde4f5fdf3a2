package xsdk

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// attributeMap 保持插入顺序的有界属性表。
//
// 已存在的 key 总是可以更新；表满后新 key 被丢弃并计数。
type attributeMap struct {
	keys        []attribute.Key
	values      map[attribute.Key]attribute.Value
	capacity    int
	valueLimit  int
	droppedKeys int
}

func newAttributeMap(capacity, valueLimit int) *attributeMap {
	return &attributeMap{
		values:     make(map[attribute.Key]attribute.Value),
		capacity:   capacity,
		valueLimit: valueLimit,
	}
}

// set 值类型为 INVALID 时删除 key。
func (m *attributeMap) set(kv attribute.KeyValue) {
	if kv.Key == "" {
		return
	}
	if kv.Value.Type() == attribute.INVALID {
		m.remove(kv.Key)
		return
	}
	v := truncateValue(kv.Value, m.valueLimit)
	if _, ok := m.values[kv.Key]; ok {
		m.values[kv.Key] = v
		return
	}
	if len(m.keys) >= m.capacity {
		m.droppedKeys++
		return
	}
	m.keys = append(m.keys, kv.Key)
	m.values[kv.Key] = v
}

func (m *attributeMap) remove(key attribute.Key) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *attributeMap) get(key attribute.Key) (attribute.Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *attributeMap) list() []attribute.KeyValue {
	if len(m.keys) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, len(m.keys))
	for i, k := range m.keys {
		out[i] = attribute.KeyValue{Key: k, Value: m.values[k]}
	}
	return out
}

// limitAttributes 截取前 n 个有效属性，返回结果与被丢弃的数量。
func limitAttributes(attrs []attribute.KeyValue, n, valueLimit int) ([]attribute.KeyValue, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	m := newAttributeMap(n, valueLimit)
	for _, kv := range attrs {
		m.set(kv)
	}
	return m.list(), m.droppedKeys
}

// truncateValue 按字节截断字符串与字符串切片，截断点落在 UTF-8 字符边界上。
func truncateValue(v attribute.Value, limit int) attribute.Value {
	if limit < 0 {
		return v
	}
	switch v.Type() {
	case attribute.STRING:
		s := v.AsString()
		if len(s) > limit {
			return attribute.StringValue(truncateString(s, limit))
		}
	case attribute.STRINGSLICE:
		ss := v.AsStringSlice()
		changed := false
		for i, s := range ss {
			if len(s) > limit {
				ss[i] = truncateString(s, limit)
				changed = true
			}
		}
		if changed {
			return attribute.StringSliceValue(ss)
		}
	default:
	}
	return v
}

func truncateString(s string, limit int) string {
	return strings.ToValidUTF8(s[:limit], "")
}
