package xspanjson

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute 带类型标记的属性。Type 取 attribute.Type 的名称，如 INT64、STRINGSLICE。
type Attribute struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// FromAttributes 编码属性列表，无效属性被跳过。
func FromAttributes(attrs []attribute.KeyValue) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(attrs))
	for _, kv := range attrs {
		if !kv.Valid() {
			continue
		}
		typ := kv.Value.Type()
		v := kv.Value.AsInterface()
		if !knownType(typ) {
			typ, v = attribute.STRING, kv.Value.Emit()
		}
		raw, err := json.Marshal(v)
		if err != nil {
			// 只有 NaN/Inf 浮点会失败，退化为文本
			typ = attribute.STRING
			raw, _ = json.Marshal(kv.Value.Emit())
		}
		out = append(out, Attribute{Key: string(kv.Key), Type: typ.String(), Value: raw})
	}
	return out
}

// ToAttributes 解码属性列表。
func ToAttributes(attrs []Attribute) ([]attribute.KeyValue, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kv, err := a.KeyValue()
		if err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	return out, nil
}

// KeyValue 按 Type 解码 Value。
func (a Attribute) KeyValue() (attribute.KeyValue, error) {
	if a.Key == "" {
		return attribute.KeyValue{}, fmt.Errorf("%w: empty key", ErrInvalidAttribute)
	}
	k := attribute.Key(a.Key)
	var (
		kv  attribute.KeyValue
		err error
	)
	switch a.Type {
	case attribute.BOOL.String():
		kv, err = decode(a.Value, k.Bool)
	case attribute.INT64.String():
		kv, err = decode(a.Value, k.Int64)
	case attribute.FLOAT64.String():
		kv, err = decode(a.Value, k.Float64)
	case attribute.STRING.String():
		kv, err = decode(a.Value, k.String)
	case attribute.BOOLSLICE.String():
		kv, err = decode(a.Value, k.BoolSlice)
	case attribute.INT64SLICE.String():
		kv, err = decode(a.Value, k.Int64Slice)
	case attribute.FLOAT64SLICE.String():
		kv, err = decode(a.Value, k.Float64Slice)
	case attribute.STRINGSLICE.String():
		kv, err = decode(a.Value, k.StringSlice)
	default:
		return attribute.KeyValue{}, fmt.Errorf("%w: %s: unknown type %q", ErrInvalidAttribute, a.Key, a.Type)
	}
	if err != nil {
		return attribute.KeyValue{}, fmt.Errorf("%w: %s: %w", ErrInvalidAttribute, a.Key, err)
	}
	return kv, nil
}

func decode[T any](raw json.RawMessage, build func(T) attribute.KeyValue) (attribute.KeyValue, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return attribute.KeyValue{}, err
	}
	return build(v), nil
}

func knownType(t attribute.Type) bool {
	switch t {
	case attribute.BOOL, attribute.INT64, attribute.FLOAT64, attribute.STRING,
		attribute.BOOLSLICE, attribute.INT64SLICE, attribute.FLOAT64SLICE, attribute.STRINGSLICE:
		return true
	default:
		return false
	}
}
