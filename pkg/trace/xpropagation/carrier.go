package xpropagation

import (
	"net/http"

	"google.golang.org/grpc/metadata"
)

// Setter 写入载体。
type Setter interface {
	Set(key, value string)
}

// Getter 读取载体，key 不存在时返回 nil。
type Getter interface {
	Get(key string) []string
}

// =============================================================================
// 泛型适配
// =============================================================================

type boundSetter[C any] struct {
	carrier C
	set     func(C, string, string)
}

func (b boundSetter[C]) Set(key, value string) { b.set(b.carrier, key, value) }

// Bind 把任意载体与写函数绑定为 Setter。
//
//	s := xpropagation.Bind(msg, func(m *kafka.Message, k, v string) {
//		m.Headers = append(m.Headers, kafka.Header{Key: k, Value: []byte(v)})
//	})
func Bind[C any](carrier C, set func(C, string, string)) Setter {
	return boundSetter[C]{carrier: carrier, set: set}
}

type boundGetter[C any] struct {
	carrier C
	get     func(C, string) []string
}

func (b boundGetter[C]) Get(key string) []string { return b.get(b.carrier, key) }

// BindGetter 把任意载体与读函数绑定为 Getter。
func BindGetter[C any](carrier C, get func(C, string) []string) Getter {
	return boundGetter[C]{carrier: carrier, get: get}
}

// =============================================================================
// 内置载体
// =============================================================================

// MapCarrier 基于 map 的载体，key 区分大小写。
type MapCarrier map[string]string

// Set 实现 Setter。
func (c MapCarrier) Set(key, value string) { c[key] = value }

// Get 实现 Getter。
func (c MapCarrier) Get(key string) []string {
	v, ok := c[key]
	if !ok {
		return nil
	}
	return []string{v}
}

// HeaderCarrier 包装 http.Header，key 按 MIME 规范化。
type HeaderCarrier http.Header

// Set 实现 Setter，覆盖已有值。
func (c HeaderCarrier) Set(key, value string) { http.Header(c).Set(key, value) }

// Get 实现 Getter，返回该 key 的全部值。
func (c HeaderCarrier) Get(key string) []string {
	v := http.Header(c).Values(key)
	if len(v) == 0 {
		return nil
	}
	return v
}

// MetadataCarrier 包装 gRPC metadata，key 统一小写。
type MetadataCarrier metadata.MD

// Set 实现 Setter，覆盖已有值。
func (c MetadataCarrier) Set(key, value string) { metadata.MD(c).Set(key, value) }

// Get 实现 Getter。
func (c MetadataCarrier) Get(key string) []string {
	v := metadata.MD(c).Get(key)
	if len(v) == 0 {
		return nil
	}
	return v
}
