package xsdk

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// 资源属性 key
const (
	ServiceNameKey          = attribute.Key("service.name")
	ServiceInstanceIDKey    = attribute.Key("service.instance.id")
	TelemetrySDKNameKey     = attribute.Key("telemetry.sdk.name")
	TelemetrySDKLanguageKey = attribute.Key("telemetry.sdk.language")
)

// Resource 产生遥测数据的实体，不可变属性集合。重复 key 以后出现者为准。
type Resource struct {
	set attribute.Set
}

var emptyResource = &Resource{set: attribute.NewSet()}

// NewResource 创建 Resource。
func NewResource(attrs ...attribute.KeyValue) *Resource {
	return &Resource{set: attribute.NewSet(attrs...)}
}

// EmptyResource 返回空 Resource。
func EmptyResource() *Resource {
	return emptyResource
}

// DefaultResource 默认资源：unknown_service、SDK 名称与语言、随机实例 ID。
func DefaultResource() *Resource {
	return NewResource(
		ServiceNameKey.String("unknown_service"),
		TelemetrySDKNameKey.String("xtel"),
		TelemetrySDKLanguageKey.String("go"),
		ServiceInstanceIDKey.String(uuid.NewString()),
	)
}

// Attributes 按 key 排序返回全部属性。
func (r *Resource) Attributes() []attribute.KeyValue {
	if r == nil {
		return nil
	}
	return r.set.ToSlice()
}

// Set 返回底层 attribute.Set。
func (r *Resource) Set() attribute.Set {
	if r == nil {
		return *attribute.EmptySet()
	}
	return r.set
}

// Get 按 key 查询。
func (r *Resource) Get(key attribute.Key) (attribute.Value, bool) {
	if r == nil {
		return attribute.Value{}, false
	}
	return r.set.Value(key)
}

// Len 属性数量
func (r *Resource) Len() int {
	if r == nil {
		return 0
	}
	return r.set.Len()
}

// Merge 合并两个 Resource，同名 key 以 other 为准。
func (r *Resource) Merge(other *Resource) *Resource {
	if other == nil || other.Len() == 0 {
		if r == nil {
			return emptyResource
		}
		return r
	}
	if r == nil || r.Len() == 0 {
		return other
	}
	attrs := make([]attribute.KeyValue, 0, r.Len()+other.Len())
	attrs = append(attrs, r.Attributes()...)
	attrs = append(attrs, other.Attributes()...)
	return NewResource(attrs...)
}

// Equal 比较属性集合。
func (r *Resource) Equal(other *Resource) bool {
	a, b := r.Set(), other.Set()
	return a.Equals(&b)
}

// String 返回 k=v,k=v 形式的编码。
func (r *Resource) String() string {
	if r == nil {
		return ""
	}
	return r.set.Encoded(attribute.DefaultEncoder())
}
