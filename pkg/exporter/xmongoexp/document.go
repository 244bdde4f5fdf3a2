package xmongoexp

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// Document 集合中的一个 span 文档。
//
// _id 由 trace ID 与 span ID 组成，重试写入同一批次不会产生重复文档。
type Document struct {
	ID           string         `bson:"_id"`
	TraceID      string         `bson:"trace_id"`
	SpanID       string         `bson:"span_id"`
	ParentSpanID string         `bson:"parent_span_id,omitempty"`
	TraceState   string         `bson:"trace_state,omitempty"`
	Name         string         `bson:"name"`
	Kind         string         `bson:"kind"`
	ServiceName  string         `bson:"service_name,omitempty"`
	StartTime    time.Time      `bson:"start_time"`
	EndTime      time.Time      `bson:"end_time"`
	DurationNs   int64          `bson:"duration_ns"`
	Attributes   map[string]any `bson:"attributes,omitempty"`
	Resource     map[string]any `bson:"resource,omitempty"`
	Events       []EventDoc     `bson:"events,omitempty"`
	Links        []LinkDoc      `bson:"links,omitempty"`
	Status       StatusDoc      `bson:"status"`
	Scope        ScopeDoc       `bson:"scope"`
}

// EventDoc span 事件
type EventDoc struct {
	Name       string         `bson:"name"`
	Time       time.Time      `bson:"time"`
	Attributes map[string]any `bson:"attributes,omitempty"`
}

// LinkDoc span 关联
type LinkDoc struct {
	TraceID    string         `bson:"trace_id"`
	SpanID     string         `bson:"span_id"`
	Attributes map[string]any `bson:"attributes,omitempty"`
}

// StatusDoc span 状态
type StatusDoc struct {
	Code        string `bson:"code"`
	Description string `bson:"description,omitempty"`
}

// ScopeDoc instrumentation scope
type ScopeDoc struct {
	Name    string `bson:"name"`
	Version string `bson:"version,omitempty"`
}

// DocumentID 文档主键
func DocumentID(sd xsdk.SpanData) string {
	return sd.SpanContext.TraceID().String() + ":" + sd.SpanContext.SpanID().String()
}

// ToDocument 把 SpanData 转为文档。
func ToDocument(sd xsdk.SpanData) Document {
	d := Document{
		ID:          DocumentID(sd),
		TraceID:     sd.SpanContext.TraceID().String(),
		SpanID:      sd.SpanContext.SpanID().String(),
		TraceState:  sd.SpanContext.TraceState().String(),
		Name:        sd.Name,
		Kind:        sd.Kind.String(),
		StartTime:   sd.StartTime,
		EndTime:     sd.EndTime,
		DurationNs:  int64(sd.Duration()),
		Attributes:  attrMap(sd.Attributes),
		Resource:    attrMap(sd.Resource.Attributes()),
		Status:      StatusDoc{Code: sd.Status.Code.String(), Description: sd.Status.Description},
		Scope:       ScopeDoc{Name: sd.Scope.Name, Version: sd.Scope.Version},
		ServiceName: serviceName(sd.Resource),
	}
	if sd.Parent.SpanID().IsValid() {
		d.ParentSpanID = sd.Parent.SpanID().String()
	}
	for _, e := range sd.Events {
		d.Events = append(d.Events, EventDoc{Name: e.Name, Time: e.Time, Attributes: attrMap(e.Attributes)})
	}
	for _, l := range sd.Links {
		d.Links = append(d.Links, LinkDoc{
			TraceID:    l.SpanContext.TraceID().String(),
			SpanID:     l.SpanContext.SpanID().String(),
			Attributes: attrMap(l.Attributes),
		})
	}
	return d
}

func serviceName(r *xsdk.Resource) string {
	if v, ok := r.Get(xsdk.ServiceNameKey); ok {
		return v.Emit()
	}
	return ""
}

// attrMap 保留原生类型，切片类属性存为数组
func attrMap(attrs []attribute.KeyValue) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		if kv.Valid() {
			m[string(kv.Key)] = kv.Value.AsInterface()
		}
	}
	return m
}
