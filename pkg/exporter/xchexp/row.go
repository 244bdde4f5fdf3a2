package xchexp

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// Row spans 表中的一行，列名见 CreateTableSQL。
type Row struct {
	Timestamp          time.Time         `ch:"timestamp"`
	TraceID            string            `ch:"trace_id"`
	SpanID             string            `ch:"span_id"`
	ParentSpanID       string            `ch:"parent_span_id"`
	TraceState         string            `ch:"trace_state"`
	SpanName           string            `ch:"span_name"`
	SpanKind           string            `ch:"span_kind"`
	ServiceName        string            `ch:"service_name"`
	ScopeName          string            `ch:"scope_name"`
	ScopeVersion       string            `ch:"scope_version"`
	Duration           int64             `ch:"duration"`
	StatusCode         string            `ch:"status_code"`
	StatusMessage      string            `ch:"status_message"`
	SpanAttributes     map[string]string `ch:"span_attributes"`
	ResourceAttributes map[string]string `ch:"resource_attributes"`
	EventsTimestamp    []time.Time       `ch:"events_timestamp"`
	EventsName         []string          `ch:"events_name"`
	LinksTraceID       []string          `ch:"links_trace_id"`
	LinksSpanID        []string          `ch:"links_span_id"`
}

// ToRow 把 SpanData 展开为一行，属性值统一转为字符串。
func ToRow(sd xsdk.SpanData) Row {
	r := Row{
		Timestamp:          sd.StartTime,
		TraceID:            sd.SpanContext.TraceID().String(),
		SpanID:             sd.SpanContext.SpanID().String(),
		TraceState:         sd.SpanContext.TraceState().String(),
		SpanName:           sd.Name,
		SpanKind:           sd.Kind.String(),
		ScopeName:          sd.Scope.Name,
		ScopeVersion:       sd.Scope.Version,
		Duration:           int64(sd.Duration()),
		StatusCode:         sd.Status.Code.String(),
		StatusMessage:      sd.Status.Description,
		SpanAttributes:     attrMap(sd.Attributes),
		ResourceAttributes: attrMap(sd.Resource.Attributes()),
		EventsTimestamp:    make([]time.Time, 0, len(sd.Events)),
		EventsName:         make([]string, 0, len(sd.Events)),
		LinksTraceID:       make([]string, 0, len(sd.Links)),
		LinksSpanID:        make([]string, 0, len(sd.Links)),
	}
	if sd.Parent.SpanID().IsValid() {
		r.ParentSpanID = sd.Parent.SpanID().String()
	}
	if v, ok := sd.Resource.Get(xsdk.ServiceNameKey); ok {
		r.ServiceName = v.Emit()
	}
	for _, e := range sd.Events {
		r.EventsTimestamp = append(r.EventsTimestamp, e.Time)
		r.EventsName = append(r.EventsName, e.Name)
	}
	for _, l := range sd.Links {
		r.LinksTraceID = append(r.LinksTraceID, l.SpanContext.TraceID().String())
		r.LinksSpanID = append(r.LinksSpanID, l.SpanContext.SpanID().String())
	}
	return r
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		if kv.Valid() {
			m[string(kv.Key)] = kv.Value.Emit()
		}
	}
	return m
}
