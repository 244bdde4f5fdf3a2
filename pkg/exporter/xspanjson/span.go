package xspanjson

import (
	"time"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// Span SpanData 的 JSON 表示，字段名与 OTLP/JSON 保持相近。
type Span struct {
	TraceID           string      `json:"trace_id"`
	SpanID            string      `json:"span_id"`
	ParentSpanID      string      `json:"parent_span_id,omitempty"`
	TraceFlags        string      `json:"trace_flags"`
	TraceState        string      `json:"trace_state,omitempty"`
	Name              string      `json:"name"`
	Kind              string      `json:"kind"`
	StartTimeUnixNano int64       `json:"start_time_unix_nano"`
	EndTimeUnixNano   int64       `json:"end_time_unix_nano"`
	Attributes        []Attribute `json:"attributes,omitempty"`
	DroppedAttributes int         `json:"dropped_attributes_count,omitempty"`
	Events            []Event     `json:"events,omitempty"`
	DroppedEvents     int         `json:"dropped_events_count,omitempty"`
	Links             []Link      `json:"links,omitempty"`
	DroppedLinks      int         `json:"dropped_links_count,omitempty"`
	Status            Status      `json:"status"`
	RemoteParent      bool        `json:"remote_parent,omitempty"`
	Resource          []Attribute `json:"resource,omitempty"`
	Scope             Scope       `json:"scope"`
}

// Event span 事件
type Event struct {
	Name              string      `json:"name"`
	TimeUnixNano      int64       `json:"time_unix_nano"`
	Attributes        []Attribute `json:"attributes,omitempty"`
	DroppedAttributes int         `json:"dropped_attributes_count,omitempty"`
}

// Link span 关联
type Link struct {
	TraceID    string      `json:"trace_id"`
	SpanID     string      `json:"span_id"`
	TraceFlags string      `json:"trace_flags"`
	TraceState string      `json:"trace_state,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Status span 状态
type Status struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Scope instrumentation scope
type Scope struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	SchemaURL string `json:"schema_url,omitempty"`
}

// =============================================================================
// SpanData -> Span
// =============================================================================

// FromSpanData 把 SpanData 转为 JSON 表示。
func FromSpanData(sd xsdk.SpanData) Span {
	sc := sd.SpanContext
	s := Span{
		TraceID:           sc.TraceID().String(),
		SpanID:            sc.SpanID().String(),
		TraceFlags:        sc.TraceFlags().String(),
		TraceState:        sc.TraceState().String(),
		Name:              sd.Name,
		Kind:              sd.Kind.String(),
		StartTimeUnixNano: unixNano(sd.StartTime),
		EndTimeUnixNano:   unixNano(sd.EndTime),
		Attributes:        FromAttributes(sd.Attributes),
		DroppedAttributes: sd.DroppedAttributes,
		DroppedEvents:     sd.DroppedEvents,
		DroppedLinks:      sd.DroppedLinks,
		Status:            Status{Code: sd.Status.Code.String(), Description: sd.Status.Description},
		RemoteParent:      sd.HasRemoteParent,
		Resource:          FromAttributes(sd.Resource.Attributes()),
		Scope:             Scope(sd.Scope),
	}
	if sd.Parent.SpanID().IsValid() {
		s.ParentSpanID = sd.Parent.SpanID().String()
	}
	for _, e := range sd.Events {
		s.Events = append(s.Events, Event{
			Name:              e.Name,
			TimeUnixNano:      unixNano(e.Time),
			Attributes:        FromAttributes(e.Attributes),
			DroppedAttributes: e.DroppedAttributeCount,
		})
	}
	for _, l := range sd.Links {
		s.Links = append(s.Links, Link{
			TraceID:    l.SpanContext.TraceID().String(),
			SpanID:     l.SpanContext.SpanID().String(),
			TraceFlags: l.SpanContext.TraceFlags().String(),
			TraceState: l.SpanContext.TraceState().String(),
			Attributes: FromAttributes(l.Attributes),
		})
	}
	return s
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// =============================================================================
// Span -> SpanData
// =============================================================================

// ToSpanData 还原 SpanData。结果标记为已结束。
func (s Span) ToSpanData() (xsdk.SpanData, error) {
	sc, err := spanContext(s.TraceID, s.SpanID, s.TraceFlags, s.TraceState)
	if err != nil {
		return xsdk.SpanData{}, err
	}
	sd := xsdk.SpanData{
		Name:              s.Name,
		SpanContext:       sc,
		Kind:              parseKind(s.Kind),
		StartTime:         fromUnixNano(s.StartTimeUnixNano),
		EndTime:           fromUnixNano(s.EndTimeUnixNano),
		DroppedAttributes: s.DroppedAttributes,
		DroppedEvents:     s.DroppedEvents,
		DroppedLinks:      s.DroppedLinks,
		Status:            xsdk.Status{Code: parseStatusCode(s.Status.Code), Description: s.Status.Description},
		HasRemoteParent:   s.RemoteParent,
		HasEnded:          true,
		Scope:             xsdk.InstrumentationScope(s.Scope),
	}
	if sd.Attributes, err = ToAttributes(s.Attributes); err != nil {
		return xsdk.SpanData{}, err
	}
	res, err := ToAttributes(s.Resource)
	if err != nil {
		return xsdk.SpanData{}, err
	}
	sd.Resource = xsdk.NewResource(res...)

	if s.ParentSpanID != "" {
		pid, err := xspanctx.ParseSpanID(s.ParentSpanID)
		if err != nil {
			return xsdk.SpanData{}, invalid("parent_span_id", err)
		}
		sd.Parent = xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
			TraceID: sc.TraceID(),
			SpanID:  pid,
			Remote:  s.RemoteParent,
		})
	}
	for _, e := range s.Events {
		attrs, err := ToAttributes(e.Attributes)
		if err != nil {
			return xsdk.SpanData{}, err
		}
		sd.Events = append(sd.Events, xsdk.Event{
			Name:                  e.Name,
			Time:                  fromUnixNano(e.TimeUnixNano),
			Attributes:            attrs,
			DroppedAttributeCount: e.DroppedAttributes,
		})
	}
	for _, l := range s.Links {
		lsc, err := spanContext(l.TraceID, l.SpanID, l.TraceFlags, l.TraceState)
		if err != nil {
			return xsdk.SpanData{}, err
		}
		attrs, err := ToAttributes(l.Attributes)
		if err != nil {
			return xsdk.SpanData{}, err
		}
		sd.Links = append(sd.Links, xspanctx.Link{SpanContext: lsc, Attributes: attrs})
	}
	return sd, nil
}

func spanContext(traceID, spanID, flags, state string) (xspanctx.SpanContext, error) {
	tid, err := xspanctx.ParseTraceID(traceID)
	if err != nil {
		return xspanctx.SpanContext{}, invalid("trace_id", err)
	}
	sid, err := xspanctx.ParseSpanID(spanID)
	if err != nil {
		return xspanctx.SpanContext{}, invalid("span_id", err)
	}
	var tf xspanctx.TraceFlags
	if flags != "" {
		if tf, err = xspanctx.ParseTraceFlags(flags); err != nil {
			return xspanctx.SpanContext{}, invalid("trace_flags", err)
		}
	}
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: tf,
		TraceState: xspanctx.ParseTraceState(state),
	}), nil
}

func parseKind(s string) xspanctx.SpanKind {
	for k := xspanctx.SpanKindInternal; k <= xspanctx.SpanKindConsumer; k++ {
		if k.String() == s {
			return k
		}
	}
	return xspanctx.SpanKindInternal
}

func parseStatusCode(s string) xsdk.StatusCode {
	switch s {
	case xsdk.StatusError.String():
		return xsdk.StatusError
	case xsdk.StatusOk.String():
		return xsdk.StatusOk
	default:
		return xsdk.StatusUnset
	}
}
