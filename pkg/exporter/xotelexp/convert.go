package xotelexp

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// =============================================================================
// SpanContext
// =============================================================================

// SpanContextToOTel 转换为 OTel SpanContext，tracestate 中 OTel 不接受的条目被丢弃。
func SpanContextToOTel(sc xspanctx.SpanContext) trace.SpanContext {
	ts, err := trace.ParseTraceState(sc.TraceState().String())
	if err != nil {
		ts = trace.TraceState{}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(sc.TraceID()),
		SpanID:     trace.SpanID(sc.SpanID()),
		TraceFlags: trace.TraceFlags(sc.TraceFlags()),
		TraceState: ts,
		Remote:     sc.IsRemote(),
	})
}

// SpanContextFromOTel 从 OTel SpanContext 转换。
func SpanContextFromOTel(sc trace.SpanContext) xspanctx.SpanContext {
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    xspanctx.TraceID(sc.TraceID()),
		SpanID:     xspanctx.SpanID(sc.SpanID()),
		TraceFlags: xspanctx.TraceFlags(sc.TraceFlags()),
		TraceState: xspanctx.ParseTraceState(sc.TraceState().String()),
		Remote:     sc.IsRemote(),
	})
}

// =============================================================================
// Resource
// =============================================================================

// ResourceToOTel 转换为无 schema 的 OTel Resource。
func ResourceToOTel(r *xsdk.Resource) *resource.Resource {
	return resource.NewSchemaless(r.Attributes()...)
}

// ResourceFromOTel 从 OTel Resource 转换，nil 得到空 Resource。
func ResourceFromOTel(r *resource.Resource) *xsdk.Resource {
	if r == nil {
		return xsdk.NewResource()
	}
	return xsdk.NewResource(r.Attributes()...)
}

// =============================================================================
// SpanData
// =============================================================================

// SpanKindToOTel 转换 span 类型。
func SpanKindToOTel(k xspanctx.SpanKind) trace.SpanKind {
	switch k {
	case xspanctx.SpanKindServer:
		return trace.SpanKindServer
	case xspanctx.SpanKindClient:
		return trace.SpanKindClient
	case xspanctx.SpanKindProducer:
		return trace.SpanKindProducer
	case xspanctx.SpanKindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

func statusToOTel(s xsdk.Status) sdktrace.Status {
	switch s.Code {
	case xsdk.StatusError:
		return sdktrace.Status{Code: codes.Error, Description: s.Description}
	case xsdk.StatusOk:
		return sdktrace.Status{Code: codes.Ok}
	default:
		return sdktrace.Status{Code: codes.Unset}
	}
}

// ToStub 把 SpanData 转换为 tracetest.SpanStub。
func ToStub(sd xsdk.SpanData) tracetest.SpanStub {
	stub := tracetest.SpanStub{
		Name:              sd.Name,
		SpanContext:       SpanContextToOTel(sd.SpanContext),
		Parent:            SpanContextToOTel(sd.Parent),
		SpanKind:          SpanKindToOTel(sd.Kind),
		StartTime:         sd.StartTime,
		EndTime:           sd.EndTime,
		Attributes:        sd.Attributes,
		DroppedAttributes: sd.DroppedAttributes,
		DroppedEvents:     sd.DroppedEvents,
		DroppedLinks:      sd.DroppedLinks,
		Status:            statusToOTel(sd.Status),
		Resource:          ResourceToOTel(sd.Resource),
		InstrumentationScope: instrumentation.Scope{
			Name:      sd.Scope.Name,
			Version:   sd.Scope.Version,
			SchemaURL: sd.Scope.SchemaURL,
		},
	}
	for _, ev := range sd.Events {
		stub.Events = append(stub.Events, sdktrace.Event{
			Name:                  ev.Name,
			Attributes:            ev.Attributes,
			DroppedAttributeCount: ev.DroppedAttributeCount,
			Time:                  ev.Time,
		})
	}
	for _, l := range sd.Links {
		stub.Links = append(stub.Links, sdktrace.Link{
			SpanContext: SpanContextToOTel(l.SpanContext),
			Attributes:  l.Attributes,
		})
	}
	return stub
}

// ToReadOnlySpans 批量转换为 OTel 导出器接受的只读 span。
func ToReadOnlySpans(spans []xsdk.SpanData) []sdktrace.ReadOnlySpan {
	stubs := make(tracetest.SpanStubs, len(spans))
	for i, sd := range spans {
		stubs[i] = ToStub(sd)
	}
	return stubs.Snapshots()
}
