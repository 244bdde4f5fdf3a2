package xspanjson

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

func mustSC(t *testing.T, traceID, spanID string, sampled bool, state string) xspanctx.SpanContext {
	t.Helper()
	tid, err := xspanctx.ParseTraceID(traceID)
	require.NoError(t, err)
	sid, err := xspanctx.ParseSpanID(spanID)
	require.NoError(t, err)
	var flags xspanctx.TraceFlags
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags.WithSampled(sampled),
		TraceState: xspanctx.ParseTraceState(state),
	})
}

func sampleSpan(t *testing.T) xsdk.SpanData {
	t.Helper()
	start := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	sc := mustSC(t, "0af7651916cd43dd8448eb211c80319c", "b7ad6b7169203331", true, "vendor=v1")
	parent := mustSC(t, "0af7651916cd43dd8448eb211c80319c", "00f067aa0ba902b7", false, "")
	return xsdk.SpanData{
		Name:        "GET /users",
		SpanContext: sc,
		Parent:      parent,
		Kind:        xspanctx.SpanKindServer,
		StartTime:   start,
		EndTime:     start.Add(150 * time.Millisecond),
		Attributes: []attribute.KeyValue{
			attribute.Bool("b", true),
			attribute.Int64("i", -42),
			attribute.Float64("f", 1.5),
			attribute.String("s", "中文 value"),
			attribute.BoolSlice("bs", []bool{true, false}),
			attribute.Int64Slice("is", []int64{1, 2, 3}),
			attribute.Float64Slice("fs", []float64{0.5}),
			attribute.StringSlice("ss", []string{"a", "b"}),
		},
		DroppedAttributes: 2,
		Events: []xsdk.Event{{
			Name:                  "exception",
			Time:                  start.Add(time.Millisecond),
			Attributes:            []attribute.KeyValue{attribute.String("exception.message", "boom")},
			DroppedAttributeCount: 1,
		}},
		DroppedEvents: 3,
		Links: []xspanctx.Link{{
			SpanContext: mustSC(t, "4bf92f3577b34da6a3ce929d0e0e4736", "a2fb4a1d1a96d312", true, ""),
			Attributes:  []attribute.KeyValue{attribute.Int("n", 1)},
		}},
		Status:   xsdk.Status{Code: xsdk.StatusError, Description: "failed"},
		HasEnded: true,
		Resource: xsdk.NewResource(attribute.String("service.name", "checkout")),
		Scope:    xsdk.InstrumentationScope{Name: "http", Version: "1.0.0"},
	}
}

func TestRoundTrip(t *testing.T) {
	in := sampleSpan(t)
	data, err := Marshal([]xsdk.SpanData{in})
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	got := out[0]

	assert.Equal(t, in.Name, got.Name)
	assert.True(t, in.SpanContext.Equal(got.SpanContext))
	assert.Equal(t, in.Parent.SpanID(), got.Parent.SpanID())
	assert.Equal(t, in.Kind, got.Kind)
	assert.True(t, in.StartTime.Equal(got.StartTime))
	assert.True(t, in.EndTime.Equal(got.EndTime))
	assert.Equal(t, in.Attributes, got.Attributes)
	assert.Equal(t, in.DroppedAttributes, got.DroppedAttributes)
	require.Len(t, got.Events, 1)
	assert.Equal(t, in.Events[0].Attributes, got.Events[0].Attributes)
	assert.True(t, in.Events[0].Time.Equal(got.Events[0].Time))
	assert.Equal(t, 1, got.Events[0].DroppedAttributeCount)
	assert.Equal(t, 3, got.DroppedEvents)
	require.Len(t, got.Links, 1)
	assert.True(t, in.Links[0].SpanContext.Equal(got.Links[0].SpanContext))
	assert.Equal(t, in.Status, got.Status)
	assert.True(t, in.Resource.Equal(got.Resource))
	assert.Equal(t, in.Scope, got.Scope)
	assert.True(t, got.HasEnded)
}

func TestWireFormat(t *testing.T) {
	data, err := MarshalSpan(sampleSpan(t))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", m["trace_id"])
	assert.Equal(t, "b7ad6b7169203331", m["span_id"])
	assert.Equal(t, "00f067aa0ba902b7", m["parent_span_id"])
	assert.Equal(t, "01", m["trace_flags"])
	assert.Equal(t, "vendor=v1", m["trace_state"])
	assert.Equal(t, "server", m["kind"])
	assert.Equal(t, map[string]any{"code": "Error", "description": "failed"}, m["status"])
}

func TestRootSpanHasNoParentField(t *testing.T) {
	sd := sampleSpan(t)
	sd.Parent = xspanctx.SpanContext{}
	data, err := MarshalSpan(sd)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "parent_span_id")

	back, err := UnmarshalSpan(data)
	require.NoError(t, err)
	assert.False(t, back.Parent.IsValid())
}

func TestUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "非 JSON", input: "{", wantErr: ErrDecode},
		{name: "trace_id 非法", input: `[{"trace_id":"xyz","span_id":"b7ad6b7169203331"}]`, wantErr: ErrInvalidSpan},
		{name: "span_id 非法", input: `[{"trace_id":"0af7651916cd43dd8448eb211c80319c","span_id":"B7AD"}]`, wantErr: ErrInvalidSpan},
		{name: "flags 非法", input: `[{"trace_id":"0af7651916cd43dd8448eb211c80319c","span_id":"b7ad6b7169203331","trace_flags":"zz"}]`, wantErr: ErrInvalidSpan},
		{name: "未知属性类型", input: `[{"trace_id":"0af7651916cd43dd8448eb211c80319c","span_id":"b7ad6b7169203331","attributes":[{"key":"k","type":"MAP","value":{}}]}]`, wantErr: ErrInvalidAttribute},
		{name: "属性值与类型不符", input: `[{"trace_id":"0af7651916cd43dd8448eb211c80319c","span_id":"b7ad6b7169203331","attributes":[{"key":"k","type":"INT64","value":"x"}]}]`, wantErr: ErrInvalidAttribute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUnknownKindAndStatusFallBack(t *testing.T) {
	sd, err := UnmarshalSpan([]byte(`{"trace_id":"0af7651916cd43dd8448eb211c80319c","span_id":"b7ad6b7169203331","kind":"weird","status":{"code":"??"}}`))
	require.NoError(t, err)
	assert.Equal(t, xspanctx.SpanKindInternal, sd.Kind)
	assert.Equal(t, xsdk.StatusUnset, sd.Status.Code)
	assert.True(t, sd.StartTime.IsZero())
}

func TestNonFiniteFloatBecomesString(t *testing.T) {
	attrs := FromAttributes([]attribute.KeyValue{attribute.Float64("f", posInf())})
	require.Len(t, attrs, 1)
	assert.Equal(t, "STRING", attrs[0].Type)
	kv, err := attrs[0].KeyValue()
	require.NoError(t, err)
	assert.Equal(t, "+Inf", kv.Value.AsString())
}

func TestPretty(t *testing.T) {
	out := Pretty(map[string]int{"a": 1})
	assert.Equal(t, "{\n  \"a\": 1\n}", out)
	assert.True(t, strings.HasPrefix(Pretty(make(chan int)), "<marshal error:"))
}
