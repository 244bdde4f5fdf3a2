package xpropagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

const (
	validTraceID     = "0af7651916cd43dd8448eb211c80319c"
	validSpanID      = "b7ad6b7169203331"
	validTraceparent = "00-" + validTraceID + "-" + validSpanID + "-01"
)

func TestParseTraceparent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		ok      bool
		sampled bool
	}{
		{name: "有效已采样", input: validTraceparent, ok: true, sampled: true},
		{name: "有效未采样", input: "00-" + validTraceID + "-" + validSpanID + "-00", ok: true},
		{name: "只取采样位", input: "00-" + validTraceID + "-" + validSpanID + "-03", ok: true, sampled: true},
		{name: "两端空白", input: "  " + validTraceparent + " ", ok: true, sampled: true},
		{name: "未来版本带额外字段", input: "01-" + validTraceID + "-" + validSpanID + "-01-extra", ok: true, sampled: true},
		{name: "未来版本恰好55", input: "cc-" + validTraceID + "-" + validSpanID + "-00", ok: true},
		{name: "未来版本额外字段缺少分隔符", input: "01-" + validTraceID + "-" + validSpanID + "-01x"},
		{name: "版本 ff", input: "ff-" + validTraceID + "-" + validSpanID + "-01"},
		{name: "版本 00 过长", input: validTraceparent + "-x"},
		{name: "太短", input: "00-" + validTraceID + "-" + validSpanID + "-1"},
		{name: "空", input: ""},
		{name: "大写十六进制", input: "00-0AF7651916CD43DD8448EB211C80319C-" + validSpanID + "-01"},
		{name: "大写版本", input: "0A-" + validTraceID + "-" + validSpanID + "-01"},
		{name: "全零 TraceID", input: "00-00000000000000000000000000000000-" + validSpanID + "-01"},
		{name: "全零 SpanID", input: "00-" + validTraceID + "-0000000000000000-01"},
		{name: "分隔符错误", input: "00_" + validTraceID + "-" + validSpanID + "-01"},
		{name: "span 分隔符错误", input: "00-" + validTraceID + "_" + validSpanID + "-01"},
		{name: "非法 flags", input: "00-" + validTraceID + "-" + validSpanID + "-zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseTraceparent(tt.input)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidTraceparent)
				assert.False(t, sc.IsValid())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, validTraceID, sc.TraceID().String())
			assert.Equal(t, validSpanID, sc.SpanID().String())
			assert.Equal(t, tt.sampled, sc.IsSampled())
			assert.True(t, sc.IsRemote())
		})
	}
}

func testSpanContext(t *testing.T, sampled bool, state string) xspanctx.SpanContext {
	t.Helper()
	tid, err := xspanctx.ParseTraceID(validTraceID)
	require.NoError(t, err)
	sid, err := xspanctx.ParseSpanID(validSpanID)
	require.NoError(t, err)
	var flags xspanctx.TraceFlags
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags.WithSampled(sampled),
		TraceState: xspanctx.ParseTraceState(state),
	})
}

func TestTraceContextInject(t *testing.T) {
	p := TraceContext{}

	c := MapCarrier{}
	p.Inject(testSpanContext(t, true, "a=1,b=2"), c)
	assert.Equal(t, validTraceparent, c[HeaderTraceparent])
	assert.Equal(t, "a=1,b=2", c[HeaderTracestate])

	c = MapCarrier{}
	p.Inject(testSpanContext(t, false, ""), c)
	assert.Equal(t, "00-"+validTraceID+"-"+validSpanID+"-00", c[HeaderTraceparent])
	_, ok := c[HeaderTracestate]
	assert.False(t, ok, "空 tracestate 不写入")

	c = MapCarrier{}
	p.Inject(xspanctx.SpanContext{}, c)
	assert.Empty(t, c, "无效上下文不写入")
	assert.NotPanics(t, func() { p.Inject(testSpanContext(t, true, ""), nil) })
}

func TestTraceContextExtract(t *testing.T) {
	p := TraceContext{}

	t.Run("往返", func(t *testing.T) {
		want := testSpanContext(t, true, "vendor=x")
		c := MapCarrier{}
		p.Inject(want, c)
		got, ok := p.Extract(c)
		require.True(t, ok)
		assert.True(t, got.Equal(want.WithRemote(true)))
	})

	t.Run("多个 traceparent 无效", func(t *testing.T) {
		getter := BindGetter(map[string][]string{HeaderTraceparent: {validTraceparent, validTraceparent}},
			func(m map[string][]string, k string) []string { return m[k] })
		_, ok := p.Extract(getter)
		assert.False(t, ok)
	})

	t.Run("多个 tracestate 拼接", func(t *testing.T) {
		getter := BindGetter(map[string][]string{
			HeaderTraceparent: {validTraceparent},
			HeaderTracestate:  {"a=1", "b=2,INVALID KEY=3"},
		}, func(m map[string][]string, k string) []string { return m[k] })
		sc, ok := p.Extract(getter)
		require.True(t, ok)
		assert.Equal(t, "a=1,b=2", sc.TraceState().String())
	})

	t.Run("缺失", func(t *testing.T) {
		_, ok := p.Extract(MapCarrier{})
		assert.False(t, ok)
		_, ok = p.Extract(nil)
		assert.False(t, ok)
	})

	assert.Equal(t, []string{HeaderTraceparent, HeaderTracestate}, p.Fields())
}

// fakePropagator 固定字段与固定提取结果
type fakePropagator struct {
	key string
	sc  xspanctx.SpanContext
	ok  bool
}

func (f fakePropagator) Fields() []string { return []string{f.key, "shared"} }
func (f fakePropagator) Inject(_ xspanctx.SpanContext, s Setter) {
	s.Set(f.key, "1")
	s.Set("shared", f.key)
}
func (f fakePropagator) Extract(Getter) (xspanctx.SpanContext, bool) { return f.sc, f.ok }

func TestComposite(t *testing.T) {
	first := testSpanContext(t, true, "")
	second := testSpanContext(t, false, "")

	c := Composite(
		fakePropagator{key: "a", sc: first, ok: true},
		nil,
		fakePropagator{key: "b", sc: second, ok: true},
		fakePropagator{key: "c"},
	)

	assert.Equal(t, []string{"a", "shared", "b", "c"}, c.Fields())

	carrier := MapCarrier{}
	c.Inject(first, carrier)
	assert.Equal(t, "c", carrier["shared"], "后注入者覆盖冲突 key")

	got, ok := c.Extract(carrier)
	require.True(t, ok)
	assert.True(t, got.Equal(second), "以最后一个成功提取为准")

	_, ok = Composite().Extract(carrier)
	assert.False(t, ok)
}
