package xsampling

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// traceIDWithLow64 构造低 64 位为 v 的 TraceID
func traceIDWithLow64(v uint64) xspanctx.TraceID {
	var id xspanctx.TraceID
	id[0] = 1
	binary.BigEndian.PutUint64(id[8:], v)
	return id
}

func parentContext(t *testing.T, sampled, remote bool) xspanctx.SpanContext {
	t.Helper()
	tid, err := xspanctx.ParseTraceID("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	sid, err := xspanctx.ParseSpanID("b7ad6b7169203331")
	require.NoError(t, err)
	var flags xspanctx.TraceFlags
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags.WithSampled(sampled),
		TraceState: xspanctx.ParseTraceState("vendor=value"),
		Remote:     remote,
	})
}

func TestAlwaysOnOff(t *testing.T) {
	p := Parameters{TraceID: traceIDWithLow64(1)}
	assert.Equal(t, RecordAndSample, AlwaysOn().ShouldSample(p).Decision)
	assert.Equal(t, Drop, AlwaysOff().ShouldSample(p).Decision)
	assert.Same(t, AlwaysOn(), AlwaysOn())
	assert.Same(t, AlwaysOff(), AlwaysOff())
	assert.Equal(t, "AlwaysOnSampler", AlwaysOn().Description())
	assert.Equal(t, "AlwaysOffSampler", AlwaysOff().Description())
}

func TestSamplerInheritsParentTraceState(t *testing.T) {
	p := Parameters{ParentContext: parentContext(t, true, false)}
	assert.Equal(t, "vendor=value", AlwaysOn().ShouldSample(p).TraceState.String())
	assert.Equal(t, "vendor=value", TraceIDRatioBased(0.5).ShouldSample(p).TraceState.String())
}

func TestTraceIDRatioBasedBounds(t *testing.T) {
	zero := TraceIDRatioBased(0)
	one := TraceIDRatioBased(1)
	for _, v := range []uint64{0, 1, math.MaxUint64 / 2, math.MaxUint64 - 1, math.MaxUint64} {
		p := Parameters{TraceID: traceIDWithLow64(v)}
		assert.Equal(t, Drop, zero.ShouldSample(p).Decision, "ratio=0 low64=%d", v)
		assert.Equal(t, RecordAndSample, one.ShouldSample(p).Decision, "ratio=1 low64=%d", v)
	}
}

func TestTraceIDRatioBasedThreshold(t *testing.T) {
	s := TraceIDRatioBased(0.5)
	assert.Equal(t, RecordAndSample, s.ShouldSample(Parameters{TraceID: traceIDWithLow64(1<<63 - 1)}).Decision)
	assert.Equal(t, Drop, s.ShouldSample(Parameters{TraceID: traceIDWithLow64(1 << 63)}).Decision)
}

func TestTraceIDRatioBasedDistribution(t *testing.T) {
	s := TraceIDRatioBased(0.5)
	const n = 100000
	// 确定性的均匀分布 ID：使用 SplitMix64 序列
	var state uint64 = 42
	sampled := 0
	for range n {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		if s.ShouldSample(Parameters{TraceID: traceIDWithLow64(z)}).Decision == RecordAndSample {
			sampled++
		}
	}
	ratio := float64(sampled) / n
	assert.InDelta(t, 0.5, ratio, 0.01)
}

func TestTraceIDRatioBasedDeterministic(t *testing.T) {
	s := TraceIDRatioBased(0.3)
	p := Parameters{TraceID: traceIDWithLow64(123456789)}
	first := s.ShouldSample(p).Decision
	for range 100 {
		assert.Equal(t, first, s.ShouldSample(p).Decision)
	}
}

func TestTraceIDRatioBasedClamp(t *testing.T) {
	assert.Equal(t, 0.0, TraceIDRatioBased(-1).Ratio())
	assert.Equal(t, 1.0, TraceIDRatioBased(2).Ratio())
	assert.Equal(t, 0.0, TraceIDRatioBased(math.NaN()).Ratio())
	assert.Equal(t, "TraceIdRatioBased{0.25}", TraceIDRatioBased(0.25).Description())

	_, err := NewTraceIDRatioBased(1.5)
	require.ErrorIs(t, err, ErrInvalidRatio)
	_, err = NewTraceIDRatioBased(math.NaN())
	require.ErrorIs(t, err, ErrInvalidRatio)
	s, err := NewTraceIDRatioBased(0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, s.Ratio())
}

func TestParentBased(t *testing.T) {
	root := TraceIDRatioBased(0)
	s := ParentBased(root)

	tests := []struct {
		name   string
		parent xspanctx.SpanContext
		want   Decision
	}{
		{name: "无父级使用 root", parent: xspanctx.SpanContext{}, want: Drop},
		{name: "远端已采样", parent: parentContext(t, true, true), want: RecordAndSample},
		{name: "远端未采样", parent: parentContext(t, false, true), want: Drop},
		{name: "本地已采样", parent: parentContext(t, true, false), want: RecordAndSample},
		{name: "本地未采样", parent: parentContext(t, false, false), want: Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parameters{ParentContext: tt.parent, TraceID: traceIDWithLow64(1)}
			assert.Equal(t, tt.want, s.ShouldSample(p).Decision)
		})
	}
}

func TestParentBasedOptions(t *testing.T) {
	s := ParentBased(nil,
		WithRemoteParentSampled(AlwaysOff()),
		WithRemoteParentNotSampled(AlwaysOn()),
		WithLocalParentSampled(AlwaysOff()),
		WithLocalParentNotSampled(AlwaysOn()),
		nil,
	)
	assert.Equal(t, RecordAndSample, s.ShouldSample(Parameters{}).Decision)
	assert.Equal(t, Drop, s.ShouldSample(Parameters{ParentContext: parentContext(t, true, true)}).Decision)
	assert.Equal(t, RecordAndSample, s.ShouldSample(Parameters{ParentContext: parentContext(t, false, true)}).Decision)
	assert.Equal(t, Drop, s.ShouldSample(Parameters{ParentContext: parentContext(t, true, false)}).Decision)
	assert.Equal(t, RecordAndSample, s.ShouldSample(Parameters{ParentContext: parentContext(t, false, false)}).Decision)
	assert.Contains(t, s.Description(), "ParentBased{root:AlwaysOnSampler")
}

func TestKeyBased(t *testing.T) {
	_, err := KeyBased(2, "tenant.id")
	require.ErrorIs(t, err, ErrInvalidRatio)
	_, err = KeyBased(0.5, "")
	require.ErrorIs(t, err, ErrEmptyKey)

	s, err := KeyBased(0.5, "tenant.id")
	require.NoError(t, err)
	assert.Equal(t, "KeyBased{tenant.id,0.5}", s.Description())

	// 相同属性值无论 TraceID 如何都得到相同决策
	attrs := []attribute.KeyValue{attribute.String("tenant.id", "tenant-42")}
	first := s.ShouldSample(Parameters{TraceID: traceIDWithLow64(1), Attributes: attrs}).Decision
	for i := range uint64(50) {
		got := s.ShouldSample(Parameters{TraceID: traceIDWithLow64(i * 7919), Attributes: attrs}).Decision
		assert.Equal(t, first, got)
	}

	// 缺少属性时回退到 TraceID 比率
	assert.Equal(t, RecordAndSample, s.ShouldSample(Parameters{TraceID: traceIDWithLow64(0)}).Decision)
	assert.Equal(t, Drop, s.ShouldSample(Parameters{TraceID: traceIDWithLow64(math.MaxUint64)}).Decision)
}

func TestKeyBasedBounds(t *testing.T) {
	attrs := []attribute.KeyValue{attribute.Int("user.id", 7)}
	zero, err := KeyBased(0, "user.id")
	require.NoError(t, err)
	one, err := KeyBased(1, "user.id")
	require.NoError(t, err)
	assert.Equal(t, Drop, zero.ShouldSample(Parameters{Attributes: attrs}).Decision)
	assert.Equal(t, RecordAndSample, one.ShouldSample(Parameters{Attributes: attrs}).Decision)
}

func TestRateSampler(t *testing.T) {
	for _, r := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := NewRateSampler(r)
		require.ErrorIs(t, err, ErrInvalidRatio, "ratio=%v", r)
	}

	zero, err := NewRateSampler(0)
	require.NoError(t, err)
	one, err := NewRateSampler(1)
	require.NoError(t, err)
	p := Parameters{TraceID: traceIDWithLow64(3), ParentContext: parentContext(t, true, false)}
	assert.Equal(t, Drop, zero.ShouldSample(p).Decision)
	assert.Equal(t, RecordAndSample, one.ShouldSample(p).Decision)
	assert.Equal(t, "vendor=value", one.ShouldSample(p).TraceState.String())

	half, err := NewRateSampler(0.5)
	require.NoError(t, err)
	assert.Equal(t, "RateSampler{0.5}", half.Description())
	assert.InDelta(t, 0.5, half.Ratio(), 0)

	// 自增 ID 的低 64 位集中在很小的区间，按低 64 位采样会全部命中
	const n = 10000
	var sampled int
	for i := range uint64(n) {
		id := traceIDWithLow64(i)
		got := half.ShouldSample(Parameters{TraceID: id}).Decision
		assert.Equal(t, got, half.ShouldSample(Parameters{TraceID: id}).Decision, "决策确定")
		if got == RecordAndSample {
			sampled++
		}
	}
	assert.InDelta(t, 0.5, float64(sampled)/n, 0.05)
}

// fixedSampler 返回固定决策并附带一个属性
type fixedSampler struct {
	d    Decision
	attr attribute.KeyValue
}

func (f fixedSampler) ShouldSample(Parameters) Result {
	return Result{Decision: f.d, Attributes: []attribute.KeyValue{f.attr}}
}
func (f fixedSampler) Description() string { return f.d.String() }

func TestComposite(t *testing.T) {
	drop := fixedSampler{d: Drop, attr: attribute.String("a", "1")}
	record := fixedSampler{d: RecordOnly, attr: attribute.String("b", "2")}
	sample := fixedSampler{d: RecordAndSample, attr: attribute.String("c", "3")}

	all, err := All(sample, record, sample)
	require.NoError(t, err)
	r := all.ShouldSample(Parameters{})
	assert.Equal(t, RecordOnly, r.Decision)
	assert.Len(t, r.Attributes, 3)

	anyS, err := Any(drop, record)
	require.NoError(t, err)
	assert.Equal(t, RecordOnly, anyS.ShouldSample(Parameters{}).Decision)
	assert.Equal(t, "CompositeANY{DROP,RECORD_ONLY}", anyS.Description())

	emptyAll, err := All()
	require.NoError(t, err)
	assert.Equal(t, RecordAndSample, emptyAll.ShouldSample(Parameters{}).Decision)
	emptyAny, err := Any()
	require.NoError(t, err)
	assert.Equal(t, Drop, emptyAny.ShouldSample(Parameters{}).Decision)

	_, err = Composite(CompositeMode(9), sample)
	require.ErrorIs(t, err, ErrInvalidMode)
	_, err = All(sample, nil)
	require.ErrorIs(t, err, ErrNilSampler)
}

func TestDecision(t *testing.T) {
	assert.False(t, Drop.IsRecording())
	assert.True(t, RecordOnly.IsRecording())
	assert.False(t, RecordOnly.IsSampled())
	assert.True(t, RecordAndSample.IsSampled())
	assert.Equal(t, "UNKNOWN", Decision(7).String())
	assert.Equal(t, "Unknown", CompositeMode(7).String())
}
