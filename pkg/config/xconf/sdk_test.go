package xconf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/export/xpersist"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsampling"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const sdkYAML = `
telemetry:
  service_name: checkout
  context_manager: stack
  sampler:
    type: ratio
    ratio: 0.25
    parent_based: true
  limits:
    attributes: 16
    attribute_value_length: 64
  batch:
    max_queue_size: 100
    max_export_batch_size: 10
    schedule_delay: 250ms
  persistence:
    preset: instant_data_delivery
`

func TestLoadSDKConfig(t *testing.T) {
	cfg, err := NewFromBytes([]byte(sdkYAML), FormatYAML)
	require.NoError(t, err)
	sc, err := LoadSDKConfig(cfg, "telemetry")
	require.NoError(t, err)

	assert.Equal(t, "checkout", sc.ServiceName)
	assert.Equal(t, xscope.NameStack, sc.ContextManager)
	assert.Equal(t, SamplerConfig{Type: SamplerRatio, Ratio: 0.25, ParentBased: true}, sc.Sampler)
	assert.Equal(t, 250*time.Millisecond, sc.Batch.ScheduleDelay)
	assert.Equal(t, 10, sc.Batch.MaxExportBatchSize)
	assert.Equal(t, xpersist.PresetInstantDataDelivery, sc.Persistence.Preset)

	limits := sc.Limits.SpanLimits()
	assert.Equal(t, 16, limits.AttributeCountLimit)
	assert.Equal(t, 64, limits.AttributeValueLengthLimit)
	assert.Equal(t, xsdk.DefaultMaxNumberOfEvents, limits.EventCountLimit)
}

func TestLoadSDKConfigDefaults(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	sc, err := LoadSDKConfig(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSDKConfig(), sc)
	assert.Equal(t, -1, sc.Limits.SpanLimits().AttributeValueLengthLimit)
	assert.Empty(t, sc.ProcessorOptions())
}

func TestSDKConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SDKConfig)
		want   error
	}{
		{"未知采样器", func(c *SDKConfig) { c.Sampler.Type = "sometimes" }, ErrInvalidSampler},
		{"比率越界", func(c *SDKConfig) { c.Sampler = SamplerConfig{Type: SamplerRatio, Ratio: 2} }, xsampling.ErrInvalidRatio},
		{"KeyBased 缺少 key", func(c *SDKConfig) { c.Sampler = SamplerConfig{Type: SamplerKeyBased, Ratio: 0.5} }, xsampling.ErrEmptyKey},
		{"负数队列", func(c *SDKConfig) { c.Batch.MaxQueueSize = -1 }, ErrInvalidBatch},
		{"批次大于队列", func(c *SDKConfig) { c.Batch = BatchConfig{MaxQueueSize: 4, MaxExportBatchSize: 8} }, ErrInvalidBatch},
		{"未知上下文管理器", func(c *SDKConfig) { c.ContextManager = "fiber" }, xscope.ErrUnknownManager},
		{"未知预设", func(c *SDKConfig) { c.Persistence.Preset = "turbo" }, xpersist.ErrUnknownPreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultSDKConfig()
			tt.mutate(&c)
			require.ErrorIs(t, c.Validate(), tt.want)
		})
	}
	require.NoError(t, DefaultSDKConfig().Validate())
}

func TestSamplerConfigBuild(t *testing.T) {
	tests := []struct {
		cfg  SamplerConfig
		want string
	}{
		{SamplerConfig{}, "AlwaysOnSampler"},
		{SamplerConfig{Type: SamplerAlwaysOff}, "AlwaysOffSampler"},
		{SamplerConfig{Type: SamplerRatio, Ratio: 0.5}, "TraceIdRatioBased{0.5}"},
		{SamplerConfig{Type: SamplerRate, Ratio: 0.2}, "RateSampler{0.2}"},
		{SamplerConfig{Type: SamplerKeyBased, Ratio: 0.1, Key: "user.id"}, "KeyBased{user.id,0.1}"},
	}
	for _, tt := range tests {
		s, err := tt.cfg.Build()
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Description())
	}

	s, err := SamplerConfig{Type: SamplerAlwaysOff, ParentBased: true}.Build()
	require.NoError(t, err)
	assert.IsType(t, &xsampling.ParentBasedSampler{}, s)
}

func TestSDKConfigResource(t *testing.T) {
	r := DefaultSDKConfig().Resource()
	v, ok := r.Get(xsdk.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "unknown_service", v.AsString())

	c := DefaultSDKConfig()
	c.ServiceName = "checkout"
	v, _ = c.Resource().Get(xsdk.ServiceNameKey)
	assert.Equal(t, "checkout", v.AsString())
}

func TestSDKConfigApply(t *testing.T) {
	ctx := context.Background()

	t.Run("批处理", func(t *testing.T) {
		mem := xsdk.NewInMemoryExporter()
		c := DefaultSDKConfig()
		c.ServiceName = "checkout"
		c.Limits.Attributes = 1
		opts, err := c.Apply(mem)
		require.NoError(t, err)

		tp := xsdk.NewTracerProvider(append(opts, xsdk.WithLogger(xlog.Discard()))...)
		assert.Equal(t, 1, tp.ActiveTraceConfig().MaxNumberOfAttributes())
		tp.Tracer("test").SpanBuilder("op").Start(ctx).End()
		require.NoError(t, tp.Shutdown(ctx))

		spans := mem.Spans()
		require.Len(t, spans, 1)
		v, _ := spans[0].Resource.Get(xsdk.ServiceNameKey)
		assert.Equal(t, "checkout", v.AsString())
	})

	t.Run("持久化", func(t *testing.T) {
		mem := xsdk.NewInMemoryExporter()
		c := DefaultSDKConfig()
		c.Persistence = PersistenceConfig{Directory: t.TempDir(), Preset: xpersist.PresetInstantDataDelivery}
		opts, err := c.Apply(mem, xpersist.WithLogger(xlog.Discard()))
		require.NoError(t, err)

		tp := xsdk.NewTracerProvider(append(opts, xsdk.WithLogger(xlog.Discard()))...)
		tp.Tracer("test").SpanBuilder("persisted").Start(ctx).End()
		require.NoError(t, tp.ForceFlush(ctx))
		require.NoError(t, tp.Shutdown(ctx))

		spans := mem.Spans()
		require.Len(t, spans, 1)
		assert.Equal(t, "persisted", spans[0].Name)
	})

	t.Run("参数错误", func(t *testing.T) {
		_, err := DefaultSDKConfig().Apply(nil)
		require.ErrorIs(t, err, ErrNilExporter)

		c := DefaultSDKConfig()
		c.Sampler.Type = "bogus"
		_, err = c.Apply(xsdk.NewInMemoryExporter())
		require.ErrorIs(t, err, ErrInvalidSampler)
	})
}

func TestApplySampling(t *testing.T) {
	tp := xsdk.NewTracerProvider(xsdk.WithLogger(xlog.Discard()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := DefaultSDKConfig()
	c.Sampler = SamplerConfig{Type: SamplerAlwaysOff}
	require.NoError(t, c.ApplySampling(tp))
	assert.Equal(t, "AlwaysOffSampler", tp.ActiveTraceConfig().Sampler().Description())

	require.ErrorIs(t, c.ApplySampling(nil), ErrNilProvider)
	c.Sampler.Type = "bogus"
	require.ErrorIs(t, c.ApplySampling(tp), ErrInvalidSampler)
	assert.Equal(t, "AlwaysOffSampler", tp.ActiveTraceConfig().Sampler().Description())
}

func TestWatchSampling(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sdk.yaml", "sampler:\n  type: always_on\n")
	cfg, err := New(path)
	require.NoError(t, err)
	tp := xsdk.NewTracerProvider(xsdk.WithLogger(xlog.Discard()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err = WatchSampling(cfg, "", nil)
	require.ErrorIs(t, err, ErrNilProvider)

	w, err := WatchSampling(cfg, "", tp, WithDebounce(5*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	writeFile(t, dir, "sdk.yaml", "sampler:\n  type: ratio\n  ratio: 0.5\n")
	assert.Eventually(t, func() bool {
		return tp.ActiveTraceConfig().Sampler().Description() == "TraceIdRatioBased{0.5}"
	}, 3*time.Second, 5*time.Millisecond)
}
