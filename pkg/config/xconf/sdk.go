package xconf

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/export/xpersist"
	"github.com/omeyang/xtel/pkg/trace/xsampling"
	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// 采样器类型
const (
	SamplerAlwaysOn  = "always_on"
	SamplerAlwaysOff = "always_off"
	SamplerRatio     = "ratio"
	SamplerRate      = "rate"
	SamplerKeyBased  = "key_based"
)

// SDKConfig SDK 的文件配置。
//
//	service_name: checkout
//	context_manager: context
//	sampler:
//	  type: ratio
//	  ratio: 0.1
//	  parent_based: true
//	limits:
//	  attributes: 64
//	batch:
//	  schedule_delay: 2s
//	persistence:
//	  directory: /var/lib/app/spans
//	  preset: instant_data_delivery
type SDKConfig struct {
	ServiceName    string            `koanf:"service_name"`
	ContextManager string            `koanf:"context_manager"`
	Sampler        SamplerConfig     `koanf:"sampler"`
	Limits         LimitsConfig      `koanf:"limits"`
	Batch          BatchConfig       `koanf:"batch"`
	Persistence    PersistenceConfig `koanf:"persistence"`
}

// SamplerConfig 采样器描述，也是 etcd 中动态采样配置的格式。
type SamplerConfig struct {
	Type  string  `koanf:"type"`
	Ratio float64 `koanf:"ratio"`

	// Key key_based 采样使用的属性名
	Key string `koanf:"key"`

	// ParentBased 为 true 时以 ParentBased 包装，有父 span 时跟随父级决策
	ParentBased bool `koanf:"parent_based"`
}

// LimitsConfig span 上限，0 表示沿用默认值；AttributeValueLength 为 0 表示不截断。
type LimitsConfig struct {
	Attributes           int `koanf:"attributes"`
	Events               int `koanf:"events"`
	Links                int `koanf:"links"`
	AttributesPerEvent   int `koanf:"attributes_per_event"`
	AttributesPerLink    int `koanf:"attributes_per_link"`
	AttributeValueLength int `koanf:"attribute_value_length"`
}

// BatchConfig BatchSpanProcessor 参数，0 表示沿用默认值。
type BatchConfig struct {
	MaxQueueSize       int           `koanf:"max_queue_size"`
	MaxExportBatchSize int           `koanf:"max_export_batch_size"`
	ScheduleDelay      time.Duration `koanf:"schedule_delay"`
	ExportTimeout      time.Duration `koanf:"export_timeout"`
}

// PersistenceConfig 本地持久化。Directory 为空时不启用。
type PersistenceConfig struct {
	Directory string `koanf:"directory"`
	Preset    string `koanf:"preset"`
}

// DefaultSDKConfig 返回默认配置：AlwaysOn 采样，context 管理器，不持久化。
func DefaultSDKConfig() SDKConfig {
	return SDKConfig{
		ContextManager: xscope.NameContext,
		Sampler:        SamplerConfig{Type: SamplerAlwaysOn, Ratio: 1},
	}
}

// LoadSDKConfig 在默认值之上解码 path 下的配置并校验。
func LoadSDKConfig(c Config, path string) (SDKConfig, error) {
	cfg := DefaultSDKConfig()
	if err := c.Unmarshal(path, &cfg); err != nil {
		return SDKConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SDKConfig{}, err
	}
	return cfg, nil
}

// Validate 校验采样器、批处理、上下文管理器与持久化预设。
func (c SDKConfig) Validate() error {
	if _, err := c.Sampler.Build(); err != nil {
		return err
	}
	b := c.Batch
	if b.MaxQueueSize < 0 || b.MaxExportBatchSize < 0 || b.ScheduleDelay < 0 || b.ExportTimeout < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidBatch)
	}
	if b.MaxQueueSize > 0 && b.MaxExportBatchSize > b.MaxQueueSize {
		return fmt.Errorf("%w: max_export_batch_size %d > max_queue_size %d",
			ErrInvalidBatch, b.MaxExportBatchSize, b.MaxQueueSize)
	}
	if _, err := xscope.ByName(c.ContextManager); err != nil {
		return err
	}
	_, err := xpersist.PresetByName(c.Persistence.Preset)
	return err
}

// Build 按描述构造采样器。
func (s SamplerConfig) Build() (xsampling.Sampler, error) {
	var (
		root xsampling.Sampler
		err  error
	)
	switch s.Type {
	case "", SamplerAlwaysOn:
		root = xsampling.AlwaysOn()
	case SamplerAlwaysOff:
		root = xsampling.AlwaysOff()
	case SamplerRatio:
		root, err = xsampling.NewTraceIDRatioBased(s.Ratio)
	case SamplerRate:
		root, err = xsampling.NewRateSampler(s.Ratio)
	case SamplerKeyBased:
		root, err = xsampling.KeyBased(s.Ratio, attribute.Key(s.Key))
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSampler, s.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSampler, err)
	}
	if s.ParentBased {
		return xsampling.ParentBased(root), nil
	}
	return root, nil
}

// SpanLimits 把配置转为 SpanLimits，0 值取默认。
func (l LimitsConfig) SpanLimits() xsdk.SpanLimits {
	d := xsdk.DefaultTraceConfig()
	pick := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}
	return xsdk.SpanLimits{
		AttributeCountLimit:         pick(l.Attributes, d.MaxNumberOfAttributes()),
		EventCountLimit:             pick(l.Events, d.MaxNumberOfEvents()),
		LinkCountLimit:              pick(l.Links, d.MaxNumberOfLinks()),
		AttributePerEventCountLimit: pick(l.AttributesPerEvent, d.MaxNumberOfAttributesPerEvent()),
		AttributePerLinkCountLimit:  pick(l.AttributesPerLink, d.MaxNumberOfAttributesPerLink()),
		AttributeValueLengthLimit:   pick(l.AttributeValueLength, -1),
	}
}

// TraceConfig 在 base 上应用采样器与上限。
func (c SDKConfig) TraceConfig(base xsdk.TraceConfig) (xsdk.TraceConfig, error) {
	s, err := c.Sampler.Build()
	if err != nil {
		return base, err
	}
	return base.SettingSampler(s).SettingSpanLimits(c.Limits.SpanLimits()), nil
}

// ProcessorOptions 返回 Batch 处理器选项，0 值不生成选项。
func (c SDKConfig) ProcessorOptions() []xsdk.ProcessorOption {
	var opts []xsdk.ProcessorOption
	if c.Batch.MaxQueueSize > 0 {
		opts = append(opts, xsdk.WithMaxQueueSize(c.Batch.MaxQueueSize))
	}
	if c.Batch.MaxExportBatchSize > 0 {
		opts = append(opts, xsdk.WithMaxExportBatchSize(c.Batch.MaxExportBatchSize))
	}
	if c.Batch.ScheduleDelay > 0 {
		opts = append(opts, xsdk.WithScheduleDelay(c.Batch.ScheduleDelay))
	}
	if c.Batch.ExportTimeout > 0 {
		opts = append(opts, xsdk.WithExportTimeout(c.Batch.ExportTimeout))
	}
	return opts
}

// Resource 默认资源叠加 service.name。
func (c SDKConfig) Resource() *xsdk.Resource {
	r := xsdk.DefaultResource()
	if c.ServiceName == "" {
		return r
	}
	return r.Merge(xsdk.NewResource(xsdk.ServiceNameKey.String(c.ServiceName)))
}

// Apply 把配置展开为 TracerProvider 选项。
//
// exporter 由 BatchSpanProcessor 驱动；配置了 persistence.directory 时先以
// xpersist.SpanExporterDecorator 包装，persistOpts 传给装饰器。
// 处理器随 provider 的 Shutdown 一起关闭。
func (c SDKConfig) Apply(exporter xsdk.SpanExporter, persistOpts ...xpersist.Option) ([]xsdk.Option, error) {
	if exporter == nil {
		return nil, ErrNilExporter
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tc, err := c.TraceConfig(xsdk.DefaultTraceConfig())
	if err != nil {
		return nil, err
	}
	manager, err := xscope.ByName(c.ContextManager)
	if err != nil {
		return nil, err
	}

	if c.Persistence.Directory != "" {
		preset, err := xpersist.PresetByName(c.Persistence.Preset)
		if err != nil {
			return nil, err
		}
		opts := append([]xpersist.Option{xpersist.WithPreset(preset)}, persistOpts...)
		if exporter, err = xpersist.NewSpanExporterDecorator(exporter, c.Persistence.Directory, opts...); err != nil {
			return nil, err
		}
	}
	bsp, err := xsdk.NewBatchSpanProcessor(exporter, c.ProcessorOptions()...)
	if err != nil {
		return nil, err
	}
	return []xsdk.Option{
		xsdk.WithTraceConfig(tc),
		xsdk.WithResource(c.Resource()),
		xsdk.WithContextManager(manager),
		xsdk.WithSpanProcessor(bsp),
	}, nil
}

// ApplySampling 用配置中的采样器与上限替换 provider 的当前 TraceConfig。
func (c SDKConfig) ApplySampling(tp *xsdk.TracerProvider) error {
	if tp == nil {
		return ErrNilProvider
	}
	tc, err := c.TraceConfig(tp.ActiveTraceConfig())
	if err != nil {
		return err
	}
	tp.UpdateActiveTraceConfig(tc)
	return nil
}
