package xsdk

import "github.com/omeyang/xtel/pkg/trace/xsampling"

// =============================================================================
// SpanLimits
// =============================================================================

// SpanLimits span 上各类数据的数量与长度上限。
//
// 值 <= 0 的计数上限在使用时视为默认值；AttributeValueLengthLimit < 0 表示不截断。
type SpanLimits struct {
	AttributeCountLimit         int
	EventCountLimit             int
	LinkCountLimit              int
	AttributePerEventCountLimit int
	AttributePerLinkCountLimit  int
	AttributeValueLengthLimit   int
}

// DefaultSpanLimit NewSpanLimits 的计数默认值
const DefaultSpanLimit = 128

// NewSpanLimits 返回全部计数为 128、字符串不截断的上限。
func NewSpanLimits() SpanLimits {
	return SpanLimits{
		AttributeCountLimit:         DefaultSpanLimit,
		EventCountLimit:             DefaultSpanLimit,
		LinkCountLimit:              DefaultSpanLimit,
		AttributePerEventCountLimit: DefaultSpanLimit,
		AttributePerLinkCountLimit:  DefaultSpanLimit,
		AttributeValueLengthLimit:   -1,
	}
}

// =============================================================================
// TraceConfig
// =============================================================================

// TraceConfig 默认值
const (
	DefaultMaxNumberOfAttributes         = 1000
	DefaultMaxNumberOfEvents             = 1000
	DefaultMaxNumberOfLinks              = 1000
	DefaultMaxNumberOfAttributesPerEvent = 32
	DefaultMaxNumberOfAttributesPerLink  = 32
)

// TraceConfig 采样器与 span 上限的不可变配置。
//
// Setting* 方法返回修改后的副本，原值不变；非正数的上限被忽略。
// 零值 TraceConfig 等价于 DefaultTraceConfig()。
type TraceConfig struct {
	sampler                       xsampling.Sampler
	maxNumberOfAttributes         int
	maxNumberOfEvents             int
	maxNumberOfLinks              int
	maxNumberOfAttributesPerEvent int
	maxNumberOfAttributesPerLink  int
	attributeValueLengthLimit     int
	valueLimitSet                 bool
}

// DefaultTraceConfig 返回 AlwaysOn 采样、默认上限的配置。
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		sampler:                       xsampling.AlwaysOn(),
		maxNumberOfAttributes:         DefaultMaxNumberOfAttributes,
		maxNumberOfEvents:             DefaultMaxNumberOfEvents,
		maxNumberOfLinks:              DefaultMaxNumberOfLinks,
		maxNumberOfAttributesPerEvent: DefaultMaxNumberOfAttributesPerEvent,
		maxNumberOfAttributesPerLink:  DefaultMaxNumberOfAttributesPerLink,
	}
}

// Sampler 返回采样器，未设置时为 AlwaysOn。
func (c TraceConfig) Sampler() xsampling.Sampler {
	if c.sampler == nil {
		return xsampling.AlwaysOn()
	}
	return c.sampler
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// MaxNumberOfAttributes span 属性数量上限
func (c TraceConfig) MaxNumberOfAttributes() int {
	return orDefault(c.maxNumberOfAttributes, DefaultMaxNumberOfAttributes)
}

// MaxNumberOfEvents span 事件数量上限
func (c TraceConfig) MaxNumberOfEvents() int {
	return orDefault(c.maxNumberOfEvents, DefaultMaxNumberOfEvents)
}

// MaxNumberOfLinks span 链接数量上限
func (c TraceConfig) MaxNumberOfLinks() int {
	return orDefault(c.maxNumberOfLinks, DefaultMaxNumberOfLinks)
}

// MaxNumberOfAttributesPerEvent 单个事件的属性上限
func (c TraceConfig) MaxNumberOfAttributesPerEvent() int {
	return orDefault(c.maxNumberOfAttributesPerEvent, DefaultMaxNumberOfAttributesPerEvent)
}

// MaxNumberOfAttributesPerLink 单个链接的属性上限
func (c TraceConfig) MaxNumberOfAttributesPerLink() int {
	return orDefault(c.maxNumberOfAttributesPerLink, DefaultMaxNumberOfAttributesPerLink)
}

// AttributeValueLengthLimit 字符串属性值的最大字节数，-1 表示不截断。
func (c TraceConfig) AttributeValueLengthLimit() int {
	if !c.valueLimitSet {
		return -1
	}
	return c.attributeValueLengthLimit
}

// SpanLimits 以 SpanLimits 形式返回当前上限。
func (c TraceConfig) SpanLimits() SpanLimits {
	return SpanLimits{
		AttributeCountLimit:         c.MaxNumberOfAttributes(),
		EventCountLimit:             c.MaxNumberOfEvents(),
		LinkCountLimit:              c.MaxNumberOfLinks(),
		AttributePerEventCountLimit: c.MaxNumberOfAttributesPerEvent(),
		AttributePerLinkCountLimit:  c.MaxNumberOfAttributesPerLink(),
		AttributeValueLengthLimit:   c.AttributeValueLengthLimit(),
	}
}

// SettingSampler 返回替换采样器后的副本，nil 被忽略。
func (c TraceConfig) SettingSampler(s xsampling.Sampler) TraceConfig {
	if s != nil {
		c.sampler = s
	}
	return c
}

// SettingMaxNumberOfAttributes 返回修改属性上限后的副本。
func (c TraceConfig) SettingMaxNumberOfAttributes(n int) TraceConfig {
	if n > 0 {
		c.maxNumberOfAttributes = n
	}
	return c
}

// SettingMaxNumberOfEvents 返回修改事件上限后的副本。
func (c TraceConfig) SettingMaxNumberOfEvents(n int) TraceConfig {
	if n > 0 {
		c.maxNumberOfEvents = n
	}
	return c
}

// SettingMaxNumberOfLinks 返回修改链接上限后的副本。
func (c TraceConfig) SettingMaxNumberOfLinks(n int) TraceConfig {
	if n > 0 {
		c.maxNumberOfLinks = n
	}
	return c
}

// SettingMaxNumberOfAttributesPerEvent 返回修改单事件属性上限后的副本。
func (c TraceConfig) SettingMaxNumberOfAttributesPerEvent(n int) TraceConfig {
	if n > 0 {
		c.maxNumberOfAttributesPerEvent = n
	}
	return c
}

// SettingMaxNumberOfAttributesPerLink 返回修改单链接属性上限后的副本。
func (c TraceConfig) SettingMaxNumberOfAttributesPerLink(n int) TraceConfig {
	if n > 0 {
		c.maxNumberOfAttributesPerLink = n
	}
	return c
}

// SettingAttributeValueLengthLimit 返回修改字符串长度上限后的副本，负数表示不截断。
func (c TraceConfig) SettingAttributeValueLengthLimit(n int) TraceConfig {
	if n < 0 {
		c.attributeValueLengthLimit = 0
		c.valueLimitSet = false
		return c
	}
	c.attributeValueLengthLimit = n
	c.valueLimitSet = true
	return c
}

// SettingSpanLimits 一次性应用 SpanLimits 中的全部上限。
func (c TraceConfig) SettingSpanLimits(l SpanLimits) TraceConfig {
	return c.SettingMaxNumberOfAttributes(l.AttributeCountLimit).
		SettingMaxNumberOfEvents(l.EventCountLimit).
		SettingMaxNumberOfLinks(l.LinkCountLimit).
		SettingMaxNumberOfAttributesPerEvent(l.AttributePerEventCountLimit).
		SettingMaxNumberOfAttributesPerLink(l.AttributePerLinkCountLimit).
		SettingAttributeValueLengthLimit(l.AttributeValueLengthLimit)
}
