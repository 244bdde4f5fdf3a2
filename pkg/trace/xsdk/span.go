package xsdk

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// DefaultSpanName span 名称为空时使用
const DefaultSpanName = "unknown"

// exception 事件的属性 key
const (
	ExceptionEventName     = "exception"
	ExceptionTypeKey       = attribute.Key("exception.type")
	ExceptionMessageKey    = attribute.Key("exception.message")
	ExceptionStacktraceKey = attribute.Key("exception.stacktrace")
)

// =============================================================================
// Status
// =============================================================================

// StatusCode span 状态码
type StatusCode int

const (
	// StatusUnset 未设置
	StatusUnset StatusCode = iota
	// StatusError 出错
	StatusError
	// StatusOk 显式成功，设置后不可再改
	StatusOk
)

// String 返回状态名
func (c StatusCode) String() string {
	switch c {
	case StatusError:
		return "Error"
	case StatusOk:
		return "Ok"
	default:
		return "Unset"
	}
}

// Status span 状态，只有 Error 携带描述。
type Status struct {
	Code        StatusCode
	Description string
}

// Event span 上带时间戳的事件。
type Event struct {
	Name                  string
	Time                  time.Time
	Attributes            []attribute.KeyValue
	DroppedAttributeCount int
}

// =============================================================================
// 选项
// =============================================================================

type eventConfig struct {
	timestamp  time.Time
	attributes []attribute.KeyValue
	stackTrace bool
}

// EventOption AddEvent / RecordException 的选项
type EventOption func(*eventConfig)

// WithTimestamp 指定事件时间，默认取 provider 时钟的当前时间。
func WithTimestamp(t time.Time) EventOption {
	return func(c *eventConfig) { c.timestamp = t }
}

// WithAttributes 为事件附加属性。
func WithAttributes(attrs ...attribute.KeyValue) EventOption {
	return func(c *eventConfig) { c.attributes = append(c.attributes, attrs...) }
}

// WithStackTrace RecordException 时附带当前 goroutine 堆栈。
func WithStackTrace(enable bool) EventOption {
	return func(c *eventConfig) { c.stackTrace = enable }
}

type endConfig struct {
	endTime time.Time
}

// EndOption End 的选项
type EndOption func(*endConfig)

// WithEndTime 指定结束时间。
func WithEndTime(t time.Time) EndOption {
	return func(c *endConfig) { c.endTime = t }
}

// =============================================================================
// Span
// =============================================================================

// Span 一次操作的记录。状态只有 Recording 和 Ended，End 之后全部修改方法为空操作。
//
// 采样决策为 Drop 的 span 不记录任何数据，但保留有效的 SpanContext 用于传播，
// 也不会触发处理器回调。Span 可并发使用。
type Span struct {
	sc       xspanctx.SpanContext
	parent   xspanctx.SpanContext
	kind     xspanctx.SpanKind
	resource *Resource
	scope    InstrumentationScope
	provider *TracerProvider
	clock    clockz.Clock
	limits   SpanLimits

	mu           sync.Mutex
	recording    bool
	ended        bool
	name         string
	startTime    time.Time
	endTime      time.Time
	attrs        *attributeMap
	events       []Event
	totalEvents  int
	links        []xspanctx.Link
	droppedLinks int
	status       Status
}

// SpanContext 返回 span 的身份，非 recording span 也有效。
func (s *Span) SpanContext() xspanctx.SpanContext {
	if s == nil {
		return xspanctx.SpanContext{}
	}
	return s.sc
}

// Parent 返回父 SpanContext，根 span 为零值。
func (s *Span) Parent() xspanctx.SpanContext {
	if s == nil {
		return xspanctx.SpanContext{}
	}
	return s.parent
}

// HasRemoteParent 父级来自其他进程。
func (s *Span) HasRemoteParent() bool {
	return s != nil && s.parent.IsValid() && s.parent.IsRemote()
}

// Kind 返回 span 类型。
func (s *Span) Kind() xspanctx.SpanKind {
	if s == nil {
		return xspanctx.SpanKindInternal
	}
	return s.kind
}

// IsRecording 是否仍在记录（采样为记录且尚未结束）。
func (s *Span) IsRecording() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording && !s.ended
}

// HasEnded 是否已结束。
func (s *Span) HasEnded() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Name 返回当前名称。
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// EndTime 返回结束时间，未结束时为零值。
func (s *Span) EndTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime
}

// Attribute 查询单个属性。
func (s *Span) Attribute(key attribute.Key) (attribute.Value, bool) {
	if s == nil {
		return attribute.Value{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		return attribute.Value{}, false
	}
	return s.attrs.get(key)
}

// mutable 调用方须持有 s.mu。
func (s *Span) mutable() bool {
	return s.recording && !s.ended
}

// SetName 修改名称，空名称被替换为 DefaultSpanName。
func (s *Span) SetName(name string) {
	if s == nil {
		return
	}
	if name == "" {
		name = DefaultSpanName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() {
		return
	}
	s.name = name
}

// SetAttributes 设置属性，值类型为 attribute.INVALID 时删除该 key。
func (s *Span) SetAttributes(kv ...attribute.KeyValue) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() {
		return
	}
	for _, a := range kv {
		s.attrs.set(a)
	}
}

// AddEvent 追加事件。事件数到达上限时丢弃最旧的。
func (s *Span) AddEvent(name string, opts ...EventOption) {
	cfg := eventConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	s.addEvent(name, cfg)
}

func (s *Span) addEvent(name string, cfg eventConfig) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() {
		return
	}
	if cfg.timestamp.IsZero() {
		cfg.timestamp = s.clock.Now()
	}
	attrs, dropped := limitAttributes(cfg.attributes, s.limits.AttributePerEventCountLimit, s.limits.AttributeValueLengthLimit)
	e := Event{Name: name, Time: cfg.timestamp, Attributes: attrs, DroppedAttributeCount: dropped}

	s.totalEvents++
	if len(s.events) >= s.limits.EventCountLimit {
		copy(s.events, s.events[1:])
		s.events[len(s.events)-1] = e
		return
	}
	s.events = append(s.events, e)
}

// RecordException 以 exception 事件记录错误，err 为 nil 时不做任何事。
func (s *Span) RecordException(err error, opts ...EventOption) {
	if s == nil || err == nil {
		return
	}
	cfg := eventConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	attrs := []attribute.KeyValue{
		ExceptionTypeKey.String(fmt.Sprintf("%T", err)),
		ExceptionMessageKey.String(err.Error()),
	}
	if cfg.stackTrace {
		attrs = append(attrs, ExceptionStacktraceKey.String(string(debug.Stack())))
	}
	cfg.attributes = append(attrs, cfg.attributes...)
	s.addEvent(ExceptionEventName, cfg)
}

// AddLink 追加链接。超出上限的链接被丢弃并计数。
func (s *Span) AddLink(link xspanctx.Link) {
	if s == nil || !link.SpanContext.IsValid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() {
		return
	}
	s.appendLink(link)
}

// appendLink 调用方须持有 s.mu。
func (s *Span) appendLink(link xspanctx.Link) {
	if len(s.links) >= s.limits.LinkCountLimit {
		s.droppedLinks++
		return
	}
	attrs, _ := limitAttributes(link.Attributes, s.limits.AttributePerLinkCountLimit, s.limits.AttributeValueLengthLimit)
	s.links = append(s.links, xspanctx.Link{SpanContext: link.SpanContext, Attributes: attrs})
}

// SetStatus 设置状态。Unset 被忽略，Ok 一旦设置不再改变，只有 Error 保留描述。
func (s *Span) SetStatus(code StatusCode, description string) {
	if s == nil || code == StatusUnset {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() || s.status.Code == StatusOk {
		return
	}
	if code != StatusError {
		description = ""
	}
	s.status = Status{Code: code, Description: description}
}

// End 结束 span。只有第一次调用生效：记录结束时间并通知处理器。
func (s *Span) End(opts ...EndOption) {
	if s == nil {
		return
	}
	cfg := endConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	if !s.recording {
		s.mu.Unlock()
		return
	}
	if cfg.endTime.IsZero() {
		cfg.endTime = s.clock.Now()
	}
	s.endTime = cfg.endTime
	data := s.snapshotLocked()
	s.mu.Unlock()

	if s.provider == nil {
		return
	}
	s.provider.metrics.SpanEnded(context.Background(), s.sc.IsSampled())
	for _, p := range s.provider.spanProcessors() {
		p.OnEnd(data)
	}
}

// Snapshot 返回当前状态的不可变副本。
func (s *Span) Snapshot() SpanData {
	if s == nil {
		return SpanData{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Span) snapshotLocked() SpanData {
	d := SpanData{
		Name:            s.name,
		SpanContext:     s.sc,
		Parent:          s.parent,
		Kind:            s.kind,
		StartTime:       s.startTime,
		EndTime:         s.endTime,
		Status:          s.status,
		HasRemoteParent: s.HasRemoteParent(),
		HasEnded:        s.ended,
		Resource:        s.resource,
		Scope:           s.scope,
	}
	if s.attrs != nil {
		d.Attributes = s.attrs.list()
		d.DroppedAttributes = s.attrs.droppedKeys
	}
	if len(s.events) > 0 {
		d.Events = make([]Event, len(s.events))
		copy(d.Events, s.events)
	}
	d.DroppedEvents = s.totalEvents - len(s.events)
	if len(s.links) > 0 {
		d.Links = make([]xspanctx.Link, len(s.links))
		copy(d.Links, s.links)
	}
	d.DroppedLinks = s.droppedLinks
	return d
}

// =============================================================================
// SpanData
// =============================================================================

// SpanData span 在某一时刻的只读快照，处理器和导出器只接触它。
type SpanData struct {
	Name              string
	SpanContext       xspanctx.SpanContext
	Parent            xspanctx.SpanContext
	Kind              xspanctx.SpanKind
	StartTime         time.Time
	EndTime           time.Time
	Attributes        []attribute.KeyValue
	DroppedAttributes int
	Events            []Event
	DroppedEvents     int
	Links             []xspanctx.Link
	DroppedLinks      int
	Status            Status
	HasRemoteParent   bool
	HasEnded          bool
	Resource          *Resource
	Scope             InstrumentationScope
}

// Duration 结束时间减开始时间，未结束时为 0。
func (d SpanData) Duration() time.Duration {
	if d.EndTime.IsZero() {
		return 0
	}
	return d.EndTime.Sub(d.StartTime)
}
