package xpropagation

import (
	"strings"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// W3C Trace Context 头
const (
	HeaderTraceparent = "traceparent"
	HeaderTracestate  = "tracestate"
)

// traceparent 各字段的位置：00-{32}-{16}-{2}
const (
	traceparentLength = 55
	traceIDStart      = 3
	spanIDStart       = traceIDStart + 2*xspanctx.TraceIDSize + 1
	flagsStart        = spanIDStart + 2*xspanctx.SpanIDSize + 1
)

// TraceContext W3C Trace Context 传播器（traceparent + tracestate）。
type TraceContext struct{}

var _ TextMapPropagator = TraceContext{}

// Fields 实现 TextMapPropagator。
func (TraceContext) Fields() []string {
	return []string{HeaderTraceparent, HeaderTracestate}
}

// Inject 实现 TextMapPropagator。tracestate 只在非空时写入。
func (TraceContext) Inject(sc xspanctx.SpanContext, setter Setter) {
	if !sc.IsValid() || setter == nil {
		return
	}
	setter.Set(HeaderTraceparent, FormatTraceparent(sc))
	if ts := sc.TraceState().String(); ts != "" {
		setter.Set(HeaderTracestate, ts)
	}
}

// Extract 实现 TextMapPropagator。
//
// 多个 traceparent 值视为无效；多个 tracestate 值以 ',' 拼接后解析，
// tracestate 中的非法成员被丢弃，不影响提取结果。
func (TraceContext) Extract(getter Getter) (xspanctx.SpanContext, bool) {
	if getter == nil {
		return xspanctx.SpanContext{}, false
	}
	values := getter.Get(HeaderTraceparent)
	if len(values) != 1 {
		return xspanctx.SpanContext{}, false
	}
	sc, err := ParseTraceparent(values[0])
	if err != nil {
		return xspanctx.SpanContext{}, false
	}
	if states := getter.Get(HeaderTracestate); len(states) > 0 {
		sc = sc.WithTraceState(xspanctx.ParseTraceState(strings.Join(states, ",")))
	}
	return sc, true
}

// FormatTraceparent 生成 version 00 的 traceparent，只携带采样标志位。
func FormatTraceparent(sc xspanctx.SpanContext) string {
	var flags xspanctx.TraceFlags
	flags = flags.WithSampled(sc.IsSampled())

	var b strings.Builder
	b.Grow(traceparentLength)
	b.WriteString("00-")
	b.WriteString(sc.TraceID().String())
	b.WriteByte('-')
	b.WriteString(sc.SpanID().String())
	b.WriteByte('-')
	b.WriteString(flags.String())
	return b.String()
}

// ParseTraceparent 解析 traceparent，返回 Remote 为 true 的 SpanContext。
//
//   - 版本 ff 无效
//   - 版本 00 必须恰好 55 个字符
//   - 更高版本尽力解析前四个字段：长度至少 55，超出时第 56 个字符必须是 '-'
//   - 全零 ID 无效
func ParseTraceparent(s string) (xspanctx.SpanContext, error) {
	s = strings.TrimSpace(s)
	if len(s) < traceparentLength {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	version := s[:2]
	if !isLowerHex(version) || version == "ff" || s[2] != '-' {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	if version == "00" && len(s) != traceparentLength {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	if len(s) > traceparentLength && s[traceparentLength] != '-' {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	if s[spanIDStart-1] != '-' || s[flagsStart-1] != '-' {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}

	traceID, err := xspanctx.ParseTraceID(s[traceIDStart : spanIDStart-1])
	if err != nil || !traceID.IsValid() {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	spanID, err := xspanctx.ParseSpanID(s[spanIDStart : flagsStart-1])
	if err != nil || !spanID.IsValid() {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}
	raw, err := xspanctx.ParseTraceFlags(s[flagsStart:traceparentLength])
	if err != nil {
		return xspanctx.SpanContext{}, ErrInvalidTraceparent
	}

	var flags xspanctx.TraceFlags
	return xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags.WithSampled(raw.IsSampled()),
		Remote:     true,
	}), nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
