package xspanctx

// SpanContextConfig 构造 SpanContext 的参数。
type SpanContextConfig struct {
	TraceID    TraceID
	SpanID     SpanID
	TraceFlags TraceFlags
	TraceState TraceState
	Remote     bool
}

// SpanContext 跨进程的 span 身份，不可变。
type SpanContext struct {
	traceID    TraceID
	spanID     SpanID
	traceFlags TraceFlags
	traceState TraceState
	remote     bool
}

// NewSpanContext 根据配置创建 SpanContext。
func NewSpanContext(cfg SpanContextConfig) SpanContext {
	return SpanContext{
		traceID:    cfg.TraceID,
		spanID:     cfg.SpanID,
		traceFlags: cfg.TraceFlags,
		traceState: cfg.TraceState,
		remote:     cfg.Remote,
	}
}

// TraceID 返回 trace 标识。
func (sc SpanContext) TraceID() TraceID { return sc.traceID }

// SpanID 返回 span 标识。
func (sc SpanContext) SpanID() SpanID { return sc.spanID }

// TraceFlags 返回标志位。
func (sc SpanContext) TraceFlags() TraceFlags { return sc.traceFlags }

// TraceState 返回 tracestate。
func (sc SpanContext) TraceState() TraceState { return sc.traceState }

// IsRemote 报告该上下文是否从远端传播而来。
func (sc SpanContext) IsRemote() bool { return sc.remote }

// IsSampled 报告采样位是否被设置。
func (sc SpanContext) IsSampled() bool { return sc.traceFlags.IsSampled() }

// IsValid 报告 TraceID 与 SpanID 是否均有效。
func (sc SpanContext) IsValid() bool {
	return sc.traceID.IsValid() && sc.spanID.IsValid()
}

// WithTraceState 返回替换 tracestate 后的副本。
func (sc SpanContext) WithTraceState(ts TraceState) SpanContext {
	sc.traceState = ts
	return sc
}

// WithRemote 返回替换 Remote 标记后的副本。
func (sc SpanContext) WithRemote(remote bool) SpanContext {
	sc.remote = remote
	return sc
}

// WithTraceFlags 返回替换标志位后的副本。
func (sc SpanContext) WithTraceFlags(flags TraceFlags) SpanContext {
	sc.traceFlags = flags
	return sc
}

// Equal 逐字段按值比较。
func (sc SpanContext) Equal(other SpanContext) bool {
	return sc.traceID == other.traceID &&
		sc.spanID == other.spanID &&
		sc.traceFlags == other.traceFlags &&
		sc.remote == other.remote &&
		sc.traceState.Equal(other.traceState)
}
