package xsampling

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// Decision 采样决策。数值越大表示越宽松，Composite 依赖这一顺序。
type Decision int

const (
	// Drop 不记录
	Drop Decision = iota
	// RecordOnly 记录但不采样
	RecordOnly
	// RecordAndSample 记录并采样
	RecordAndSample
)

// String 返回决策名称。
func (d Decision) String() string {
	switch d {
	case Drop:
		return "DROP"
	case RecordOnly:
		return "RECORD_ONLY"
	case RecordAndSample:
		return "RECORD_AND_SAMPLE"
	default:
		return "UNKNOWN"
	}
}

// IsRecording 报告该决策是否需要记录 span。
func (d Decision) IsRecording() bool {
	return d == RecordOnly || d == RecordAndSample
}

// IsSampled 报告该决策是否设置采样位。
func (d Decision) IsSampled() bool {
	return d == RecordAndSample
}

// Parameters 采样输入。
//
// ParentContext 无效（IsValid 为 false）表示根 span。
type Parameters struct {
	ParentContext xspanctx.SpanContext
	TraceID       xspanctx.TraceID
	Name          string
	Kind          xspanctx.SpanKind
	Attributes    []attribute.KeyValue
	Links         []xspanctx.Link
}

// Result 采样输出。
//
// Attributes 会追加到 span 上；TraceState 会成为新 span 的 tracestate。
type Result struct {
	Decision   Decision
	Attributes []attribute.KeyValue
	TraceState xspanctx.TraceState
}

// Sampler 采样策略接口。
type Sampler interface {
	// ShouldSample 返回采样结果，必须是纯函数且并发安全。
	ShouldSample(p Parameters) Result

	// Description 返回用于日志与调试的描述。
	Description() string
}

// parentTraceState 新 span 默认继承父级 tracestate。
func parentTraceState(p Parameters) xspanctx.TraceState {
	return p.ParentContext.TraceState()
}
