package xspanctx

import "go.opentelemetry.io/otel/attribute"

// SpanKind span 在调用关系中的角色。
type SpanKind int

// SpanKind 取值，零值为 Internal。
const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

// String 返回小写名称。
func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// Link 指向另一个 span 的因果关联。
type Link struct {
	SpanContext SpanContext
	Attributes  []attribute.KeyValue
}
