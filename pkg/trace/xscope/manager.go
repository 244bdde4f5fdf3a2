package xscope

import (
	"context"
	"fmt"
)

// Key 活跃值的槽位。
type Key string

const (
	// SpanKey 当前活跃 span
	SpanKey Key = "span"
	// BaggageKey 当前 baggage
	BaggageKey Key = "baggage"
)

// 管理器名称，用于配置和 Registry 记录所选策略。
const (
	NameContext = "context"
	NameStack   = "stack"
)

// Scope 一次 WithValue 的作用域。Close 幂等。
type Scope interface {
	Close()
}

// Manager 活跃值存取策略。
type Manager interface {
	// Value 返回 key 当前的活跃值，不存在时返回 nil。
	Value(ctx context.Context, key Key) any

	// WithValue 把 value 设为 key 的活跃值，返回派生 ctx 和对应的 Scope。
	WithValue(ctx context.Context, key Key, value any) (context.Context, Scope)

	// Name 返回策略名称。
	Name() string
}

// ByName 按名称创建管理器，空字符串视为 NameContext。
func ByName(name string) (Manager, error) {
	switch name {
	case "", NameContext:
		return NewContextManager(), nil
	case NameStack:
		return NewStackManager(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownManager, name)
	}
}

type noopScope struct{}

func (noopScope) Close() {}
