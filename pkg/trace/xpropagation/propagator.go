package xpropagation

import "github.com/omeyang/xtel/pkg/trace/xspanctx"

// TextMapPropagator 在文本载体上注入和提取 SpanContext。
type TextMapPropagator interface {
	// Fields 返回会写入的 key
	Fields() []string

	// Inject 写入 sc；sc 无效时不写任何内容
	Inject(sc xspanctx.SpanContext, setter Setter)

	// Extract 读取远端 SpanContext，失败时返回 false
	Extract(getter Getter) (xspanctx.SpanContext, bool)
}

type compositePropagator struct {
	propagators []TextMapPropagator
	fields      []string
}

// Composite 组合多个传播器，nil 被忽略。
//
// Inject 按顺序调用，key 冲突时后者覆盖前者；
// Extract 按顺序调用，以最后一个成功的结果为准；
// Fields 为全部字段去重后的并集。
func Composite(propagators ...TextMapPropagator) TextMapPropagator {
	c := &compositePropagator{}
	seen := make(map[string]struct{})
	for _, p := range propagators {
		if p == nil {
			continue
		}
		c.propagators = append(c.propagators, p)
		for _, f := range p.Fields() {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			c.fields = append(c.fields, f)
		}
	}
	return c
}

func (c *compositePropagator) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

func (c *compositePropagator) Inject(sc xspanctx.SpanContext, setter Setter) {
	for _, p := range c.propagators {
		p.Inject(sc, setter)
	}
}

func (c *compositePropagator) Extract(getter Getter) (xspanctx.SpanContext, bool) {
	var (
		result xspanctx.SpanContext
		found  bool
	)
	for _, p := range c.propagators {
		if sc, ok := p.Extract(getter); ok {
			result, found = sc, true
		}
	}
	return result, found
}
