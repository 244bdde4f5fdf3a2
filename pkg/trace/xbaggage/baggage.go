package xbaggage

import (
	"slices"
	"strings"
)

const (
	// MaxKeyLength 单个 key 的最大字节数
	MaxKeyLength = 255
	// MaxValueLength 单个 value 的最大字节数
	MaxValueLength = 4096
)

// Entry 一条 baggage 记录。Metadata 对应 W3C 头中 ';' 之后的属性文本。
type Entry struct {
	Key      string
	Value    string
	Metadata string
}

// Baggage 不可变、带父链的键值集合。
//
// 子级条目按 key 遮蔽父级条目；删除以墓碑形式记录在子级，
// 因此父级本身不会被修改，可以安全地在 goroutine 间共享。
// nil *Baggage 等价于空集合。
type Baggage struct {
	parent  *Baggage
	entries map[string]*Entry // nil 值为墓碑
}

var empty = &Baggage{}

// Empty 返回空 Baggage 单例。
func Empty() *Baggage {
	return empty
}

// Get 按 key 查找，沿父链向上，遇到墓碑视为不存在。
func (b *Baggage) Get(key string) (Entry, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if e, ok := cur.entries[key]; ok {
			if e == nil {
				return Entry{}, false
			}
			return *e, true
		}
	}
	return Entry{}, false
}

// Value 是 Get 的简写，只返回值。
func (b *Baggage) Value(key string) string {
	e, _ := b.Get(key)
	return e.Value
}

// Entries 返回合并父链后的全部可见条目，按 key 排序。
func (b *Baggage) Entries() []Entry {
	seen := make(map[string]struct{})
	var out []Entry
	for cur := b; cur != nil; cur = cur.parent {
		for k, e := range cur.entries {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if e != nil {
				out = append(out, *e)
			}
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Len 返回可见条目数。
func (b *Baggage) Len() int {
	return len(b.Entries())
}

// Parent 返回父级，根节点返回 nil。
func (b *Baggage) Parent() *Baggage {
	if b == nil {
		return nil
	}
	return b.parent
}

// Depth 返回父链层数，空集合为 0。
func (b *Baggage) Depth() int {
	n := 0
	for cur := b; cur != nil && cur != empty; cur = cur.parent {
		n++
	}
	return n
}

// Flatten 把父链合并为一层，墓碑与被遮蔽的条目不再保留。
func (b *Baggage) Flatten() *Baggage {
	bb := NewBuilder().SetNoParent()
	for _, e := range b.Entries() {
		bb.entries[e.Key] = &e
	}
	return bb.Build()
}

// Equal 比较两个 Baggage 的可见条目是否一致。
func (b *Baggage) Equal(other *Baggage) bool {
	return slices.Equal(b.Entries(), other.Entries())
}

// ToBuilder 返回以 b 为父级的构建器。
func (b *Baggage) ToBuilder() *Builder {
	return NewBuilder().SetParent(b)
}

// Builder 构建新的 Baggage。Builder 不是并发安全的，Build 后可继续复用。
type Builder struct {
	parent   *Baggage
	noParent bool
	entries  map[string]*Entry
}

// NewBuilder 创建空构建器。
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*Entry)}
}

// SetParent 设置父级。
func (bb *Builder) SetParent(parent *Baggage) *Builder {
	bb.parent = parent
	bb.noParent = false
	return bb
}

// SetNoParent 显式声明无父级。
func (bb *Builder) SetNoParent() *Builder {
	bb.parent = nil
	bb.noParent = true
	return bb
}

// Put 写入一条记录，key 或 value 不合法时拒绝并返回 false。
func (bb *Builder) Put(key, value string, metadata ...string) bool {
	if !IsValidKey(key) || !IsValidValue(value) {
		return false
	}
	e := &Entry{Key: key, Value: value}
	if len(metadata) > 0 {
		e.Metadata = metadata[0]
	}
	bb.entries[key] = e
	return true
}

// Remove 写入墓碑，使父级中的同名 key 在新 Baggage 中不可见。
func (bb *Builder) Remove(key string) *Builder {
	if !IsValidKey(key) {
		return bb
	}
	bb.entries[key] = nil
	return bb
}

// Build 生成不可变 Baggage。无父级且无条目时返回 Empty()。
func (bb *Builder) Build() *Baggage {
	parent := bb.parent
	if bb.noParent {
		parent = nil
	}
	if len(bb.entries) == 0 {
		if parent != nil {
			return parent
		}
		return empty
	}
	entries := make(map[string]*Entry, len(bb.entries))
	for k, e := range bb.entries {
		if e != nil {
			cp := *e
			e = &cp
		}
		entries[k] = e
	}
	return &Baggage{parent: parent, entries: entries}
}

// IsValidKey key 必须为 1..255 字节的可打印 ASCII（0x21-0x7E），
// 且不包含 W3C baggage 的分隔符 ',' ';' '='。
func IsValidKey(key string) bool {
	if key == "" || len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c <= 0x20 || c >= 0x7f || c == ',' || c == ';' || c == '=' {
			return false
		}
	}
	return true
}

// IsValidValue value 最长 4096 字节；任意字节可被传播器转义，因此只限制长度。
func IsValidValue(value string) bool {
	return len(value) <= MaxValueLength
}
