package xscope

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
)

// StackManager 按 goroutine 维护活跃值栈。
//
// Value 返回当前 goroutine 栈顶的值，忽略 ctx。Scope.Close 移除对应的那一项，
// 即使它已不在栈顶（乱序关闭），也可以在其他 goroutine 上调用。
type StackManager struct {
	mu     sync.Mutex
	stacks map[uint64]map[Key][]*stackEntry
}

type stackEntry struct {
	value any
}

// NewStackManager 创建 StackManager。
func NewStackManager() *StackManager {
	return &StackManager{stacks: make(map[uint64]map[Key][]*stackEntry)}
}

// Value 实现 Manager。
func (m *StackManager) Value(_ context.Context, key Key) any {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.stacks[gid][key]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1].value
}

// WithValue 实现 Manager。返回的 ctx 即入参 ctx（nil 时为 Background）。
func (m *StackManager) WithValue(ctx context.Context, key Key, value any) (context.Context, Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	gid := goroutineID()
	e := &stackEntry{value: value}

	m.mu.Lock()
	byKey, ok := m.stacks[gid]
	if !ok {
		byKey = make(map[Key][]*stackEntry)
		m.stacks[gid] = byKey
	}
	byKey[key] = append(byKey[key], e)
	m.mu.Unlock()

	return ctx, &stackScope{m: m, gid: gid, key: key, entry: e}
}

// Name 实现 Manager。
func (*StackManager) Name() string { return NameStack }

// Depth 返回当前 goroutine 上 key 的栈深度。
func (m *StackManager) Depth(key Key) int {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stacks[gid][key])
}

func (m *StackManager) remove(gid uint64, key Key, e *stackEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey := m.stacks[gid]
	stack := byKey[key]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == e {
			stack = append(stack[:i], stack[i+1:]...)
			break
		}
	}
	if len(stack) == 0 {
		delete(byKey, key)
	} else {
		byKey[key] = stack
	}
	// 空 goroutine 条目必须清理，否则 goroutine id 会无限累积
	if len(byKey) == 0 {
		delete(m.stacks, gid)
	}
}

type stackScope struct {
	once  sync.Once
	m     *StackManager
	gid   uint64
	key   Key
	entry *stackEntry
}

func (s *stackScope) Close() {
	s.once.Do(func() { s.m.remove(s.gid, s.key, s.entry) })
}

var _ Manager = (*StackManager)(nil)

var goroutinePrefix = []byte("goroutine ")

// goroutineID 从 runtime.Stack 的首行 "goroutine N [" 中解析 N。
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
