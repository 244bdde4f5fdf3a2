package xspanctx

import (
	"strings"
)

const (
	// MaxTraceStateMembers tracestate 最多保留的条目数（W3C 上限）。
	MaxTraceStateMembers = 32

	maxKeyLength    = 256
	maxTenantLength = 241
	maxVendorLength = 14
	maxValueLength  = 256
)

type member struct {
	key   string
	value string
}

// TraceState 不可变的 tracestate 列表。
//
// 最近设置的条目排在最前面；条目数超过 [MaxTraceStateMembers] 时丢弃最旧的。
// 所有修改操作返回新值，原值保持不变，因此可以在 goroutine 间共享。
type TraceState struct {
	members []member
}

// Len 返回条目数量。
func (ts TraceState) Len() int {
	return len(ts.members)
}

// Get 返回 key 对应的值。
func (ts TraceState) Get(key string) (string, bool) {
	for _, m := range ts.members {
		if m.key == key {
			return m.value, true
		}
	}
	return "", false
}

// Insert 返回把 key=value 放到最前面的新 TraceState。
//
// 已存在的同名 key 会先被移除。key 或 value 不合法时返回
// [ErrInvalidTraceState]，接收者保持不变。
func (ts TraceState) Insert(key, value string) (TraceState, error) {
	if !isValidTraceStateKey(key) || !isValidTraceStateValue(value) {
		return ts, ErrInvalidTraceState
	}
	out := make([]member, 0, min(len(ts.members)+1, MaxTraceStateMembers))
	out = append(out, member{key: key, value: value})
	for _, m := range ts.members {
		if len(out) == MaxTraceStateMembers {
			break
		}
		if m.key == key {
			continue
		}
		out = append(out, m)
	}
	return TraceState{members: out}, nil
}

// Delete 返回移除 key 后的新 TraceState。
func (ts TraceState) Delete(key string) TraceState {
	idx := -1
	for i, m := range ts.members {
		if m.key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ts
	}
	out := make([]member, 0, len(ts.members)-1)
	out = append(out, ts.members[:idx]...)
	out = append(out, ts.members[idx+1:]...)
	return TraceState{members: out}
}

// Walk 按顺序遍历条目，fn 返回 false 时停止。
func (ts TraceState) Walk(fn func(key, value string) bool) {
	for _, m := range ts.members {
		if !fn(m.key, m.value) {
			return
		}
	}
}

// Equal 按顺序逐项比较。
func (ts TraceState) Equal(other TraceState) bool {
	if len(ts.members) != len(other.members) {
		return false
	}
	for i := range ts.members {
		if ts.members[i] != other.members[i] {
			return false
		}
	}
	return true
}

// String 返回 W3C tracestate 头格式：k1=v1,k2=v2。
func (ts TraceState) String() string {
	if len(ts.members) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range ts.members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.key)
		b.WriteByte('=')
		b.WriteString(m.value)
	}
	return b.String()
}

// MarshalText 实现 encoding.TextMarshaler。
func (ts TraceState) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，规则同 [ParseTraceState]。
func (ts *TraceState) UnmarshalText(b []byte) error {
	*ts = ParseTraceState(string(b))
	return nil
}

// ParseTraceState 解析 tracestate 头。
//
// 不合法的条目被静默丢弃；重复 key 保留第一次出现的值；
// 最多保留 [MaxTraceStateMembers] 个合法条目。解析永不失败。
func ParseTraceState(header string) TraceState {
	if strings.TrimSpace(header) == "" {
		return TraceState{}
	}
	var members []member
	for part := range strings.SplitSeq(header, ",") {
		if len(members) == MaxTraceStateMembers {
			break
		}
		part = strings.Trim(part, " \t")
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok || !isValidTraceStateKey(key) || !isValidTraceStateValue(value) {
			continue
		}
		if containsKey(members, key) {
			continue
		}
		members = append(members, member{key: key, value: value})
	}
	return TraceState{members: members}
}

func containsKey(members []member, key string) bool {
	for _, m := range members {
		if m.key == key {
			return true
		}
	}
	return false
}

// isValidTraceStateKey 校验 key：
//
//	simple-key = lcalpha 0*255( lcalpha / DIGIT / "_" / "-"/ "*" / "/" )
//	multi-key  = tenant-id "@" system-id
//	tenant-id  = ( lcalpha / DIGIT ) 0*240( ... )
//	system-id  = lcalpha 0*13( ... )
func isValidTraceStateKey(key string) bool {
	if key == "" || len(key) > maxKeyLength {
		return false
	}
	tenant, vendor, multi := strings.Cut(key, "@")
	if !multi {
		return isLowerAlpha(key[0]) && allKeyChars(key)
	}
	if strings.Contains(vendor, "@") {
		return false
	}
	if tenant == "" || len(tenant) > maxTenantLength || vendor == "" || len(vendor) > maxVendorLength {
		return false
	}
	if !isLowerAlpha(tenant[0]) && !isDigit(tenant[0]) {
		return false
	}
	return isLowerAlpha(vendor[0]) && allKeyChars(tenant) && allKeyChars(vendor)
}

func allKeyChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isLowerAlpha(c) || isDigit(c) {
			continue
		}
		switch c {
		case '_', '-', '*', '/':
			continue
		default:
			return false
		}
	}
	return true
}

// isValidTraceStateValue 校验 value：0x20-0x7E 可打印字符，排除 ',' 与 '='，
// 长度 1..256，且不以空格结尾。
func isValidTraceStateValue(value string) bool {
	if value == "" || len(value) > maxValueLength || value[len(value)-1] == ' ' {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < 0x20 || c > 0x7e || c == ',' || c == '=' {
			return false
		}
	}
	return true
}

func isLowerAlpha(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
