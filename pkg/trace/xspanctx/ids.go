package xspanctx

import (
	"encoding/binary"
	"encoding/hex"
)

const (
	// TraceIDSize W3C 规范: 128-bit (16 bytes) -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize W3C 规范: 64-bit (8 bytes) -> 16 hex chars
	SpanIDSize = 8
)

// TraceID 16 字节 trace 标识。
type TraceID [TraceIDSize]byte

// SpanID 8 字节 span 标识。
type SpanID [SpanIDSize]byte

var (
	invalidTraceID TraceID
	invalidSpanID  SpanID
)

// IsValid 报告 TraceID 是否非全零。
func (t TraceID) IsValid() bool {
	return t != invalidTraceID
}

// String 返回 32 位小写十六进制文本。
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// Low64 以大端序读取低 8 字节（第 8..15 字节）。
// 比率采样器用它作为均匀分布的随机源。
func (t TraceID) Low64() uint64 {
	return binary.BigEndian.Uint64(t[8:])
}

// MarshalText 实现 encoding.TextMarshaler，用于 JSON 导出。
func (t TraceID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (t *TraceID) UnmarshalText(b []byte) error {
	id, err := ParseTraceID(string(b))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// IsValid 报告 SpanID 是否非全零。
func (s SpanID) IsValid() bool {
	return s != invalidSpanID
}

// String 返回 16 位小写十六进制文本。
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText 实现 encoding.TextMarshaler。
func (s SpanID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *SpanID) UnmarshalText(b []byte) error {
	id, err := ParseSpanID(string(b))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// ParseTraceID 解析 32 位小写十六进制文本。
//
// 全零 ID 可以被解析（返回 nil 错误），调用方通过 IsValid 判断有效性。
func ParseTraceID(s string) (TraceID, error) {
	var id TraceID
	if len(s) != TraceIDSize*2 || !isLowerHex(s) {
		return id, ErrInvalidFormat
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return TraceID{}, ErrInvalidFormat
	}
	return id, nil
}

// ParseSpanID 解析 16 位小写十六进制文本。
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if len(s) != SpanIDSize*2 || !isLowerHex(s) {
		return id, ErrInvalidFormat
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return SpanID{}, ErrInvalidFormat
	}
	return id, nil
}

// TraceIDFromBytes 从 16 字节切片构造 TraceID。
func TraceIDFromBytes(b []byte) (TraceID, error) {
	var id TraceID
	if len(b) != TraceIDSize {
		return id, ErrInvalidFormat
	}
	copy(id[:], b)
	return id, nil
}

// SpanIDFromBytes 从 8 字节切片构造 SpanID。
func SpanIDFromBytes(b []byte) (SpanID, error) {
	var id SpanID
	if len(b) != SpanIDSize {
		return id, ErrInvalidFormat
	}
	copy(id[:], b)
	return id, nil
}

// isLowerHex 检查字符串是否只包含 [0-9a-f]。
func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
