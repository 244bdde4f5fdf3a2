package xspanctx

import "encoding/hex"

// TraceFlags W3C trace-flags 位集合。
type TraceFlags byte

// FlagsSampled 采样位（bit0）。
const FlagsSampled TraceFlags = 0x01

// IsSampled 报告采样位是否被设置。
func (f TraceFlags) IsSampled() bool {
	return f&FlagsSampled == FlagsSampled
}

// WithSampled 返回设置或清除采样位后的新值，其余位保持不变。
func (f TraceFlags) WithSampled(sampled bool) TraceFlags {
	if sampled {
		return f | FlagsSampled
	}
	return f &^ FlagsSampled
}

// String 返回两位小写十六进制文本，如 "01"。
func (f TraceFlags) String() string {
	return hex.EncodeToString([]byte{byte(f)})
}

// ParseTraceFlags 解析两位小写十六进制文本。
func ParseTraceFlags(s string) (TraceFlags, error) {
	if len(s) != 2 || !isLowerHex(s) {
		return 0, ErrInvalidFormat
	}
	var b [1]byte
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return 0, ErrInvalidFormat
	}
	return TraceFlags(b[0]), nil
}
