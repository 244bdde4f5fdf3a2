package xspanjson

import (
	"encoding/json"
	"fmt"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// FromSpanDataSlice 批量转换。
func FromSpanDataSlice(spans []xsdk.SpanData) []Span {
	out := make([]Span, len(spans))
	for i, sd := range spans {
		out[i] = FromSpanData(sd)
	}
	return out
}

// ToSpanDataSlice 批量还原，任一 span 非法时返回错误。
func ToSpanDataSlice(spans []Span) ([]xsdk.SpanData, error) {
	out := make([]xsdk.SpanData, 0, len(spans))
	for i, s := range spans {
		sd, err := s.ToSpanData()
		if err != nil {
			return nil, fmt.Errorf("span %d: %w", i, err)
		}
		out = append(out, sd)
	}
	return out, nil
}

// Marshal 把一批 span 编码为 JSON 数组。
func Marshal(spans []xsdk.SpanData) ([]byte, error) {
	return json.Marshal(FromSpanDataSlice(spans))
}

// Unmarshal 解码 Marshal 的输出。
func Unmarshal(data []byte) ([]xsdk.SpanData, error) {
	var spans []Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return ToSpanDataSlice(spans)
}

// MarshalSpan 编码单个 span，用于逐条写入的后端。
func MarshalSpan(sd xsdk.SpanData) ([]byte, error) {
	return json.Marshal(FromSpanData(sd))
}

// UnmarshalSpan 解码 MarshalSpan 的输出。
func UnmarshalSpan(data []byte) (xsdk.SpanData, error) {
	var s Span
	if err := json.Unmarshal(data, &s); err != nil {
		return xsdk.SpanData{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s.ToSpanData()
}

// Pretty 将任意值序列化为格式化的 JSON 字符串。
// 用于日志和命令行输出。序列化失败时返回 "<marshal error: ...>"。
func Pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	return string(data)
}
