package xpersist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/omeyang/xtel/pkg/exporter/xspanjson"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// 文件内容是若干 "<JSON 数组>," 片段的拼接，读取时补全为
// "[<片段>...null]" 后整体解码。
var (
	chunkSeparator = []byte(",")
	arrayPrefix    = []byte("[")
	arraySuffix    = []byte("null]")
)

// EncodeChunk 把一批 span 编码为一个可追加的片段。
func EncodeChunk(spans []xsdk.SpanData) ([]byte, error) {
	data, err := json.Marshal(xspanjson.FromSpanDataSlice(spans))
	if err != nil {
		return nil, err
	}
	return append(data, chunkSeparator...), nil
}

// DecodeChunks 解码文件内容中的全部片段。
func DecodeChunks(data []byte) ([]xsdk.SpanData, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(arrayPrefix)+len(data)+len(arraySuffix)))
	buf.Write(arrayPrefix)
	buf.Write(data)
	buf.Write(arraySuffix)

	var chunks [][]xspanjson.Span
	if err := json.Unmarshal(buf.Bytes(), &chunks); err != nil {
		return nil, fmt.Errorf("xpersist: decode chunks: %w", err)
	}
	var out []xsdk.SpanData
	for _, c := range chunks {
		spans, err := xspanjson.ToSpanDataSlice(c)
		if err != nil {
			return nil, fmt.Errorf("xpersist: decode chunks: %w", err)
		}
		out = append(out, spans...)
	}
	return out, nil
}
