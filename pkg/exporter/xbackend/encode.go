package xbackend

import (
	"fmt"

	"github.com/omeyang/xtel/pkg/exporter/xresilient"
	"github.com/omeyang/xtel/pkg/exporter/xspanjson"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// EncodeJSON 把每个 span 编码为一条 JSON 记录。失败返回不可重试的错误。
func EncodeJSON(spans []xsdk.SpanData) ([][]byte, error) {
	out := make([][]byte, 0, len(spans))
	for _, sd := range spans {
		data, err := xspanjson.MarshalSpan(sd)
		if err != nil {
			return nil, Permanent(fmt.Errorf("%w: span %q: %w", ErrEncode, sd.Name, err))
		}
		out = append(out, data)
	}
	return out, nil
}

// Permanent 把 err 标记为不可重试，nil 保持 nil。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return xresilient.NewPermanentError(err)
}
