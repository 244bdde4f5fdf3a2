package xpropagation

import (
	"net/url"
	"strings"

	"github.com/omeyang/xtel/pkg/trace/xbaggage"
)

// HeaderBaggage W3C baggage 头
const HeaderBaggage = "baggage"

// W3C baggage 限制
const (
	MaxBaggageMembers    = 180
	MaxBaggageMemberSize = 4096
	MaxBaggageHeaderSize = 8192
)

// BaggagePropagator W3C baggage 传播器。
//
// 注入格式为 key=value(;metadata)，多个成员以 ',' 分隔，value 中
// baggage-octet 之外的字节与 '%' 做百分号转义。超出成员数、单成员长度
// 或总长度限制的成员被丢弃。
type BaggagePropagator struct{}

// Fields 返回会写入的 key。
func (BaggagePropagator) Fields() []string {
	return []string{HeaderBaggage}
}

// Inject 写入 baggage 头，没有可写成员时不写。
func (BaggagePropagator) Inject(b *xbaggage.Baggage, setter Setter) {
	if setter == nil {
		return
	}
	if header := EncodeBaggage(b); header != "" {
		setter.Set(HeaderBaggage, header)
	}
}

// Extract 读取 baggage 头，生成无父级的新 Baggage。没有任何有效成员时返回 false。
func (BaggagePropagator) Extract(getter Getter) (*xbaggage.Baggage, bool) {
	if getter == nil {
		return nil, false
	}
	values := getter.Get(HeaderBaggage)
	if len(values) == 0 {
		return nil, false
	}
	b, err := DecodeBaggage(strings.Join(values, ","))
	if err != nil {
		return nil, false
	}
	return b, true
}

// EncodeBaggage 生成 baggage 头的值。
func EncodeBaggage(b *xbaggage.Baggage) string {
	var (
		sb      strings.Builder
		members int
	)
	for _, e := range b.Entries() {
		if members >= MaxBaggageMembers {
			break
		}
		member := e.Key + "=" + escapeBaggageValue(e.Value)
		if e.Metadata != "" {
			member += ";" + e.Metadata
		}
		if len(member) > MaxBaggageMemberSize {
			continue
		}
		extra := len(member)
		if members > 0 {
			extra++
		}
		if sb.Len()+extra > MaxBaggageHeaderSize {
			continue
		}
		if members > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(member)
		members++
	}
	return sb.String()
}

// DecodeBaggage 解析 baggage 头的值。非法成员被跳过，
// 一个有效成员都没有时返回 ErrInvalidBaggage。
func DecodeBaggage(header string) (*xbaggage.Baggage, error) {
	builder := xbaggage.NewBuilder().SetNoParent()
	var (
		members int
		total   int
	)
	for raw := range strings.SplitSeq(header, ",") {
		if members >= MaxBaggageMembers {
			break
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || len(raw) > MaxBaggageMemberSize {
			continue
		}
		extra := len(raw)
		if members > 0 {
			extra++
		}
		if total+extra > MaxBaggageHeaderSize {
			continue
		}

		kv, metadata, _ := strings.Cut(raw, ";")
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		decoded, err := url.PathUnescape(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		if !builder.Put(key, decoded, strings.TrimSpace(metadata)) {
			continue
		}
		members++
		total += extra
	}
	if members == 0 {
		return nil, ErrInvalidBaggage
	}
	return builder.Build(), nil
}

// isBaggageOctet baggage-octet = %x21 / %x23-2B / %x2D-3A / %x3C-5B / %x5D-7E
func isBaggageOctet(c byte) bool {
	switch {
	case c == 0x21:
	case c >= 0x23 && c <= 0x2b:
	case c >= 0x2d && c <= 0x3a:
	case c >= 0x3c && c <= 0x5b:
	case c >= 0x5d && c <= 0x7e:
	default:
		return false
	}
	return true
}

func escapeBaggageValue(s string) string {
	const hexDigits = "0123456789ABCDEF"
	n := 0
	for i := 0; i < len(s); i++ {
		if !isBaggageOctet(s[i]) || s[i] == '%' {
			n++
		}
	}
	if n == 0 {
		return s
	}
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isBaggageOctet(c) && c != '%' {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', hexDigits[c>>4], hexDigits[c&0x0f])
	}
	return string(buf)
}
