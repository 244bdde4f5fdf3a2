package xspanctx

import (
	"testing"
)

func FuzzParseTraceState(f *testing.F) {
	f.Add("rojo=00f067aa0ba902b7,congo=t61rcWkgMzE")
	f.Add("a=1,,b=2")
	f.Add("t@v=1,BAD=x")
	f.Add(",,,=")

	f.Fuzz(func(t *testing.T, header string) {
		ts := ParseTraceState(header)
		if ts.Len() > MaxTraceStateMembers {
			t.Fatalf("len=%d exceeds cap", ts.Len())
		}
		// 序列化后再次解析必须稳定
		again := ParseTraceState(ts.String())
		if !again.Equal(ts) {
			t.Fatalf("unstable round trip: %q -> %q", ts.String(), again.String())
		}
	})
}

func FuzzParseTraceID(f *testing.F) {
	f.Add("0af7651916cd43dd8448eb211c80319c")
	f.Add("00000000000000000000000000000000")
	f.Add("xyz")

	f.Fuzz(func(t *testing.T, s string) {
		id, err := ParseTraceID(s)
		if err != nil {
			return
		}
		if id.String() != s {
			t.Fatalf("String()=%q, input=%q", id.String(), s)
		}
	})
}
