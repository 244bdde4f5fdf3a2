package xspanctx

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceStateKeyValidation(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"vendor", true},
		{"a1_-*/", true},
		{"tenant@vendor", true},
		{"1tenant@vendor", true},
		{"1vendor", false},
		{"Vendor", false},
		{"", false},
		{"a@b@c", false},
		{"tenant@", false},
		{"@vendor", false},
		{"tenant@1vendor", false},
		{"tenant@" + strings.Repeat("v", 15), false},
		{strings.Repeat("t", 242) + "@v", false},
		{strings.Repeat("a", 256), true},
		{strings.Repeat("a", 257), false},
		{"ven dor", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.valid, isValidTraceStateKey(tt.key))
		})
	}
}

func TestTraceStateValueValidation(t *testing.T) {
	assert.True(t, isValidTraceStateValue("value"))
	assert.True(t, isValidTraceStateValue(" leading-space-ok"))
	assert.False(t, isValidTraceStateValue("trailing "))
	assert.False(t, isValidTraceStateValue(""))
	assert.False(t, isValidTraceStateValue("a,b"))
	assert.False(t, isValidTraceStateValue("a=b"))
	assert.False(t, isValidTraceStateValue("tab\t"))
	assert.False(t, isValidTraceStateValue(strings.Repeat("x", 257)))
	assert.True(t, isValidTraceStateValue(strings.Repeat("x", 256)))
}

func TestTraceStateInsert(t *testing.T) {
	ts, err := TraceState{}.Insert("a", "1")
	require.NoError(t, err)
	ts, err = ts.Insert("b", "2")
	require.NoError(t, err)
	assert.Equal(t, "b=2,a=1", ts.String())

	// 更新已有 key 会移到最前
	ts2, err := ts.Insert("a", "3")
	require.NoError(t, err)
	assert.Equal(t, "a=3,b=2", ts2.String())
	// 原值不变
	assert.Equal(t, "b=2,a=1", ts.String())

	same, err := ts.Insert("BAD", "x")
	require.ErrorIs(t, err, ErrInvalidTraceState)
	assert.True(t, same.Equal(ts))
}

func TestTraceStateCap(t *testing.T) {
	var ts TraceState
	var err error
	for i := range MaxTraceStateMembers + 5 {
		ts, err = ts.Insert(fmt.Sprintf("k%d", i), "v")
		require.NoError(t, err)
	}
	assert.Equal(t, MaxTraceStateMembers, ts.Len())
	// 最新的在最前，最旧的被丢弃
	_, ok := ts.Get(fmt.Sprintf("k%d", MaxTraceStateMembers+4))
	assert.True(t, ok)
	_, ok = ts.Get("k0")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(ts.String(), fmt.Sprintf("k%d=v", MaxTraceStateMembers+4)))
}

func TestTraceStateDelete(t *testing.T) {
	ts := ParseTraceState("a=1,b=2,c=3")
	assert.Equal(t, "a=1,c=3", ts.Delete("b").String())
	assert.Equal(t, "a=1,b=2,c=3", ts.Delete("missing").String())
	assert.Equal(t, 3, ts.Len())
}

func TestParseTraceState(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "空", header: "", want: ""},
		{name: "空白", header: "  ", want: ""},
		{name: "单项", header: "congo=t61rcWkgMzE", want: "congo=t61rcWkgMzE"},
		{name: "多项带空白", header: "rojo=00f067aa0ba902b7 , congo=t61rcWkgMzE", want: "rojo=00f067aa0ba902b7,congo=t61rcWkgMzE"},
		{name: "丢弃非法项", header: "a=1,BAD=2,c,=x,d=4", want: "a=1,d=4"},
		{name: "重复 key 保留第一个", header: "a=1,a=2", want: "a=1"},
		{name: "空项跳过", header: "a=1,,b=2", want: "a=1,b=2"},
		{name: "多租户", header: "t@v=1", want: "t@v=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTraceState(tt.header).String())
		})
	}
}

func TestParseTraceStateCap(t *testing.T) {
	parts := make([]string, 0, 40)
	for i := range 40 {
		parts = append(parts, fmt.Sprintf("k%d=v%d", i, i))
	}
	ts := ParseTraceState(strings.Join(parts, ","))
	assert.Equal(t, MaxTraceStateMembers, ts.Len())
	v, ok := ts.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, "v0", v)
	_, ok = ts.Get("k32")
	assert.False(t, ok)
}

func TestTraceStateWalk(t *testing.T) {
	ts := ParseTraceState("a=1,b=2,c=3")
	var keys []string
	ts.Walk(func(k, _ string) bool {
		keys = append(keys, k)
		return k != "b"
	})
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestTraceStateText(t *testing.T) {
	ts := ParseTraceState("a=1,b=2")
	b, err := ts.MarshalText()
	require.NoError(t, err)
	var got TraceState
	require.NoError(t, got.UnmarshalText(b))
	assert.True(t, got.Equal(ts))
}
