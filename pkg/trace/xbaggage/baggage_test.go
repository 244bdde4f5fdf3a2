package xbaggage

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, parent *Baggage, kvs ...string) *Baggage {
	t.Helper()
	b := NewBuilder().SetParent(parent)
	for i := 0; i+1 < len(kvs); i += 2 {
		require.True(t, b.Put(kvs[i], kvs[i+1]))
	}
	return b.Build()
}

func TestEmpty(t *testing.T) {
	assert.Equal(t, 0, Empty().Len())
	_, ok := Empty().Get("x")
	assert.False(t, ok)
	assert.Same(t, Empty(), NewBuilder().Build())

	var nilBaggage *Baggage
	_, ok = nilBaggage.Get("x")
	assert.False(t, ok)
	assert.Empty(t, nilBaggage.Entries())
	assert.Nil(t, nilBaggage.Parent())
}

func TestChildShadowsParent(t *testing.T) {
	parent := build(t, nil, "a", "1", "b", "2")
	child := build(t, parent, "a", "override", "c", "3")

	assert.Equal(t, "override", child.Value("a"))
	assert.Equal(t, "2", child.Value("b"))
	assert.Equal(t, "3", child.Value("c"))
	assert.Equal(t, []Entry{{Key: "a", Value: "override"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}}, child.Entries())

	// 父级不变
	assert.Equal(t, "1", parent.Value("a"))
	assert.Equal(t, 2, parent.Len())
	assert.Same(t, parent, child.Parent())
}

func TestRemoveIsTombstone(t *testing.T) {
	parent := build(t, nil, "a", "1", "b", "2")
	child := parent.ToBuilder().Remove("a").Build()

	_, ok := child.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []Entry{{Key: "b", Value: "2"}}, child.Entries())

	// 父级依然可见
	assert.Equal(t, "1", parent.Value("a"))

	// 孙级可以重新写入被删除的 key
	grand := build(t, child, "a", "again")
	assert.Equal(t, "again", grand.Value("a"))
}

func TestDepthAndFlatten(t *testing.T) {
	assert.Zero(t, Empty().Depth())
	var nilBaggage *Baggage
	assert.Zero(t, nilBaggage.Depth())

	root := build(t, Empty(), "a", "1", "b", "2")
	mid := root.ToBuilder().Remove("a").Build()
	leaf := NewBuilder().SetParent(mid)
	require.True(t, leaf.Put("c", "3", "prop"))
	top := leaf.Build()
	assert.Equal(t, 3, top.Depth())

	flat := top.Flatten()
	assert.Equal(t, 1, flat.Depth())
	assert.Nil(t, flat.Parent())
	assert.True(t, flat.Equal(top))
	_, ok := flat.Get("a")
	assert.False(t, ok, "墓碑在合并后仍然生效")
	e, ok := flat.Get("c")
	require.True(t, ok)
	assert.Equal(t, "prop", e.Metadata)

	assert.Same(t, Empty(), Empty().Flatten())
}

func TestSetNoParent(t *testing.T) {
	parent := build(t, nil, "a", "1")
	b := NewBuilder().SetParent(parent).SetNoParent()
	require.True(t, b.Put("b", "2"))
	got := b.Build()
	assert.Nil(t, got.Parent())
	_, ok := got.Get("a")
	assert.False(t, ok)
}

func TestBuildWithoutEntriesReturnsParent(t *testing.T) {
	parent := build(t, nil, "a", "1")
	assert.Same(t, parent, parent.ToBuilder().Build())
}

func TestPutRejectsInvalid(t *testing.T) {
	b := NewBuilder()
	assert.False(t, b.Put("", "v"))
	assert.False(t, b.Put("has space", "v"))
	assert.False(t, b.Put("a=b", "v"))
	assert.False(t, b.Put("a,b", "v"))
	assert.False(t, b.Put(strings.Repeat("k", MaxKeyLength+1), "v"))
	assert.False(t, b.Put("k", strings.Repeat("v", MaxValueLength+1)))
	assert.True(t, b.Put("k", "with space & 中文"))
	assert.True(t, b.Put("m", "v", "ttl=10"))

	got := b.Build()
	assert.Equal(t, 2, got.Len())
	e, ok := got.Get("m")
	require.True(t, ok)
	assert.Equal(t, "ttl=10", e.Metadata)

	// 非法 key 的 Remove 被忽略
	assert.Equal(t, 2, got.ToBuilder().Remove("bad key").Build().Len())
}

func TestBuilderReuseDoesNotLeak(t *testing.T) {
	b := NewBuilder()
	require.True(t, b.Put("a", "1"))
	first := b.Build()
	require.True(t, b.Put("a", "2"))
	second := b.Build()
	assert.Equal(t, "1", first.Value("a"))
	assert.Equal(t, "2", second.Value("a"))
}

func TestEqual(t *testing.T) {
	a := build(t, nil, "x", "1", "y", "2")
	b := build(t, build(t, nil, "x", "1"), "y", "2")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Empty()))
}

func TestConcurrentReaders(t *testing.T) {
	b := build(t, build(t, nil, "a", "1"), "b", "2")
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				assert.Equal(t, "1", b.Value("a"))
				assert.Len(t, b.Entries(), 2)
			}
		}()
	}
	wg.Wait()
}
