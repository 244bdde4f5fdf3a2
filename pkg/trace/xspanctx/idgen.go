package xspanctx

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// IDGenerator 生成 trace 与 span 标识。
//
// 实现必须并发安全，且永远不返回全零 ID。
type IDGenerator interface {
	NewTraceID() TraceID
	NewSpanID() SpanID
}

// RandomIDGenerator 基于 ChaCha8 的随机 ID 生成器，种子来自 crypto/rand。
type RandomIDGenerator struct {
	mu  sync.Mutex
	rng *rand.ChaCha8
}

var _ IDGenerator = (*RandomIDGenerator)(nil)

// NewRandomIDGenerator 创建随机 ID 生成器。
func NewRandomIDGenerator() *RandomIDGenerator {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// 熵源不可用时使用固定种子
		binary.LittleEndian.PutUint64(seed[:], 0x9e3779b97f4a7c15)
	}
	return &RandomIDGenerator{rng: rand.NewChaCha8(seed)}
}

// NewTraceID 返回非全零的随机 TraceID。
func (g *RandomIDGenerator) NewTraceID() TraceID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var id TraceID
	for !id.IsValid() {
		binary.BigEndian.PutUint64(id[:8], g.rng.Uint64())
		binary.BigEndian.PutUint64(id[8:], g.rng.Uint64())
	}
	return id
}

// NewSpanID 返回非全零的随机 SpanID。
func (g *RandomIDGenerator) NewSpanID() SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var id SpanID
	for !id.IsValid() {
		binary.BigEndian.PutUint64(id[:], g.rng.Uint64())
	}
	return id
}
