package xsdk

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

var testEpoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// seqIDGenerator 生成递增 ID，便于断言
type seqIDGenerator struct {
	n atomic.Uint64
}

func (g *seqIDGenerator) NewTraceID() xspanctx.TraceID {
	v := g.n.Add(1)
	var id xspanctx.TraceID
	id[0] = 0xaa
	id[15] = byte(v)
	return id
}

func (g *seqIDGenerator) NewSpanID() xspanctx.SpanID {
	v := g.n.Add(1)
	var id xspanctx.SpanID
	id[0] = 0xbb
	id[7] = byte(v)
	return id
}

func newTestProvider(t *testing.T, opts ...Option) (*TracerProvider, *InMemoryExporter, *clockz.FakeClock) {
	t.Helper()
	exp := NewInMemoryExporter()
	sp, err := NewSimpleSpanProcessor(exp, WithProcessorLogger(xlog.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	clock := clockz.NewFakeClockAt(testEpoch)
	base := []Option{
		WithSpanProcessor(sp),
		WithClock(clock),
		WithIDGenerator(&seqIDGenerator{}),
		WithLogger(xlog.Discard()),
	}
	return NewTracerProvider(append(base, opts...)...), exp, clock
}

// recordingProcessor 记录回调顺序
type recordingProcessor struct {
	mu      sync.Mutex
	name    string
	log     *[]string
	started []*Span
	ended   []SpanData
	flushes int
	shuts   int
	err     error
}

func (r *recordingProcessor) OnStart(_ xspanctx.SpanContext, s *Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
	if r.log != nil {
		*r.log = append(*r.log, r.name+".start")
	}
}

func (r *recordingProcessor) OnEnd(s SpanData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, s)
	if r.log != nil {
		*r.log = append(*r.log, r.name+".end")
	}
}

func (r *recordingProcessor) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shuts++
	return r.err
}

func (r *recordingProcessor) ForceFlush(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return r.err
}
