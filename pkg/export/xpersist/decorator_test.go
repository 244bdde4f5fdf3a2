package xpersist

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

func testSpans(t *testing.T, names ...string) []xsdk.SpanData {
	t.Helper()
	tid, err := xspanctx.ParseTraceID("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	out := make([]xsdk.SpanData, 0, len(names))
	for i, n := range names {
		var sid xspanctx.SpanID
		sid[7] = byte(i + 1)
		var flags xspanctx.TraceFlags
		out = append(out, xsdk.SpanData{
			Name: n,
			SpanContext: xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
				TraceID: tid, SpanID: sid, TraceFlags: flags.WithSampled(true),
			}),
			StartTime: testEpoch,
			EndTime:   testEpoch.Add(time.Second),
			HasEnded:  true,
		})
	}
	return out
}

func spanNames(spans []xsdk.SpanData) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Name
	}
	return out
}

// idlePreset 后台 worker 几乎不运行，由测试显式 Flush
func idlePreset() PerformancePreset {
	p := LowRuntimeImpact()
	p.InitialExportDelay = time.Hour
	p.MinExportDelay = time.Hour
	p.MaxExportDelay = time.Hour
	return p
}

func newTestDecorator(t *testing.T, exp xsdk.SpanExporter, dir string, opts ...Option) *SpanExporterDecorator {
	t.Helper()
	opts = append([]Option{WithLogger(xlog.Discard())}, opts...)
	d, err := NewSpanExporterDecorator(exp, dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })
	return d
}

func TestNewSpanExporterDecoratorValidates(t *testing.T) {
	_, err := NewSpanExporterDecorator(nil, t.TempDir())
	require.ErrorIs(t, err, ErrNilExporter)
	_, err = NewSpanExporterDecorator(xsdk.NewInMemoryExporter(), "")
	require.ErrorIs(t, err, ErrEmptyDirectory)
}

func TestDecoratorFlushDeliversPersistedSpans(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	dir := t.TempDir()
	d := newTestDecorator(t, mem, dir, WithPreset(idlePreset()))
	ctx := context.Background()

	assert.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "a", "b")))
	assert.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "c")))
	assert.Equal(t, xsdk.ExportSuccess, d.Export(ctx, nil))
	assert.Empty(t, mem.Spans(), "Export 只写文件")

	assert.Equal(t, xsdk.ExportSuccess, d.Flush(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, spanNames(mem.Spans()))
	assert.Equal(t, 1, mem.FlushCalls())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "发送成功的文件被删除")
}

func TestDecoratorRetryableFailureKeepsFiles(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	mem.SetResult(xsdk.ExportFailureRetryable)
	dir := t.TempDir()
	d := newTestDecorator(t, mem, dir, WithPreset(idlePreset()))
	ctx := context.Background()

	require.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "a")))
	assert.Equal(t, xsdk.ExportFailureRetryable, d.Flush(ctx))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	mem.SetResult(xsdk.ExportSuccess)
	assert.Equal(t, xsdk.ExportSuccess, d.Flush(ctx))
	assert.Equal(t, []string{"a"}, spanNames(mem.Spans()))
}

func TestDecoratorTerminalFailureDropsFile(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	mem.SetResult(xsdk.ExportFailure)
	dir := t.TempDir()
	d := newTestDecorator(t, mem, dir, WithPreset(idlePreset()))
	ctx := context.Background()

	require.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "a")))
	d.Flush(ctx)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecoratorDiscardsUndecodableFile(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName(time.Now().Add(-time.Minute))), []byte("{broken"), 0o600))
	d := newTestDecorator(t, mem, dir, WithPreset(idlePreset()))

	assert.Equal(t, xsdk.ExportSuccess, d.Flush(context.Background()))
	assert.Empty(t, mem.Spans())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecoratorBackgroundWorkerShipsFiles(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	p := testPreset()
	p.MaxFileSize = 1 << 20
	p.MaxDirectorySize = 1 << 20
	p.MaxObjectSize = 1 << 20
	p.MaxFileAgeForWrite = 0
	p.MinFileAgeForRead = 0
	d := newTestDecorator(t, mem, t.TempDir(), WithPreset(p))

	require.Equal(t, xsdk.ExportSuccess, d.Export(context.Background(), testSpans(t, "bg")))
	assert.Eventually(t, func() bool { return len(mem.Spans()) == 1 }, 2*time.Second, time.Millisecond)
}

func TestDecoratorSynchronousWrite(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	dir := t.TempDir()
	p := idlePreset()
	p.SynchronousWrite = true
	d := newTestDecorator(t, mem, dir, WithPreset(p))

	require.Equal(t, xsdk.ExportSuccess, d.Export(context.Background(), testSpans(t, "s")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "同步写入在 Export 返回前落盘")
}

// gatedExporter 首次 Export 阻塞到 gate 关闭
type gatedExporter struct {
	*xsdk.InMemoryExporter
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedExporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	g.once.Do(func() {
		close(g.entered)
		<-g.gate
	})
	return g.InMemoryExporter.Export(ctx, spans)
}

func TestDecoratorWriteDuringFlushIsKept(t *testing.T) {
	inner := &gatedExporter{
		InMemoryExporter: xsdk.NewInMemoryExporter(),
		gate:             make(chan struct{}),
		entered:          make(chan struct{}),
	}
	p := idlePreset()
	p.SynchronousWrite = true
	d := newTestDecorator(t, inner, t.TempDir(), WithPreset(p))
	ctx := context.Background()

	require.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "a")))
	flushed := make(chan xsdk.ExportResult, 1)
	go func() { flushed <- d.Flush(ctx) }()
	<-inner.entered

	// 发送 a 所在文件期间写入的 b 不能随该文件一起被删除
	require.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "b")))
	close(inner.gate)
	require.Equal(t, xsdk.ExportSuccess, <-flushed)

	assert.Equal(t, xsdk.ExportSuccess, d.Flush(ctx))
	assert.Equal(t, []string{"a", "b"}, spanNames(inner.Spans()))
}

func TestDecoratorObjectTooLarge(t *testing.T) {
	p := idlePreset()
	p.MaxObjectSize = 10
	p.SynchronousWrite = true
	d := newTestDecorator(t, xsdk.NewInMemoryExporter(), t.TempDir(), WithPreset(p))
	assert.Equal(t, xsdk.ExportFailure, d.Export(context.Background(), testSpans(t, "too-large")))
}

func TestDecoratorShutdown(t *testing.T) {
	mem := xsdk.NewInMemoryExporter()
	dir := t.TempDir()
	d, err := NewSpanExporterDecorator(mem, dir, WithPreset(idlePreset()), WithLogger(xlog.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, xsdk.ExportSuccess, d.Export(ctx, testSpans(t, "left")))
	require.NoError(t, d.Shutdown(ctx))
	require.NoError(t, d.Shutdown(ctx))
	assert.Equal(t, 1, mem.ShutdownCalls())
	assert.Equal(t, xsdk.ExportFailure, d.Export(ctx, testSpans(t, "late")))
	assert.Equal(t, xsdk.ExportSuccess, d.Flush(ctx))

	// 关闭时未发送的文件留给下一次启动
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	fresh := xsdk.NewInMemoryExporter()
	next := newTestDecorator(t, fresh, dir, WithPreset(idlePreset()))
	assert.Equal(t, xsdk.ExportSuccess, next.Flush(ctx))
	assert.Equal(t, []string{"left"}, spanNames(fresh.Spans()))
}

func TestChunkRoundTrip(t *testing.T) {
	a, err := EncodeChunk(testSpans(t, "a", "b"))
	require.NoError(t, err)
	b, err := EncodeChunk(testSpans(t, "c"))
	require.NoError(t, err)

	spans, err := DecodeChunks(append(a, b...))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, spanNames(spans))

	empty, err := DecodeChunks(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeChunks([]byte(`[{"trace_id":"zz"}],`))
	require.Error(t, err)
}
