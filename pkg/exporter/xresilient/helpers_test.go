package xresilient

import (
	"context"
	"sync"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// scriptedExporter 依次返回 results 中的结果，用尽后重复最后一个
type scriptedExporter struct {
	mu        sync.Mutex
	results   []xsdk.ExportResult
	calls     int
	flushes   int
	shutdowns int
}

func script(results ...xsdk.ExportResult) *scriptedExporter {
	return &scriptedExporter{results: results}
}

func (e *scriptedExporter) Export(context.Context, []xsdk.SpanData) xsdk.ExportResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := min(e.calls, len(e.results)-1)
	e.calls++
	return e.results[i]
}

func (e *scriptedExporter) Flush(context.Context) xsdk.ExportResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
	return xsdk.ExportSuccess
}

func (e *scriptedExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdowns++
	return nil
}

func (e *scriptedExporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var oneSpan = []xsdk.SpanData{{Name: "op"}}
