package xchexp

import (
	"context"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// fakeConn 实现 Conn，记录语句与批次
type fakeConn struct {
	mu         sync.Mutex
	execs      []string
	queries    []string
	batches    []*fakeBatch
	execErr    error
	prepareErr error
	pingErr    error
	closed     int
	newBatch   func() *fakeBatch
}

func (c *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	b := &fakeBatch{}
	if c.newBatch != nil {
		b = c.newBatch()
	}
	c.batches = append(c.batches, b)
	return b, nil
}

func (c *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	return c.execErr
}

func (c *fakeConn) Ping(context.Context) error { return c.pingErr }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// fakeBatch 实现 driver.Batch
type fakeBatch struct {
	rows      []*Row
	appendErr error
	sendErr   error
	sent      bool
	aborted   bool
	onAppend  func()
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

func (b *fakeBatch) Append(_ ...any) error { return b.appendErr }

func (b *fakeBatch) AppendStruct(v any) error {
	if b.onAppend != nil {
		b.onAppend()
	}
	if b.appendErr != nil {
		return b.appendErr
	}
	b.rows = append(b.rows, v.(*Row))
	return nil
}

func (b *fakeBatch) Column(_ int) driver.BatchColumn { return nil }

func (b *fakeBatch) Flush() error { return nil }

func (b *fakeBatch) Send() error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = true
	return nil
}

func (b *fakeBatch) IsSent() bool { return b.sent }

func (b *fakeBatch) Rows() int { return len(b.rows) }

func (b *fakeBatch) Columns() []column.Interface { return nil }

func (b *fakeBatch) Close() error { return nil }
