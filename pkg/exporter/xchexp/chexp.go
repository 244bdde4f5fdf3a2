package xchexp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "clickhouse_exporter"

var (
	// ErrNilConn 连接为 nil
	ErrNilConn = errors.New("xchexp: nil connection")

	// ErrInvalidTable 表名不是合法标识符
	ErrInvalidTable = errors.New("xchexp: invalid table name")
)

// Conn driver.Conn 中导出器用到的方法。
type Conn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Exec(ctx context.Context, query string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

var _ Conn = (driver.Conn)(nil)

// Config 导出器配置
type Config struct {
	// Table 目标表，可带库名前缀，默认 DefaultTable
	Table string

	// CreateSchema 为 true 时 New 执行建表语句
	CreateSchema bool

	// TTL 建表时的数据保留时长，0 表示不过期
	TTL time.Duration
}

// permanentCodes 服务端返回这些异常码时重试无意义
var permanentCodes = map[int32]struct{}{
	16:  {}, // NO_SUCH_COLUMN_IN_TABLE
	53:  {}, // TYPE_MISMATCH
	60:  {}, // UNKNOWN_TABLE
	62:  {}, // SYNTAX_ERROR
	81:  {}, // UNKNOWN_DATABASE
	497: {}, // ACCESS_DENIED
	516: {}, // AUTHENTICATION_FAILED
}

// Exporter 每批 span 作为一个 ClickHouse batch 写入。
type Exporter struct {
	base  *xbackend.Base
	conn  Conn
	table string
	owned bool
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 使用调用方管理的连接，Shutdown 不关闭它。
func New(ctx context.Context, conn Conn, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := validateTable(cfg.Table); err != nil {
		return nil, err
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.CreateSchema {
		if err := conn.Exec(ctx, CreateTableSQL(cfg.Table, cfg.TTL)); err != nil {
			return nil, fmt.Errorf("xchexp: create table %s: %w", cfg.Table, err)
		}
	}
	return &Exporter{base: base, conn: conn, table: cfg.Table}, nil
}

// Open 按 clickhouse.Options 建立连接，Shutdown 时关闭。
func Open(ctx context.Context, chOpts *clickhouse.Options, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("xchexp: open: %w", err)
	}
	e, err := New(ctx, conn, cfg, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	e.owned = true
	return e, nil
}

// Export 实现 xsdk.SpanExporter。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, e.send)
}

func (e *Exporter) send(ctx context.Context, spans []xsdk.SpanData) error {
	batch, err := e.conn.PrepareBatch(ctx, "INSERT INTO "+e.table)
	if err != nil {
		return classify(fmt.Errorf("prepare batch: %w", err))
	}
	for _, sd := range spans {
		// 追加失败来自列类型转换，整批中止且不可重试
		row := ToRow(sd)
		if err := batch.AppendStruct(&row); err != nil {
			return errors.Join(xbackend.Permanent(fmt.Errorf("append: %w", err)), batch.Abort())
		}
	}
	// ctx 结束后不发送部分数据
	if err := ctx.Err(); err != nil {
		return errors.Join(err, batch.Abort())
	}
	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send batch: %w", err))
	}
	return nil
}

func classify(err error) error {
	var ex *clickhouse.Exception
	if errors.As(err, &ex) {
		if _, ok := permanentCodes[ex.Code]; ok {
			return xbackend.Permanent(err)
		}
	}
	return err
}

// Flush 无缓冲，直接返回 ExportSuccess。
func (e *Exporter) Flush(context.Context) xsdk.ExportResult { return xsdk.ExportSuccess }

// Shutdown 由 Open 创建的连接在此关闭。幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, func(context.Context) error {
		if e.owned {
			return e.conn.Close()
		}
		return nil
	})
}

// Ping 检查服务端连通性。
func (e *Exporter) Ping(ctx context.Context) error {
	return e.base.Ping(ctx, e.conn.Ping)
}

// Table 目标表名。
func (e *Exporter) Table() string { return e.table }

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
