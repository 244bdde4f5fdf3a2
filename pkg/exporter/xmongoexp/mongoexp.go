package xmongoexp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "mongo_exporter"

const duplicateKeyCode = 11000

var (
	// ErrNilCollection 集合为 nil
	ErrNilCollection = errors.New("xmongoexp: nil collection")

	// ErrNilClient 客户端为 nil
	ErrNilClient = errors.New("xmongoexp: nil client")
)

// Collection *mongo.Collection 中导出器用到的方法。
type Collection interface {
	InsertMany(ctx context.Context, documents []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
}

var _ Collection = (*mongo.Collection)(nil)

// Config 导出器配置
type Config struct {
	// TTL 大于 0 时 NewFromClient 在 end_time 上建立过期索引
	TTL time.Duration
}

// permanentCodes 服务端返回这些错误码时重试无意义
var permanentCodes = []int{
	2,     // BadValue
	13,    // Unauthorized
	18,    // AuthenticationFailed
	121,   // DocumentValidationFailure
	10334, // BSONObjectTooLarge
}

// Exporter 每批 span 通过一次无序 InsertMany 写入。
type Exporter struct {
	base *xbackend.Base
	coll Collection
	ping func(ctx context.Context) error
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 写入 coll，不做健康检查与建索引。
func New(coll Collection, opts ...xbackend.Option) (*Exporter, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, coll: coll}, nil
}

// NewFromClient 写入 client 上的 database.collection 并建立查询索引。
// client 归调用方，Shutdown 不断开。
func NewFromClient(ctx context.Context, client *mongo.Client, database, collection string, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	coll := client.Database(database).Collection(collection)
	if _, err := coll.Indexes().CreateMany(ctx, IndexModels(cfg.TTL)); err != nil {
		return nil, fmt.Errorf("xmongoexp: create indexes: %w", err)
	}
	e, err := New(coll, opts...)
	if err != nil {
		return nil, err
	}
	e.ping = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	return e, nil
}

// IndexModels trace_id 与 (service_name, start_time) 查询索引；ttl 大于 0 时附带 end_time 过期索引。
func IndexModels(ttl time.Duration) []mongo.IndexModel {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trace_id", Value: 1}}},
		{Keys: bson.D{{Key: "service_name", Value: 1}, {Key: "start_time", Value: -1}}},
	}
	if ttl > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "end_time", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl / time.Second)),
		})
	}
	return models
}

// Export 实现 xsdk.SpanExporter。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, e.send)
}

func (e *Exporter) send(ctx context.Context, spans []xsdk.SpanData) error {
	docs := make([]any, len(spans))
	for i, sd := range spans {
		docs[i] = ToDocument(sd)
	}
	_, err := e.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return classify(err)
}

// classify 只有主键冲突的批量错误视为成功：这些文档已由之前的重试写入。
func classify(err error) error {
	if err == nil {
		return nil
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil && onlyDuplicates(bwe.WriteErrors) {
		return nil
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return xbackend.Permanent(err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range permanentCodes {
			if se.HasErrorCode(code) {
				return xbackend.Permanent(err)
			}
		}
	}
	return err
}

func onlyDuplicates(errs []mongo.BulkWriteError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, we := range errs {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}

// Flush 无缓冲，直接返回 ExportSuccess。
func (e *Exporter) Flush(context.Context) xsdk.ExportResult { return xsdk.ExportSuccess }

// Shutdown 标记关闭，幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, nil)
}

// Ping 向主节点发送 ping；由 New 创建时直接返回 nil。
func (e *Exporter) Ping(ctx context.Context) error {
	if e.ping == nil {
		return nil
	}
	return e.base.Ping(ctx, e.ping)
}

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
