package xconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsampling"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

//go:generate mockgen -source=etcd.go -destination=mock_etcd_test.go -package=xconf EtcdClient

// DefaultEtcdRetryInterval watch 中断后重连前的等待时间
const DefaultEtcdRetryInterval = time.Second

// errWatchClosed watch 通道在 ctx 结束前被关闭
var errWatchClosed = errors.New("xconf: etcd watch channel closed")

// EtcdClient EtcdSource 使用的 etcd 操作，*clientv3.Client 满足该接口。
type EtcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
}

var _ EtcdClient = (*clientv3.Client)(nil)

// EtcdOption EtcdSource 选项
type EtcdOption func(*etcdOptions)

type etcdOptions struct {
	format        Format
	logger        xlog.Logger
	retryInterval time.Duration
	onUpdate      func(SamplerConfig, error)
}

// WithEtcdFormat 值的编码格式，默认 JSON。
func WithEtcdFormat(f Format) EtcdOption {
	return func(o *etcdOptions) { o.format = f }
}

// WithEtcdLogger 设置日志。
func WithEtcdLogger(l xlog.Logger) EtcdOption {
	return func(o *etcdOptions) { o.logger = l }
}

// WithEtcdRetryInterval 设置重连等待时间，非正数被忽略。
func WithEtcdRetryInterval(d time.Duration) EtcdOption {
	return func(o *etcdOptions) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithEtcdUpdateHook 每次处理 key 的新值后调用，err 非 nil 表示该值未被应用。
// key 被删除时以零值 SamplerConfig 调用。
func WithEtcdUpdateHook(fn func(SamplerConfig, error)) EtcdOption {
	return func(o *etcdOptions) { o.onUpdate = fn }
}

// EtcdSource 从 etcd 的一个 key 读取采样器描述（SamplerConfig 格式）并应用到 TracerProvider。
//
//	{"type": "ratio", "ratio": 0.05, "parent_based": true}
//
// key 被删除时恢复创建 EtcdSource 时的采样器。
type EtcdSource struct {
	client  EtcdClient
	key     string
	tp      *xsdk.TracerProvider
	opts    etcdOptions
	logger  xlog.Logger
	initial xsampling.Sampler

	mu       sync.Mutex
	revision int64
}

// NewEtcdSource 创建数据源，调用 Load 或 Run 后开始生效。
func NewEtcdSource(client EtcdClient, key string, tp *xsdk.TracerProvider, opts ...EtcdOption) (*EtcdSource, error) {
	switch {
	case client == nil:
		return nil, ErrNilEtcdClient
	case key == "":
		return nil, ErrEmptyEtcdKey
	case tp == nil:
		return nil, ErrNilProvider
	}
	o := etcdOptions{format: FormatJSON, retryInterval: DefaultEtcdRetryInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &EtcdSource{
		client:  client,
		key:     key,
		tp:      tp,
		opts:    o,
		logger:  xlog.OrDefault(o.logger).With(xlog.Component("etcd_sampling"), slog.String("key", key)),
		initial: tp.ActiveTraceConfig().Sampler(),
	}, nil
}

// Load 读取 key 的当前值并应用，key 不存在时保持不变。
func (s *EtcdSource) Load(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("xconf: etcd get %s: %w", s.key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = resp.Header.GetRevision()
	if len(resp.Kvs) == 0 {
		return nil
	}
	kv := resp.Kvs[0]
	s.revision = max(s.revision, kv.ModRevision)
	return s.put(ctx, kv.Value)
}

// Run 先 Load，再持续 watch 直到 ctx 结束。watch 中断后等待重连间隔，
// 从最后处理的 revision 之后继续。ctx 结束时返回 nil。
func (s *EtcdSource) Run(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		s.logger.Warn(ctx, "initial load failed", xlog.Err(err))
	}
	for {
		err := s.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn(ctx, "watch interrupted", xlog.Err(err), xlog.Duration(s.opts.retryInterval))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.opts.retryInterval):
		}
	}
}

func (s *EtcdSource) watch(ctx context.Context) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []clientv3.OpOption
	s.mu.Lock()
	if s.revision > 0 {
		opts = append(opts, clientv3.WithRev(s.revision+1))
	}
	s.mu.Unlock()

	ch := s.client.Watch(wctx, s.key, opts...)
	for {
		var resp clientv3.WatchResponse
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return errWatchClosed
			}
			resp = r
		}
		if err := resp.Err(); err != nil {
			s.mu.Lock()
			// 被压缩的历史无法再读取，从压缩点继续
			if resp.CompactRevision > s.revision {
				s.revision = resp.CompactRevision - 1
			}
			s.mu.Unlock()
			return err
		}
		for _, ev := range resp.Events {
			s.handle(ctx, ev)
		}
	}
}

func (s *EtcdSource) handle(ctx context.Context, ev *clientv3.Event) {
	if ev.Kv == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = ev.Kv.ModRevision
	switch ev.Type {
	case mvccpb.PUT:
		if err := s.put(ctx, ev.Kv.Value); err != nil {
			s.logger.Warn(ctx, "ignore invalid sampler config", xlog.Err(err))
		}
	case mvccpb.DELETE:
		s.tp.UpdateActiveTraceConfig(s.tp.ActiveTraceConfig().SettingSampler(s.initial))
		s.logger.Info(ctx, "sampler restored", slog.String("sampler", s.initial.Description()))
		s.notify(SamplerConfig{}, nil)
	}
}

// put 解析并应用一个值，调用方持有 mu。
func (s *EtcdSource) put(ctx context.Context, data []byte) error {
	sc, err := s.decode(data)
	if err == nil {
		var sampler xsampling.Sampler
		if sampler, err = sc.Build(); err == nil {
			s.tp.UpdateActiveTraceConfig(s.tp.ActiveTraceConfig().SettingSampler(sampler))
			s.logger.Info(ctx, "sampler updated", slog.String("sampler", sampler.Description()))
		}
	}
	s.notify(sc, err)
	return err
}

func (s *EtcdSource) decode(data []byte) (SamplerConfig, error) {
	var sc SamplerConfig
	c, err := NewFromBytes(data, s.opts.format)
	if err != nil {
		return sc, err
	}
	err = c.Unmarshal("", &sc)
	return sc, err
}

func (s *EtcdSource) notify(sc SamplerConfig, err error) {
	if s.opts.onUpdate != nil {
		s.opts.onUpdate(sc, err)
	}
}
