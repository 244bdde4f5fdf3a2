package xconf

import (
	"context"
	"log/slog"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// WatchSampling 监视配置文件，每次重载后解码 path 下的 SDKConfig，
// 用其中的采样器与上限替换 tp 的 TraceConfig。返回的 Watcher 已启动。
//
// 解码或校验失败时保留当前配置。
func WatchSampling(cfg Config, path string, tp *xsdk.TracerProvider, opts ...WatchOption) (*Watcher, error) {
	if tp == nil {
		return nil, ErrNilProvider
	}
	var w *Watcher
	w, err := Watch(cfg, func(c Config, err error) {
		if err != nil {
			return
		}
		sc, err := LoadSDKConfig(c, path)
		if err == nil {
			err = sc.ApplySampling(tp)
		}
		ctx := context.Background()
		if err != nil {
			w.logger.Warn(ctx, "keep current sampling config", xlog.Err(err))
			return
		}
		w.logger.Info(ctx, "sampling config applied",
			slog.String("sampler", tp.ActiveTraceConfig().Sampler().Description()))
	}, opts...)
	if err != nil {
		return nil, err
	}
	w.Start()
	return w, nil
}
