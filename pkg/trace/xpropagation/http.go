package xpropagation

import (
	"context"
	"net/http"
)

// HTTPMiddleware 从请求头提取远端 SpanContext 和 baggage 放入请求 ctx。
//
// 配置 WithTracer 时为每个请求开始名为 "METHOD path" 的 Server span，
// 处理完成后结束；响应状态码 >= 500 时 span 状态为 Error。
func HTTPMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, bagScope := cfg.extract(r.Context(), HeaderCarrier(r.Header))
			defer bagScope.Close()

			ctx, span, spanScope := cfg.startServerSpan(ctx, r.Method+" "+r.URL.Path)
			defer spanScope.Close()
			if span == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				span.SetAttributes(httpAttrs(r, rw.status)...)
				if rw.status >= http.StatusInternalServerError {
					span.SetStatus(statusError, http.StatusText(rw.status))
				}
				span.End()
			}()
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// InjectHTTP 把当前 SpanContext 和 baggage 写入请求头。
func InjectHTTP(ctx context.Context, req *http.Request, opts ...Option) {
	if req == nil {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	newConfig(opts).inject(ctx, HeaderCarrier(req.Header))
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
