package xpropagation

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xtel/pkg/trace/xscope"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// =============================================================================
// gRPC 服务端拦截器
// =============================================================================

// UnaryServerInterceptor 从 incoming metadata 提取远端 SpanContext 和 baggage。
// 配置 WithTracer 时以 FullMethod 为名开始 Server span。
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, bagScope := cfg.extractIncoming(ctx)
		defer bagScope.Close()

		ctx, span, spanScope := cfg.startServerSpan(ctx, info.FullMethod)
		defer spanScope.Close()

		resp, err := handler(ctx, req)
		endRPCSpan(span, info.FullMethod, err)
		return resp, err
	}
}

// StreamServerInterceptor 流式版本的 UnaryServerInterceptor。
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, bagScope := cfg.extractIncoming(ss.Context())
		defer bagScope.Close()

		ctx, span, spanScope := cfg.startServerSpan(ctx, info.FullMethod)
		defer spanScope.Close()

		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
		endRPCSpan(span, info.FullMethod, err)
		return err
	}
}

func (c *config) extractIncoming(ctx context.Context) (context.Context, xscope.Scope) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, nopScope{}
	}
	return c.extract(ctx, MetadataCarrier(md))
}

func endRPCSpan(span *xsdk.Span, method string, err error) {
	if span == nil {
		return
	}
	code := status.Code(err)
	span.SetAttributes(grpcAttrs(method, code)...)
	if err != nil {
		span.RecordException(err)
		span.SetStatus(statusError, err.Error())
	}
	span.End()
}

// wrappedServerStream 覆盖 Context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// =============================================================================
// gRPC 客户端
// =============================================================================

// UnaryClientInterceptor 把当前 SpanContext 和 baggage 写入 outgoing metadata。
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := newConfig(opts)
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		return invoker(cfg.injectOutgoing(ctx), method, req, reply, cc, callOpts...)
	}
}

// InjectOutgoing 返回携带当前 SpanContext 和 baggage 的 outgoing ctx。
func InjectOutgoing(ctx context.Context, opts ...Option) context.Context {
	return newConfig(opts).injectOutgoing(ctx)
}

func (c *config) injectOutgoing(ctx context.Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	c.inject(ctx, MetadataCarrier(md))
	if md.Len() == 0 {
		return ctx
	}
	return metadata.NewOutgoingContext(ctx, md)
}
