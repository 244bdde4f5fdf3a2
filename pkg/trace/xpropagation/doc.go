// Package xpropagation 在进程边界上传播 SpanContext 与 baggage。
//
// 传播器只依赖 Setter / Getter 两个接口，载体类型由调用方决定：
//
//	xpropagation.MapCarrier{}                 // map[string]string
//	xpropagation.HeaderCarrier(req.Header)    // net/http
//	xpropagation.MetadataCarrier(md)          // gRPC metadata
//	xpropagation.Bind(msg, setHeader)         // 任意载体 + 写函数
//
// 内置传播器：
//   - TraceContext：W3C traceparent / tracestate
//   - BaggagePropagator：W3C baggage
//   - Composite：组合多个 TextMapPropagator，提取时以最后一个成功的结果为准
//
// 服务边界上的接入：
//
//	mux := xpropagation.HTTPMiddleware(xpropagation.WithTracer(tracer))(handler)
//	grpc.NewServer(grpc.UnaryInterceptor(xpropagation.UnaryServerInterceptor()))
//	xpropagation.InjectHTTP(ctx, outgoingReq)
package xpropagation
