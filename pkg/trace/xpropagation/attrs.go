package xpropagation

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const statusError = xsdk.StatusError

// 语义约定中的属性名
const (
	AttrHTTPMethod     = attribute.Key("http.request.method")
	AttrURLPath        = attribute.Key("url.path")
	AttrHTTPStatusCode = attribute.Key("http.response.status_code")
	AttrRPCSystem      = attribute.Key("rpc.system")
	AttrRPCMethod      = attribute.Key("rpc.method")
	AttrRPCStatusCode  = attribute.Key("rpc.grpc.status_code")
)

func httpAttrs(r *http.Request, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrHTTPMethod.String(r.Method),
		AttrURLPath.String(r.URL.Path),
		AttrHTTPStatusCode.Int(status),
	}
}

func grpcAttrs(method string, code codes.Code) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRPCSystem.String("grpc"),
		AttrRPCMethod.String(method),
		AttrRPCStatusCode.Int(int(code)),
	}
}
