package xiphttp

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/omeyang/xipfilter/xiphttp"

// HeaderRequestID 是请求 ID 头。请求未携带时生成一个 UUID，并在响应中返回。
const HeaderRequestID = "X-Request-ID"

// Span 属性名称
const (
	attrRoute     = "xipfilter.route"
	attrRequestID = "xipfilter.request_id"
	attrAddresses = "xipfilter.addresses"
	attrFound     = "xipfilter.found"
)

// WithTracerProvider 设置 TracerProvider，默认使用全局的 otel.GetTracerProvider()。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *API) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// traced 为每个请求创建 server span，上游的 W3C trace context 作为父 span。
func (a *API) traced(route string, next http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := a.tracer.Start(ctx, "xiphttp."+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String(attrRoute, route),
				attribute.String(attrRequestID, reqID),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// annotate 把一次批量查询的规模记录到当前 span。
func annotate(ctx context.Context, addresses, found int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int(attrAddresses, addresses),
		attribute.Int(attrFound, found),
	)
}
