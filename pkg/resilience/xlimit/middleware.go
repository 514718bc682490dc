package xlimit

import (
	"net"
	"net/http"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// KeyFunc 从请求中提取限流键。
type KeyFunc func(r *http.Request) string

// ClientAddr 以客户端地址为限流键。
//
// 优先取 X-Forwarded-For 中第一个可解析的地址，否则取 RemoteAddr 的主机部分。
// 都无法解析时返回 RemoteAddr 原文。
func ClientAddr(r *http.Request) string {
	if addr, ok := xnet.ParseCandidate(r.Header.Get("X-Forwarded-For")); ok {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	// 双栈监听下 IPv4 客户端以 mapped 形式出现，统一成 IPv4 作为限流键
	if addr, ok := xnet.ParseCandidate(host); ok {
		return addr.Unmap().String()
	}
	return r.RemoteAddr
}

type middlewareOptions struct {
	key    KeyFunc
	logger xlog.Logger
}

// MiddlewareOption 配置 HTTPMiddleware。
type MiddlewareOption func(*middlewareOptions)

// WithKeyFunc 设置限流键提取函数，默认 [ClientAddr]。
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.key = fn
		}
	}
}

// WithLogger 设置日志，Redis 不可用时记录 Warn。
func WithLogger(logger xlog.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// HTTPMiddleware 返回限流中间件，超出配额时响应 429。
// Redis 出错时放行请求。
func HTTPMiddleware(l *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{key: ClientAddr, logger: xlog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(xlog.Component("xlimit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), o.key(r))
			if err != nil {
				logger.Warn(r.Context(), "rate limit check failed, allowing request", xlog.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			res.SetHeaders(w)
			if !res.Allowed {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
