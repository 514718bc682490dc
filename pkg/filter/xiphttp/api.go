package xiphttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// MaxBatch 单次请求最多查询的地址数。
const MaxBatch = 10000

// Loader 返回当前生效的表，*xipreload.Holder 满足它。
type Loader interface {
	Load() *xipfilter.Table
}

// Result 是一个地址的查询结果。
type Result struct {
	IP    string `json:"ip"`
	Found bool   `json:"found"`
	Name  string `json:"name,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Stats 是 /v1/stats 的响应。
type Stats struct {
	Names int `json:"names"`
	IPv4  int `json:"ipv4"`
	IPv6  int `json:"ipv6"`
}

// API 提供范围查询的 HTTP 接口。
type API struct {
	http.Handler

	src      Loader
	matcher  xipfilter.Matcher
	logger   xlog.Logger
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	middleware []mux.MiddlewareFunc
	tracer     trace.Tracer
}

// Option 配置 API。
type Option func(*API)

// WithMatcher 设置查询路径上的 Matcher，例如 xipcache 或 xmetrics 的包装。
// 默认直接查询 Loader 返回的表。
func WithMatcher(m xipfilter.Matcher) Option {
	return func(a *API) {
		if m != nil {
			a.matcher = m
		}
	}
}

// WithLogger 设置日志。
func WithLogger(logger xlog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMiddleware 为 /v1 下的查询路由添加中间件，例如限流。按给出的顺序由外到内包装。
func WithMiddleware(mw ...mux.MiddlewareFunc) Option {
	return func(a *API) {
		a.middleware = append(a.middleware, mw...)
	}
}

// WithRegistry 设置 Prometheus 注册表，/metrics 暴露其中的全部指标。
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *API) {
		if reg != nil {
			a.registry = reg
		}
	}
}

// New 创建 API。
func New(src Loader, opts ...Option) *API {
	a := &API{src: src, logger: xlog.Discard(), tracer: otel.GetTracerProvider().Tracer(tracerName)}
	for _, opt := range opts {
		opt(a)
	}
	if a.matcher == nil {
		a.matcher = loaderMatcher{src}
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.logger = a.logger.With(xlog.Component("xiphttp"))

	f := promauto.With(a.registry)
	a.requests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "xipfilter_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	a.duration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xipfilter_http_request_duration_seconds",
		Help:    "Time (in seconds) spent serving HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	for _, family := range []string{"ipv4", "ipv6"} {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "xipfilter_table_entries",
			Help:        "Entries in the active table.",
			ConstLabels: prometheus.Labels{"family": family},
		}, a.entriesFunc(family))
	}

	r := mux.NewRouter()
	a.RegisterRoutes(r)
	a.Handler = r
	return a
}

// RegisterRoutes 注册全部路由。
func (a *API) RegisterRoutes(r *mux.Router) {
	for _, route := range []struct {
		name, method, path string
		handler            http.HandlerFunc
		query              bool
	}{
		{"match", "GET", "/v1/match", a.matchQuery, true},
		{"match_batch", "POST", "/v1/match", a.matchBatch, true},
		{"stats", "GET", "/v1/stats", a.stats, true},
		{"healthz", "GET", "/healthz", a.healthz, false},
	} {
		var h http.Handler = route.handler
		if route.query {
			for i := len(a.middleware) - 1; i >= 0; i-- {
				h = a.middleware[i](h)
			}
		}
		r.Handle(route.path, a.instrument(route.name, h)).Methods(route.method).Name(route.name)
	}
	r.Path("/metrics").Methods("GET").Handler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
}

func (a *API) instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(a.duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(a.requests.MustCurryWith(labels), a.traced(route, h)))
}

func (a *API) entriesFunc(family string) func() float64 {
	return func() float64 {
		v4, v6 := a.src.Load().Len()
		if family == "ipv4" {
			return float64(v4)
		}
		return float64(v6)
	}
}

func (a *API) matchQuery(w http.ResponseWriter, r *http.Request) {
	ips := r.URL.Query()["ip"]
	if len(ips) == 0 {
		http.Error(w, "missing ip parameter", http.StatusBadRequest)
		return
	}
	a.respondMatches(r.Context(), w, ips)
}

func (a *API) matchBatch(w http.ResponseWriter, r *http.Request) {
	var ips []string
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBatch*64))
	if err := dec.Decode(&ips); err != nil {
		http.Error(w, "body must be a JSON array of strings", http.StatusBadRequest)
		return
	}
	a.respondMatches(r.Context(), w, ips)
}

func (a *API) respondMatches(ctx context.Context, w http.ResponseWriter, ips []string) {
	if len(ips) > MaxBatch {
		http.Error(w, "too many addresses, limit is "+strconv.Itoa(MaxBatch), http.StatusRequestEntityTooLarge)
		return
	}
	results := make([]Result, len(ips))
	found := 0
	for i, ip := range ips {
		results[i] = a.lookup(ip)
		if results[i].Found {
			found++
		}
	}
	annotate(ctx, len(ips), found)
	a.writeJSON(ctx, w, results)
}

func (a *API) lookup(ip string) Result {
	rg, ok := a.matcher.MatchRange(ip)
	if !ok {
		return Result{IP: ip}
	}
	return Result{IP: ip, Found: true, Name: rg.Name, Start: rg.Start, End: rg.End}
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	t := a.src.Load()
	v4, v6 := t.Len()
	a.writeJSON(r.Context(), w, Stats{Names: len(t.Names()), IPv4: v4, IPv6: v6})
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	if a.src.Load() == nil {
		http.Error(w, "no table loaded", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn(ctx, "encode response", xlog.Err(err))
	}
}

// loaderMatcher 每次查询都读取 Loader 的当前表。
type loaderMatcher struct {
	src Loader
}

func (m loaderMatcher) MatchRange(text string) (xipfilter.Range, bool) {
	return m.src.Load().MatchRange(text)
}

func (m loaderMatcher) Match(text string) (string, bool) {
	return m.src.Load().Match(text)
}
