package xlimit

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix 是限流键的默认前缀。
const DefaultPrefix = "xipfilter:ratelimit:"

var (
	// ErrNilClient 表示未提供 Redis 客户端。
	ErrNilClient = errors.New("xlimit: nil redis client")

	// ErrInvalidRate 表示 Rate 不是正数。
	ErrInvalidRate = errors.New("xlimit: rate must be positive")
)

// Config 是可从配置文件加载的限流参数，每个键每 Period 允许 Rate 个请求。
type Config struct {
	Rate int `koanf:"rate" json:"rate"`

	// Burst 允许的突发请求数，<= 0 时等于 Rate
	Burst int `koanf:"burst" json:"burst"`

	// Period 速率的时间单位，<= 0 时为一秒
	Period time.Duration `koanf:"period" json:"period"`
}

// Enabled 报告是否配置了限流。
func (c Config) Enabled() bool {
	return c.Rate > 0
}

func (c Config) limit() redis_rate.Limit {
	if c.Burst <= 0 {
		c.Burst = c.Rate
	}
	if c.Period <= 0 {
		c.Period = time.Second
	}
	return redis_rate.Limit{Rate: c.Rate, Burst: c.Burst, Period: c.Period}
}

// Result 是一次限流检查的结果。
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// SetHeaders 写入 X-RateLimit-* 响应头，被拒绝时额外写入 Retry-After。
func (r Result) SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	if !r.Allowed && r.RetryAfter > 0 {
		// 向上取整，避免亚秒级等待变成 0
		h.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(r.RetryAfter.Seconds())), 10))
	}
}

// Limiter 是基于 Redis GCRA 的分布式限流器，多个实例共享同一配额。
type Limiter struct {
	rl     *redis_rate.Limiter
	limit  redis_rate.Limit
	prefix string
}

// Option 配置 Limiter。
type Option func(*Limiter)

// WithPrefix 设置限流键前缀。
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// New 创建限流器。
func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Limiter, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	if !cfg.Enabled() {
		return nil, ErrInvalidRate
	}
	l := &Limiter{
		rl:     redis_rate.NewLimiter(rdb),
		limit:  cfg.limit(),
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow 为 key 消耗一个配额。
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	res, err := l.rl.Allow(ctx, l.prefix+key, l.limit)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:    res.Allowed > 0,
		Limit:      l.limit.Burst,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
		ResetAfter: res.ResetAfter,
	}, nil
}

// Reset 清除 key 的限流状态。
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.rl.Reset(ctx, l.prefix+key)
}
