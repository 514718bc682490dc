package xbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/resilience/xretry"
)

type (
	// State 熔断器状态
	State = gobreaker.State

	// Counts 统计计数
	Counts = gobreaker.Counts
)

const (
	// StateClosed 关闭状态（正常）
	StateClosed = gobreaker.StateClosed

	// StateHalfOpen 半开状态（探测）
	StateHalfOpen = gobreaker.StateHalfOpen

	// StateOpen 打开状态（熔断）
	StateOpen = gobreaker.StateOpen
)

// 默认参数
const (
	DefaultConsecutiveFailures = 5
	DefaultTimeout             = 30 * time.Second
	DefaultMaxRequests         = 1
)

// Config 是可从配置文件加载的熔断参数。零值字段使用默认值。
type Config struct {
	// ConsecutiveFailures 连续失败多少次后熔断
	ConsecutiveFailures uint32 `koanf:"consecutive_failures" json:"consecutive_failures"`

	// Timeout 熔断后多久进入半开状态
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// MaxRequests 半开状态下允许通过的请求数
	MaxRequests uint32 `koanf:"max_requests" json:"max_requests"`
}

// DefaultConfig 返回默认熔断参数。
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: DefaultConsecutiveFailures,
		Timeout:             DefaultTimeout,
		MaxRequests:         DefaultMaxRequests,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = def.MaxRequests
	}
	return c
}

// Option 配置 Breaker。
type Option func(*options)

type options struct {
	logger        xlog.Logger
	onStateChange func(name string, from, to State)
}

// WithLogger 设置日志，状态变化以 Warn 级别记录。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnStateChange 设置状态变化回调。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// Breaker 是 gobreaker 的薄包装，保护对象存储、Redis 等远端读取。
//
// 以下结果不计为失败：成功、ctx 取消、被 xretry.Unrecoverable 标记的错误（如对象不存在）。
// 后者说明远端能正常应答，熔断只针对不可用。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// New 创建熔断器，name 用于日志和错误信息。
func New(name string, cfg Config, opts ...Option) *Breaker {
	cfg = cfg.withDefaults()
	o := options{logger: xlog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(xlog.Component("xbreaker"), slog.String("breaker", name))

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to State) {
			logger.Warn(context.Background(), "breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if o.onStateChange != nil {
				o.onStateChange(name, from, to)
			}
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](st)}
}

func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || !xretry.IsRecoverable(err)
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// State 返回熔断器当前状态
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts 返回当前统计计数
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// Do 执行受熔断器保护的操作。
//
// 熔断器拒绝执行时返回 *BreakerError，它被标记为不可重试，
// 放在 xretry.Do 内部时不会继续退避。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := Execute(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute 是带返回值的 Do。b 为 nil 时直接执行 fn。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
	}
	if b == nil {
		return fn()
	}

	var result T
	_, err := b.cb.Execute(func() (any, error) {
		var err error
		result, err = fn()
		return nil, err
	})
	if err != nil {
		return zero, wrap(err, b.name)
	}
	return result, nil
}
