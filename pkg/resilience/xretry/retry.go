package xretry

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v5"
)

type (
	// Option 是 retry-go 的配置选项类型
	Option = retry.Option

	// OnRetryFunc 是重试回调函数类型，每次尝试失败后调用（包括最后一次），n 从 0 开始
	OnRetryFunc = retry.OnRetryFunc
)

// 以下是 retry-go 的配置选项函数
var (
	// Attempts 设置总尝试次数（包含首次尝试），0 表示无限重试
	Attempts = retry.Attempts

	// Delay 设置首次重试间隔
	Delay = retry.Delay

	// MaxDelay 设置最大重试间隔
	MaxDelay = retry.MaxDelay

	// OnRetry 设置重试回调函数
	OnRetry = retry.OnRetry

	// Unrecoverable 将错误标记为不可恢复（不再重试）
	Unrecoverable = retry.Unrecoverable

	// IsRecoverable 检查错误是否可恢复
	IsRecoverable = retry.IsRecoverable
)

// 默认重试参数
const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
	DefaultMaxDelay = 5 * time.Second
)

// Config 是可从配置文件加载的重试参数。零值字段使用默认值。
type Config struct {
	// Attempts 总尝试次数（包含首次尝试）
	Attempts uint `koanf:"attempts" json:"attempts"`
	// Delay 首次重试间隔，之后指数退避
	Delay time.Duration `koanf:"delay" json:"delay"`
	// MaxDelay 最大重试间隔
	MaxDelay time.Duration `koanf:"max_delay" json:"max_delay"`
}

// DefaultConfig 返回默认重试参数。
func DefaultConfig() Config {
	return Config{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		MaxDelay: DefaultMaxDelay,
	}
}

// Options 把 Config 转换为 retry-go 选项。
// Attempts 为 0 时使用默认值，不会变成无限重试。
func (c Config) Options() []Option {
	def := DefaultConfig()
	if c.Attempts == 0 {
		c.Attempts = def.Attempts
	}
	if c.Delay <= 0 {
		c.Delay = def.Delay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	return []Option{
		Attempts(c.Attempts),
		Delay(c.Delay),
		MaxDelay(c.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
	}
}

// Do 执行带重试的操作
//
// fn 不接收 context，需要时通过闭包捕获。ctx 取消后不再重试。
// 默认只返回最后一个错误；opts 追加在默认选项之后，可以覆盖它们。
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	return retry.New(defaultOpts(ctx, opts)...).Do(fn)
}

// DoWithData 执行带重试的操作（有返回值）
func DoWithData[T any](ctx context.Context, fn func() (T, error), opts ...Option) (T, error) {
	return retry.NewWithData[T](defaultOpts(ctx, opts)...).Do(fn)
}

func defaultOpts(ctx context.Context, opts []Option) []Option {
	if ctx == nil {
		ctx = context.Background()
	}
	all := make([]Option, 0, len(opts)+3)
	all = append(all,
		retry.Context(ctx),
		retry.RetryIf(IsRecoverable),
		retry.LastErrorOnly(true),
	)
	return append(all, opts...)
}
