// Package xretry 是 [avast/retry-go/v5] 的薄包装，用于对象下载、快照读取等
// 可能遇到瞬时故障的 I/O 操作。
//
// # 使用方式
//
//	cfg := xretry.Config{Attempts: 3, Delay: 100 * time.Millisecond}
//	err := xretry.Do(ctx, func() error {
//	    return download(ctx, key)
//	}, cfg.Options()...)
//
// 默认只返回最后一个错误，并尊重 ctx 取消。
// 用 [Unrecoverable] 包装的错误不会重试，例如对象不存在。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
