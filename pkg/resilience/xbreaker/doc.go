// Package xbreaker 基于 [sony/gobreaker/v2] 提供连续失败熔断。
//
// 与 xretry 组合时熔断器放在重试内部，熔断打开后重试立即停止：
//
//	b := xbreaker.New("s3", xbreaker.DefaultConfig(), xbreaker.WithLogger(logger))
//	data, err := xretry.DoWithData(ctx, func() ([]byte, error) {
//	    return xbreaker.Execute(ctx, b, func() ([]byte, error) {
//	        return get(ctx, key)
//	    })
//	}, cfg.Options()...)
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
