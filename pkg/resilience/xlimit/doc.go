// Package xlimit 基于 [go-redis/redis_rate] 提供按客户端地址的分布式限流。
//
// 多个 serve 实例指向同一个 Redis 时共享配额：
//
//	l, err := xlimit.New(rdb, xlimit.Config{Rate: 100, Burst: 200})
//	h = xlimit.HTTPMiddleware(l, xlimit.WithLogger(logger))(h)
//
// [go-redis/redis_rate]: https://github.com/go-redis/redis_rate
package xlimit
