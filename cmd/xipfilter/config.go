package main

import (
	"time"

	"github.com/omeyang/xipfilter/pkg/config/xconf"
	"github.com/omeyang/xipfilter/pkg/filter/xipcache"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/resilience/xbreaker"
	"github.com/omeyang/xipfilter/pkg/resilience/xlimit"
	"github.com/omeyang/xipfilter/pkg/resilience/xretry"
)

// defaultRedisKey 未配置时使用的快照 key。
const defaultRedisKey = "xipfilter:table"

// appConfig 是 --config 文件的结构。
type appConfig struct {
	Log         logConfig           `koanf:"log"`
	S3          xipload.S3Config    `koanf:"s3"`
	Redis       xipload.RedisConfig `koanf:"redis"`
	Retry       xretry.Config       `koanf:"retry"`
	Breaker     xbreaker.Config     `koanf:"breaker"`
	Concurrency int                 `koanf:"concurrency"`
	Serve       serveConfig         `koanf:"serve"`
}

type logConfig struct {
	Level    string        `koanf:"level"`
	Format   string        `koanf:"format"`
	File     string        `koanf:"file"`
	Rotation xlog.Rotation `koanf:"rotation"`
}

// serveConfig 是 serve 命令的默认值。
// Cache.Size 为 0 时不启用查询缓存，RateLimit.Rate 为 0 时不限流。
type serveConfig struct {
	Addr            string          `koanf:"addr"`
	Schedule        string          `koanf:"schedule"`
	Cache           xipcache.Config `koanf:"cache"`
	RateLimit       xlimit.Config   `koanf:"rate_limit"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"`
}

func defaultConfig() appConfig {
	return appConfig{
		Log:         logConfig{Level: "info", Format: "text"},
		Redis:       xipload.RedisConfig{Addr: "127.0.0.1:6379", Key: defaultRedisKey},
		Retry:       xretry.DefaultConfig(),
		Breaker:     xbreaker.DefaultConfig(),
		Concurrency: xipload.DefaultConcurrency,
		Serve: serveConfig{
			Addr:            ":8080",
			Schedule:        "@every 5m",
			Cache:           xipcache.Config{Size: 1 << 16, TTL: time.Minute},
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// loadConfig 在默认值之上叠加配置文件，path 为空时只返回默认值。
func loadConfig(path string) (appConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if err := xconf.Load(path, &cfg); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}
