package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xipfilter/pkg/filter/xipcache"
	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xiphttp"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
	"github.com/omeyang/xipfilter/pkg/filter/xipreload"
	"github.com/omeyang/xipfilter/pkg/lifecycle/xrun"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/observability/xmetrics"
	"github.com/omeyang/xipfilter/pkg/resilience/xlimit"
)

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "以 HTTP 接口提供查询，数据源更新后自动替换表",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "JSON 表文件，文件变更后重新加载",
			},
			&cli.BoolFlag{Name: "from-redis", Usage: "按 --schedule 定期从 Redis 快照加载"},
			&cli.StringFlag{Name: "bucket-prefix", Usage: "按 --schedule 定期从 S3 前缀下的 CSV 对象构建"},
			&cli.StringFlag{Name: "schedule", Usage: "cron 表达式或 @every 描述符，覆盖配置文件"},
			&cli.StringFlag{Name: "addr", Usage: "监听地址，覆盖配置文件"},
			&cli.IntFlag{Name: "cache-size", Usage: "查询缓存条目数，0 表示不缓存，覆盖配置文件"},
			&cli.DurationFlag{Name: "cache-ttl", Usage: "查询缓存过期时间，覆盖配置文件"},
			&cli.IntFlag{Name: "rate-limit", Usage: "每个客户端每秒的查询数上限，配额存放在 Redis，0 表示不限流"},
		}, redisFlags()...),
		Action: cmdServe,
	}
}

// tableService 负责首次加载和之后的更新，run 阻塞到 ctx 取消。
type tableService struct {
	src xipload.Source
	run func(ctx context.Context) error
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	sources := 0
	for _, set := range []bool{cmd.String("table") != "", cmd.Bool("from-redis"), cmd.IsSet("bucket-prefix")} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return usagef("serve: exactly one of --table, --from-redis or --bucket-prefix is required")
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	sc := e.cfg.Serve
	if cmd.IsSet("addr") {
		sc.Addr = cmd.String("addr")
	}
	if cmd.IsSet("schedule") {
		sc.Schedule = cmd.String("schedule")
	}
	if cmd.IsSet("cache-size") {
		sc.Cache.Size = cmd.Int("cache-size")
	}
	if cmd.IsSet("cache-ttl") {
		sc.Cache.TTL = cmd.Duration("cache-ttl")
	}
	if cmd.IsSet("rate-limit") {
		sc.RateLimit = xlimit.Config{Rate: cmd.Int("rate-limit")}
	}

	var cache *xipcache.Cache
	holder := xipreload.NewHolder(nil, xipreload.WithOnSwap(func(_, cur *xipfilter.Table) {
		if cache != nil {
			cache.Purge()
		}
		v4, v6 := cur.Len()
		e.logger.Info(ctx, "table swapped", slog.Int("ipv4", v4), slog.Int("ipv6", v6))
	}))

	var matcher xipfilter.Matcher = holder
	if sc.Cache.Size != 0 {
		if cache, err = xipcache.New(holder, sc.Cache); err != nil {
			return usagef("serve: %v", err)
		}
		matcher = cache
	}
	if matcher, err = xmetrics.NewMatcher(matcher); err != nil {
		return err
	}

	svc, cleanup, err := e.newTableService(cmd, holder, sc.Schedule)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := holder.Reload(ctx, svc.src); err != nil {
		return fmt.Errorf("serve: initial load: %w", err)
	}

	apiOpts := []xiphttp.Option{xiphttp.WithMatcher(matcher), xiphttp.WithLogger(e.logger)}
	if sc.RateLimit.Enabled() {
		rdb := xipload.NewRedisClient(e.redisConfig(cmd))
		defer func() { _ = rdb.Close() }()
		limiter, err := xlimit.New(rdb, sc.RateLimit)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, xiphttp.WithMiddleware(xlimit.HTTPMiddleware(limiter, xlimit.WithLogger(e.logger))))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	api := xiphttp.New(holder, append(apiOpts, xiphttp.WithRegistry(reg))...)

	l, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return err
	}
	e.logger.Info(ctx, "serving", slog.String("addr", l.Addr().String()))
	fmt.Fprintf(e.out, "listening on %s\n", l.Addr())

	srv := &http.Server{Handler: api, ReadHeaderTimeout: 10 * time.Second}
	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(e.logger), xrun.WithName("serve")},
		xrun.HTTPServer(srv, l, sc.ShutdownTimeout),
		svc.run,
	)
	if errors.Is(err, xrun.ErrSignal) || errors.Is(err, context.Canceled) {
		e.logger.Info(context.WithoutCancel(ctx), "server stopped", xlog.Err(err))
		return nil
	}
	return err
}

// newTableService 按命令行选择数据源：本地文件用 fsnotify 监视，Redis 和 S3 按 cron 刷新。
func (e *env) newTableService(cmd *cli.Command, holder *xipreload.Holder, schedule string) (*tableService, func(), error) {
	// 服务端总是容错加载，无效行只记录日志
	tableOpts := []xipfilter.Option{xipfilter.WithReporter(xipfilter.LogReporter(e.logger))}

	if path := cmd.String("table"); path != "" {
		w, err := xipreload.WatchFile(holder, path,
			xipreload.WithLogger(e.logger),
			xipreload.WithTableOptions(tableOpts...),
		)
		if err != nil {
			return nil, nil, err
		}
		run := func(ctx context.Context) error {
			w.StartAsync()
			<-ctx.Done()
			return w.Stop()
		}
		return &tableService{src: xipload.FileSource{Path: path, Options: tableOpts}, run: run},
			func() { _ = w.Stop() }, nil
	}

	var (
		src     xipload.Source
		cleanup func()
	)
	if cmd.Bool("from-redis") {
		store, key, closeStore, err := e.redisStore(cmd)
		if err != nil {
			return nil, nil, err
		}
		src, cleanup = xipload.RedisSource{Store: store, Key: key, Options: tableOpts}, closeStore
	} else {
		bkt, err := newBucket(e.cfg.S3, e.logger)
		if err != nil {
			return nil, nil, err
		}
		src = xipload.BucketSource{
			Bucket: bkt,
			Prefix: cmd.String("bucket-prefix"),
			Options: []xipload.BucketOption{
				xipload.WithConcurrency(e.cfg.Concurrency),
				xipload.WithRetry(e.cfg.Retry),
				xipload.WithBreaker(e.s3Breaker()),
				xipload.WithTableOptions(tableOpts...),
				xipload.WithLogger(e.logger),
			},
		}
		cleanup = func() { _ = bkt.Close() }
	}

	r, err := xipreload.NewRefresher(holder, src, schedule, xipreload.WithRefreshLogger(e.logger))
	if err != nil {
		cleanup()
		return nil, nil, usagef("serve: %v", err)
	}
	run := func(ctx context.Context) error {
		r.Start()
		<-ctx.Done()
		r.Stop()
		return nil
	}
	return &tableService{src: src, run: run}, cleanup, nil
}
