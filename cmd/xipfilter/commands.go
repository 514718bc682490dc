package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/thanos-io/objstore"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/resilience/xbreaker"
	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// usageError 表示参数错误，退出码为 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// newBucket 创建对象存储客户端，测试中替换为内存实现。
var newBucket = func(cfg xipload.S3Config, logger xlog.Logger) (objstore.Bucket, error) {
	return xipload.NewS3Bucket(cfg, logger)
}

func createCommands() []*cli.Command {
	cmds := []*cli.Command{
		createBuildCommand(),
		createMatchCommand(),
		createStatsCommand(),
		createPushCommand(),
		createPullCommand(),
		createServeCommand(),
	}
	for _, c := range cmds {
		c.OnUsageError = onUsageError
	}
	return cmds
}

func tableFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "table",
		Aliases: []string{"t"},
		Usage:   "JSON 表文件",
	}
}

func redisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "redis-addr", Usage: "Redis 地址，覆盖配置文件"},
		&cli.StringFlag{Name: "key", Usage: "快照 key，覆盖配置文件"},
	}
}

func createBuildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "从 CSV 构建 JSON 表",
		ArgsUsage: "[file.csv...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "输出的 JSON 表文件",
			},
			&cli.StringFlag{
				Name:  "bucket-prefix",
				Usage: "同时导入 S3 前缀下的全部 .csv 对象（先于本地文件）",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "遇到第一条无效或冲突的范围即失败",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "并发下载对象数，覆盖配置文件",
			},
		},
		Action: cmdBuild,
	}
}

func createMatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "查找地址所属的范围，未给出地址时逐行读取标准输入",
		ArgsUsage: "[address...]",
		Flags:     []cli.Flag{tableFlag()},
		Action:    cmdMatch,
	}
}

func createStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "打印表的条目数和名称数",
		Flags: []cli.Flag{
			tableFlag(),
			&cli.BoolFlag{Name: "names", Usage: "列出每个名称的条目数"},
		},
		Action: cmdStats,
	}
}

func createPushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "把 JSON 表写入 Redis 快照",
		Flags: append([]cli.Flag{
			tableFlag(),
			&cli.DurationFlag{Name: "ttl", Usage: "快照过期时间，0 表示不过期"},
		}, redisFlags()...),
		Action: cmdPush,
	}
}

func createPullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "从 Redis 快照取回 JSON 表",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "输出的 JSON 表文件",
			},
		}, redisFlags()...),
		Action: cmdPull,
	}
}

// env 是一次命令执行的公共依赖。
type env struct {
	cfg      appConfig
	logger   xlog.LoggerWithLevel
	closeLog func() error
	out      io.Writer
}

func newEnv(cmd *cli.Command) (*env, error) {
	root := cmd.Root()
	cfg, err := loadConfig(root.String("config"))
	if err != nil {
		return nil, err
	}
	if root.IsSet("log-level") {
		cfg.Log.Level = root.String("log-level")
	}
	if root.IsSet("log-format") {
		cfg.Log.Format = root.String("log-format")
	}

	logger, closeLog, err := xlog.New().
		SetOutput(root.ErrWriter).
		SetLevelString(cfg.Log.Level).
		SetFormat(cfg.Log.Format).
		SetRotation(cfg.Log.File, cfg.Log.Rotation).
		Build()
	if err != nil {
		return nil, usagef("%v", err)
	}
	return &env{cfg: cfg, logger: logger, closeLog: closeLog, out: root.Writer}, nil
}

func (e *env) close() {
	_ = e.closeLog()
}

// s3Breaker 为对象存储下载创建熔断器。
func (e *env) s3Breaker() *xbreaker.Breaker {
	return xbreaker.New("s3", e.cfg.Breaker, xbreaker.WithLogger(e.logger))
}

// redisConfig 返回叠加了 --redis-addr 和 --key 的 Redis 配置。
func (e *env) redisConfig(cmd *cli.Command) xipload.RedisConfig {
	rc := e.cfg.Redis
	if cmd.IsSet("redis-addr") {
		rc.Addr = cmd.String("redis-addr")
	}
	if cmd.IsSet("key") {
		rc.Key = cmd.String("key")
	}
	if rc.Key == "" {
		rc.Key = defaultRedisKey
	}
	return rc
}

func (e *env) redisStore(cmd *cli.Command) (*xipload.RedisStore, string, func(), error) {
	rc := e.redisConfig(cmd)
	client := xipload.NewRedisClient(rc)
	store, err := xipload.NewRedisStore(client)
	if err != nil {
		_ = client.Close()
		return nil, "", nil, err
	}
	return store, rc.Key, func() { _ = client.Close() }, nil
}

func cmdBuild(ctx context.Context, cmd *cli.Command) error {
	out := cmd.String("out")
	if out == "" {
		return usagef("build: --out is required")
	}
	paths := cmd.Args().Slice()
	prefix := cmd.String("bucket-prefix")
	if len(paths) == 0 && !cmd.IsSet("bucket-prefix") {
		return usagef("build: no CSV files or --bucket-prefix given")
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	var tableOpts []xipfilter.Option
	if !cmd.Bool("strict") {
		tableOpts = append(tableOpts, xipfilter.WithReporter(xipfilter.LogReporter(e.logger)))
	}

	var (
		tbl   *xipfilter.Table
		stats xipload.Stats
	)
	if cmd.IsSet("bucket-prefix") {
		tbl, stats, err = buildFromBucket(ctx, cmd, e, prefix, tableOpts)
		if err != nil {
			return err
		}
	} else {
		tbl = xipfilter.New(tableOpts...)
	}

	for _, path := range paths {
		st, err := xipload.LoadCSVFile(ctx, tbl, path)
		stats.Add(st)
		if err != nil {
			return err
		}
	}

	if err := xipload.WriteFile(out, tbl); err != nil {
		return err
	}

	v4, v6 := tbl.Len()
	e.logger.Info(ctx, "table built",
		xlog.Count(int64(stats.Inserted)),
		xlog.Source(out),
	)
	fmt.Fprintf(e.out, "rows=%d inserted=%d rejected=%d ipv4=%d ipv6=%d names=%d\n",
		stats.Rows, stats.Inserted, stats.Rejected, v4, v6, len(tbl.Names()))
	return nil
}

func buildFromBucket(ctx context.Context, cmd *cli.Command, e *env, prefix string, tableOpts []xipfilter.Option) (*xipfilter.Table, xipload.Stats, error) {
	bkt, err := newBucket(e.cfg.S3, e.logger)
	if err != nil {
		return nil, xipload.Stats{}, err
	}
	defer bkt.Close()

	concurrency := e.cfg.Concurrency
	if cmd.IsSet("concurrency") {
		concurrency = cmd.Int("concurrency")
	}
	return xipload.LoadBucketCSV(ctx, bkt, prefix,
		xipload.WithConcurrency(concurrency),
		xipload.WithRetry(e.cfg.Retry),
		xipload.WithBreaker(e.s3Breaker()),
		xipload.WithTableOptions(tableOpts...),
		xipload.WithLogger(e.logger),
	)
}

func loadTableFlag(cmd *cli.Command) (*xipfilter.Table, error) {
	path := cmd.String("table")
	if path == "" {
		return nil, usagef("%s: --table is required", cmd.Name)
	}
	return xipload.ReadFile(path)
}

func cmdMatch(_ context.Context, cmd *cli.Command) error {
	tbl, err := loadTableFlag(cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer

	if cmd.Args().Len() > 0 {
		for _, addr := range cmd.Args().Slice() {
			printMatch(w, tbl, addr)
		}
		return nil
	}

	sc := bufio.NewScanner(cmd.Root().Reader)
	for sc.Scan() {
		addr := strings.TrimSpace(sc.Text())
		if addr == "" {
			continue
		}
		printMatch(w, tbl, addr)
	}
	return sc.Err()
}

func printMatch(w io.Writer, m xipfilter.Matcher, addr string) {
	r, ok := m.MatchRange(addr)
	if !ok {
		fmt.Fprintf(w, "%s\t-\n", addr)
		return
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", addr, r.Name, r.Start, r.End)
}

func cmdStats(_ context.Context, cmd *cli.Command) error {
	tbl, err := loadTableFlag(cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer

	names := tbl.Names()
	v4, v6 := tbl.Len()
	fmt.Fprintf(w, "names\t%d\nipv4\t%d\nipv6\t%d\n", len(names), v4, v6)

	if cmd.Bool("names") {
		counts := make([]int, len(names))
		for _, v := range []xnet.Version{xnet.V4, xnet.V6} {
			for _, e := range tbl.Entries(v) {
				counts[e.Name]++
			}
		}
		for i, name := range names {
			fmt.Fprintf(w, "%s\t%d\n", name, counts[i])
		}
	}
	return nil
}

func cmdPush(ctx context.Context, cmd *cli.Command) error {
	tbl, err := loadTableFlag(cmd)
	if err != nil {
		return err
	}
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	store, key, closeStore, err := e.redisStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	ttl := e.cfg.Redis.TTL
	if cmd.IsSet("ttl") {
		ttl = cmd.Duration("ttl")
	}
	if err := store.Save(ctx, key, tbl, ttl); err != nil {
		return err
	}
	e.logger.Info(ctx, "snapshot pushed", slog.String("key", key))
	fmt.Fprintf(e.out, "pushed %s\n", key)
	return nil
}

func cmdPull(ctx context.Context, cmd *cli.Command) error {
	out := cmd.String("out")
	if out == "" {
		return usagef("pull: --out is required")
	}
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	store, key, closeStore, err := e.redisStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	tbl, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := xipload.WriteFile(out, tbl); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "pulled %s\n", key)
	return nil
}
