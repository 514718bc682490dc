package xipload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/s3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
	"github.com/omeyang/xipfilter/pkg/resilience/xbreaker"
	"github.com/omeyang/xipfilter/pkg/resilience/xretry"
)

// DefaultConcurrency 是并发下载对象的默认上限。
const DefaultConcurrency = 4

// S3Config 是 S3 兼容对象存储的连接参数。
type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Insecure  bool   `koanf:"insecure"`
}

// NewS3Bucket 创建 S3 bucket 客户端。logger 可以为 nil。
func NewS3Bucket(cfg S3Config, logger xlog.Logger) (objstore.Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("xipload: s3 bucket name is required")
	}
	bkt, err := s3.NewBucketWithConfig(newKitLogger(logger), s3.Config{
		Bucket:    cfg.Bucket,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Insecure:  cfg.Insecure,
	}, "xipfilter", nil)
	if err != nil {
		return nil, fmt.Errorf("xipload: create s3 bucket %s: %w", cfg.Bucket, err)
	}
	return bkt, nil
}

type bucketOptions struct {
	concurrency int
	retry       xretry.Config
	breaker     *xbreaker.Breaker
	tableOpts   []xipfilter.Option
	logger      xlog.Logger
}

// BucketOption 配置 [LoadBucketCSV]。
type BucketOption func(*bucketOptions)

// WithConcurrency 设置并发下载上限，n <= 0 时使用 [DefaultConcurrency]。
func WithConcurrency(n int) BucketOption {
	return func(o *bucketOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetry 设置对象下载的重试参数。
func WithRetry(cfg xretry.Config) BucketOption {
	return func(o *bucketOptions) {
		o.retry = cfg
	}
}

// WithBreaker 让对象下载经过熔断器。熔断打开后下载立即失败，不再重试。
func WithBreaker(b *xbreaker.Breaker) BucketOption {
	return func(o *bucketOptions) {
		o.breaker = b
	}
}

// WithTableOptions 设置新建范围表的选项，例如 xipfilter.WithReporter。
func WithTableOptions(opts ...xipfilter.Option) BucketOption {
	return func(o *bucketOptions) {
		o.tableOpts = append(o.tableOpts, opts...)
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger xlog.Logger) BucketOption {
	return func(o *bucketOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// LoadBucketCSV 读取 bucket 中 prefix 目录下（递归）所有 .csv 对象并构建一张范围表。
//
// 对象并发下载，瞬时失败按重试参数重试；对象不存在不重试。
// 全部下载完成后按对象键的字典序依次导入，结果与下载完成顺序无关。
// 前缀下没有 CSV 对象时返回空表。
func LoadBucketCSV(ctx context.Context, bkt objstore.BucketReader, prefix string, opts ...BucketOption) (*xipfilter.Table, Stats, error) {
	var stats Stats
	if bkt == nil {
		return nil, stats, ErrNilBucket
	}
	if ctx == nil {
		ctx = context.Background()
	}
	o := bucketOptions{
		concurrency: DefaultConcurrency,
		retry:       xretry.DefaultConfig(),
		logger:      xlog.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(xlog.Component("xipload"), xlog.Operation("bucket_csv"))

	start := time.Now()
	keys, err := listCSV(ctx, bkt, prefix)
	if err != nil {
		return nil, stats, err
	}

	bodies, err := download(ctx, bkt, keys, o)
	if err != nil {
		return nil, stats, err
	}

	t := xipfilter.New(o.tableOpts...)
	for i, key := range keys {
		st, err := LoadCSV(ctx, t, bytes.NewReader(bodies[i]), key)
		stats.Add(st)
		if err != nil {
			return nil, stats, err
		}
		logger.Debug(ctx, "csv object loaded", xlog.Source(key), xlog.Count(int64(st.Inserted)))
	}

	logger.Info(ctx, "bucket csv loaded",
		slog.String("prefix", prefix),
		slog.Int("objects", len(keys)),
		slog.Int("rows", stats.Rows),
		slog.Int("rejected", stats.Rejected),
		xlog.Duration(time.Since(start)),
	)
	return t, stats, nil
}

func listCSV(ctx context.Context, bkt objstore.BucketReader, prefix string) ([]string, error) {
	var keys []string
	err := bkt.Iter(ctx, prefix, func(name string) error {
		if strings.HasSuffix(name, ".csv") {
			keys = append(keys, name)
		}
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		return nil, fmt.Errorf("xipload: list %q: %w", prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func download(ctx context.Context, bkt objstore.BucketReader, keys []string, o bucketOptions) ([][]byte, error) {
	bodies := make([][]byte, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			data, err := xretry.DoWithData(gctx, func() ([]byte, error) {
				return xbreaker.Execute(gctx, o.breaker, func() ([]byte, error) {
					return getObject(gctx, bkt, key)
				})
			}, o.retry.Options()...)
			if err != nil {
				return fmt.Errorf("xipload: get %s: %w", key, err)
			}
			bodies[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func getObject(ctx context.Context, bkt objstore.BucketReader, key string) ([]byte, error) {
	rc, err := bkt.Get(ctx, key)
	if err != nil {
		if bkt.IsObjNotFoundErr(err) {
			return nil, xretry.Unrecoverable(err)
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
