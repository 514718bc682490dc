package xipload

import (
	"context"
	"fmt"
	"os"

	"github.com/thanos-io/objstore"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

// Source 产出一张完整构建好的范围表，供热更新组件整体替换。
type Source interface {
	Load(ctx context.Context) (*xipfilter.Table, error)
}

// SourceFunc 是函数形式的 Source。
type SourceFunc func(ctx context.Context) (*xipfilter.Table, error)

// Load 实现 Source。
func (f SourceFunc) Load(ctx context.Context) (*xipfilter.Table, error) {
	return f(ctx)
}

var (
	_ Source = FileSource{}
	_ Source = CSVFileSource{}
	_ Source = BucketSource{}
	_ Source = RedisSource{}
)

// FileSource 从 JSON 文件读取范围表。
type FileSource struct {
	Path    string
	Options []xipfilter.Option
}

// Load 实现 Source。
func (s FileSource) Load(ctx context.Context) (*xipfilter.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(s.Path, s.Options...)
}

// CSVFileSource 从一组本地 CSV 文件构建范围表，文件按给定顺序导入。
type CSVFileSource struct {
	Paths   []string
	Options []xipfilter.Option
}

// Load 实现 Source。
func (s CSVFileSource) Load(ctx context.Context) (*xipfilter.Table, error) {
	t, _, err := LoadCSVFiles(ctx, s.Paths, s.Options...)
	return t, err
}

// LoadCSVFiles 依次导入多个本地 CSV 文件到一张新表。
func LoadCSVFiles(ctx context.Context, paths []string, opts ...xipfilter.Option) (*xipfilter.Table, Stats, error) {
	var stats Stats
	t := xipfilter.New(opts...)
	for _, path := range paths {
		st, err := LoadCSVFile(ctx, t, path)
		stats.Add(st)
		if err != nil {
			return nil, stats, err
		}
	}
	return t, stats, nil
}

// LoadCSVFile 把一个本地 CSV 文件追加到已有的表 t。
func LoadCSVFile(ctx context.Context, t *xipfilter.Table, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("xipload: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(ctx, t, f, path)
}

// BucketSource 从对象存储前缀下的 CSV 对象构建范围表。
type BucketSource struct {
	Bucket  objstore.BucketReader
	Prefix  string
	Options []BucketOption
}

// Load 实现 Source。
func (s BucketSource) Load(ctx context.Context) (*xipfilter.Table, error) {
	t, _, err := LoadBucketCSV(ctx, s.Bucket, s.Prefix, s.Options...)
	return t, err
}

// RedisSource 从 Redis 快照读取范围表。
type RedisSource struct {
	Store   *RedisStore
	Key     string
	Options []xipfilter.Option
}

// Load 实现 Source。
func (s RedisSource) Load(ctx context.Context) (*xipfilter.Table, error) {
	if s.Store == nil {
		return nil, ErrNilClient
	}
	return s.Store.Load(ctx, s.Key, s.Options...)
}
