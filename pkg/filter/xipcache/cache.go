package xipcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

// maxSize 缓存最大条目数上限。
const maxSize = 1 << 24

var (
	// ErrNilMatcher 表示未提供被缓存的 Matcher。
	ErrNilMatcher = errors.New("xipcache: nil matcher")

	// ErrInvalidSize 表示缓存大小不在 (0, 16777216] 范围内。
	ErrInvalidSize = errors.New("xipcache: size must be in (0, 16777216]")

	// ErrInvalidTTL 表示 TTL 为负数。
	ErrInvalidTTL = errors.New("xipcache: ttl must not be negative")
)

// Config 定义缓存配置。
type Config struct {
	// Size 缓存最大条目数。
	Size int `koanf:"size"`

	// TTL 条目过期时间，0 表示永不过期。
	// 大于 0 时底层库会启动一个后台清理 goroutine。
	TTL time.Duration `koanf:"ttl"`
}

type entry struct {
	text string
	r    xipfilter.Range
	ok   bool
}

// Cache 缓存候选文本到查询结果的映射，放在任意 Matcher 前面。
//
// 键是候选文本的 xxhash，条目同时保存原文，哈希碰撞时按未命中处理。
// 未命中的查询结果也会被缓存。底层表被替换后需要调用 Purge。
// Purge 之前开始的查询不会把结果写回缓存。
// 所有方法都是并发安全的。
type Cache struct {
	m      xipfilter.Matcher
	lru    *expirable.LRU[uint64, entry]
	hits   atomic.Uint64
	misses atomic.Uint64

	// gen 每次 Purge 递增；mu 保证"检查 gen 再写入"与 Purge 互斥
	mu  sync.RWMutex
	gen atomic.Uint64
}

var _ xipfilter.Matcher = (*Cache)(nil)

// New 创建查询缓存。
func New(m xipfilter.Matcher, cfg Config) (*Cache, error) {
	if m == nil {
		return nil, ErrNilMatcher
	}
	if cfg.Size <= 0 || cfg.Size > maxSize {
		return nil, ErrInvalidSize
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	return &Cache{
		m:   m,
		lru: expirable.NewLRU[uint64, entry](cfg.Size, nil, cfg.TTL),
	}, nil
}

// MatchRange 实现 xipfilter.Matcher。
func (c *Cache) MatchRange(text string) (xipfilter.Range, bool) {
	key := xxhash.Sum64String(text)
	if e, ok := c.lru.Get(key); ok && e.text == text {
		c.hits.Add(1)
		return e.r, e.ok
	}
	c.misses.Add(1)
	gen := c.gen.Load()
	r, ok := c.m.MatchRange(text)

	c.mu.RLock()
	if c.gen.Load() == gen {
		c.lru.Add(key, entry{text: text, r: r, ok: ok})
	}
	c.mu.RUnlock()
	return r, ok
}

// Match 实现 xipfilter.Matcher。
func (c *Cache) Match(text string) (string, bool) {
	r, ok := c.MatchRange(text)
	if !ok {
		return "", false
	}
	return r.Name, true
}

// Purge 清空缓存，在底层表替换后调用。
func (c *Cache) Purge() {
	c.mu.Lock()
	c.gen.Add(1)
	c.lru.Purge()
	c.mu.Unlock()
}

// Len 返回当前条目数，可能包含已过期但尚未清理的条目。
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats 返回累计命中和未命中次数。
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
