package xipreload

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
)

// ErrNilTable 表示数据源返回了 nil 表。
var ErrNilTable = errors.New("xipreload: source returned nil table")

// SwapFunc 在当前表被替换后调用，old 可能为 nil。
type SwapFunc func(old, cur *xipfilter.Table)

// Holder 持有当前生效的范围表，支持无锁读取和整体替换。
//
// 读者通过 Load 拿到的 *Table 在替换后依然有效，替换只影响之后的读取。
// 被持有的表不应再被修改。
type Holder struct {
	cur    atomic.Pointer[xipfilter.Table]
	onSwap []SwapFunc
}

var _ xipfilter.Matcher = (*Holder)(nil)

// HolderOption 配置 Holder。
type HolderOption func(*Holder)

// WithOnSwap 注册替换回调，例如清空查询缓存。回调在替换的 goroutine 中同步执行。
func WithOnSwap(fn SwapFunc) HolderOption {
	return func(h *Holder) {
		if fn != nil {
			h.onSwap = append(h.onSwap, fn)
		}
	}
}

// NewHolder 创建 Holder，initial 可以为 nil（查询全部不命中）。
func NewHolder(initial *xipfilter.Table, opts ...HolderOption) *Holder {
	h := &Holder{}
	for _, opt := range opts {
		opt(h)
	}
	h.cur.Store(initial)
	return h
}

// Load 返回当前表。
func (h *Holder) Load() *xipfilter.Table {
	return h.cur.Load()
}

// Swap 替换当前表并返回旧表。
func (h *Holder) Swap(t *xipfilter.Table) *xipfilter.Table {
	old := h.cur.Swap(t)
	for _, fn := range h.onSwap {
		fn(old, t)
	}
	return old
}

// Reload 从 src 构建新表并替换。失败时保留当前表。
func (h *Holder) Reload(ctx context.Context, src xipload.Source) (*xipfilter.Table, error) {
	t, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNilTable
	}
	h.Swap(t)
	return t, nil
}

// MatchRange 在当前表中查找。
func (h *Holder) MatchRange(text string) (xipfilter.Range, bool) {
	return h.Load().MatchRange(text)
}

// Match 在当前表中查找所有者名称。
func (h *Holder) Match(text string) (string, bool) {
	return h.Load().Match(text)
}

// MatchAddr 在当前表中查找已解析的地址。
func (h *Holder) MatchAddr(addr netip.Addr) (xipfilter.Range, bool) {
	return h.Load().MatchAddr(addr)
}
