package xipfilter

import (
	"net/netip"

	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// Matcher 是范围查询接口。
//
// *Table、xipreload.Holder、xipcache.Cache 和 xmetrics.Matcher 都实现了它，
// 可以按需层层包装。
type Matcher interface {
	// MatchRange 返回包含候选地址的范围。
	MatchRange(text string) (Range, bool)
	// Match 返回包含候选地址的范围所有者名称。
	Match(text string) (string, bool)
}

var _ Matcher = (*Table)(nil)

// MatchRange 查找包含候选地址的范围。
//
// text 可以是单个地址或逗号分隔的地址列表（如 X-Forwarded-For），
// 取从左到右第一个可解析的地址。没有可解析地址或没有范围包含它时返回 false。
// 查询从不失败，nil 表视为空表。
func (t *Table) MatchRange(text string) (Range, bool) {
	addr, ok := xnet.ParseCandidate(text)
	if !ok {
		return Range{}, false
	}
	return t.MatchAddr(addr)
}

// Match 返回包含候选地址的范围所有者名称。
func (t *Table) Match(text string) (string, bool) {
	r, ok := t.MatchRange(text)
	if !ok {
		return "", false
	}
	return r.Name, true
}

// MatchAddr 查找包含 addr 的范围。
func (t *Table) MatchAddr(addr netip.Addr) (Range, bool) {
	if t == nil {
		return Range{}, false
	}
	v, key := xnet.Canonicalize(addr)
	list := t.list(v)
	if list == nil {
		return Range{}, false
	}
	i, ok := search(*list, key)
	if !ok {
		return Range{}, false
	}
	return t.resolve((*list)[i]), true
}

// search 二分查找包含 key 的条目。
func search(list []Entry, key string) (int, bool) {
	low, high := 0, len(list)-1
	for low <= high {
		probe := int(uint(low+high) >> 1)
		e := list[probe]
		switch {
		case e.Start > key:
			high = probe - 1
		case e.End < key:
			low = probe + 1
		default:
			return probe, true
		}
	}
	return 0, false
}
