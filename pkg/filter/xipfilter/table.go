package xipfilter

import (
	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

const (
	// Rejected 是插入失败时返回的位置。
	Rejected = -1

	// DefaultName 是数据源完全缺少名称字段时使用的名称。
	DefaultName = "unknown"
)

// Entry 是范围列表中的一项：闭区间 [Start, End] 的规范键和所有者名称下标。
type Entry struct {
	Start string
	End   string
	Name  int
}

// Range 是解析出名称后的范围，用于查询结果和错误描述。
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Name  string `json:"name"`
}

// Table 是命名 IP 范围表。
//
// IPv4 与 IPv6 各有一个按 Start 升序、互不重叠的列表：对 i < j 有
// entries[i].End < entries[j].Start。两个地址族之间互不影响。
//
// Table 不加锁。未被修改的表可并发查询；插入需要调用方串行化。
// 在线更新请构建新表后整体替换（见 xipreload.Holder）。
type Table struct {
	names    NameTable
	ipv4     []Entry
	ipv6     []Entry
	reporter Reporter
}

// Option 配置 Table。
type Option func(*Table)

// WithReporter 使表进入宽容模式：插入失败时错误交给 r，插入返回 (Rejected, nil)。
// r 为 nil 时保持严格模式。
func WithReporter(r Reporter) Option {
	return func(t *Table) {
		t.reporter = r
	}
}

// New 创建空表。默认严格模式，插入失败直接返回错误。
func New(opts ...Option) *Table {
	t := &Table{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Strict 报告表是否处于严格模式。
func (t *Table) Strict() bool {
	return t.reporter == nil
}

// Len 返回 IPv4 和 IPv6 列表的条目数。
func (t *Table) Len() (v4, v6 int) {
	if t == nil {
		return 0, 0
	}
	return len(t.ipv4), len(t.ipv6)
}

// Names 返回按下标排列的名称副本。
func (t *Table) Names() []string {
	if t == nil {
		return []string{}
	}
	return t.names.Names()
}

// Entries 返回指定地址族列表的副本，未知地址族返回 nil。
func (t *Table) Entries(v xnet.Version) []Entry {
	if t == nil {
		return nil
	}
	list := t.list(v)
	if list == nil {
		return nil
	}
	out := make([]Entry, len(*list))
	copy(out, *list)
	return out
}

// Clone 返回表的深拷贝，报告策略沿用原表。
// 用于"复制、修改、整体替换"式的在线更新。
func (t *Table) Clone() *Table {
	if t == nil {
		return New()
	}
	c := &Table{
		names:    t.names.clone(),
		ipv4:     make([]Entry, len(t.ipv4)),
		ipv6:     make([]Entry, len(t.ipv6)),
		reporter: t.reporter,
	}
	copy(c.ipv4, t.ipv4)
	copy(c.ipv6, t.ipv6)
	return c
}

func (t *Table) list(v xnet.Version) *[]Entry {
	switch v {
	case xnet.V4:
		return &t.ipv4
	case xnet.V6:
		return &t.ipv6
	default:
		return nil
	}
}

// resolve 把条目转换为带名称的 Range。
func (t *Table) resolve(e Entry) Range {
	name, _ := t.names.Name(e.Name)
	return Range{Start: e.Start, End: e.End, Name: name}
}
