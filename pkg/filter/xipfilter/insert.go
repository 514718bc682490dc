package xipfilter

import (
	"fmt"
	"slices"

	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// InsertRange 插入闭区间 [start, end]，返回它在对应地址族列表中的位置（从 0 开始）。
//
// 校验顺序：端点可解析、同一地址族、start 不大于 end、与已有范围不重叠。
// 相邻但不重叠的范围（如 x.x.x.9 之后紧接 x.x.x.10）视为两个独立条目。
// name 按原样登记，空字符串也是合法名称。
//
// 失败时表保持不变；严格模式返回 (Rejected, err)，宽容模式报告错误后返回 (Rejected, nil)。
func (t *Table) InsertRange(start, end, name string) (int, error) {
	startAddr, err := xnet.ParseAddr(start)
	if err != nil {
		return t.reject(fmt.Errorf("%w: start %q for %s", ErrInvalidAddress, start, name))
	}
	endAddr, err := xnet.ParseAddr(end)
	if err != nil {
		return t.reject(fmt.Errorf("%w: end %q for %s", ErrInvalidAddress, end, name))
	}

	startVer, startKey := xnet.Canonicalize(startAddr)
	endVer, endKey := xnet.Canonicalize(endAddr)
	if startVer != endVer {
		return t.reject(fmt.Errorf("%w: %s (%s) - %s (%s) for %s",
			ErrMismatchedFamily, start, startVer, end, endVer, name))
	}
	return t.insertKeys(startVer, startKey, endKey, name)
}

// InsertCIDR 插入 CIDR 前缀覆盖的全部地址，主机位会被清零。
//
// 前缀无法解析或长度超出地址族范围时返回 [ErrInvalidCIDR]，其余规则同 [Table.InsertRange]。
func (t *Table) InsertCIDR(cidr, name string) (int, error) {
	first, last, err := xnet.PrefixBounds(cidr)
	if err != nil {
		return t.reject(fmt.Errorf("%w: %q for %s: %w", ErrInvalidCIDR, cidr, name, err))
	}
	v, startKey := xnet.Canonicalize(first)
	_, endKey := xnet.Canonicalize(last)
	return t.insertKeys(v, startKey, endKey, name)
}

// InsertKeys 插入已是规范键形式的范围，键宽度决定地址族。
//
// 键宽度不一致或内容不是规范格式时返回 [ErrInvalidKey]。
func (t *Table) InsertKeys(startKey, endKey, name string) (int, error) {
	v := xnet.KeyVersion(startKey)
	if v == xnet.V0 || xnet.KeyVersion(endKey) != v {
		return t.reject(fmt.Errorf("%w: [%q, %q] for %s", ErrInvalidKey, startKey, endKey, name))
	}
	if _, err := xnet.ParseCanonicalKey(startKey); err != nil {
		return t.reject(fmt.Errorf("%w: start %q for %s", ErrInvalidKey, startKey, name))
	}
	if _, err := xnet.ParseCanonicalKey(endKey); err != nil {
		return t.reject(fmt.Errorf("%w: end %q for %s", ErrInvalidKey, endKey, name))
	}
	return t.insertKeys(v, startKey, endKey, name)
}

// insertKeys 在键已校验的前提下完成顺序检查、冲突检测和插入。
func (t *Table) insertKeys(v xnet.Version, startKey, endKey, name string) (int, error) {
	if startKey > endKey {
		return t.reject(fmt.Errorf("%w: %s - %s for %s", ErrNonSequentialRange, startKey, endKey, name))
	}

	list := t.list(v)
	pos, conflict := insertPosition(*list, startKey, endKey)
	if conflict >= 0 {
		return t.reject(&ConflictError{
			Rejected: Range{Start: startKey, End: endKey, Name: name},
			Existing: t.resolve((*list)[conflict]),
		})
	}

	entry := Entry{Start: startKey, End: endKey, Name: t.names.IndexOf(name)}
	*list = slices.Insert(*list, pos, entry)
	return pos, nil
}

// insertPosition 线性扫描第一个 End >= startKey 的条目。
// 返回插入位置；与该条目重叠时 conflict 为其下标，否则为 -1。
func insertPosition(list []Entry, startKey, endKey string) (pos, conflict int) {
	for i, e := range list {
		if e.End < startKey {
			continue
		}
		if e.Start > endKey {
			return i, -1
		}
		return i, i
	}
	return len(list), -1
}

// reject 按报告策略处理插入失败。
func (t *Table) reject(err error) (int, error) {
	if t.reporter != nil {
		t.reporter.Report(err)
		return Rejected, nil
	}
	return Rejected, err
}
