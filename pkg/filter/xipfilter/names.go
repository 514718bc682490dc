package xipfilter

import "fmt"

// NameTable 是只追加的所有者名称表。
//
// 名称的下标在首次插入时确定，之后不再变化；相同字符串（精确比较）只保存一次。
// 零值可直接使用。
type NameTable struct {
	names []string
	index map[string]int
}

// newNameTable 从持久化的名称序列重建名称表，序列中不允许重复。
func newNameTable(names []string) (NameTable, error) {
	nt := NameTable{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if prev, ok := nt.index[name]; ok {
			return NameTable{}, fmt.Errorf("%w: duplicate name %q at %d and %d", ErrInvalidTable, name, prev, i)
		}
		nt.index[name] = i
		nt.names = append(nt.names, name)
	}
	return nt, nil
}

// IndexOf 返回 name 的下标；不存在时追加并返回新下标。
func (nt *NameTable) IndexOf(name string) int {
	if idx, ok := nt.index[name]; ok {
		return idx
	}
	if nt.index == nil {
		nt.index = make(map[string]int)
	}
	idx := len(nt.names)
	nt.names = append(nt.names, name)
	nt.index[name] = idx
	return idx
}

// Name 返回下标对应的名称。
func (nt *NameTable) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(nt.names) {
		return "", false
	}
	return nt.names[idx], true
}

// Len 返回名称数量。
func (nt *NameTable) Len() int {
	return len(nt.names)
}

// Names 返回按下标排列的名称副本。
func (nt *NameTable) Names() []string {
	out := make([]string, len(nt.names))
	copy(out, nt.names)
	return out
}

func (nt *NameTable) clone() NameTable {
	c := NameTable{
		names: nt.Names(),
		index: make(map[string]int, len(nt.index)),
	}
	for k, v := range nt.index {
		c.index[k] = v
	}
	return c
}
