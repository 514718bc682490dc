package xipfilter

import (
	"encoding/json"
	"fmt"

	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// tableJSON 是持久化格式：
//
//	{"names":["One"],"ipv4":[["001.001.001.002","001.001.002.002",0]],"ipv6":[]}
type tableJSON struct {
	Names []string `json:"names"`
	IPv4  []Entry  `json:"ipv4"`
	IPv6  []Entry  `json:"ipv6"`
}

// MarshalJSON 把条目编码为 [start, end, nameIndex] 三元数组。
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{e.Start, e.End, e.Name})
}

// UnmarshalJSON 解码 [start, end, nameIndex] 三元数组，元素个数必须为 3。
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: entry: %w", ErrInvalidTable, err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: entry has %d elements, want 3", ErrInvalidTable, len(raw))
	}
	var out Entry
	if err := json.Unmarshal(raw[0], &out.Start); err != nil {
		return fmt.Errorf("%w: entry start: %w", ErrInvalidTable, err)
	}
	if err := json.Unmarshal(raw[1], &out.End); err != nil {
		return fmt.Errorf("%w: entry end: %w", ErrInvalidTable, err)
	}
	if err := json.Unmarshal(raw[2], &out.Name); err != nil {
		return fmt.Errorf("%w: entry name index: %w", ErrInvalidTable, err)
	}
	*e = out
	return nil
}

// MarshalJSON 实现 json.Marshaler。空列表编码为 []，不会出现 null。
func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil {
		t = New()
	}
	w := tableJSON{
		Names: t.names.Names(),
		IPv4:  nonNil(t.ipv4),
		IPv6:  nonNil(t.ipv6),
	}
	return json.Marshal(w)
}

// UnmarshalJSON 实现 json.Unmarshaler，替换表的全部内容并保留报告策略。
//
// 解码时校验：键宽度与所在列表的地址族一致、键为规范格式、Start 不大于 End、
// 列表有序且互不重叠、名称下标有效、名称不重复。缺失的字段视为空列表。
// 校验失败返回 [ErrInvalidTable]，表保持不变。
func (t *Table) UnmarshalJSON(data []byte) error {
	var w tableJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	names, err := newNameTable(w.Names)
	if err != nil {
		return err
	}
	if err := validateList(xnet.V4, w.IPv4, names.Len()); err != nil {
		return err
	}
	if err := validateList(xnet.V6, w.IPv6, names.Len()); err != nil {
		return err
	}
	t.names = names
	t.ipv4 = nonNil(w.IPv4)
	t.ipv6 = nonNil(w.IPv6)
	return nil
}

// ToJSON 返回表的持久化编码。
func (t *Table) ToJSON() ([]byte, error) {
	return t.MarshalJSON()
}

// FromJSON 从持久化编码重建表；opts 与 [New] 相同，用于指定之后插入的报告策略。
func FromJSON(data []byte, opts ...Option) (*Table, error) {
	t := New(opts...)
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return t, nil
}

func validateList(v xnet.Version, list []Entry, nameCount int) error {
	for i, e := range list {
		if xnet.KeyVersion(e.Start) != v || xnet.KeyVersion(e.End) != v {
			return fmt.Errorf("%w: %s entry %d: key width is not %d", ErrInvalidTable, v, i, v.KeyWidth())
		}
		if _, err := xnet.ParseCanonicalKey(e.Start); err != nil {
			return fmt.Errorf("%w: %s entry %d: %w", ErrInvalidTable, v, i, err)
		}
		if _, err := xnet.ParseCanonicalKey(e.End); err != nil {
			return fmt.Errorf("%w: %s entry %d: %w", ErrInvalidTable, v, i, err)
		}
		if e.Start > e.End {
			return fmt.Errorf("%w: %s entry %d: start %s after end %s", ErrInvalidTable, v, i, e.Start, e.End)
		}
		if i > 0 && list[i-1].End >= e.Start {
			return fmt.Errorf("%w: %s entry %d overlaps or precedes entry %d", ErrInvalidTable, v, i, i-1)
		}
		if e.Name < 0 || e.Name >= nameCount {
			return fmt.Errorf("%w: %s entry %d: name index %d out of range [0, %d)", ErrInvalidTable, v, i, e.Name, nameCount)
		}
	}
	return nil
}

func nonNil(list []Entry) []Entry {
	if list == nil {
		return []Entry{}
	}
	return list
}
