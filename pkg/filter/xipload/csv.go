package xipload

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

// Stats 汇总一次导入的结果。
type Stats struct {
	// Rows 读取的数据行数（不含空行）
	Rows int
	// Inserted 成功插入的范围数
	Inserted int
	// Rejected 宽容模式下被拒绝的行数
	Rejected int
}

// Add 累加另一次导入的结果。
func (s *Stats) Add(o Stats) {
	s.Rows += o.Rows
	s.Inserted += o.Inserted
	s.Rejected += o.Rejected
}

// LoadCSV 把 CSV 行逐行插入 t。
//
// 每行至少一个字段，多余字段忽略：
//
//	start,end,name     前两列都是 IP 地址时按范围插入
//	cidr,name          否则按 CIDR 插入
//
// 严格模式的表在第一个失败行返回错误，错误带 "source:line" 前缀；
// 宽容模式的表继续处理，失败行计入 Stats.Rejected。
// 每行之间检查 ctx 是否取消。
func LoadCSV(ctx context.Context, t *xipfilter.Table, r io.Reader, source string) (Stats, error) {
	var stats Stats
	if t == nil {
		return stats, ErrNilTable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("xipload: %s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		stats.Rows++

		pos, err := insertRecord(t, rec)
		if err != nil {
			return stats, fmt.Errorf("%s:%d: %w", source, line, err)
		}
		if pos == xipfilter.Rejected {
			stats.Rejected++
			continue
		}
		stats.Inserted++
	}
}

// insertRecord 只在名称列缺失时使用 DefaultName，空单元格按空名称登记。
func insertRecord(t *xipfilter.Table, rec []string) (int, error) {
	f0, f1 := field(rec, 0), field(rec, 1)
	if xnet.IsValidIP(f0) && xnet.IsValidIP(f1) {
		return t.InsertRange(f0, f1, nameField(rec, 2))
	}
	return t.InsertCIDR(f0, nameField(rec, 1))
}

func nameField(rec []string, i int) string {
	if i >= len(rec) {
		return xipfilter.DefaultName
	}
	return field(rec, i)
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
