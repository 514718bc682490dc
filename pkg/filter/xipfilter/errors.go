package xipfilter

import (
	"errors"
	"fmt"
)

// 插入操作的错误分类。所有错误都可用 errors.Is 判断。
var (
	// ErrInvalidAddress 表示范围端点不是合法的 IPv4/IPv6 地址。
	ErrInvalidAddress = errors.New("xipfilter: invalid IP")

	// ErrInvalidCIDR 表示 CIDR 文本无法解析，或前缀长度超出地址族范围。
	ErrInvalidCIDR = errors.New("xipfilter: invalid CIDR")

	// ErrMismatchedFamily 表示范围起止地址属于不同地址族。
	ErrMismatchedFamily = errors.New("xipfilter: mismatched IP range")

	// ErrNonSequentialRange 表示起始地址排在结束地址之后。
	ErrNonSequentialRange = errors.New("xipfilter: non-sequential IP range")

	// ErrRangeConflict 表示新范围与已有范围重叠，具体信息见 [ConflictError]。
	ErrRangeConflict = errors.New("xipfilter: IP range conflict")

	// ErrInvalidKey 表示规范键宽度或内容不合法。
	ErrInvalidKey = errors.New("xipfilter: invalid fixed IP range")

	// ErrInvalidTable 表示持久化数据不满足范围表约束。
	ErrInvalidTable = errors.New("xipfilter: invalid table")
)

// ConflictError 描述被拒绝的范围和与之冲突的已有范围。
// errors.Is(err, ErrRangeConflict) 对它成立。
type ConflictError struct {
	// Rejected 被拒绝的新范围（规范键）。
	Rejected Range
	// Existing 表中已存在、与之重叠的范围。
	Existing Range
}

// Error 实现 error 接口。
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: [%s, %s, %s] conflicts with [%s, %s, %s]",
		ErrRangeConflict,
		e.Rejected.Start, e.Rejected.End, e.Rejected.Name,
		e.Existing.Start, e.Existing.End, e.Existing.Name)
}

// Unwrap 返回 ErrRangeConflict。
func (e *ConflictError) Unwrap() error {
	return ErrRangeConflict
}

// ErrorKind 返回错误所属分类的短名称，用于指标标签和日志字段。
// 不属于任何分类时返回 "unknown"。
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidCIDR):
		return "invalid_cidr"
	case errors.Is(err, ErrMismatchedFamily):
		return "mismatched_family"
	case errors.Is(err, ErrNonSequentialRange):
		return "non_sequential"
	case errors.Is(err, ErrRangeConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrInvalidTable):
		return "invalid_table"
	default:
		return "unknown"
	}
}
