package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key 常量，保持各组件日志字段一致
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// KeyOwner 范围所有者名称
	KeyOwner = "owner"
	// KeySource 数据来源（文件路径、对象键、Redis key）
	KeySource = "source"
	// KeyLine 数据来源中的行号
	KeyLine = "line"
)

// Err 创建错误属性
//
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Owner 创建范围所有者属性
func Owner(name string) slog.Attr {
	return slog.String(KeyOwner, name)
}

// Source 创建数据来源属性
func Source(s string) slog.Attr {
	return slog.String(KeySource, s)
}

// Line 创建行号属性
func Line(n int) slog.Attr {
	return slog.Int(KeyLine, n)
}

// IPRange 创建分组形式的范围属性：key.start / key.end
func IPRange(key, start, end string) slog.Attr {
	return slog.Group(key, slog.String("start", start), slog.String("end", end))
}
