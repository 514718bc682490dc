package xipload

import "errors"

var (
	// ErrNilTable 表示传入的范围表为 nil。
	ErrNilTable = errors.New("xipload: nil table")

	// ErrNilBucket 表示未提供对象存储 bucket。
	ErrNilBucket = errors.New("xipload: nil bucket")

	// ErrNilClient 表示未提供 Redis 客户端。
	ErrNilClient = errors.New("xipload: nil redis client")

	// ErrSnapshotNotFound 表示 Redis 中不存在指定的快照。
	ErrSnapshotNotFound = errors.New("xipload: snapshot not found")
)
