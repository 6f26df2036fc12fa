package engine

import (
	"github.com/dep2p/go-l2cap/pkg/interfaces"
)

// InternalEngine 内部扩展接口
type InternalEngine interface {
	interfaces.Engine

	// NewPrefixIterator 创建只遍历 prefix 下键的迭代器，调用者负责 Close
	NewPrefixIterator(prefix []byte) Iterator

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 把已写入的数据同步到磁盘
	Sync() error
}

// Iterator 键值迭代器
//
// 用法：
//
//	it := eng.NewPrefixIterator(prefix)
//	defer it.Close()
//	for it.Next() {
//	    k, v := it.Key(), it.Value()
//	}
//	if err := it.Error(); err != nil { ... }
type Iterator interface {
	// Next 移动到下一项，首次调用移动到第一项
	Next() bool

	// Key 返回当前键的副本
	Key() []byte

	// Value 返回当前值的副本
	Value() []byte

	// Error 返回遍历过程中的错误
	Error() error

	// Close 释放迭代器
	Close()
}
