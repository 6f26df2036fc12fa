// Package interfaces 定义 go-l2cap 公共接口
//
// 本文件定义存储引擎接口，用于持久化发现过的远端 PSM。
package interfaces

import (
	"time"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// Engine 键值存储引擎
//
// 线程安全：实现必须保证所有方法的线程安全性。
type Engine interface {
	// Get 获取值，键不存在时返回 ErrNotFound 类错误
	Get(key []byte) ([]byte, error)

	// Put 写入键值对
	Put(key, value []byte) error

	// PutWithTTL 写入带过期时间的键值对，ttl <= 0 等同于 Put
	PutWithTTL(key, value []byte, ttl time.Duration) error

	// Delete 删除键
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Close 关闭引擎
	Close() error
}

// PSMCache 远端 PSM 发现缓存
//
// 以（对端, 服务 UUID）为键，命中时连接管理器跳过 SDP 搜索。
type PSMCache interface {
	// Lookup 查找缓存的远端 PSM
	Lookup(peer types.TypedAddr, service types.UUID) (types.PSM, bool)

	// Remember 记录发现到的远端 PSM
	Remember(peer types.TypedAddr, service types.UUID, psm types.PSM)

	// Forget 删除缓存项（缓存的 PSM 连接失败时调用）
	Forget(peer types.TypedAddr, service types.UUID)
}
