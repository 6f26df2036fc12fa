// Package psmcache 实现远端 PSM 发现缓存
//
// 内存层为带过期时间的 LRU；传入 kv.Store 时同时写入持久层，
// 内存未命中再查持久层，命中后回填内存。持久层错误只记日志，
// 不影响连接流程。
package psmcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
	"github.com/dep2p/go-l2cap/internal/core/storage/kv"
	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

var logger = log.Logger("storage/psmcache")

// KeyPrefix 持久层键前缀
var KeyPrefix = []byte("psm/")

// 默认参数
const (
	DefaultSize = 256
	DefaultTTL  = 24 * time.Hour
)

// keyLen 地址 6 + 地址类型 1 + 传输类型 1 + UUID 16
const keyLen = 24

type cacheKey [keyLen]byte

func makeKey(peer types.TypedAddr, service types.UUID) cacheKey {
	var k cacheKey
	copy(k[0:6], peer.Addr[:])
	k[6] = byte(peer.Type)
	k[7] = byte(peer.Transport)
	copy(k[8:], service[:])
	return k
}

func parseKey(b []byte) (types.TypedAddr, types.UUID, bool) {
	if len(b) != keyLen {
		return types.TypedAddr{}, types.UUID{}, false
	}
	var peer types.TypedAddr
	var service types.UUID
	copy(peer.Addr[:], b[0:6])
	peer.Type = types.AddrType(b[6])
	peer.Transport = types.TransportKind(b[7])
	copy(service[:], b[8:])
	return peer, service, true
}

// Cache 远端 PSM 发现缓存
type Cache struct {
	lru   *expirable.LRU[cacheKey, types.PSM]
	store *kv.Store
	ttl   time.Duration
}

var _ interfaces.PSMCache = (*Cache)(nil)

// New 创建缓存，store 为 nil 时只使用内存
func New(size int, ttl time.Duration, store *kv.Store) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		lru:   expirable.NewLRU[cacheKey, types.PSM](size, nil, ttl),
		store: store,
		ttl:   ttl,
	}
}

// Lookup 查找缓存的远端 PSM
func (c *Cache) Lookup(peer types.TypedAddr, service types.UUID) (types.PSM, bool) {
	k := makeKey(peer, service)
	if psm, ok := c.lru.Get(k); ok {
		return psm, true
	}
	if c.store == nil {
		return types.PSMInvalid, false
	}

	v, err := c.store.GetUint16(k[:])
	if err != nil {
		if !engine.IsNotFound(err) {
			logger.Warn("读取发现缓存失败", "peer", peer, "service", service, "error", err)
		}
		return types.PSMInvalid, false
	}
	psm := types.PSM(v)
	if !psm.IsValid() {
		logger.Warn("发现缓存中的 PSM 非法，已删除", "peer", peer, "psm", psm)
		_ = c.store.Delete(k[:])
		return types.PSMInvalid, false
	}
	c.lru.Add(k, psm)
	return psm, true
}

// Remember 记录发现到的远端 PSM
func (c *Cache) Remember(peer types.TypedAddr, service types.UUID, psm types.PSM) {
	if !psm.IsValid() {
		return
	}
	k := makeKey(peer, service)
	c.lru.Add(k, psm)
	if c.store == nil {
		return
	}
	if err := c.store.PutUint16WithTTL(k[:], uint16(psm), c.ttl); err != nil {
		logger.Warn("写入发现缓存失败", "peer", peer, "service", service, "error", err)
	}
}

// Forget 删除缓存项
func (c *Cache) Forget(peer types.TypedAddr, service types.UUID) {
	k := makeKey(peer, service)
	c.lru.Remove(k)
	if c.store == nil {
		return
	}
	if err := c.store.Delete(k[:]); err != nil && !engine.IsNotFound(err) {
		logger.Warn("删除发现缓存失败", "peer", peer, "service", service, "error", err)
	}
}

// Len 返回内存层条目数
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Preload 把持久层的条目载入内存层，返回载入数量
//
// 内存层满时按 LRU 淘汰，持久层不受影响。
func (c *Cache) Preload() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	n := 0
	err := c.store.ForEach(func(key, value []byte) bool {
		peer, service, ok := parseKey(key)
		if !ok || len(value) != 2 {
			return true
		}
		psm := types.PSM(uint16(value[0])<<8 | uint16(value[1]))
		if !psm.IsValid() {
			return true
		}
		c.lru.Add(makeKey(peer, service), psm)
		n++
		return true
	})
	if err != nil {
		return n, err
	}
	logger.Debug("发现缓存已预加载", "entries", n)
	return n, nil
}
