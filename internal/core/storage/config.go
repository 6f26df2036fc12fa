package storage

import (
	"time"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
	"github.com/dep2p/go-l2cap/internal/core/storage/psmcache"
)

// Config Storage 模块配置
type Config struct {
	// CacheEnabled 是否提供发现缓存
	CacheEnabled bool

	// Persistent 是否以 BadgerDB 作为缓存后备
	Persistent bool

	// Path BadgerDB 数据库目录
	Path string

	// InMemory BadgerDB 内存模式
	InMemory bool

	// CacheSize 内存层条目上限
	CacheSize int

	// TTL 缓存项有效期，0 表示不过期
	TTL time.Duration

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Path:       "./data/l2cap.db",
		CacheSize:  psmcache.DefaultSize,
		TTL:        psmcache.DefaultTTL,
		GCInterval: 10 * time.Minute,
	}
}

// ConfigFromUnified 从统一配置创建 Storage 配置
//
// 读取 config.Config.Storage，缓存开关来自 Manager.EnableSDPCache。
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.CacheEnabled = cfg.Manager.EnableSDPCache
	c.Persistent = cfg.Storage.Enabled
	c.InMemory = cfg.Storage.InMemory
	if cfg.Storage.DataDir != "" {
		c.Path = cfg.Storage.DBPath()
	}
	if cfg.Storage.CacheSize > 0 {
		c.CacheSize = cfg.Storage.CacheSize
	}
	c.TTL = cfg.Storage.TTL.Duration()
	return c
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	if c.InMemory {
		return engine.InMemoryConfig()
	}
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	return ec
}
