// Package config 提供统一的配置管理
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 发现缓存存储配置
//
// 启用后发现到的远端 PSM 写入 BadgerDB，重启后仍然有效。
//
// 数据目录结构：
//
//	${DataDir}/
//	└── l2cap.db/           # BadgerDB 数据库
//	    ├── 000001.vlog
//	    ├── 000001.sst
//	    └── MANIFEST
type StorageConfig struct {
	// Enabled 是否持久化发现缓存，为 false 时只使用内存缓存
	Enabled bool `json:"enabled"`

	// DataDir 数据目录路径
	DataDir string `json:"data_dir"`

	// InMemory 使用 BadgerDB 内存模式（测试用）
	InMemory bool `json:"in_memory"`

	// CacheSize 内存缓存条目上限
	CacheSize int `json:"cache_size"`

	// TTL 缓存项有效期
	TTL Duration `json:"ttl"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Enabled:   false,
		DataDir:   "./data",
		CacheSize: 256,
		TTL:       Duration(24 * time.Hour),
	}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	if c.Enabled && !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("storage: data_dir cannot be empty")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("storage: cache_size must be positive")
	}
	if c.TTL < 0 {
		return fmt.Errorf("storage: ttl must not be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "l2cap.db")
}
