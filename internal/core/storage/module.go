package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
	"github.com/dep2p/go-l2cap/internal/core/storage/engine/badger"
	"github.com/dep2p/go-l2cap/internal/core/storage/kv"
	"github.com/dep2p/go-l2cap/internal/core/storage/psmcache"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// Storage 存储组件
type Storage struct {
	// Engine 未启用持久化时为 nil
	Engine engine.InternalEngine

	// Cache 未启用缓存时为 nil
	Cache *psmcache.Cache
}

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result Storage 模块提供的结果
type Result struct {
	fx.Out

	Storage  *Storage
	PSMCache pkgif.PSMCache
}

// Module 返回 Storage Fx 模块
//
// 提供:
//   - *Storage
//   - interfaces.PSMCache: 未启用缓存时为 nil
//
// 生命周期:
//   - OnStart: 启动引擎并预加载缓存
//   - OnStop: 关闭引擎
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 提供存储组件
func ProvideStorage(p Params) (Result, error) {
	s, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Result{}, err
	}
	out := Result{Storage: s}
	if s.Cache != nil {
		out.PSMCache = s.Cache
	}
	return out, nil
}

// New 根据配置创建存储组件
func New(cfg Config) (*Storage, error) {
	s := &Storage{}
	if !cfg.CacheEnabled {
		return s, nil
	}

	var store *kv.Store
	if cfg.Persistent {
		eng, err := badger.New(cfg.ToEngineConfig())
		if err != nil {
			logger.Error("创建存储引擎失败", "path", cfg.Path, "error", err)
			return nil, fmt.Errorf("storage: %w", err)
		}
		s.Engine = eng
		store = kv.New(eng, psmcache.KeyPrefix)
	}
	s.Cache = psmcache.New(cfg.CacheSize, cfg.TTL, store)
	logger.Debug("发现缓存已创建", "persistent", cfg.Persistent, "size", cfg.CacheSize, "ttl", cfg.TTL)
	return s, nil
}

// Start 启动引擎并预加载缓存
func (s *Storage) Start() error {
	if s.Engine == nil {
		return nil
	}
	if err := s.Engine.Start(); err != nil {
		return err
	}
	n, err := s.Cache.Preload()
	if err != nil {
		// 预加载失败不影响使用，未命中时仍会查持久层
		logger.Warn("预加载发现缓存失败", "error", err)
		return nil
	}
	logger.Info("存储引擎已启动", "cached", n)
	return nil
}

// Close 关闭引擎
func (s *Storage) Close() error {
	if s.Engine == nil {
		return nil
	}
	return s.Engine.Close()
}

func registerLifecycle(lc fx.Lifecycle, s *Storage) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := s.Start(); err != nil {
				logger.Error("存储引擎启动失败", "error", err)
				return err
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := s.Close(); err != nil {
				logger.Warn("存储引擎关闭失败", "error", err)
				return err
			}
			return nil
		},
	})
}
