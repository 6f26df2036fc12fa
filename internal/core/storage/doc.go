// Package storage 提供远端 PSM 发现缓存的存储
//
// 结构：
//   - engine：存储引擎接口与 BadgerDB 实现
//   - kv：带前缀隔离与 TTL 的键值存储
//   - psmcache：以（对端, 服务 UUID）为键的发现缓存，内存 LRU 在前，
//     启用持久化时以 kv 为后备
//
// Fx 模块在 config.Manager.EnableSDPCache 开启时提供 interfaces.PSMCache，
// config.Storage.Enabled 决定是否打开 BadgerDB。
package storage
