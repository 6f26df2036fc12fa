// Package kv 提供带前缀隔离的 KV 存储
//
// 键空间：
//   - psm/ - 远端 PSM 发现缓存
//
//	store := kv.New(eng, []byte("psm/"))
//	store.PutWithTTL(key, value, 24*time.Hour) // 实际键: psm/<key>
package kv
