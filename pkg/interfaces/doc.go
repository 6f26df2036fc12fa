// Package interfaces 定义 go-l2cap 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - transport.go - 下层 L2CAP/SDP 传输（internal/core/transport）
//   - client.go    - 客户端能力集（由使用者实现）
//   - manager.go   - 连接管理器（internal/core/l2capmgr）
//   - eventbus.go  - 事件总线（internal/core/eventbus）
//   - metrics.go   - 指标记录（internal/core/metrics）
//   - storage.go   - 键值存储引擎（internal/core/storage）
//
// 接口只依赖 pkg/types，不依赖任何 internal 包。
package interfaces
