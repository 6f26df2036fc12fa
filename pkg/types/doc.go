// Package types 定义 go-l2cap 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在传输层、连接管理器和客户端之间传递数据。
//
// # 文件组织
//
// 基础类型:
//   - addr.go       - BDAddr, AddrType, TransportKind, TypedAddr
//   - uuid.go       - 蓝牙 UUID（16/32/128 位形式）
//   - ids.go        - PSM, InstanceID, ConnectionID, Sink, Source
//   - enums.go      - PSMState, LinkState, Status, ConnectStatus, DisconnectStatus
//   - errors.go     - 公共错误定义
//
// 协议类型:
//   - l2cap.go      - 客户端回调使用的请求/确认/指示结构
//   - primitives.go - 传输层请求与事件原语
//   - events.go     - 事件总线事件
package types
