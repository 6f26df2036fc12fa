package types

import "time"

// ============================================================================
//                              事件总线事件
// ============================================================================

// 事件类型常量，用于日志和指标标签
const (
	EventTypePSMStateChanged  = "l2cap.psm.state"
	EventTypeLinkStateChanged = "l2cap.link.state"
	EventTypePSMRegistered    = "l2cap.psm.registered"
	EventTypeConnectFailed    = "l2cap.connect.failed"
)

// BaseEvent 事件公共字段
type BaseEvent struct {
	Type      string
	Timestamp time.Time
}

// NewBaseEvent 创建带当前时间戳的事件头
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: time.Now()}
}

// EvtPSMStateChanged PSM 实例状态变化
type EvtPSMStateChanged struct {
	BaseEvent
	Instance InstanceID
	LocalPSM PSM
	Old      PSMState
	New      PSMState
}

// EvtLinkStateChanged 链路实例状态变化
//
// New 为 LinkStateDisconnected 且 Removed 为 true 时表示链路已从注册表移除。
type EvtLinkStateChanged struct {
	BaseEvent
	Instance InstanceID
	Link     InstanceID
	Peer     TypedAddr
	Old      LinkState
	New      LinkState
	Removed  bool
}

// EvtPSMRegistered PSM 注册流程结束
type EvtPSMRegistered struct {
	BaseEvent
	Instance      InstanceID
	LocalPSM      PSM
	ServiceHandle ServiceHandle
	Status        Status
}

// EvtConnectFailed 连接失败（传输层失败或 SDP 搜索失败）
type EvtConnectFailed struct {
	BaseEvent
	Instance InstanceID
	Peer     TypedAddr
	Status   ConnectStatus
}
