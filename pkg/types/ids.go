package types

import "fmt"

// ============================================================================
//                              PSM - 协议/服务复用器
// ============================================================================

// PSM L2CAP 协议/服务复用器
type PSM uint16

const (
	// PSMInvalid 无效 PSM（远端 PSM 尚未发现时使用）
	PSMInvalid PSM = 0x0000

	// PSMDynamic 注册时请求传输层动态分配 PSM
	PSMDynamic PSM = PSMInvalid

	// PSMDynamicMin 动态 PSM 范围起点
	PSMDynamicMin PSM = 0x1001
)

// 常见固定 PSM
const (
	PSMSDP    PSM = 0x0001
	PSMRFCOMM PSM = 0x0003
	PSMAVCTP  PSM = 0x0017
	PSMAVDTP  PSM = 0x0019
)

// IsValid 检查 PSM 是否满足经典蓝牙 PSM 编码规则
//
// 最低有效字节的最低位必须为 1，最高有效字节的最低位必须为 0。
func (p PSM) IsValid() bool {
	return p&0x0001 == 0x0001 && p&0x0100 == 0
}

// IsDynamic 是否位于动态分配范围
func (p PSM) IsDynamic() bool {
	return p >= PSMDynamicMin
}

// String 返回十六进制表示
func (p PSM) String() string {
	return fmt.Sprintf("0x%04X", uint16(p))
}

// ============================================================================
//                              InstanceID - 实例标识
// ============================================================================

// InstanceID 实例句柄
//
// 高 2 位标识实例种类，低 14 位为按种类独立回绕的计数器。
type InstanceID uint16

// InstanceKind 实例种类
type InstanceKind uint16

const (
	// InstanceKindNone 无效
	InstanceKindNone InstanceKind = 0x0000
	// InstanceKindPSM PSM 实例
	InstanceKindPSM InstanceKind = 0x4000
	// InstanceKindLink 链路实例
	InstanceKindLink InstanceKind = 0x8000
)

const (
	// InstanceIDInvalid 无效实例标识
	InstanceIDInvalid InstanceID = 0

	instanceKindMask    = 0xC000
	instanceCounterMask = 0x3FFF
)

// NewInstanceID 由种类和计数器构造实例标识
func NewInstanceID(kind InstanceKind, counter uint16) InstanceID {
	return InstanceID(uint16(kind) | counter&instanceCounterMask)
}

// Kind 返回实例种类
func (id InstanceID) Kind() InstanceKind {
	return InstanceKind(uint16(id) & instanceKindMask)
}

// Counter 返回计数器部分
func (id InstanceID) Counter() uint16 {
	return uint16(id) & instanceCounterMask
}

// IsPSM 是否为 PSM 实例
func (id InstanceID) IsPSM() bool {
	return id.Kind() == InstanceKindPSM
}

// IsLink 是否为链路实例
func (id InstanceID) IsLink() bool {
	return id.Kind() == InstanceKindLink
}

// String 返回 "psm#n" 或 "link#n"
func (id InstanceID) String() string {
	switch id.Kind() {
	case InstanceKindPSM:
		return fmt.Sprintf("psm#%d", id.Counter())
	case InstanceKindLink:
		return fmt.Sprintf("link#%d", id.Counter())
	default:
		return "invalid"
	}
}

// ============================================================================
//                              传输层句柄
// ============================================================================

// ConnectionID 传输层连接标识
type ConnectionID uint32

// Identifier L2CAP 信令标识
type Identifier uint8

// Sink 数据通道写端句柄
type Sink uint16

// Source 数据通道读端句柄
type Source uint16

// SDPSessionID SDP 搜索会话句柄
type SDPSessionID uint32

// ServiceHandle SDP 服务记录句柄
type ServiceHandle uint32

const (
	// ConnectionIDInvalid 尚未建立连接
	ConnectionIDInvalid ConnectionID = 0
	// SinkInvalid 无效写端
	SinkInvalid Sink = 0
	// SourceInvalid 无效读端
	SourceInvalid Source = 0
	// SDPSessionInvalid 无效会话
	SDPSessionInvalid SDPSessionID = 0
)

// IsValid 写端是否有效
func (s Sink) IsValid() bool { return s != SinkInvalid }

// IsValid 读端是否有效
func (s Source) IsValid() bool { return s != SourceInvalid }
