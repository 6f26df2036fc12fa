package types

// ============================================================================
//                              PSMState - PSM 实例状态
// ============================================================================

// PSMState PSM 实例状态
type PSMState int

const (
	// PSMStateNone 未初始化
	PSMStateNone PSMState = iota
	// PSMStatePSMRegistration 等待 PSM 注册确认
	PSMStatePSMRegistration
	// PSMStateSDPRegistration 等待 SDP 记录注册确认
	PSMStateSDPRegistration
	// PSMStateReady 就绪
	PSMStateReady
	// PSMStateConnecting 有连接请求在途
	PSMStateConnecting
	// PSMStateConnected 最近一次连接成功
	PSMStateConnected
	// PSMStateSDPSearch SDP 搜索进行中
	PSMStateSDPSearch
	// PSMStateRegistrationFailed 注册失败（仅非致命注册策略下出现）
	PSMStateRegistrationFailed
)

// String 返回状态名
func (s PSMState) String() string {
	switch s {
	case PSMStatePSMRegistration:
		return "psm_registration"
	case PSMStateSDPRegistration:
		return "sdp_registration"
	case PSMStateReady:
		return "ready"
	case PSMStateConnecting:
		return "connecting"
	case PSMStateConnected:
		return "connected"
	case PSMStateSDPSearch:
		return "sdp_search"
	case PSMStateRegistrationFailed:
		return "registration_failed"
	default:
		return "none"
	}
}

// IsRegistered 注册流程是否已完成
func (s PSMState) IsRegistered() bool {
	switch s {
	case PSMStateReady, PSMStateConnecting, PSMStateConnected, PSMStateSDPSearch:
		return true
	default:
		return false
	}
}

// ============================================================================
//                              LinkState - 链路状态
// ============================================================================

// LinkState 链路实例状态
type LinkState int

const (
	// LinkStateNull 新建
	LinkStateNull LinkState = iota
	// LinkStateLocalSDPSearch 本端发起，正在 SDP 搜索
	LinkStateLocalSDPSearch
	// LinkStateLocalConnecting 本端发起，连接请求在途
	LinkStateLocalConnecting
	// LinkStateRemoteConnecting 远端发起，等待接受确认
	LinkStateRemoteConnecting
	// LinkStateConnected 已连接
	LinkStateConnected
	// LinkStateDisconnecting 本端发起断开
	LinkStateDisconnecting
	// LinkStateDisconnected 已断开
	LinkStateDisconnected
)

// String 返回状态名
func (s LinkState) String() string {
	switch s {
	case LinkStateNull:
		return "null"
	case LinkStateLocalSDPSearch:
		return "local_initiated_sdp_search"
	case LinkStateLocalConnecting:
		return "local_initiated_connecting"
	case LinkStateRemoteConnecting:
		return "connecting_by_remote"
	case LinkStateConnected:
		return "connected"
	case LinkStateDisconnecting:
		return "disconnecting"
	case LinkStateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// IsActive 链路是否处于连接、连接中或 SDP 搜索阶段
//
// NULL、DISCONNECTING、DISCONNECTED 之外的状态都算活跃。
func (s LinkState) IsActive() bool {
	switch s {
	case LinkStateNull, LinkStateDisconnecting, LinkStateDisconnected:
		return false
	default:
		return true
	}
}

// ============================================================================
//                              Status - 注册结果
// ============================================================================

// Status 通用结果
type Status int

const (
	// StatusSuccess 成功
	StatusSuccess Status = iota
	// StatusFailed 失败
	StatusFailed
	// StatusFailedToAllocate 实例分配失败
	StatusFailedToAllocate
)

// String 返回结果名
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusFailedToAllocate:
		return "failed_to_allocate"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ConnectStatus - 连接结果
// ============================================================================

// ConnectStatus 连接确认结果
type ConnectStatus int

const (
	// ConnectSuccess 连接成功
	ConnectSuccess ConnectStatus = iota
	// ConnectFailed 传输层连接失败
	ConnectFailed
	// ConnectFailedSDPSearch SDP 搜索失败
	ConnectFailedSDPSearch
)

// String 返回结果名
func (s ConnectStatus) String() string {
	switch s {
	case ConnectSuccess:
		return "success"
	case ConnectFailed:
		return "failed"
	case ConnectFailedSDPSearch:
		return "failed_sdp_search"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              DisconnectStatus - 断开原因
// ============================================================================

// DisconnectStatus 提供给客户端的断开原因
type DisconnectStatus int

const (
	// DisconnectSuccessful 正常断开
	DisconnectSuccessful DisconnectStatus = iota
	// DisconnectTimedOut 超时
	DisconnectTimedOut
	// DisconnectLinkLoss 链路丢失
	DisconnectLinkLoss
	// DisconnectTransferred 链路已转移
	DisconnectTransferred
	// DisconnectUnknownReason 未知原因
	DisconnectUnknownReason
)

// String 返回原因名
func (s DisconnectStatus) String() string {
	switch s {
	case DisconnectSuccessful:
		return "successful"
	case DisconnectTimedOut:
		return "timed_out"
	case DisconnectLinkLoss:
		return "link_loss"
	case DisconnectTransferred:
		return "transferred"
	default:
		return "unknown_reason"
	}
}

// ============================================================================
//                              DisconnectReason - 传输层断开码
// ============================================================================

// DisconnectReason 传输层上报的断开码
type DisconnectReason uint16

const (
	// ReasonNormal 正常断开
	ReasonNormal DisconnectReason = 0x0000
	// ReasonTimeout 信令超时
	ReasonTimeout DisconnectReason = 0x0001
	// ReasonLinkLoss 基带链路丢失
	ReasonLinkLoss DisconnectReason = 0x0002
	// ReasonLinkTransferred 链路转移到其他设备
	ReasonLinkTransferred DisconnectReason = 0x0003
	// ReasonRemoteTerminated 其他非标准原因示例
	ReasonRemoteTerminated DisconnectReason = 0x0013
)

// String 返回断开码名
func (r DisconnectReason) String() string {
	switch r {
	case ReasonNormal:
		return "normal"
	case ReasonTimeout:
		return "timeout"
	case ReasonLinkLoss:
		return "link_loss"
	case ReasonLinkTransferred:
		return "link_transferred"
	case ReasonRemoteTerminated:
		return "remote_terminated"
	default:
		return "other"
	}
}

// ============================================================================
//                              ResultCode - 传输层结果码
// ============================================================================

// ResultCode 传输层确认结果码
type ResultCode uint16

const (
	// ResultSuccess 成功
	ResultSuccess ResultCode = iota
	// ResultPending 处理中，稍后会再次确认
	ResultPending
	// ResultNoResponseData 对端未返回数据（SDP）
	ResultNoResponseData
	// ResultFailed 一般失败
	ResultFailed
	// ResultTimeout 超时
	ResultTimeout
	// ResultRejected 被拒绝
	ResultRejected
	// ResultNoResources 资源不足
	ResultNoResources
)

// String 返回结果码名
func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultPending:
		return "pending"
	case ResultNoResponseData:
		return "no_response_data"
	case ResultFailed:
		return "failed"
	case ResultTimeout:
		return "timeout"
	case ResultRejected:
		return "rejected"
	case ResultNoResources:
		return "no_resources"
	default:
		return "unknown"
	}
}

// IsSuccess 是否成功
func (r ResultCode) IsSuccess() bool {
	return r == ResultSuccess
}

// ============================================================================
//                              HandoverPolicy - 读端移交策略
// ============================================================================

// HandoverPolicy 链路移交时对读端未读数据的处理策略
type HandoverPolicy int

const (
	// HandoverRequireEmpty 读端必须为空才允许移交
	HandoverRequireEmpty HandoverPolicy = iota
	// HandoverAllowWithoutData 允许丢弃未读数据进行移交
	HandoverAllowWithoutData
)

// String 返回策略名
func (p HandoverPolicy) String() string {
	switch p {
	case HandoverAllowWithoutData:
		return "allow_without_data"
	default:
		return "require_empty"
	}
}
