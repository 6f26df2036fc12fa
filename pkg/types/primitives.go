package types

// ============================================================================
//                              传输层请求
// ============================================================================

// RegisterPSMReq PSM 注册请求
type RegisterPSMReq struct {
	// Instance 发起请求的 PSM 实例，确认时原样带回
	Instance InstanceID
	PSM      PSM
}

// RegisterRecordReq SDP 服务记录注册请求
//
// 调用后 Record 的所有权转移给传输层。
type RegisterRecordReq struct {
	Instance InstanceID
	Record   []byte
}

// ConnectReq 外发连接请求
type ConnectReq struct {
	Instance      InstanceID
	LocalPSM      PSM
	RemotePSM     PSM
	Peer          TypedAddr
	SecurityLevel uint16
	Conftab       []uint16
}

// ConnectAcceptRsp 对远端连接指示的响应
type ConnectAcceptRsp struct {
	LocalPSM     PSM
	Peer         TypedAddr
	Identifier   Identifier
	ConnectionID ConnectionID
	Accept       bool
	Conftab      []uint16
}

// DisconnectRsp 对远端断开指示的应答
type DisconnectRsp struct {
	Identifier Identifier
	Sink       Sink
}

// SDPSearchReq SDP 服务搜索属性请求
type SDPSearchReq struct {
	Session       SDPSessionID
	Peer          TypedAddr
	ServiceUUID   UUID
	UUIDSize      UUIDSize
	AttributeList []byte
}

// ============================================================================
//                              传输层事件
// ============================================================================

// TransportEvent 传输层上报给连接管理器的事件
//
// 所有实现均在本文件中定义。
type TransportEvent interface {
	transportEvent()
}

// RegisterPSMCfm PSM 注册确认
type RegisterPSMCfm struct {
	// Instance 请求中携带的实例标识，为 InstanceIDInvalid 时按状态匹配
	Instance InstanceID
	LocalPSM PSM
	Result   ResultCode
}

// RegisterRecordCfm SDP 服务记录注册确认
type RegisterRecordCfm struct {
	Instance      InstanceID
	ServiceHandle ServiceHandle
	Result        ResultCode
}

// L2caConnectCfm 外发连接确认
type L2caConnectCfm struct {
	LocalPSM     PSM
	Peer         TypedAddr
	ConnectionID ConnectionID
	MTURemote    uint16
	Result       ResultCode
}

// L2caConnectAcceptInd 远端连接指示
type L2caConnectAcceptInd struct {
	LocalPSM     PSM
	Peer         TypedAddr
	Identifier   Identifier
	ConnectionID ConnectionID
}

// L2caConnectAcceptCfm 接受远端连接后的确认
type L2caConnectAcceptCfm struct {
	LocalPSM     PSM
	Peer         TypedAddr
	ConnectionID ConnectionID
	MTURemote    uint16
	Result       ResultCode
}

// L2caDisconnectInd 断开指示（本端或远端发起）
type L2caDisconnectInd struct {
	ConnectionID    ConnectionID
	Identifier      Identifier
	Reason          DisconnectReason
	LocalTerminated bool
}

// SDPServiceRecord 搜索返回的一条服务记录
type SDPServiceRecord struct {
	// Result 单条记录的结果
	Result ResultCode

	// ServiceUUID 记录匹配的服务 UUID
	ServiceUUID UUID

	// Attributes 属性 ID/值对数据元素序列
	Attributes []byte
}

// SDPSearchResult SDP 搜索结果
type SDPSearchResult struct {
	Session SDPSessionID
	Peer    TypedAddr
	Result  ResultCode
	Records []SDPServiceRecord
}

// MoreData 读端有新数据
type MoreData struct {
	Source Source
}

// MoreSpace 写端有可用空间
type MoreSpace struct {
	Sink Sink
}

func (RegisterPSMCfm) transportEvent()       {}
func (RegisterRecordCfm) transportEvent()    {}
func (L2caConnectCfm) transportEvent()       {}
func (L2caConnectAcceptInd) transportEvent() {}
func (L2caConnectAcceptCfm) transportEvent() {}
func (L2caDisconnectInd) transportEvent()    {}
func (SDPSearchResult) transportEvent()      {}
func (MoreData) transportEvent()             {}
func (MoreSpace) transportEvent()            {}
