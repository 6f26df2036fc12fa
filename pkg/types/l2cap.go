package types

// ============================================================================
//                              客户端提供的数据
// ============================================================================

// LinkConfig 外发连接使用的协议配置
type LinkConfig struct {
	// SecurityLevel 请求的安全级别
	SecurityLevel uint16

	// Conftab L2CAP 配置表（键值对编码的 16 位字序列）
	Conftab []uint16
}

// SDPRecord 需要发布的服务记录
type SDPRecord struct {
	// Record 服务记录字节（属性 ID/值对的数据元素序列）
	Record []byte

	// OffsetToPSM PSM 字段在 Record 中的字节偏移，按大端写入分配到的 PSM
	OffsetToPSM int
}

// IsEmpty 记录是否为空
func (r SDPRecord) IsEmpty() bool {
	return len(r.Record) == 0
}

// SearchPattern 查找远端 PSM 使用的 SDP 搜索模式
type SearchPattern struct {
	// ServiceUUID 目标服务 UUID
	ServiceUUID UUID

	// UUIDSize 搜索时使用的 UUID 形式（32 位或 128 位）
	UUIDSize UUIDSize

	// AttributeList 需要返回的属性 ID 列表（数据元素序列字节）
	AttributeList []byte

	// MaxRetries 传输层失败时的最大重试次数
	MaxRetries int
}

// ============================================================================
//                              回调参数
// ============================================================================

// ConnectInd 远端连接指示
type ConnectInd struct {
	LocalPSM     PSM
	Peer         TypedAddr
	Identifier   Identifier
	ConnectionID ConnectionID
}

// ConnectRsp 客户端对远端连接指示的响应
type ConnectRsp struct {
	// Accept 是否接受
	Accept bool

	// Conftab 接受时使用的 L2CAP 配置表
	Conftab []uint16
}

// QoS 流规格参数
type QoS struct {
	ServiceType    uint8
	TokenRate      uint32
	TokenBucket    uint32
	PeakBandwidth  uint32
	Latency        uint32
	DelayVariation uint32
}

// ConnectCfm 连接确认
type ConnectCfm struct {
	Status       ConnectStatus
	LocalPSM     PSM
	RemotePSM    PSM
	Peer         TypedAddr
	Sink         Sink
	ConnectionID ConnectionID

	MTURemote          uint16
	FlushTimeoutRemote uint16
	Mode               uint8
	QoSRemote          QoS
}

// DisconnectInd 远端断开指示
type DisconnectInd struct {
	Identifier Identifier
	Status     DisconnectStatus
	Sink       Sink
}

// DisconnectCfm 本端断开确认
type DisconnectCfm struct {
	Status DisconnectStatus
	Sink   Sink
}

// MoreDataInfo 读端有新数据
type MoreDataInfo struct {
	ConnectionID ConnectionID
	Source       Source
}

// MoreSpaceInfo 写端有可用空间
type MoreSpaceInfo struct {
	ConnectionID ConnectionID
	Sink         Sink
}

// ============================================================================
//                              诊断快照
// ============================================================================

// LinkInfo 链路实例快照
type LinkInfo struct {
	ID                 InstanceID
	Peer               TypedAddr
	State              LinkState
	ConnectionID       ConnectionID
	Identifier         Identifier
	Sink               Sink
	Source             Source
	MTURemote          uint16
	FlushTimeoutRemote uint16
	Mode               uint8
}

// PSMInfo PSM 实例快照
type PSMInfo struct {
	ID                 InstanceID
	State              PSMState
	LocalPSM           PSM
	RemotePSM          PSM
	ServiceHandle      ServiceHandle
	PendingConnections int
	SDPSearchAttempts  int
	SDPMaxRetries      int
	SDPSessionOpen     bool
	SDPQueued          int
	NumLinks           int
	Links              []LinkInfo
}
