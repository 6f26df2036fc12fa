package mocks

import (
	"sync"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// MockClient 记录所有回调的客户端
//
// 回调在管理器的事件循环中执行，测试在管理器调用返回后读取记录。
type MockClient struct {
	mu sync.Mutex

	// 行为配置
	Record     *types.SDPRecord
	Pattern    types.SearchPattern
	Accept     bool
	ConnCtx    any
	LinkConfig types.LinkConfig
	Flow       bool

	// 可覆盖的方法
	LinkConfigFunc       func(peer types.TypedAddr) (types.LinkConfig, error)
	SDPSearchPatternFunc func(peer *types.TypedAddr) (types.SearchPattern, error)
	OnConnectCfm         func(cfm *types.ConnectCfm, ctx any)

	// 调用记录
	RegisteredCalls []types.Status
	ConnectInds     []types.ConnectInd
	ConnectCfms     []ConnectCfmCall
	DisconnectCfms  []DisconnectCfmCall
	DisconnectInds  []DisconnectIndCall
	MoreDataCalls   []types.MoreDataInfo
	MoreSpaceCalls  []types.MoreSpaceInfo
	PatternCalls    []types.TypedAddr
}

// ConnectCfmCall 记录 HandleConnectCfm 调用
type ConnectCfmCall struct {
	Cfm types.ConnectCfm
	Ctx any
}

// DisconnectCfmCall 记录 HandleDisconnectCfm 调用
type DisconnectCfmCall struct {
	Cfm types.DisconnectCfm
	Ctx any
}

// DisconnectIndCall 记录 RespondDisconnectInd 调用
type DisconnectIndCall struct {
	Ind types.DisconnectInd
	Ctx any
}

// NewMockClient 创建接受所有连接的客户端
func NewMockClient() *MockClient {
	return &MockClient{
		Accept: true,
		LinkConfig: types.LinkConfig{
			SecurityLevel: 1,
			Conftab:       []uint16{0x8000, 0x0001},
		},
	}
}

// Functions 返回回调表
func (c *MockClient) Functions() interfaces.Functions {
	f := interfaces.Functions{
		LinkConfig: func(peer types.TypedAddr) (types.LinkConfig, error) {
			if c.LinkConfigFunc != nil {
				return c.LinkConfigFunc(peer)
			}
			return c.LinkConfig, nil
		},
		SDPRecord: func(types.PSM) (types.SDPRecord, bool) {
			if c.Record == nil {
				return types.SDPRecord{}, false
			}
			return *c.Record, true
		},
		SDPSearchPattern: func(peer *types.TypedAddr) (types.SearchPattern, error) {
			c.mu.Lock()
			c.PatternCalls = append(c.PatternCalls, *peer)
			c.mu.Unlock()
			if c.SDPSearchPatternFunc != nil {
				return c.SDPSearchPatternFunc(peer)
			}
			return c.Pattern, nil
		},
		Registered: func(status types.Status) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.RegisteredCalls = append(c.RegisteredCalls, status)
		},
		RespondConnectInd: func(ind *types.ConnectInd) (types.ConnectRsp, any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.ConnectInds = append(c.ConnectInds, *ind)
			return types.ConnectRsp{Accept: c.Accept, Conftab: c.LinkConfig.Conftab}, c.ConnCtx
		},
		HandleConnectCfm: func(cfm *types.ConnectCfm, ctx any) {
			c.mu.Lock()
			c.ConnectCfms = append(c.ConnectCfms, ConnectCfmCall{Cfm: *cfm, Ctx: ctx})
			c.mu.Unlock()
			if c.OnConnectCfm != nil {
				c.OnConnectCfm(cfm, ctx)
			}
		},
		HandleDisconnectCfm: func(cfm *types.DisconnectCfm, ctx any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.DisconnectCfms = append(c.DisconnectCfms, DisconnectCfmCall{Cfm: *cfm, Ctx: ctx})
		},
		RespondDisconnectInd: func(ind *types.DisconnectInd, ctx any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.DisconnectInds = append(c.DisconnectInds, DisconnectIndCall{Ind: *ind, Ctx: ctx})
		},
	}
	if c.Flow {
		f.ProcessMoreData = func(info *types.MoreDataInfo, _ any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.MoreDataCalls = append(c.MoreDataCalls, *info)
		}
		f.ProcessMoreSpace = func(info *types.MoreSpaceInfo, _ any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.MoreSpaceCalls = append(c.MoreSpaceCalls, *info)
		}
	}
	return f
}

// LastConnectCfm 返回最后一次连接结果
func (c *MockClient) LastConnectCfm() (ConnectCfmCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ConnectCfms) == 0 {
		return ConnectCfmCall{}, false
	}
	return c.ConnectCfms[len(c.ConnectCfms)-1], true
}
