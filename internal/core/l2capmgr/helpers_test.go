package l2capmgr

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
	"github.com/dep2p/go-l2cap/tests/mocks"
)

const (
	testLocalPSM  types.PSM = 0x1001
	testRemotePSM types.PSM = 0x0019
)

var (
	peerA   = types.NewBREDRAddr(types.MustParseBDAddr("00:11:22:33:44:55"))
	peerB   = types.NewBREDRAddr(types.MustParseBDAddr("00:11:22:33:44:66"))
	service = types.MustParseUUID("1f3e5e6a-8a58-4b43-a7c1-2df0a4ad3a72")
)

func init() {
	log.Discard()
}

// newTestManager 创建使用 MockTransport 的管理器
func newTestManager(t *testing.T, cfg Config, opts ...Option) (*Manager, *mocks.MockTransport) {
	t.Helper()
	tr := mocks.NewMockTransport()
	m, err := New(cfg, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, tr
}

// deliver 投递事件，要求成功
func deliver(t *testing.T, tr *mocks.MockTransport, ev types.TransportEvent) {
	t.Helper()
	require.NoError(t, tr.Emit(ev))
}

// registerReady 注册一个没有服务记录的 PSM 并完成确认
func registerReady(t *testing.T, m *Manager, tr *mocks.MockTransport, c *mocks.MockClient) types.InstanceID {
	t.Helper()
	id, err := m.Register(types.PSMDynamic, c.Functions())
	require.NoError(t, err)
	deliver(t, tr, types.RegisterPSMCfm{Instance: id, LocalPSM: testLocalPSM, Result: types.ResultSuccess})
	require.Equal(t, types.PSMStateReady, psmInfo(t, m, id).State)
	return id
}

// psmInfo 返回指定实例的快照
func psmInfo(t *testing.T, m *Manager, id types.InstanceID) types.PSMInfo {
	t.Helper()
	infos, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	for _, info := range infos {
		if info.ID == id {
			require.Equal(t, info.NumLinks, len(info.Links))
			return info
		}
	}
	t.Fatalf("instance %s not found", id)
	return types.PSMInfo{}
}

// linkInfo 返回对端链路快照
func linkInfo(t *testing.T, m *Manager, id types.InstanceID, peer types.TypedAddr) (types.LinkInfo, bool) {
	t.Helper()
	for _, l := range psmInfo(t, m, id).Links {
		if l.Peer == peer {
			return l, true
		}
	}
	return types.LinkInfo{}, false
}

// searchPattern 返回 128 位服务 UUID 的搜索模式
func searchPattern(retries int) types.SearchPattern {
	return types.SearchPattern{
		ServiceUUID:   service,
		UUIDSize:      types.UUIDSize128,
		AttributeList: sdp.AttributeIDList(sdp.AttrProtocolDescriptorList),
		MaxRetries:    retries,
	}
}

// sdpFound 返回携带远端 PSM 的搜索结果
func sdpFound(session types.SDPSessionID, peer types.TypedAddr, psm types.PSM) types.SDPSearchResult {
	attrs := sdp.NewRecord().
		Add(sdp.AttrProtocolDescriptorList, sdp.Seq(
			sdp.Seq(sdp.UUID16(0x0100), sdp.Uint16(uint16(psm))),
		)).
		Bytes()
	return types.SDPSearchResult{
		Session: session,
		Peer:    peer,
		Result:  types.ResultSuccess,
		Records: []types.SDPServiceRecord{{Result: types.ResultSuccess, ServiceUUID: service, Attributes: attrs}},
	}
}

// sdpFailed 返回失败的搜索结果
func sdpFailed(session types.SDPSessionID, peer types.TypedAddr, result types.ResultCode) types.SDPSearchResult {
	return types.SDPSearchResult{Session: session, Peer: peer, Result: result}
}

// requireFatal 要求 fn 以 *FatalError panic
func requireFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected fatal panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value is %T", r)
		require.ErrorIs(t, err, ErrFatal)
	}()
	fn()
}

// acceptLink 走远端发起流程建立一条已连接链路
func acceptLink(t *testing.T, tr *mocks.MockTransport, peer types.TypedAddr, connID types.ConnectionID) {
	t.Helper()
	deliver(t, tr, types.L2caConnectAcceptInd{LocalPSM: testLocalPSM, Peer: peer, Identifier: 3, ConnectionID: connID})
	deliver(t, tr, types.L2caConnectAcceptCfm{LocalPSM: testLocalPSM, Peer: peer, ConnectionID: connID, MTURemote: 672, Result: types.ResultSuccess})
}

// retryTimer 返回实例上等待中的 SDP 重试定时器
func retryTimer(t *testing.T, m *Manager, id types.InstanceID) *clock.Timer {
	t.Helper()
	var timer *clock.Timer
	require.NoError(t, m.loop.call(context.Background(), func() {
		if p := m.reg.psmByID(id); p != nil {
			timer = p.sdpRetry
		}
	}))
	return timer
}
