package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

func init() {
	log.Discard()
}

var (
	remote   = types.NewBREDRAddr(types.MustParseBDAddr("00:11:22:33:44:55"))
	stranger = types.NewBREDRAddr(types.MustParseBDAddr("66:77:88:99:aa:bb"))
	service  = types.MustParseUUID("1f3e5e6a-8a58-4b43-a7c1-2df0a4ad3a72")
)

// recorder 记录投递的事件
type recorder struct {
	mu     sync.Mutex
	events []types.TransportEvent
}

func (r *recorder) Deliver(_ context.Context, ev types.TransportEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) take() []types.TransportEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestController(t *testing.T, cfg Config, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	c := New(cfg, opts...)
	rec := &recorder{}
	c.SetEventHandler(rec)
	require.NoError(t, c.Start())
	t.Cleanup(func() { _ = c.Close() })
	return c, rec
}

func flush(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
}

// registerPSM 注册一个动态 PSM 并返回分配结果
func registerPSM(t *testing.T, c *Controller, rec *recorder) types.PSM {
	t.Helper()
	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))
	flush(t, c)
	evs := rec.take()
	require.Len(t, evs, 1)
	cfm := evs[0].(types.RegisterPSMCfm)
	require.True(t, cfm.Result.IsSuccess())
	return cfm.LocalPSM
}

// TestController_RegisterPSM 测试 PSM 分配
func TestController_RegisterPSM(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())

	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))
	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4002, PSM: types.PSMDynamic}))
	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4003, PSM: 0x1002}))
	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4004, PSM: 0x1001}))
	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4005, PSM: types.PSMAVDTP}))
	flush(t, c)

	evs := rec.take()
	require.Len(t, evs, 5)
	want := []types.RegisterPSMCfm{
		{Instance: 0x4001, LocalPSM: 0x1001, Result: types.ResultSuccess},
		{Instance: 0x4002, LocalPSM: 0x1003, Result: types.ResultSuccess},
		{Instance: 0x4003, Result: types.ResultFailed},
		{Instance: 0x4004, Result: types.ResultFailed},
		{Instance: 0x4005, LocalPSM: types.PSMAVDTP, Result: types.ResultSuccess},
	}
	for i, w := range want {
		assert.Equal(t, w, evs[i], "event %d", i)
	}
	assert.ElementsMatch(t, []types.PSM{0x1001, 0x1003, types.PSMAVDTP}, c.LocalPSMs())
	assert.EqualValues(t, 5, c.Stats().Requests)
	assert.EqualValues(t, 5, c.Stats().Delivered)
}

// TestController_Connect 测试外发连接的各种结果
func TestController_Connect(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)
	c.AddPeer(remote).Listen(0x1005)

	err := c.Connect(types.ConnectReq{LocalPSM: 0x2001, RemotePSM: 0x1005, Peer: remote})
	assert.ErrorIs(t, err, ErrPSMNotRegistered)

	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: stranger}))
	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1007, Peer: remote}))
	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: remote}))
	flush(t, c)

	evs := rec.take()
	require.Len(t, evs, 3)
	assert.Equal(t, types.ResultTimeout, evs[0].(types.L2caConnectCfm).Result)
	assert.Equal(t, types.ResultRejected, evs[1].(types.L2caConnectCfm).Result)
	ok := evs[2].(types.L2caConnectCfm)
	require.Equal(t, types.ResultSuccess, ok.Result)
	assert.Equal(t, uint16(672), ok.MTURemote)
	assert.NotEqual(t, types.ConnectionIDInvalid, ok.ConnectionID)

	sink := c.SinkForConnection(ok.ConnectionID)
	require.True(t, sink.IsValid())
	source := c.SourceFromSink(sink)
	assert.Equal(t, sink, c.SinkFromSource(source))
	links := c.Links()
	require.Len(t, links, 1)
	assert.Equal(t, remote, links[0].Peer)
	assert.Equal(t, source, links[0].Source)

	c.AddPeer(remote).RejectConnections(true)
	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: remote}))
	flush(t, c)
	evs = rec.take()
	require.Len(t, evs, 1)
	assert.Equal(t, types.ResultRejected, evs[0].(types.L2caConnectCfm).Result)
}

// TestController_ServiceRecords 测试本地服务记录注册
func TestController_ServiceRecords(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())

	r := sdp.L2capServiceRecord(service, "svc")
	b, err := sdp.PatchPSM(r.Record, r.OffsetToPSM, 0x1001)
	require.NoError(t, err)

	require.NoError(t, c.RegisterServiceRecord(types.RegisterRecordReq{Instance: 0x4001, Record: b}))
	require.NoError(t, c.RegisterServiceRecord(types.RegisterRecordReq{Instance: 0x4002, Record: []byte{0x09, 0x00}}))
	flush(t, c)

	evs := rec.take()
	require.Len(t, evs, 2)
	ok := evs[0].(types.RegisterRecordCfm)
	assert.Equal(t, types.ResultSuccess, ok.Result)
	assert.Equal(t, types.ResultFailed, evs[1].(types.RegisterRecordCfm).Result)

	records := c.LocalRecords()
	require.Len(t, records, 1)
	psm, found := sdp.ExtractL2capPSM(records[ok.ServiceHandle])
	require.True(t, found)
	assert.Equal(t, types.PSM(0x1001), psm)
}

// TestController_SDPSearch 测试远端服务搜索
func TestController_SDPSearch(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	peer := c.AddPeer(remote).AddService(service, 0x1005, "sync")
	require.NoError(t, peer.AddRecord(sdp.NewRecord().
		Add(sdp.AttrServiceClassIDList, sdp.Seq(sdp.UUID16(0x110B))).
		Bytes()))

	session, err := c.OpenSDPSession(0x4001)
	require.NoError(t, err)
	assert.Equal(t, 1, c.OpenSessions())

	search := func(t *testing.T, peer types.TypedAddr, u types.UUID, attrs []byte) types.SDPSearchResult {
		t.Helper()
		require.NoError(t, c.SDPSearch(types.SDPSearchReq{
			Session: session, Peer: peer, ServiceUUID: u, UUIDSize: types.UUIDSize128, AttributeList: attrs,
		}))
		flush(t, c)
		evs := rec.take()
		require.Len(t, evs, 1)
		return evs[0].(types.SDPSearchResult)
	}

	t.Run("按服务类匹配并筛选属性", func(t *testing.T) {
		res := search(t, remote, service, sdp.AttributeIDList(sdp.AttrProtocolDescriptorList))
		require.Equal(t, types.ResultSuccess, res.Result)
		assert.Equal(t, session, res.Session)
		require.Len(t, res.Records, 1)
		attrs, err := sdp.ParseAttributes(res.Records[0].Attributes)
		require.NoError(t, err)
		require.Len(t, attrs, 1)
		psm, ok := sdp.ExtractL2capPSM(res.Records[0].Attributes)
		require.True(t, ok)
		assert.Equal(t, types.PSM(0x1005), psm)
	})

	t.Run("按协议 UUID 匹配", func(t *testing.T) {
		res := search(t, remote, types.UUIDL2CAP, nil)
		require.Equal(t, types.ResultSuccess, res.Result)
		assert.Len(t, res.Records, 1)
	})

	t.Run("没有匹配记录", func(t *testing.T) {
		res := search(t, remote, types.NewUUID16(0x1101), nil)
		assert.Equal(t, types.ResultNoResponseData, res.Result)
		assert.Empty(t, res.Records)
	})

	t.Run("远端不存在", func(t *testing.T) {
		res := search(t, stranger, service, nil)
		assert.Equal(t, types.ResultTimeout, res.Result)
	})

	t.Run("脚本化失败", func(t *testing.T) {
		peer.FailSearches(types.ResultFailed, types.ResultTimeout)
		assert.Equal(t, types.ResultFailed, search(t, remote, service, nil).Result)
		assert.Equal(t, types.ResultTimeout, search(t, remote, service, nil).Result)
		assert.Equal(t, types.ResultSuccess, search(t, remote, service, nil).Result)
	})

	assert.Equal(t, 6, peer.Searches())

	t.Run("会话不存在", func(t *testing.T) {
		err := c.SDPSearch(types.SDPSearchReq{Session: 99, Peer: remote, ServiceUUID: service})
		assert.ErrorIs(t, err, ErrUnknownSession)
	})

	c.CloseSDPSession(session)
	assert.Equal(t, 0, c.OpenSessions())
}

// TestController_Latency 测试投递延迟与会话关闭取消搜索
func TestController_Latency(t *testing.T) {
	mock := clock.NewMock()
	cfg := DefaultConfig()
	cfg.Latency = 10 * time.Millisecond
	c, rec := newTestController(t, cfg, WithClock(mock))
	c.AddPeer(remote).AddService(service, 0x1005, "")

	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))
	assert.Equal(t, 0, rec.len())
	assert.Equal(t, 1, c.Stats().Pending)

	mock.Add(10 * time.Millisecond)
	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)

	session, err := c.OpenSDPSession(0x4001)
	require.NoError(t, err)
	require.NoError(t, c.SDPSearch(types.SDPSearchReq{Session: session, Peer: remote, ServiceUUID: service}))
	c.CloseSDPSession(session)

	dropped := c.Stats().Dropped
	mock.Add(10 * time.Millisecond)
	flush(t, c)
	assert.Equal(t, 1, rec.len())
	assert.Equal(t, dropped+1, c.Stats().Dropped)
}

// TestController_RateLimit 测试命令额度
func TestController_RateLimit(t *testing.T) {
	mock := clock.NewMock()
	cfg := DefaultConfig()
	cfg.EventsPerSecond = 1
	cfg.Burst = 1
	cfg.MaxCreditWait = 1500 * time.Millisecond
	c, rec := newTestController(t, cfg, WithClock(mock))

	for i := 0; i < 2; i++ {
		require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: types.InstanceID(0x4001 + i), PSM: types.PSMDynamic}))
	}
	// 第三个请求需要等待 2 秒，超过上限
	err := c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4003, PSM: types.PSMDynamic})
	assert.ErrorIs(t, err, ErrBusy)

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	mock.Add(time.Second)
	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)

	evs := rec.take()
	assert.Equal(t, types.InstanceID(0x4001), evs[0].(types.RegisterPSMCfm).Instance)
	assert.Equal(t, types.InstanceID(0x4002), evs[1].(types.RegisterPSMCfm).Instance)
}

// TestController_Incoming 测试远端发起的连接
func TestController_Incoming(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)

	_, err := c.InjectIncoming(remote, 0x2001)
	assert.ErrorIs(t, err, ErrPSMNotRegistered)

	accepted, err := c.InjectIncoming(remote, local)
	require.NoError(t, err)
	rejected, err := c.InjectIncoming(stranger, local)
	require.NoError(t, err)
	flush(t, c)

	evs := rec.take()
	require.Len(t, evs, 2)
	ind := evs[0].(types.L2caConnectAcceptInd)
	assert.Equal(t, accepted, ind.ConnectionID)
	assert.Equal(t, local, ind.LocalPSM)
	ind2 := evs[1].(types.L2caConnectAcceptInd)
	assert.NotEqual(t, ind.Identifier, ind2.Identifier)

	// 信令标识不匹配
	err = c.ConnectAcceptResponse(types.ConnectAcceptRsp{ConnectionID: accepted, Identifier: ind2.Identifier, Accept: true})
	assert.ErrorIs(t, err, ErrUnknownConnection)

	require.NoError(t, c.ConnectAcceptResponse(types.ConnectAcceptRsp{
		LocalPSM: local, Peer: remote, Identifier: ind.Identifier, ConnectionID: accepted, Accept: true,
	}))
	require.NoError(t, c.ConnectAcceptResponse(types.ConnectAcceptRsp{
		LocalPSM: local, Peer: stranger, Identifier: ind2.Identifier, ConnectionID: rejected,
	}))
	flush(t, c)

	evs = rec.take()
	require.Len(t, evs, 2)
	assert.Equal(t, types.ResultSuccess, evs[0].(types.L2caConnectAcceptCfm).Result)
	assert.Equal(t, types.ResultRejected, evs[1].(types.L2caConnectAcceptCfm).Result)
	assert.True(t, c.SinkForConnection(accepted).IsValid())
	assert.False(t, c.SinkForConnection(rejected).IsValid())
}

// TestController_Disconnect 测试本端与远端断开
func TestController_Disconnect(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)
	c.AddPeer(remote).Listen(0x1005)
	c.AddPeer(stranger).Listen(0x1005)

	connect := func(peer types.TypedAddr) types.ConnectionID {
		require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: peer}))
		flush(t, c)
		evs := rec.take()
		require.Len(t, evs, 1)
		return evs[0].(types.L2caConnectCfm).ConnectionID
	}
	a, b := connect(remote), connect(stranger)

	t.Run("本端断开", func(t *testing.T) {
		sink := c.SinkForConnection(a)
		require.NoError(t, c.Disconnect(sink))
		assert.ErrorIs(t, c.Disconnect(sink), ErrUnknownSink)
		flush(t, c)

		evs := rec.take()
		require.Len(t, evs, 1)
		assert.Equal(t, types.L2caDisconnectInd{ConnectionID: a, Reason: types.ReasonNormal, LocalTerminated: true}, evs[0])
		assert.False(t, c.SinkForConnection(a).IsValid())
	})

	t.Run("远端断开", func(t *testing.T) {
		require.NoError(t, c.DropLink(b, types.ReasonLinkLoss))
		assert.ErrorIs(t, c.DropLink(b, types.ReasonLinkLoss), ErrUnknownConnection)
		flush(t, c)

		evs := rec.take()
		require.Len(t, evs, 1)
		ind := evs[0].(types.L2caDisconnectInd)
		assert.False(t, ind.LocalTerminated)
		assert.Equal(t, types.ReasonLinkLoss, ind.Reason)

		// 应答前句柄仍然有效
		sink := c.SinkForConnection(b)
		require.True(t, sink.IsValid())
		assert.ErrorIs(t, c.DisconnectResponse(types.DisconnectRsp{Identifier: ind.Identifier + 1, Sink: sink}), ErrUnknownSink)
		require.NoError(t, c.DisconnectResponse(types.DisconnectRsp{Identifier: ind.Identifier, Sink: sink}))
		assert.False(t, c.SinkForConnection(b).IsValid())
		assert.Len(t, c.DisconnectResponses(), 2)
	})

	assert.Empty(t, c.Links())
	assert.ErrorIs(t, c.Disconnect(types.SinkInvalid), ErrUnknownSink)
}

// TestController_DataPath 测试数据通道通知
func TestController_DataPath(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)
	c.AddPeer(remote).Listen(0x1005)

	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: remote}))
	flush(t, c)
	id := rec.take()[0].(types.L2caConnectCfm).ConnectionID
	sink := c.SinkForConnection(id)
	source := c.SourceFromSink(sink)

	assert.ErrorIs(t, c.InjectData(id), ErrNotNotifying)
	assert.ErrorIs(t, c.InjectData(0x7777), ErrUnknownConnection)
	assert.ErrorIs(t, c.EnableNotifications(sink, source+1), ErrUnknownSink)

	require.NoError(t, c.EnableNotifications(sink, source))
	require.NoError(t, c.SetHandoverPolicy(source, types.HandoverAllowWithoutData))
	require.NoError(t, c.InjectData(id))
	require.NoError(t, c.InjectSpace(id))
	flush(t, c)

	assert.Equal(t, []types.TransportEvent{types.MoreData{Source: source}, types.MoreSpace{Sink: sink}}, rec.take())
	links := c.Links()
	require.Len(t, links, 1)
	assert.True(t, links[0].Notify)
	assert.Equal(t, types.HandoverAllowWithoutData, links[0].Policy)

	c.DisposeSource(source)
	assert.Equal(t, []types.Source{source}, c.DisposedSources())
}

// TestController_Close 测试关闭
func TestController_Close(t *testing.T) {
	mock := clock.NewMock()
	cfg := DefaultConfig()
	cfg.Latency = time.Second
	c := New(cfg, WithClock(mock))
	c.SetEventHandler(&recorder{})
	require.NoError(t, c.Start())
	require.NoError(t, c.Start())

	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.EqualValues(t, 1, c.Stats().Dropped)
	assert.ErrorIs(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4002}), ErrClosed)
	_, err := c.OpenSDPSession(0x4001)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Start(), ErrClosed)
	assert.ErrorIs(t, c.Flush(context.Background()), ErrClosed)
	_, err = c.InjectIncoming(remote, 0x1001)
	assert.ErrorIs(t, err, ErrClosed)
}

// TestController_NoHandler 测试没有事件接收者时丢弃事件
func TestController_NoHandler(t *testing.T) {
	c := New(DefaultConfig())
	require.NoError(t, c.Start())
	defer c.Close()

	require.NoError(t, c.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))
	flush(t, c)
	assert.EqualValues(t, 1, c.Stats().Dropped)
	assert.EqualValues(t, 0, c.Stats().Delivered)
}

// TestController_ConnIDWrap 测试连接标识在取值范围内回绕并跳过占用值
func TestController_ConnIDWrap(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)

	first, err := c.InjectIncoming(remote, local)
	require.NoError(t, err)
	assert.Equal(t, connIDFirst, first)

	c.mu.Lock()
	c.nextConn = connIDLast
	c.mu.Unlock()

	last, err := c.InjectIncoming(remote, local)
	require.NoError(t, err)
	assert.Equal(t, connIDLast, last)

	// 回绕后跳过仍在等待应答的 connIDFirst
	wrapped, err := c.InjectIncoming(stranger, local)
	require.NoError(t, err)
	assert.Equal(t, connIDFirst+1, wrapped)

	for _, id := range []types.ConnectionID{first, last, wrapped} {
		cn := &conn{id: id}
		assert.True(t, cn.sink().IsValid(), "connection %#x", id)
		assert.Equal(t, types.Sink(uint16(id)), cn.sink())
		assert.Equal(t, types.Source(uint16(id)|0x8000), cn.source())
	}
	flush(t, c)
	require.Len(t, rec.take(), 3)
}

// TestController_ConnIDExhausted 测试连接标识全部占用
func TestController_ConnIDExhausted(t *testing.T) {
	c, rec := newTestController(t, DefaultConfig())
	local := registerPSM(t, c, rec)
	c.AddPeer(remote).Listen(0x1005)

	c.mu.Lock()
	for id := connIDFirst; id <= connIDLast; id++ {
		c.conns[id] = &conn{id: id, localPSM: local, peer: stranger}
	}
	_, ok := c.allocConnLocked()
	c.mu.Unlock()
	assert.False(t, ok)

	_, err := c.InjectIncoming(remote, local)
	assert.ErrorIs(t, err, ErrNoConnections)

	require.NoError(t, c.Connect(types.ConnectReq{LocalPSM: local, RemotePSM: 0x1005, Peer: remote}))
	flush(t, c)
	evs := rec.take()
	require.Len(t, evs, 1)
	cfm := evs[0].(types.L2caConnectCfm)
	assert.Equal(t, types.ResultNoResources, cfm.Result)
	assert.Equal(t, types.ConnectionIDInvalid, cfm.ConnectionID)

	// 释放一个标识后可以再次分配
	c.mu.Lock()
	delete(c.conns, 0x1234)
	id, ok := c.allocConnLocked()
	c.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, types.ConnectionID(0x1234), id)
}
