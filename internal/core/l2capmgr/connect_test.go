package l2capmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-l2cap/pkg/types"
	"github.com/dep2p/go-l2cap/tests/mocks"
)

// TestConnect_DiscoverAndConnect 测试先搜索远端 PSM 再连接
func TestConnect_DiscoverAndConnect(t *testing.T) {
	metrics := mocks.NewMockMetrics()
	m, tr := newTestManager(t, DefaultConfig(), WithMetrics(metrics))
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(2)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, "ctx-a"))

	// 搜索已提交
	require.Len(t, tr.OpenSessionCalls, 1)
	assert.Equal(t, id, tr.OpenSessionCalls[0])
	require.Len(t, tr.SearchCalls, 1)
	req := tr.SearchCalls[0]
	assert.Equal(t, peerA, req.Peer)
	assert.Equal(t, service, req.ServiceUUID)
	assert.Equal(t, types.UUIDSize128, req.UUIDSize)
	assert.Equal(t, c.Pattern.AttributeList, req.AttributeList)

	info := psmInfo(t, m, id)
	assert.Equal(t, types.PSMStateSDPSearch, info.State)
	assert.True(t, info.SDPSessionOpen)
	assert.Equal(t, 2, info.SDPMaxRetries)
	l, ok := linkInfo(t, m, id, peerA)
	require.True(t, ok)
	assert.Equal(t, types.LinkStateLocalSDPSearch, l.State)
	assert.True(t, l.ID.IsLink())
	assert.True(t, m.IsConnected(peerA, id))

	// 找到远端 PSM，发起连接
	deliver(t, tr, sdpFound(req.Session, peerA, testRemotePSM))
	require.Len(t, tr.ConnectCalls, 1)
	creq := tr.ConnectCalls[0]
	assert.Equal(t, testLocalPSM, creq.LocalPSM)
	assert.Equal(t, testRemotePSM, creq.RemotePSM)
	assert.Equal(t, peerA, creq.Peer)
	assert.Equal(t, c.LinkConfig.SecurityLevel, creq.SecurityLevel)
	assert.Equal(t, c.LinkConfig.Conftab, creq.Conftab)

	info = psmInfo(t, m, id)
	assert.Equal(t, types.PSMStateConnecting, info.State)
	assert.Equal(t, testRemotePSM, info.RemotePSM)
	assert.Equal(t, 1, info.PendingConnections)
	l, _ = linkInfo(t, m, id, peerA)
	assert.Equal(t, types.LinkStateLocalConnecting, l.State)

	// 连接确认
	deliver(t, tr, types.L2caConnectCfm{LocalPSM: testLocalPSM, Peer: peerA, ConnectionID: 0x41, MTURemote: 895, Result: types.ResultSuccess})

	assert.Equal(t, []mocks.SinkSource{{Sink: 0x41, Source: 0x8041}}, tr.EnableCalls)
	assert.Equal(t, []mocks.HandoverCall{{Source: 0x8041, Policy: types.HandoverAllowWithoutData}}, tr.HandoverCalls)
	assert.Equal(t, []types.SDPSessionID{req.Session}, tr.CloseSessionCalls)

	cfm, ok := c.LastConnectCfm()
	require.True(t, ok)
	assert.Equal(t, types.ConnectSuccess, cfm.Cfm.Status)
	assert.Equal(t, types.Sink(0x41), cfm.Cfm.Sink)
	assert.Equal(t, types.ConnectionID(0x41), cfm.Cfm.ConnectionID)
	assert.Equal(t, testRemotePSM, cfm.Cfm.RemotePSM)
	assert.Equal(t, uint16(895), cfm.Cfm.MTURemote)
	assert.Equal(t, "ctx-a", cfm.Ctx)

	info = psmInfo(t, m, id)
	assert.Equal(t, types.PSMStateConnected, info.State)
	assert.Equal(t, 0, info.PendingConnections)
	assert.False(t, info.SDPSessionOpen)
	l, _ = linkInfo(t, m, id, peerA)
	assert.Equal(t, types.LinkStateConnected, l.State)
	assert.Equal(t, types.Source(0x8041), l.Source)

	assert.Equal(t, 1, metrics.Count("connect_completed:success"))
	assert.Equal(t, 1, metrics.Count("sdp_finished:true"))
	assert.Equal(t, 1, metrics.Active())

	// 远端 PSM 已知，后续对端直接连接
	require.NoError(t, m.Connect(peerB, id, nil))
	assert.Len(t, tr.SearchCalls, 1)
	require.Len(t, tr.ConnectCalls, 2)
	assert.Equal(t, peerB, tr.ConnectCalls[1].Peer)

	t.Log("✅ 搜索后连接测试通过")
}

// TestConnect_SDPRetriesExhausted 测试重试用尽后只通知一次失败
func TestConnect_SDPRetriesExhausted(t *testing.T) {
	metrics := mocks.NewMockMetrics()
	m, tr := newTestManager(t, DefaultConfig(), WithMetrics(metrics))
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(2)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, 7))
	session := tr.SearchCalls[0].Session

	deliver(t, tr, sdpFailed(session, peerA, types.ResultTimeout))
	require.Len(t, tr.SearchCalls, 2)
	assert.Equal(t, 1, psmInfo(t, m, id).SDPSearchAttempts)

	deliver(t, tr, sdpFailed(session, peerA, types.ResultTimeout))
	require.Len(t, tr.SearchCalls, 3)
	assert.Empty(t, c.ConnectCfms)

	deliver(t, tr, sdpFailed(session, peerA, types.ResultTimeout))
	assert.Len(t, tr.SearchCalls, 3)

	require.Len(t, c.ConnectCfms, 1)
	assert.Equal(t, types.ConnectFailedSDPSearch, c.ConnectCfms[0].Cfm.Status)
	assert.Equal(t, types.PSMInvalid, c.ConnectCfms[0].Cfm.RemotePSM)
	assert.Equal(t, 7, c.ConnectCfms[0].Ctx)

	info := psmInfo(t, m, id)
	assert.Equal(t, types.PSMStateReady, info.State)
	assert.Equal(t, 0, info.NumLinks)
	assert.False(t, info.SDPSessionOpen)
	assert.Equal(t, []types.SDPSessionID{session}, tr.CloseSessionCalls)
	assert.False(t, m.IsConnected(peerA, id))

	assert.Equal(t, 1, metrics.Count("sdp_started:false"))
	assert.Equal(t, 2, metrics.Count("sdp_started:true"))
	assert.Equal(t, 1, metrics.Count("connect_completed:failed_sdp_search"))

	t.Log("✅ SDP 重试用尽测试通过")
}

// TestConnect_SDPGiveUp 测试不重试的失败
func TestConnect_SDPGiveUp(t *testing.T) {
	tests := []struct {
		name   string
		result func(types.SDPSessionID) types.SDPSearchResult
	}{
		{"对端没有服务", func(s types.SDPSessionID) types.SDPSearchResult {
			return sdpFailed(s, peerA, types.ResultNoResponseData)
		}},
		{"记录中没有 L2CAP", func(s types.SDPSessionID) types.SDPSearchResult {
			return types.SDPSearchResult{
				Session: s,
				Peer:    peerA,
				Result:  types.ResultSuccess,
				Records: []types.SDPServiceRecord{{Result: types.ResultSuccess, Attributes: []byte{0x35, 0x00}}},
			}
		}},
		{"PSM 非法", func(s types.SDPSessionID) types.SDPSearchResult {
			return sdpFound(s, peerA, 0x1002)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tr := newTestManager(t, DefaultConfig())
			c := mocks.NewMockClient()
			c.Pattern = searchPattern(5)
			id := registerReady(t, m, tr, c)

			require.NoError(t, m.Connect(peerA, id, nil))
			deliver(t, tr, tt.result(tr.SearchCalls[0].Session))

			assert.Len(t, tr.SearchCalls, 1)
			require.Len(t, c.ConnectCfms, 1)
			assert.Equal(t, types.ConnectFailedSDPSearch, c.ConnectCfms[0].Cfm.Status)
			assert.Equal(t, 0, psmInfo(t, m, id).NumLinks)
			assert.Equal(t, 0, tr.OpenSessions())
		})
	}
}

// TestConnect_UnsupportedPattern 测试不支持的 UUID 形式
func TestConnect_UnsupportedPattern(t *testing.T) {
	m, tr := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	c.Pattern = types.SearchPattern{ServiceUUID: types.NewUUID16(0x1101), UUIDSize: types.UUIDSize16}
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, nil))
	assert.Empty(t, tr.OpenSessionCalls)
	assert.Empty(t, tr.SearchCalls)
	require.Len(t, c.ConnectCfms, 1)
	assert.Equal(t, types.ConnectFailedSDPSearch, c.ConnectCfms[0].Cfm.Status)
	assert.Equal(t, 0, psmInfo(t, m, id).NumLinks)

	// 32 位形式要求 UUID 确实是 32 位的
	c.Pattern = types.SearchPattern{ServiceUUID: service, UUIDSize: types.UUIDSize32}
	require.NoError(t, m.Connect(peerA, id, nil))
	assert.Empty(t, tr.SearchCalls)
	assert.Len(t, c.ConnectCfms, 2)

	c.Pattern = types.SearchPattern{ServiceUUID: types.NewUUID32(0x00011101), UUIDSize: types.UUIDSize32}
	require.NoError(t, m.Connect(peerA, id, nil))
	assert.Len(t, tr.SearchCalls, 1)
}

// TestConnect_Failed 测试连接确认失败
func TestConnect_Failed(t *testing.T) {
	m, tr := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(0)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, "x"))
	deliver(t, tr, sdpFound(tr.SearchCalls[0].Session, peerA, testRemotePSM))
	deliver(t, tr, types.L2caConnectCfm{LocalPSM: testLocalPSM, Peer: peerA, Result: types.ResultRejected})

	cfm, ok := c.LastConnectCfm()
	require.True(t, ok)
	assert.Equal(t, types.ConnectFailed, cfm.Cfm.Status)
	assert.Equal(t, "x", cfm.Ctx)
	assert.Empty(t, tr.EnableCalls)

	info := psmInfo(t, m, id)
	assert.Equal(t, types.PSMStateReady, info.State)
	assert.Equal(t, 0, info.NumLinks)
	assert.Equal(t, 0, info.PendingConnections)
	assert.False(t, info.SDPSessionOpen)
	assert.Equal(t, 0, tr.OpenSessions())
}

// TestConnect_NotReady 测试注册完成前连接
func TestConnect_NotReady(t *testing.T) {
	m, _ := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	id, err := m.Register(types.PSMDynamic, c.Functions())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Connect(peerA, id, nil), ErrNotReady)
	assert.Equal(t, 0, psmInfo(t, m, id).NumLinks)
}

// TestConnect_ExistingLink 测试对活动链路重复连接只更新上下文
func TestConnect_ExistingLink(t *testing.T) {
	m, tr := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(0)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, "first"))
	require.NoError(t, m.Connect(peerA, id, "second"))
	assert.Len(t, tr.SearchCalls, 1)
	assert.Equal(t, 1, psmInfo(t, m, id).NumLinks)

	deliver(t, tr, sdpFound(tr.SearchCalls[0].Session, peerA, testRemotePSM))
	deliver(t, tr, types.L2caConnectCfm{LocalPSM: testLocalPSM, Peer: peerA, ConnectionID: 5, Result: types.ResultSuccess})

	cfm, _ := c.LastConnectCfm()
	assert.Equal(t, "second", cfm.Ctx)
	assert.Len(t, c.ConnectCfms, 1)
}

// TestConnect_LinkLimit 测试本端链路上限
func TestConnect_LinkLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLinksPerPSM = 1
	m, tr := newTestManager(t, cfg)
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(0)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, nil))
	assert.ErrorIs(t, m.Connect(peerB, id, nil), ErrAllocInstance)

	// 远端发起的连接不受限制
	deliver(t, tr, types.L2caConnectAcceptInd{LocalPSM: testLocalPSM, Peer: peerB, Identifier: 1, ConnectionID: 9})
	assert.Equal(t, 2, psmInfo(t, m, id).NumLinks)
}

// TestConnect_TransportErrors 测试同步提交失败
func TestConnect_TransportErrors(t *testing.T) {
	t.Run("打开会话失败", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		tr.OpenSDPSessionFunc = func(types.InstanceID) (types.SDPSessionID, error) {
			return types.SDPSessionInvalid, errors.New("no sdp")
		}
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		assert.ErrorIs(t, m.Connect(peerA, id, nil), ErrTransport)
		assert.Equal(t, 0, psmInfo(t, m, id).NumLinks)
		assert.Empty(t, c.ConnectCfms)
	})

	t.Run("提交搜索失败", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		tr.SDPSearchFunc = func(types.SDPSearchReq) error { return errors.New("no sdp") }
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		assert.ErrorIs(t, m.Connect(peerA, id, nil), ErrTransport)
		info := psmInfo(t, m, id)
		assert.Equal(t, 0, info.NumLinks)
		assert.Equal(t, types.PSMStateReady, info.State)
		assert.Equal(t, 0, tr.OpenSessions())
	})

	t.Run("重试提交失败", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(3)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		tr.SDPSearchFunc = func(types.SDPSearchReq) error { return errors.New("gone") }
		deliver(t, tr, sdpFailed(tr.SearchCalls[0].Session, peerA, types.ResultFailed))

		require.Len(t, c.ConnectCfms, 1)
		assert.Equal(t, types.ConnectFailedSDPSearch, c.ConnectCfms[0].Cfm.Status)
		assert.Equal(t, 0, psmInfo(t, m, id).NumLinks)
	})

	t.Run("搜索后连接提交失败", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		tr.ConnectFunc = func(types.ConnectReq) error { return errors.New("no channel") }
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		deliver(t, tr, sdpFound(tr.SearchCalls[0].Session, peerA, testRemotePSM))

		require.Len(t, c.ConnectCfms, 1)
		assert.Equal(t, types.ConnectFailed, c.ConnectCfms[0].Cfm.Status)
		info := psmInfo(t, m, id)
		assert.Equal(t, 0, info.NumLinks)
		assert.Equal(t, 0, info.PendingConnections)
		assert.Equal(t, 0, tr.OpenSessions())
	})
}

// TestConnect_SDPQueue 测试会话忙时排队
func TestConnect_SDPQueue(t *testing.T) {
	t.Run("成功后排队链路直接连接", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		require.NoError(t, m.Connect(peerB, id, nil))
		assert.Len(t, tr.SearchCalls, 1)
		assert.Equal(t, 1, psmInfo(t, m, id).SDPQueued)

		deliver(t, tr, sdpFound(tr.SearchCalls[0].Session, peerA, testRemotePSM))
		require.Len(t, tr.ConnectCalls, 2)
		assert.Equal(t, peerA, tr.ConnectCalls[0].Peer)
		assert.Equal(t, peerB, tr.ConnectCalls[1].Peer)
		assert.Equal(t, testRemotePSM, tr.ConnectCalls[1].RemotePSM)

		info := psmInfo(t, m, id)
		assert.Equal(t, 0, info.SDPQueued)
		assert.Equal(t, 2, info.PendingConnections)
	})

	t.Run("失败后为下一个对端搜索", func(t *testing.T) {
		m, tr := newTestManager(t, DefaultConfig())
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		require.NoError(t, m.Connect(peerB, id, nil))

		deliver(t, tr, sdpFailed(tr.SearchCalls[0].Session, peerA, types.ResultNoResponseData))

		require.Len(t, c.ConnectCfms, 1)
		assert.Equal(t, peerA, c.ConnectCfms[0].Cfm.Peer)
		require.Len(t, tr.SearchCalls, 2)
		assert.Equal(t, peerB, tr.SearchCalls[1].Peer)
		assert.Len(t, tr.OpenSessionCalls, 2)
		assert.Equal(t, 1, tr.OpenSessions())

		_, ok := linkInfo(t, m, id, peerA)
		assert.False(t, ok)
		l, ok := linkInfo(t, m, id, peerB)
		require.True(t, ok)
		assert.Equal(t, types.LinkStateLocalSDPSearch, l.State)
		assert.Equal(t, types.PSMStateSDPSearch, psmInfo(t, m, id).State)
	})

	t.Run("不排队", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.QueueSDPSearches = false
		m, tr := newTestManager(t, cfg)
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		assert.ErrorIs(t, m.Connect(peerB, id, nil), ErrSDPBusy)
		assert.Equal(t, 1, psmInfo(t, m, id).NumLinks)
	})
}

// TestConnect_StaleSDPResult 测试过期的搜索结果被丢弃
func TestConnect_StaleSDPResult(t *testing.T) {
	m, tr := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(0)
	id := registerReady(t, m, tr, c)

	deliver(t, tr, sdpFound(99, peerA, testRemotePSM))
	deliver(t, tr, sdpFound(types.SDPSessionInvalid, peerA, testRemotePSM))

	require.NoError(t, m.Connect(peerA, id, nil))
	session := tr.SearchCalls[0].Session

	// 对端不一致
	deliver(t, tr, sdpFound(session, peerB, testRemotePSM))
	assert.Empty(t, tr.ConnectCalls)

	// 未携带会话时按状态匹配
	deliver(t, tr, sdpFound(types.SDPSessionInvalid, peerA, testRemotePSM))
	assert.Len(t, tr.ConnectCalls, 1)

	// 搜索已结束后的重复结果
	deliver(t, tr, sdpFound(session, peerA, testRemotePSM))
	assert.Len(t, tr.ConnectCalls, 1)
}

// TestConnect_SDPRetryDelay 测试延迟重试
func TestConnect_SDPRetryDelay(t *testing.T) {
	clk := clock.NewMock()
	cfg := DefaultConfig()
	cfg.SDPRetryDelay = time.Second
	m, tr := newTestManager(t, cfg, WithClock(clk))
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(1)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, nil))
	deliver(t, tr, sdpFailed(tr.SearchCalls[0].Session, peerA, types.ResultTimeout))
	assert.Equal(t, 1, tr.SearchCount())

	require.NotNil(t, retryTimer(t, m, id))

	clk.Add(time.Second)
	require.Eventually(t, func() bool { return tr.SearchCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, psmInfo(t, m, id).SDPSearchAttempts)
	assert.Nil(t, retryTimer(t, m, id))
}

// TestConnect_SDPRetryDelay_Canceled 测试定时器触发前搜索已结束
func TestConnect_SDPRetryDelay_Canceled(t *testing.T) {
	clk := clock.NewMock()
	cfg := DefaultConfig()
	cfg.SDPRetryDelay = time.Second
	m, tr := newTestManager(t, cfg, WithClock(clk))
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(1)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, nil))
	deliver(t, tr, sdpFailed(tr.SearchCalls[0].Session, peerA, types.ResultTimeout))

	timer := retryTimer(t, m, id)
	require.NotNil(t, timer)

	// 远端此时发起连接，取消搜索并停止定时器
	deliver(t, tr, types.L2caConnectAcceptInd{LocalPSM: testLocalPSM, Peer: peerA, Identifier: 2, ConnectionID: 11})
	assert.Equal(t, 0, tr.OpenSessions())
	assert.Nil(t, retryTimer(t, m, id))
	assert.False(t, timer.Stop(), "retry timer still armed")

	clk.Add(time.Second)
	// 投递一次同步调用，确保定时任务已处理完
	time.Sleep(20 * time.Millisecond)
	_, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tr.SearchCount())
}

// TestConnect_SDPRetryDelay_Close 测试关闭管理器时停止等待中的重试
func TestConnect_SDPRetryDelay_Close(t *testing.T) {
	clk := clock.NewMock()
	cfg := DefaultConfig()
	cfg.SDPRetryDelay = time.Second
	m, tr := newTestManager(t, cfg, WithClock(clk))
	c := mocks.NewMockClient()
	c.Pattern = searchPattern(1)
	id := registerReady(t, m, tr, c)

	require.NoError(t, m.Connect(peerA, id, nil))
	deliver(t, tr, sdpFailed(tr.SearchCalls[0].Session, peerA, types.ResultTimeout))
	timer := retryTimer(t, m, id)
	require.NotNil(t, timer)

	require.NoError(t, m.Close())
	assert.False(t, timer.Stop(), "retry timer still armed")

	clk.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, tr.SearchCount())
}

// TestConnect_PSMCache 测试远端 PSM 发现缓存
func TestConnect_PSMCache(t *testing.T) {
	t.Run("搜索成功写入缓存", func(t *testing.T) {
		cache := mocks.NewMockPSMCache()
		m, tr := newTestManager(t, DefaultConfig(), WithPSMCache(cache))
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		deliver(t, tr, sdpFound(tr.SearchCalls[0].Session, peerA, testRemotePSM))

		psm, ok := cache.Lookup(peerA, service)
		require.True(t, ok)
		assert.Equal(t, testRemotePSM, psm)
	})

	t.Run("命中缓存跳过搜索", func(t *testing.T) {
		cache := mocks.NewMockPSMCache()
		cache.Remember(peerA, service, 0x1003)
		m, tr := newTestManager(t, DefaultConfig(), WithPSMCache(cache))
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		require.NoError(t, m.Connect(peerA, id, nil))
		assert.Empty(t, tr.SearchCalls)
		require.Len(t, tr.ConnectCalls, 1)
		assert.Equal(t, types.PSM(0x1003), tr.ConnectCalls[0].RemotePSM)

		// 缓存的 PSM 连接失败后被删除
		deliver(t, tr, types.L2caConnectCfm{LocalPSM: testLocalPSM, Peer: peerA, Result: types.ResultRejected})
		assert.Equal(t, 1, cache.ForgetCalls)
		_, ok := cache.Lookup(peerA, service)
		assert.False(t, ok)
		assert.Equal(t, types.PSMInvalid, psmInfo(t, m, id).RemotePSM)

		// 下一次连接重新搜索
		require.NoError(t, m.Connect(peerA, id, nil))
		assert.Len(t, tr.SearchCalls, 1)
	})

	t.Run("命中缓存但提交失败", func(t *testing.T) {
		cache := mocks.NewMockPSMCache()
		cache.Remember(peerA, service, 0x1003)
		m, tr := newTestManager(t, DefaultConfig(), WithPSMCache(cache))
		tr.ConnectFunc = func(types.ConnectReq) error { return errors.New("no channel") }
		c := mocks.NewMockClient()
		c.Pattern = searchPattern(0)
		id := registerReady(t, m, tr, c)

		assert.ErrorIs(t, m.Connect(peerA, id, nil), ErrTransport)
		info := psmInfo(t, m, id)
		assert.Equal(t, 0, info.NumLinks)
		assert.Equal(t, 0, info.PendingConnections)
		assert.Equal(t, types.PSMStateReady, info.State)
	})
}

// TestConnect_MissingCallbacks 测试客户端缺少必需回调
func TestConnect_MissingCallbacks(t *testing.T) {
	m, tr := newTestManager(t, DefaultConfig())
	c := mocks.NewMockClient()
	fns := c.Functions()
	fns.SDPSearchPattern = nil
	id, err := m.Register(types.PSMDynamic, fns)
	require.NoError(t, err)
	deliver(t, tr, types.RegisterPSMCfm{Instance: id, LocalPSM: testLocalPSM, Result: types.ResultSuccess})

	requireFatal(t, func() { _ = m.Connect(peerA, id, nil) })
}
