package l2capmgr

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// ============================================================================
//                              发起搜索
// ============================================================================

// beginSearch 为链路开始远端 PSM 发现
//
// 会话正在为其他链路搜索时按配置排队或返回 ErrSDPBusy。
// 返回的 error 只表示搜索未能提交，此时没有发出任何通知。
func (m *Manager) beginSearch(p *psmInstance, l *linkInstance) error {
	if p.searching != nil && p.searching != l {
		if !m.cfg.QueueSDPSearches {
			return ErrSDPBusy
		}
		p.sdpQueue = append(p.sdpQueue, l)
		logger.Debug("SDP 会话忙，搜索排队", "instance", p.id, "peer", l.peer, "queued", len(p.sdpQueue))
		return nil
	}

	if p.fns.SDPSearchPattern == nil {
		fatalf("Connect", "client of %s provides no sdp search pattern", p.id)
	}
	peer := l.peer
	pattern, err := p.fns.SDPSearchPattern(&peer)
	if err != nil {
		fatalf("Connect", "sdp search pattern for %s: %v", l.peer, err)
	}

	p.sdpPattern = pattern
	p.sdpAttempts = 0
	p.sdpMaxRetries = pattern.MaxRetries
	p.searching = l

	if !supportedPattern(pattern) {
		logger.Warn("不支持的服务 UUID 形式", "instance", p.id, "size", pattern.UUIDSize, "uuid", pattern.ServiceUUID)
		m.giveUpSearch(p, l)
		return nil
	}

	if p.sdpSession == types.SDPSessionInvalid {
		session, err := m.tr.OpenSDPSession(p.id)
		if err != nil {
			p.searching = nil
			return fmt.Errorf("%w: open sdp session: %v", ErrTransport, err)
		}
		p.sdpSession = session
	}

	m.setPSMState(p, types.PSMStateSDPSearch)
	if err := m.submitSearch(p, l, false); err != nil {
		p.searching = nil
		m.closeSession(p)
		m.setPSMState(p, types.PSMStateReady)
		return err
	}
	return nil
}

// supportedPattern 只支持 32 位与 128 位服务 UUID
func supportedPattern(pattern types.SearchPattern) bool {
	switch pattern.UUIDSize {
	case types.UUIDSize32:
		return pattern.ServiceUUID.Is32Bit()
	case types.UUIDSize128:
		return true
	default:
		return false
	}
}

// submitSearch 在已打开的会话上提交一次搜索
func (m *Manager) submitSearch(p *psmInstance, l *linkInstance, retry bool) error {
	m.metrics.SDPSearchStarted(retry)
	err := m.tr.SDPSearch(types.SDPSearchReq{
		Session:       p.sdpSession,
		Peer:          l.peer,
		ServiceUUID:   p.sdpPattern.ServiceUUID,
		UUIDSize:      p.sdpPattern.UUIDSize,
		AttributeList: p.sdpPattern.AttributeList,
	})
	if err != nil {
		return fmt.Errorf("%w: sdp search %s: %v", ErrTransport, l.peer, err)
	}
	logger.Debug("发起 SDP 搜索", "instance", p.id, "peer", l.peer, "attempt", p.sdpAttempts, "retry", retry)
	return nil
}

// ============================================================================
//                              搜索结果
// ============================================================================

// handleSDPSearchResult 处理 SDP 搜索结果
func (m *Manager) handleSDPSearchResult(ev types.SDPSearchResult) {
	p := m.reg.psmBySession(ev.Session)
	if p == nil && ev.Session == types.SDPSessionInvalid {
		p = m.reg.psmByState(types.PSMStateSDPSearch)
	}
	if p == nil || p.searching == nil {
		logger.Debug("丢弃过期的 SDP 搜索结果", "session", ev.Session, "result", ev.Result)
		return
	}
	l := p.searching
	if !ev.Peer.Addr.IsZero() && ev.Peer != l.peer {
		logger.Warn("SDP 结果的对端与正在搜索的对端不一致", "want", l.peer, "got", ev.Peer)
		return
	}

	switch {
	case ev.Result.IsSuccess():
		if psm, ok := firstL2capPSM(ev.Records); ok {
			m.searchFound(p, l, psm)
			return
		}
		logger.Warn("服务记录中没有可用的 L2CAP PSM", "instance", p.id, "peer", l.peer, "records", len(ev.Records))
		m.giveUpSearch(p, l)

	case ev.Result == types.ResultNoResponseData:
		logger.Info("对端没有匹配的服务", "instance", p.id, "peer", l.peer)
		m.giveUpSearch(p, l)

	default:
		p.sdpAttempts++
		if p.sdpAttempts <= p.sdpMaxRetries {
			m.retrySearch(p, l)
			return
		}
		logger.Info("SDP 搜索重试次数用尽", "instance", p.id, "peer", l.peer, "attempts", p.sdpAttempts)
		m.giveUpSearch(p, l)
	}
}

// firstL2capPSM 返回第一条能解析出 L2CAP PSM 的记录
func firstL2capPSM(records []types.SDPServiceRecord) (types.PSM, bool) {
	for _, rec := range records {
		if !rec.Result.IsSuccess() {
			continue
		}
		if psm, ok := sdp.ExtractL2capPSM(rec.Attributes); ok {
			return psm, true
		}
	}
	return types.PSMInvalid, false
}

// searchFound 发现远端 PSM，直接发起连接
func (m *Manager) searchFound(p *psmInstance, l *linkInstance, psm types.PSM) {
	logger.Info("发现远端 PSM", "instance", p.id, "peer", l.peer, "psm", psm)
	p.remotePSM = psm
	p.searching = nil
	m.stopRetry(p)
	m.metrics.SDPSearchFinished(true)
	if m.cache != nil {
		m.cache.Remember(l.peer, p.sdpPattern.ServiceUUID, psm)
	}

	l.sdpInitiated = true
	m.setLinkState(p, l, types.LinkStateLocalConnecting)
	if err := m.issueConnect(p, l); err != nil {
		logger.Warn("SDP 搜索后连接提交失败", "peer", l.peer, "error", err)
		l.sdpInitiated = false
		m.failConnect(p, l, types.ConnectFailed)
		m.closeSession(p)
	}
	m.drainSDPQueue(p)
}

// retrySearch 按配置立即或延迟重试
func (m *Manager) retrySearch(p *psmInstance, l *linkInstance) {
	logger.Debug("SDP 搜索失败，重试", "instance", p.id, "attempt", p.sdpAttempts, "max", p.sdpMaxRetries)
	if m.cfg.SDPRetryDelay <= 0 {
		m.resubmit(p, l)
		return
	}
	m.stopRetry(p)
	var timer *clock.Timer
	timer = m.clock.AfterFunc(m.cfg.SDPRetryDelay, func() {
		m.loop.post(func() {
			if p.sdpRetry != timer {
				return
			}
			p.sdpRetry = nil
			if m.reg.psmByID(p.id) != p || p.searching != l {
				return
			}
			m.resubmit(p, l)
		})
	})
	p.sdpRetry = timer
}

// stopRetry 停止等待中的延迟重试
func (m *Manager) stopRetry(p *psmInstance) {
	if p.sdpRetry == nil {
		return
	}
	p.sdpRetry.Stop()
	p.sdpRetry = nil
}

func (m *Manager) resubmit(p *psmInstance, l *linkInstance) {
	if err := m.submitSearch(p, l, true); err != nil {
		logger.Warn("SDP 重试提交失败", "peer", l.peer, "error", err)
		m.giveUpSearch(p, l)
	}
}

// giveUpSearch 搜索失败，通知客户端
//
// 链路先标记为 DISCONNECTED，会话关闭与链路删除在本轮的延迟任务中完成。
func (m *Manager) giveUpSearch(p *psmInstance, l *linkInstance) {
	p.searching = nil
	m.stopRetry(p)
	m.metrics.SDPSearchFinished(false)
	m.setLinkState(p, l, types.LinkStateDisconnected)
	m.setPSMState(p, types.PSMStateReady)

	m.notifyConnectCfm(p, &types.ConnectCfm{
		Status:    types.ConnectFailedSDPSearch,
		LocalPSM:  p.localPSM,
		RemotePSM: types.PSMInvalid,
		Peer:      l.peer,
	}, l.ctx)

	m.loop.later(func() {
		m.finishSearch(p, l)
	})
}

// finishSearch 关闭会话、删除已断开的链路并启动下一个排队的搜索
func (m *Manager) finishSearch(p *psmInstance, l *linkInstance) {
	if m.reg.psmByID(p.id) != p {
		return
	}
	m.closeSession(p)
	if p.hasLink(l) && l.state == types.LinkStateDisconnected {
		m.dropLink("finishSearch", p, l)
	}
	m.drainSDPQueue(p)
}

// closeSession 会话空闲时关闭
func (m *Manager) closeSession(p *psmInstance) {
	if p.sdpSession == types.SDPSessionInvalid || p.searching != nil {
		return
	}
	m.tr.CloseSDPSession(p.sdpSession)
	logger.Debug("关闭 SDP 会话", "instance", p.id, "session", p.sdpSession)
	p.sdpSession = types.SDPSessionInvalid
}

// cancelSearch 取消链路的搜索或排队
func (m *Manager) cancelSearch(p *psmInstance, l *linkInstance) {
	p.dequeue(l)
	if p.searching != l {
		return
	}
	p.searching = nil
	m.stopRetry(p)
	m.metrics.SDPSearchFinished(false)
	m.closeSession(p)
	m.loop.later(func() {
		m.drainSDPQueue(p)
	})
}

// drainSDPQueue 依次处理排队的链路
//
// 远端 PSM 已知时直接连接，否则为队首链路发起新的搜索。
func (m *Manager) drainSDPQueue(p *psmInstance) {
	for len(p.sdpQueue) > 0 && p.searching == nil {
		l := p.sdpQueue[0]
		p.sdpQueue = p.sdpQueue[1:]
		if !p.hasLink(l) || l.state != types.LinkStateLocalSDPSearch {
			continue
		}

		if p.remotePSM != types.PSMInvalid {
			m.setLinkState(p, l, types.LinkStateLocalConnecting)
			if err := m.issueConnect(p, l); err != nil {
				logger.Warn("排队链路连接提交失败", "peer", l.peer, "error", err)
				m.failConnect(p, l, types.ConnectFailed)
			}
			continue
		}

		if err := m.beginSearch(p, l); err != nil {
			logger.Warn("排队链路搜索提交失败", "peer", l.peer, "error", err)
			m.failConnect(p, l, types.ConnectFailedSDPSearch)
		}
	}
}
