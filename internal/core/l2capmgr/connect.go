package l2capmgr

import (
	"fmt"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// connectedEvent 外发确认与接受确认共有的字段
type connectedEvent struct {
	LocalPSM     types.PSM
	Peer         types.TypedAddr
	ConnectionID types.ConnectionID
	MTURemote    uint16
	Result       types.ResultCode
}

// connect 外发连接
func (m *Manager) connect(peer types.TypedAddr, instance types.InstanceID, ctx any) error {
	p := m.mustPSM("Connect", instance)
	if !p.state.IsRegistered() {
		return fmt.Errorf("%w: %s is %s", ErrNotReady, p.id, p.state)
	}

	l, created := m.reg.createLink(p, peer, true)
	if l == nil {
		logger.Warn("链路数达到上限", "instance", p.id, "max", m.cfg.MaxLinksPerPSM)
		return ErrAllocInstance
	}
	if !created && l.state == types.LinkStateDisconnecting {
		return fmt.Errorf("%w: %s on %s", ErrLinkBusy, peer, p.id)
	}
	if !created && l.state.IsActive() {
		logger.Debug("链路已存在，只更新上下文", "link", l.id, "peer", peer, "state", l.state)
		l.ctx = ctx
		return nil
	}
	l.ctx = ctx
	if created {
		m.metrics.LinksActive(m.reg.totalLinks())
	}

	if p.remotePSM == types.PSMInvalid {
		m.lookupCache(p, l)
	}

	if p.remotePSM != types.PSMInvalid {
		m.setLinkState(p, l, types.LinkStateLocalConnecting)
		if err := m.issueConnect(p, l); err != nil {
			m.dropLink("Connect", p, l)
			m.setPSMState(p, types.PSMStateReady)
			return err
		}
		return nil
	}

	m.setLinkState(p, l, types.LinkStateLocalSDPSearch)
	if err := m.beginSearch(p, l); err != nil {
		m.dropLink("Connect", p, l)
		return err
	}
	return nil
}

// lookupCache 用发现缓存填充远端 PSM
func (m *Manager) lookupCache(p *psmInstance, l *linkInstance) {
	if m.cache == nil || p.fns.SDPSearchPattern == nil {
		return
	}
	peer := l.peer
	pattern, err := p.fns.SDPSearchPattern(&peer)
	if err != nil {
		return
	}
	if psm, ok := m.cache.Lookup(l.peer, pattern.ServiceUUID); ok {
		logger.Debug("远端 PSM 命中缓存", "peer", l.peer, "service", pattern.ServiceUUID, "psm", psm)
		p.remotePSM = psm
		l.psmFromCache = true
		l.cachedService = pattern.ServiceUUID
	}
}

// issueConnect 向传输层提交外发连接
func (m *Manager) issueConnect(p *psmInstance, l *linkInstance) error {
	if p.fns.LinkConfig == nil {
		fatalf("Connect", "client of %s provides no link config", p.id)
	}
	cfg, err := p.fns.LinkConfig(l.peer)
	if err != nil {
		fatalf("Connect", "link config for %s: %v", l.peer, err)
	}

	p.pending++
	l.localPending = true
	m.setPSMState(p, types.PSMStateConnecting)
	m.metrics.ConnectIssued(true)

	err = m.tr.Connect(types.ConnectReq{
		Instance:      p.id,
		LocalPSM:      p.localPSM,
		RemotePSM:     p.remotePSM,
		Peer:          l.peer,
		SecurityLevel: cfg.SecurityLevel,
		Conftab:       cfg.Conftab,
	})
	if err != nil {
		p.pending--
		l.localPending = false
		return fmt.Errorf("%w: connect %s: %v", ErrTransport, l.peer, err)
	}

	logger.Debug("提交外发连接", "instance", p.id, "peer", l.peer, "remotePSM", p.remotePSM)
	return nil
}

// failConnect 连接在提交前或提交时失败，通知客户端并释放链路
func (m *Manager) failConnect(p *psmInstance, l *linkInstance, status types.ConnectStatus) {
	ctx := l.ctx
	peer := l.peer
	if p.hasLink(l) {
		m.dropLink("failConnect", p, l)
	}
	m.setPSMState(p, types.PSMStateReady)
	m.notifyConnectCfm(p, &types.ConnectCfm{
		Status:    status,
		LocalPSM:  p.localPSM,
		RemotePSM: types.PSMInvalid,
		Peer:      peer,
	}, ctx)
}

func (m *Manager) notifyConnectCfm(p *psmInstance, cfm *types.ConnectCfm, ctx any) {
	m.metrics.ConnectCompleted(cfm.Status)
	if cfm.Status != types.ConnectSuccess {
		m.events.connectFailedEvt(p, cfm.Peer, cfm.Status)
	}
	if p.fns.HandleConnectCfm != nil {
		p.fns.HandleConnectCfm(cfm, ctx)
	}
}

// handleConnectAcceptInd 处理远端连接指示
//
// 本端连接尚未确认时两个方向共用同一条链路，各自等待自己的确认。
func (m *Manager) handleConnectAcceptInd(ev types.L2caConnectAcceptInd) {
	p := m.reg.psmByLocalPSM(ev.LocalPSM)
	if p == nil {
		fatalf("ConnectAcceptInd", "no registered psm %s", ev.LocalPSM)
	}

	l, created := m.reg.createLink(p, ev.Peer, false)
	if created {
		m.metrics.LinksActive(m.reg.totalLinks())
	}
	if l.state == types.LinkStateLocalSDPSearch {
		m.cancelSearch(p, l)
	}
	crossing := l.localPending
	l.identifier = ev.Identifier
	l.connID = ev.ConnectionID
	m.setLinkState(p, l, types.LinkStateRemoteConnecting)

	rsp := types.ConnectRsp{}
	var ctx any
	if p.fns.RespondConnectInd != nil {
		rsp, ctx = p.fns.RespondConnectInd(&types.ConnectInd{
			LocalPSM:     p.localPSM,
			Peer:         ev.Peer,
			Identifier:   ev.Identifier,
			ConnectionID: ev.ConnectionID,
		})
	}
	l.remoteCtx = ctx
	if !crossing {
		l.ctx = ctx
	}

	p.pending++
	l.remotePending = true
	m.setPSMState(p, types.PSMStateConnecting)
	m.metrics.ConnectIssued(false)

	err := m.tr.ConnectAcceptResponse(types.ConnectAcceptRsp{
		LocalPSM:     p.localPSM,
		Peer:         ev.Peer,
		Identifier:   ev.Identifier,
		ConnectionID: ev.ConnectionID,
		Accept:       rsp.Accept,
		Conftab:      rsp.Conftab,
	})
	if err != nil {
		logger.Warn("提交连接响应失败", "peer", ev.Peer, "error", err)
		p.pending--
		l.remotePending = false
		l.remoteCtx = nil
		if !crossing {
			m.failConnect(p, l, types.ConnectFailed)
			return
		}
		// 本端连接仍在等待确认
		m.setLinkState(p, l, types.LinkStateLocalConnecting)
		m.notifyConnectCfm(p, &types.ConnectCfm{
			Status:    types.ConnectFailed,
			LocalPSM:  p.localPSM,
			RemotePSM: types.PSMInvalid,
			Peer:      ev.Peer,
		}, ctx)
		return
	}

	logger.Debug("响应远端连接", "instance", p.id, "peer", ev.Peer, "accept", rsp.Accept, "crossing", crossing)
}

// handleConnected 处理外发确认与接受确认
//
// 失败时只有在链路上没有另一方向的连接等待确认、且链路未连接时才删除链路。
func (m *Manager) handleConnected(op string, ev connectedEvent) {
	p := m.reg.psmByLocalPSM(ev.LocalPSM)
	if p == nil {
		fatalf(op, "no registered psm %s", ev.LocalPSM)
	}
	if p.pending <= 0 {
		fatalf(op, "no pending connection on %s", p.id)
	}
	p.pending--

	l := p.linkByAddr(ev.Peer)
	if l == nil {
		fatalf(op, "no link to %s on %s", ev.Peer, p.id)
	}
	local := op == "ConnectCfm"
	ctx := l.ctx
	if local {
		l.localPending = false
	} else {
		l.remotePending = false
		ctx = l.remoteCtx
		l.remoteCtx = nil
	}

	cfm := &types.ConnectCfm{
		LocalPSM:  p.localPSM,
		RemotePSM: types.PSMInvalid,
		Peer:      ev.Peer,
	}

	if ev.Result.IsSuccess() {
		sink := m.tr.SinkForConnection(ev.ConnectionID)
		source := m.tr.SourceFromSink(sink)
		l.connID = ev.ConnectionID
		l.sink = sink
		l.source = source
		l.mtuRemote = ev.MTURemote

		if err := m.tr.EnableNotifications(sink, source); err != nil {
			fatalf(op, "enable notifications on sink %d: %v", sink, err)
		}
		if err := m.tr.SetHandoverPolicy(source, types.HandoverAllowWithoutData); err != nil {
			fatalf(op, "set handover policy on source %d: %v", source, err)
		}

		m.setLinkState(p, l, types.LinkStateConnected)
		m.setPSMState(p, types.PSMStateConnected)

		cfm.Status = types.ConnectSuccess
		cfm.Sink = sink
		cfm.ConnectionID = ev.ConnectionID
		cfm.MTURemote = ev.MTURemote
		if local {
			cfm.RemotePSM = p.remotePSM
		}
		logger.Info("链路已连接", "instance", p.id, "peer", ev.Peer, "sink", sink)
	} else {
		logger.Info("连接失败", "instance", p.id, "peer", ev.Peer, "result", ev.Result)
		cfm.Status = types.ConnectFailed

		switch {
		case l.state == types.LinkStateConnected:
			// 另一方向已连接
		case l.localPending:
			m.setLinkState(p, l, types.LinkStateLocalConnecting)
		case l.remotePending:
			m.setLinkState(p, l, types.LinkStateRemoteConnecting)
		default:
			m.dropLink(op, p, l)
			m.setPSMState(p, types.PSMStateReady)
		}

		if local && l.psmFromCache && m.cache != nil {
			m.cache.Forget(l.peer, l.cachedService)
			p.remotePSM = types.PSMInvalid
		}
	}

	if local {
		l.psmFromCache = false
		if l.sdpInitiated {
			l.sdpInitiated = false
			m.closeSession(p)
		}
	}

	m.notifyConnectCfm(p, cfm, ctx)
}
