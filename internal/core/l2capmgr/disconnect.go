package l2capmgr

import (
	"fmt"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// disconnect 本端发起断开
func (m *Manager) disconnect(sink types.Sink, instance types.InstanceID) error {
	if !sink.IsValid() {
		fatalf("Disconnect", "invalid sink")
	}
	p := m.mustPSM("Disconnect", instance)
	l := p.linkBySink(sink)
	if l == nil {
		fatalf("Disconnect", "no link with sink %d on %s", sink, p.id)
	}

	if l.state == types.LinkStateLocalSDPSearch {
		m.cancelSearch(p, l)
	}

	old := l.state
	m.setLinkState(p, l, types.LinkStateDisconnecting)
	if err := m.tr.Disconnect(sink); err != nil {
		m.setLinkState(p, l, old)
		return fmt.Errorf("%w: disconnect sink %d: %v", ErrTransport, sink, err)
	}

	logger.Debug("提交断开请求", "instance", p.id, "peer", l.peer, "sink", sink)
	return nil
}

// handleDisconnectInd 处理断开指示
func (m *Manager) handleDisconnectInd(ev types.L2caDisconnectInd) {
	p, l := m.reg.linkByConnID(ev.ConnectionID)
	if l == nil {
		fatalf("DisconnectInd", "no link with connection %d", ev.ConnectionID)
	}
	status := disconnectStatus(ev.Reason)
	ctx := l.ctx

	if l.source.IsValid() {
		m.tr.DisposeSource(l.source)
	}

	if ev.LocalTerminated {
		if p.fns.HandleDisconnectCfm != nil {
			p.fns.HandleDisconnectCfm(&types.DisconnectCfm{Status: status, Sink: l.sink}, ctx)
		}
	} else {
		sink := m.tr.SinkForConnection(ev.ConnectionID)
		if err := m.tr.DisconnectResponse(types.DisconnectRsp{Identifier: ev.Identifier, Sink: sink}); err != nil {
			logger.Warn("提交断开应答失败", "sink", sink, "error", err)
		}
		if p.fns.RespondDisconnectInd != nil {
			p.fns.RespondDisconnectInd(&types.DisconnectInd{
				Identifier: ev.Identifier,
				Status:     status,
				Sink:       sink,
			}, ctx)
		}
	}

	logger.Info("链路已断开", "instance", p.id, "peer", l.peer, "status", status, "local", ev.LocalTerminated)
	m.dropLink("DisconnectInd", p, l)
	m.setPSMState(p, types.PSMStateReady)
	m.metrics.Disconnected(status, ev.LocalTerminated)
}

// disconnectStatus 把传输层断开码映射为客户端状态
func disconnectStatus(reason types.DisconnectReason) types.DisconnectStatus {
	switch reason {
	case types.ReasonNormal:
		return types.DisconnectSuccessful
	case types.ReasonTimeout:
		return types.DisconnectTimedOut
	case types.ReasonLinkLoss:
		return types.DisconnectLinkLoss
	case types.ReasonLinkTransferred:
		return types.DisconnectTransferred
	default:
		logger.Warn("未知的断开原因", "reason", uint16(reason))
		return types.DisconnectUnknownReason
	}
}
