package l2capmgr

import "github.com/dep2p/go-l2cap/pkg/types"

// handleMoreData 读端有新数据
func (m *Manager) handleMoreData(ev types.MoreData) {
	sink := m.tr.SinkFromSource(ev.Source)
	p, l := m.reg.linkBySink(sink)
	if l == nil {
		fatalf("MoreData", "no link for source %d", ev.Source)
	}
	if l.source != ev.Source {
		fatalf("MoreData", "source %d does not belong to link %s", ev.Source, l.id)
	}
	if p.fns.HasFlowHandlers() {
		p.fns.ProcessMoreData(&types.MoreDataInfo{ConnectionID: l.connID, Source: ev.Source}, l.ctx)
	}
}

// handleMoreSpace 写端有可用空间
//
// 链路可能刚被删除，找不到时忽略。
func (m *Manager) handleMoreSpace(ev types.MoreSpace) {
	p, l := m.reg.linkBySink(ev.Sink)
	if l == nil {
		logger.Debug("MoreSpace 对应的链路不存在", "sink", ev.Sink)
		return
	}
	if p.fns.HasFlowHandlers() {
		p.fns.ProcessMoreSpace(&types.MoreSpaceInfo{ConnectionID: l.connID, Sink: ev.Sink}, l.ctx)
	}
}
