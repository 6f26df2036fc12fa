package l2capmgr

import (
	"go.uber.org/multierr"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// emitters 事件总线发射器集合
//
// 零值（nil）指针上的方法都是空操作，未配置事件总线时无需判空。
type emitters struct {
	psmState      interfaces.Emitter
	linkState     interfaces.Emitter
	registered    interfaces.Emitter
	connectFailed interfaces.Emitter
}

func newEmitters(bus interfaces.EventBus) *emitters {
	e := &emitters{}
	var err error
	if e.psmState, err = bus.Emitter(new(types.EvtPSMStateChanged)); err != nil {
		logger.Warn("创建事件发射器失败", "type", types.EventTypePSMStateChanged, "error", err)
	}
	if e.linkState, err = bus.Emitter(new(types.EvtLinkStateChanged)); err != nil {
		logger.Warn("创建事件发射器失败", "type", types.EventTypeLinkStateChanged, "error", err)
	}
	if e.registered, err = bus.Emitter(new(types.EvtPSMRegistered), interfaces.Stateful()); err != nil {
		logger.Warn("创建事件发射器失败", "type", types.EventTypePSMRegistered, "error", err)
	}
	if e.connectFailed, err = bus.Emitter(new(types.EvtConnectFailed)); err != nil {
		logger.Warn("创建事件发射器失败", "type", types.EventTypeConnectFailed, "error", err)
	}
	return e
}

func emit(em interfaces.Emitter, ev interface{}) {
	if em == nil {
		return
	}
	if err := em.Emit(ev); err != nil {
		logger.Debug("发布事件失败", "error", err)
	}
}

func (e *emitters) psmStateChanged(p *psmInstance, old types.PSMState) {
	if e == nil {
		return
	}
	emit(e.psmState, &types.EvtPSMStateChanged{
		BaseEvent: types.NewBaseEvent(types.EventTypePSMStateChanged),
		Instance:  p.id,
		LocalPSM:  p.localPSM,
		Old:       old,
		New:       p.state,
	})
}

func (e *emitters) linkStateChanged(p *psmInstance, l *linkInstance, old types.LinkState, removed bool) {
	if e == nil {
		return
	}
	emit(e.linkState, &types.EvtLinkStateChanged{
		BaseEvent: types.NewBaseEvent(types.EventTypeLinkStateChanged),
		Instance:  p.id,
		Link:      l.id,
		Peer:      l.peer,
		Old:       old,
		New:       l.state,
		Removed:   removed,
	})
}

func (e *emitters) psmRegistered(p *psmInstance, status types.Status) {
	if e == nil {
		return
	}
	emit(e.registered, &types.EvtPSMRegistered{
		BaseEvent:     types.NewBaseEvent(types.EventTypePSMRegistered),
		Instance:      p.id,
		LocalPSM:      p.localPSM,
		ServiceHandle: p.serviceHandle,
		Status:        status,
	})
}

func (e *emitters) connectFailedEvt(p *psmInstance, peer types.TypedAddr, status types.ConnectStatus) {
	if e == nil {
		return
	}
	emit(e.connectFailed, &types.EvtConnectFailed{
		BaseEvent: types.NewBaseEvent(types.EventTypeConnectFailed),
		Instance:  p.id,
		Peer:      peer,
		Status:    status,
	})
}

func (e *emitters) close() error {
	var err error
	for _, em := range []interfaces.Emitter{e.psmState, e.linkState, e.registered, e.connectFailed} {
		if em != nil {
			err = multierr.Append(err, em.Close())
		}
	}
	return err
}

// nopMetrics 未配置指标时使用
type nopMetrics struct{}

func (nopMetrics) PSMRegistered(types.Status)                {}
func (nopMetrics) ConnectIssued(bool)                        {}
func (nopMetrics) ConnectCompleted(types.ConnectStatus)      {}
func (nopMetrics) SDPSearchStarted(bool)                     {}
func (nopMetrics) SDPSearchFinished(bool)                    {}
func (nopMetrics) Disconnected(types.DisconnectStatus, bool) {}
func (nopMetrics) LinksActive(int)                           {}
