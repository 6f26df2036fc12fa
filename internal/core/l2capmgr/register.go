package l2capmgr

import (
	"fmt"

	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// register 创建 PSM 实例并向传输层注册
func (m *Manager) register(psm types.PSM, fns interfaces.Functions) (types.InstanceID, error) {
	p := m.reg.createPSM(fns)
	if p == nil {
		logger.Warn("PSM 实例数达到上限", "max", m.cfg.MaxPSMInstances)
		return types.InstanceIDInvalid, ErrAllocInstance
	}
	m.setPSMState(p, types.PSMStatePSMRegistration)

	if err := m.tr.RegisterPSM(types.RegisterPSMReq{Instance: p.id, PSM: psm}); err != nil {
		m.reg.removePSM(p)
		return types.InstanceIDInvalid, fmt.Errorf("%w: register psm %s: %v", ErrTransport, psm, err)
	}

	logger.Debug("提交 PSM 注册", "instance", p.id, "psm", psm)
	return p.id, nil
}

// handleRegisterPSMCfm 处理 PSM 注册确认
func (m *Manager) handleRegisterPSMCfm(ev types.RegisterPSMCfm) {
	p := m.pendingRegistration(ev.Instance, types.PSMStatePSMRegistration)
	if p == nil {
		fatalf("RegisterPSMCfm", "no psm instance awaiting registration (instance %s)", ev.Instance)
	}

	if !ev.Result.IsSuccess() {
		m.registrationFailed(p, "RegisterPSMCfm", ev.Result)
		return
	}
	p.localPSM = ev.LocalPSM

	var rec types.SDPRecord
	ok := false
	if p.fns.SDPRecord != nil {
		rec, ok = p.fns.SDPRecord(p.localPSM)
	}
	if !ok || rec.IsEmpty() {
		logger.Info("PSM 已注册，未发布服务记录", "instance", p.id, "psm", p.localPSM)
		m.setPSMState(p, types.PSMStateReady)
		m.notifyRegistered(p, types.StatusSuccess)
		return
	}

	buf, err := sdp.PatchPSM(rec.Record, rec.OffsetToPSM, p.localPSM)
	if err != nil {
		fatalf("RegisterPSMCfm", "patch service record: %v", err)
	}
	p.sdpRecord = buf
	m.setPSMState(p, types.PSMStateSDPRegistration)

	if err := m.tr.RegisterServiceRecord(types.RegisterRecordReq{Instance: p.id, Record: p.sdpRecord}); err != nil {
		logger.Warn("提交服务记录失败", "instance", p.id, "error", err)
		m.registrationFailed(p, "RegisterPSMCfm", types.ResultFailed)
	}
}

// handleRegisterRecordCfm 处理服务记录注册确认
func (m *Manager) handleRegisterRecordCfm(ev types.RegisterRecordCfm) {
	p := m.pendingRegistration(ev.Instance, types.PSMStateSDPRegistration)
	if p == nil {
		fatalf("RegisterRecordCfm", "no psm instance awaiting record registration (instance %s)", ev.Instance)
	}

	switch {
	case ev.Result.IsSuccess():
		p.serviceHandle = ev.ServiceHandle
		p.sdpRecord = nil
		logger.Info("PSM 与服务记录已注册", "instance", p.id, "psm", p.localPSM, "handle", p.serviceHandle)
		m.setPSMState(p, types.PSMStateReady)
		m.notifyRegistered(p, types.StatusSuccess)
	case ev.Result == types.ResultPending:
		logger.Warn("服务记录注册挂起，等待最终确认", "instance", p.id)
	default:
		m.registrationFailed(p, "RegisterRecordCfm", ev.Result)
	}
}

// pendingRegistration 查找等待确认的实例
//
// 确认携带实例标识时按标识查找，否则取第一个处于 state 的实例。
func (m *Manager) pendingRegistration(id types.InstanceID, state types.PSMState) *psmInstance {
	if id != types.InstanceIDInvalid {
		p := m.reg.psmByID(id)
		if p == nil || p.state != state {
			return nil
		}
		return p
	}
	return m.reg.psmByState(state)
}

// registrationFailed 注册失败
func (m *Manager) registrationFailed(p *psmInstance, op string, result types.ResultCode) {
	if m.cfg.FatalOnRegistrationFailure {
		fatalf(op, "registration of %s failed: %s", p.id, result)
	}
	logger.Warn("PSM 注册失败", "instance", p.id, "state", p.state, "result", result)
	p.sdpRecord = nil
	m.setPSMState(p, types.PSMStateRegistrationFailed)
	m.notifyRegistered(p, types.StatusFailed)
}

func (m *Manager) notifyRegistered(p *psmInstance, status types.Status) {
	m.metrics.PSMRegistered(status)
	m.events.psmRegistered(p, status)
	if p.fns.Registered != nil {
		p.fns.Registered(status)
	}
}
