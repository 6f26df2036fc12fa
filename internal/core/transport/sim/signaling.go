package sim

import (
	"fmt"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// ============================================================================
//                              PSM 注册
// ============================================================================

// RegisterPSM 注册本地 PSM
//
// PSMDynamic 时分配下一个合法的动态 PSM；固定 PSM 已被占用时确认失败。
func (c *Controller) RegisterPSM(req types.RegisterPSMReq) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}

	cfm := types.RegisterPSMCfm{Instance: req.Instance, Result: types.ResultSuccess}
	psm := req.PSM
	switch {
	case psm == types.PSMDynamic:
		psm = c.allocDynamicLocked()
	case !psm.IsValid():
		cfm.Result = types.ResultFailed
	default:
		if _, used := c.localPSMs[psm]; used {
			cfm.Result = types.ResultFailed
		}
	}
	if cfm.Result.IsSuccess() {
		if psm == types.PSMInvalid {
			cfm.Result = types.ResultNoResources
		} else {
			c.localPSMs[psm] = req.Instance
			cfm.LocalPSM = psm
		}
	}
	logger.Debug("注册 PSM", "instance", req.Instance, "psm", psm, "result", cfm.Result)
	c.enqueueLocked(cfm, extra)
	return nil
}

func (c *Controller) allocDynamicLocked() types.PSM {
	for p := c.nextDynamic; p >= types.PSMDynamicMin; p++ {
		if !p.IsValid() {
			continue
		}
		if _, used := c.localPSMs[p]; used {
			continue
		}
		c.nextDynamic = p + 1
		return p
	}
	return types.PSMInvalid
}

// LocalPSMs 返回已注册的本地 PSM
func (c *Controller) LocalPSMs() []types.PSM {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.PSM, 0, len(c.localPSMs))
	for p := range c.localPSMs {
		out = append(out, p)
	}
	return out
}

// ============================================================================
//                              连接
// ============================================================================

// Connect 发起外发连接
//
// 远端不存在时确认超时；远端拒绝或没有监听 RemotePSM 时确认被拒绝。
func (c *Controller) Connect(req types.ConnectReq) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}
	if _, ok := c.localPSMs[req.LocalPSM]; !ok {
		return fmt.Errorf("%w: %s", ErrPSMNotRegistered, req.LocalPSM)
	}

	cfm := types.L2caConnectCfm{LocalPSM: req.LocalPSM, Peer: req.Peer}
	peer := c.peers[req.Peer]
	switch {
	case peer == nil:
		cfm.Result = types.ResultTimeout
	case peer.rejectConnect || !peer.listening(req.RemotePSM):
		cfm.Result = types.ResultRejected
	default:
		id, ok := c.allocConnLocked()
		if !ok {
			cfm.Result = types.ResultNoResources
			break
		}
		cn := &conn{id: id, localPSM: req.LocalPSM, peer: req.Peer}
		c.conns[cn.id] = cn
		cfm.ConnectionID = cn.id
		cfm.MTURemote = c.cfg.MTU
		cfm.Result = types.ResultSuccess
	}
	logger.Debug("外发连接", "peer", req.Peer, "remotePSM", req.RemotePSM, "result", cfm.Result)
	c.enqueueLocked(cfm, extra)
	return nil
}

// ConnectAcceptResponse 响应远端连接指示
func (c *Controller) ConnectAcceptResponse(rsp types.ConnectAcceptRsp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}
	cn, ok := c.incoming[rsp.ConnectionID]
	if !ok || cn.ident != rsp.Identifier {
		return fmt.Errorf("%w: %d", ErrUnknownConnection, rsp.ConnectionID)
	}
	delete(c.incoming, rsp.ConnectionID)

	cfm := types.L2caConnectAcceptCfm{
		LocalPSM:     rsp.LocalPSM,
		Peer:         rsp.Peer,
		ConnectionID: rsp.ConnectionID,
		Result:       types.ResultRejected,
	}
	if rsp.Accept {
		c.conns[cn.id] = cn
		cfm.MTURemote = c.cfg.MTU
		cfm.Result = types.ResultSuccess
	}
	c.enqueueLocked(cfm, extra)
	return nil
}

// Disconnect 本端断开，确认为 LocalTerminated 的断开指示
func (c *Controller) Disconnect(sink types.Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}
	cn := c.connBySinkLocked(sink)
	if cn == nil || cn.closing {
		return fmt.Errorf("%w: %d", ErrUnknownSink, sink)
	}
	cn.closing = true
	c.enqueueLocked(types.L2caDisconnectInd{
		ConnectionID:    cn.id,
		Reason:          types.ReasonNormal,
		LocalTerminated: true,
	}, extra)
	return nil
}

// DisconnectResponse 应答远端断开，释放链路
func (c *Controller) DisconnectResponse(rsp types.DisconnectRsp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.requests.Add(1)
	c.disconnRsp = append(c.disconnRsp, rsp)

	cn := c.connBySinkLocked(rsp.Sink)
	if cn == nil || !cn.remoteEnd || cn.ident != rsp.Identifier {
		return fmt.Errorf("%w: %d", ErrUnknownSink, rsp.Sink)
	}
	delete(c.conns, cn.id)
	return nil
}

// DisconnectResponses 返回收到的断开应答
func (c *Controller) DisconnectResponses() []types.DisconnectRsp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.DisconnectRsp(nil), c.disconnRsp...)
}

func (c *Controller) connBySinkLocked(sink types.Sink) *conn {
	if !sink.IsValid() {
		return nil
	}
	for _, cn := range c.conns {
		if cn.sink() == sink {
			return cn
		}
	}
	return nil
}
