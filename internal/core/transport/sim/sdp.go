package sim

import (
	"fmt"

	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// ============================================================================
//                              远端设备
// ============================================================================

// Peer 模拟的远端设备
//
// 由 Controller.AddPeer 创建，方法都经过控制器加锁。
type Peer struct {
	c    *Controller
	addr types.TypedAddr

	records       [][]sdp.Attribute
	psms          map[types.PSM]bool
	sdpResults    []types.ResultCode
	rejectConnect bool
	searches      int
}

// AddPeer 添加远端设备，已存在时返回原设备
func (c *Controller) AddPeer(addr types.TypedAddr) *Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[addr]; ok {
		return p
	}
	p := &Peer{c: c, addr: addr, psms: make(map[types.PSM]bool)}
	c.peers[addr] = p
	return p
}

// RemovePeer 移除远端设备，之后对其的连接与搜索都会超时
func (c *Controller) RemovePeer(addr types.TypedAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.peers, addr)
}

// Addr 返回设备地址
func (p *Peer) Addr() types.TypedAddr {
	return p.addr
}

// Listen 在 PSM 上接受连接
func (p *Peer) Listen(psm types.PSM) *Peer {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.psms[psm] = true
	return p
}

// AddService 在 PSM 上监听并发布以 L2CAP 为协议栈的服务记录
func (p *Peer) AddService(service types.UUID, psm types.PSM, name string) *Peer {
	rec := sdp.L2capServiceRecord(service, name)
	b, err := sdp.PatchPSM(rec.Record, rec.OffsetToPSM, psm)
	if err != nil {
		panic(err)
	}
	if err := p.AddRecord(b); err != nil {
		panic(err)
	}
	return p.Listen(psm)
}

// AddRecord 发布一条原始服务记录
func (p *Peer) AddRecord(record []byte) error {
	attrs, err := sdp.ParseAttributes(record)
	if err != nil {
		return fmt.Errorf("sim: parse record: %w", err)
	}
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.records = append(p.records, attrs)
	return nil
}

// FailSearches 让之后的搜索依次以给定结果码结束
func (p *Peer) FailSearches(results ...types.ResultCode) *Peer {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.sdpResults = append(p.sdpResults, results...)
	return p
}

// RejectConnections 拒绝所有外发连接
func (p *Peer) RejectConnections(reject bool) *Peer {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.rejectConnect = reject
	return p
}

// Searches 返回收到的搜索次数
func (p *Peer) Searches() int {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.searches
}

func (p *Peer) listening(psm types.PSM) bool {
	return p.psms[psm]
}

// search 在远端记录上执行服务搜索属性请求
func (p *Peer) search(req types.SDPSearchReq) types.SDPSearchResult {
	res := types.SDPSearchResult{Session: req.Session, Peer: req.Peer}
	p.searches++
	if len(p.sdpResults) > 0 {
		res.Result = p.sdpResults[0]
		p.sdpResults = p.sdpResults[1:]
		return res
	}

	for _, attrs := range p.records {
		if !recordHasUUID(attrs, req.ServiceUUID) {
			continue
		}
		b, err := sdp.FilterAttributes(attrs, req.AttributeList)
		if err != nil {
			res.Records = append(res.Records, types.SDPServiceRecord{Result: types.ResultFailed, ServiceUUID: req.ServiceUUID})
			continue
		}
		res.Records = append(res.Records, types.SDPServiceRecord{
			Result:      types.ResultSuccess,
			ServiceUUID: req.ServiceUUID,
			Attributes:  b,
		})
	}
	if len(res.Records) == 0 {
		res.Result = types.ResultNoResponseData
	}
	return res
}

// recordHasUUID 记录的任意属性值中是否出现该 UUID
func recordHasUUID(attrs []sdp.Attribute, u types.UUID) bool {
	for _, a := range attrs {
		if elementHasUUID(a.Value, u) {
			return true
		}
	}
	return false
}

func elementHasUUID(e sdp.Element, u types.UUID) bool {
	if v, ok := e.UUID(); ok {
		return v == u
	}
	for _, it := range e.Items {
		if elementHasUUID(it, u) {
			return true
		}
	}
	return false
}

// ============================================================================
//                              本地 SDP 服务
// ============================================================================

// RegisterServiceRecord 注册本地服务记录
func (c *Controller) RegisterServiceRecord(req types.RegisterRecordReq) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}

	cfm := types.RegisterRecordCfm{Instance: req.Instance}
	if _, err := sdp.ParseAttributes(req.Record); err != nil {
		logger.Warn("服务记录格式错误", "instance", req.Instance, "error", err)
		cfm.Result = types.ResultFailed
	} else {
		h := c.nextHandle
		c.nextHandle++
		c.records[h] = req.Record
		cfm.ServiceHandle = h
		cfm.Result = types.ResultSuccess
	}
	c.enqueueLocked(cfm, extra)
	return nil
}

// LocalRecords 返回已注册的本地服务记录
func (c *Controller) LocalRecords() map[types.ServiceHandle][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[types.ServiceHandle][]byte, len(c.records))
	for h, r := range c.records {
		out[h] = append([]byte(nil), r...)
	}
	return out
}

// ============================================================================
//                              SDP 客户端
// ============================================================================

// OpenSDPSession 创建搜索会话
func (c *Controller) OpenSDPSession(owner types.InstanceID) (types.SDPSessionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return types.SDPSessionInvalid, ErrClosed
	}
	s := c.nextSession
	c.nextSession++
	c.sessions[s] = owner
	return s, nil
}

// SDPSearch 发起搜索
//
// 远端不存在时结果为超时，没有匹配记录时为 ResultNoResponseData。
func (c *Controller) SDPSearch(req types.SDPSearchReq) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	extra, err := c.admitLocked()
	if err != nil {
		return err
	}
	if _, ok := c.sessions[req.Session]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, req.Session)
	}

	var res types.SDPSearchResult
	if peer := c.peers[req.Peer]; peer != nil {
		res = peer.search(req)
	} else {
		res = types.SDPSearchResult{Session: req.Session, Peer: req.Peer, Result: types.ResultTimeout}
	}
	logger.Debug("SDP 搜索", "peer", req.Peer, "service", req.ServiceUUID, "result", res.Result, "records", len(res.Records))
	c.enqueueLocked(res, extra)
	return nil
}

// CloseSDPSession 释放会话，未投递的结果被丢弃
func (c *Controller) CloseSDPSession(session types.SDPSessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, session)
}

// OpenSessions 返回未关闭的会话数
func (c *Controller) OpenSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
