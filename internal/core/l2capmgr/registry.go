package l2capmgr

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// ============================================================================
//                              实例定义
// ============================================================================

// linkInstance 一条到对端的链路
type linkInstance struct {
	id    types.InstanceID
	peer  types.TypedAddr
	state types.LinkState

	connID     types.ConnectionID
	identifier types.Identifier
	sink       types.Sink
	source     types.Source
	mtuRemote  uint16

	// ctx 客户端附加的上下文，原样回传给回调
	ctx any

	// localPending 本端发起的连接已提交但尚未确认
	localPending bool

	// remotePending 远端发起的连接已应答但尚未确认
	remotePending bool

	// remoteCtx 远端连接应答时客户端返回的上下文
	remoteCtx any

	// sdpInitiated 本链路的连接请求由 SDP 搜索结果触发
	sdpInitiated bool

	// psmFromCache 连接使用的远端 PSM 来自发现缓存
	psmFromCache  bool
	cachedService types.UUID
}

// psmInstance 一个本地 PSM 注册
type psmInstance struct {
	id    types.InstanceID
	state types.PSMState
	fns   interfaces.Functions

	localPSM      types.PSM
	remotePSM     types.PSM
	serviceHandle types.ServiceHandle

	// sdpRecord 待注册的服务记录，注册成功后所有权归传输层
	sdpRecord []byte

	// pending 已提交但尚未确认的连接数
	pending int

	sdpSession    types.SDPSessionID
	sdpAttempts   int
	sdpMaxRetries int
	sdpPattern    types.SearchPattern
	searching     *linkInstance
	sdpQueue      []*linkInstance

	// sdpRetry 等待触发的延迟重试
	sdpRetry *clock.Timer

	links    []*linkInstance
	numLinks int
}

// ============================================================================
//                              注册表
// ============================================================================

// registry PSM 与链路实例表，只在事件循环中访问
type registry struct {
	psms        []*psmInstance
	psmCounter  uint16
	linkCounter uint16

	maxPSMs  int
	maxLinks int
}

func newRegistry(maxPSMs, maxLinks int) *registry {
	return &registry{maxPSMs: maxPSMs, maxLinks: maxLinks}
}

// nextID 分配未被占用的实例标识，计数器按种类独立回绕
func (r *registry) nextID(kind types.InstanceKind, inUse func(types.InstanceID) bool) types.InstanceID {
	counter := &r.psmCounter
	if kind == types.InstanceKindLink {
		counter = &r.linkCounter
	}
	for {
		id := types.NewInstanceID(kind, *counter)
		*counter++
		if !inUse(id) {
			return id
		}
	}
}

// createPSM 创建 PSM 实例，达到上限时返回 nil
func (r *registry) createPSM(fns interfaces.Functions) *psmInstance {
	if len(r.psms) >= r.maxPSMs {
		return nil
	}
	p := &psmInstance{
		id:         r.nextID(types.InstanceKindPSM, func(id types.InstanceID) bool { return r.psmByID(id) != nil }),
		state:      types.PSMStateNone,
		fns:        fns,
		localPSM:   types.PSMInvalid,
		remotePSM:  types.PSMInvalid,
		sdpSession: types.SDPSessionInvalid,
	}
	r.psms = append(r.psms, p)
	return p
}

// removePSM 删除 PSM 实例
func (r *registry) removePSM(p *psmInstance) bool {
	for i, q := range r.psms {
		if q == p {
			r.psms = append(r.psms[:i], r.psms[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) psmByID(id types.InstanceID) *psmInstance {
	if !id.IsPSM() {
		return nil
	}
	for _, p := range r.psms {
		if p.id == id {
			return p
		}
	}
	return nil
}

// psmByState 返回第一个处于 state 的实例
func (r *registry) psmByState(state types.PSMState) *psmInstance {
	for _, p := range r.psms {
		if p.state == state {
			return p
		}
	}
	return nil
}

func (r *registry) psmByLocalPSM(psm types.PSM) *psmInstance {
	for _, p := range r.psms {
		if p.localPSM == psm && p.state.IsRegistered() {
			return p
		}
	}
	return nil
}

func (r *registry) psmBySession(session types.SDPSessionID) *psmInstance {
	if session == types.SDPSessionInvalid {
		return nil
	}
	for _, p := range r.psms {
		if p.sdpSession == session {
			return p
		}
	}
	return nil
}

// linkBySink 在所有实例中按写端查找链路
func (r *registry) linkBySink(sink types.Sink) (*psmInstance, *linkInstance) {
	if !sink.IsValid() {
		return nil, nil
	}
	for _, p := range r.psms {
		if l := p.linkBySink(sink); l != nil {
			return p, l
		}
	}
	return nil, nil
}

// linkByConnID 在所有实例中按连接标识查找链路
func (r *registry) linkByConnID(id types.ConnectionID) (*psmInstance, *linkInstance) {
	if id == types.ConnectionIDInvalid {
		return nil, nil
	}
	for _, p := range r.psms {
		for _, l := range p.links {
			if l.connID == id {
				return p, l
			}
		}
	}
	return nil, nil
}

func (r *registry) linkInUse(id types.InstanceID) bool {
	for _, p := range r.psms {
		for _, l := range p.links {
			if l.id == id {
				return true
			}
		}
	}
	return false
}

// totalLinks 所有实例的链路总数
func (r *registry) totalLinks() int {
	n := 0
	for _, p := range r.psms {
		n += p.numLinks
	}
	return n
}

// ============================================================================
//                              链路表
// ============================================================================

func (p *psmInstance) linkByAddr(peer types.TypedAddr) *linkInstance {
	for _, l := range p.links {
		if l.peer == peer {
			return l
		}
	}
	return nil
}

func (p *psmInstance) linkBySink(sink types.Sink) *linkInstance {
	for _, l := range p.links {
		if l.sink == sink {
			return l
		}
	}
	return nil
}

// createLink 返回对端已有的链路，没有时新建
//
// limited 为 true 时受 maxLinks 约束，超出上限返回 nil。
func (r *registry) createLink(p *psmInstance, peer types.TypedAddr, limited bool) (l *linkInstance, created bool) {
	if l := p.linkByAddr(peer); l != nil {
		return l, false
	}
	if limited && p.numLinks >= r.maxLinks {
		return nil, false
	}
	l = &linkInstance{
		id:     r.nextID(types.InstanceKindLink, r.linkInUse),
		peer:   peer,
		state:  types.LinkStateNull,
		sink:   types.SinkInvalid,
		source: types.SourceInvalid,
	}
	p.links = append(p.links, l)
	p.numLinks++
	return l, true
}

// removeLink 按身份删除链路
func (p *psmInstance) removeLink(l *linkInstance) bool {
	for i, q := range p.links {
		if q != l {
			continue
		}
		if p.numLinks == 0 {
			fatalf("removeLink", "link count underflow on %s", p.id)
		}
		p.links = append(p.links[:i], p.links[i+1:]...)
		p.numLinks--
		return true
	}
	return false
}

func (p *psmInstance) hasLink(l *linkInstance) bool {
	for _, q := range p.links {
		if q == l {
			return true
		}
	}
	return false
}

// dequeue 从 SDP 等待队列中移除链路
func (p *psmInstance) dequeue(l *linkInstance) {
	for i, q := range p.sdpQueue {
		if q == l {
			p.sdpQueue = append(p.sdpQueue[:i], p.sdpQueue[i+1:]...)
			return
		}
	}
}
