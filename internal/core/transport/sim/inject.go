package sim

import (
	"fmt"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// InjectIncoming 模拟远端设备向本地 PSM 发起连接
//
// 返回分配的连接标识，结果由本地的 ConnectAcceptResponse 决定。
func (c *Controller) InjectIncoming(peer types.TypedAddr, localPSM types.PSM) (types.ConnectionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return types.ConnectionIDInvalid, ErrClosed
	}
	if _, ok := c.localPSMs[localPSM]; !ok {
		return types.ConnectionIDInvalid, fmt.Errorf("%w: %s", ErrPSMNotRegistered, localPSM)
	}

	id, ok := c.allocConnLocked()
	if !ok {
		return types.ConnectionIDInvalid, ErrNoConnections
	}
	cn := &conn{
		id:       id,
		localPSM: localPSM,
		peer:     peer,
		ident:    c.allocIdentLocked(),
	}
	c.incoming[cn.id] = cn
	c.enqueueLocked(types.L2caConnectAcceptInd{
		LocalPSM:     localPSM,
		Peer:         peer,
		Identifier:   cn.ident,
		ConnectionID: cn.id,
	}, 0)
	return cn.id, nil
}

// DropLink 模拟远端断开或链路丢失
//
// 链路在本地发出 DisconnectResponse 后释放。
func (c *Controller) DropLink(id types.ConnectionID, reason types.DisconnectReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	cn, ok := c.conns[id]
	if !ok || cn.closing {
		return fmt.Errorf("%w: %d", ErrUnknownConnection, id)
	}
	cn.closing = true
	cn.remoteEnd = true
	cn.ident = c.allocIdentLocked()
	c.enqueueLocked(types.L2caDisconnectInd{
		ConnectionID: id,
		Identifier:   cn.ident,
		Reason:       reason,
	}, 0)
	return nil
}

// InjectData 模拟数据到达，链路必须已切换为通知模式
func (c *Controller) InjectData(id types.ConnectionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cn, err := c.notifyingLocked(id)
	if err != nil {
		return err
	}
	c.enqueueLocked(types.MoreData{Source: cn.source()}, 0)
	return nil
}

// InjectSpace 模拟写端腾出空间
func (c *Controller) InjectSpace(id types.ConnectionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cn, err := c.notifyingLocked(id)
	if err != nil {
		return err
	}
	c.enqueueLocked(types.MoreSpace{Sink: cn.sink()}, 0)
	return nil
}

func (c *Controller) notifyingLocked(id types.ConnectionID) (*conn, error) {
	if c.closed {
		return nil, ErrClosed
	}
	cn, ok := c.conns[id]
	if !ok || cn.closing {
		return nil, fmt.Errorf("%w: %d", ErrUnknownConnection, id)
	}
	if !cn.notify {
		return nil, ErrNotNotifying
	}
	return cn, nil
}
