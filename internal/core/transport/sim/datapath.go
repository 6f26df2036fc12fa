package sim

import (
	"fmt"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// 句柄映射：连接 n 的写端为 n 的低 15 位，读端在写端上置最高位。

// SinkForConnection 返回连接对应的写端
func (c *Controller) SinkForConnection(id types.ConnectionID) types.Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	cn, ok := c.conns[id]
	if !ok {
		return types.SinkInvalid
	}
	return cn.sink()
}

// SourceFromSink 返回写端配对的读端
func (c *Controller) SourceFromSink(sink types.Sink) types.Source {
	if !sink.IsValid() {
		return types.SourceInvalid
	}
	return types.Source(uint16(sink) | 0x8000)
}

// SinkFromSource 返回读端配对的写端
func (c *Controller) SinkFromSource(source types.Source) types.Sink {
	if !source.IsValid() {
		return types.SinkInvalid
	}
	return types.Sink(uint16(source) &^ 0x8000)
}

// EnableNotifications 切换为消息通知模式
func (c *Controller) EnableNotifications(sink types.Sink, source types.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cn := c.connBySinkLocked(sink)
	if cn == nil || cn.source() != source {
		return fmt.Errorf("%w: %d", ErrUnknownSink, sink)
	}
	cn.notify = true
	return nil
}

// SetHandoverPolicy 设置读端移交策略
func (c *Controller) SetHandoverPolicy(source types.Source, policy types.HandoverPolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cn := c.connBySinkLocked(c.SinkFromSource(source))
	if cn == nil {
		return fmt.Errorf("%w: source %d", ErrUnknownSink, source)
	}
	cn.policy = policy
	return nil
}

// DisposeSource 丢弃读端未读数据
func (c *Controller) DisposeSource(source types.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = append(c.disposed, source)
}

// DisposedSources 返回被释放的读端
func (c *Controller) DisposedSources() []types.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Source(nil), c.disposed...)
}

// LinkInfo 模拟链路状态
type LinkInfo struct {
	ConnectionID types.ConnectionID
	LocalPSM     types.PSM
	Peer         types.TypedAddr
	Sink         types.Sink
	Source       types.Source
	Notify       bool
	Policy       types.HandoverPolicy
}

// Links 返回已建立的链路
func (c *Controller) Links() []LinkInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LinkInfo, 0, len(c.conns))
	for _, cn := range c.conns {
		out = append(out, LinkInfo{
			ConnectionID: cn.id,
			LocalPSM:     cn.localPSM,
			Peer:         cn.peer,
			Sink:         cn.sink(),
			Source:       cn.source(),
			Notify:       cn.notify,
			Policy:       cn.policy,
		})
	}
	return out
}
