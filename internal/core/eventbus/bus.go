package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus: closed")
	// ErrInvalidEventType 事件类型必须是非 nil 指针
	ErrInvalidEventType = errors.New("eventbus: event type must be a non-nil pointer")
	// ErrWrongEventType 发射的事件与发射器类型不一致
	ErrWrongEventType = errors.New("eventbus: wrong event type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("eventbus: emitter closed")
)

// DefaultBufSize 订阅通道默认容量
const DefaultBufSize = 16

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed bool
}

var _ pkgif.EventBus = (*Bus)(nil)

// node 一种事件类型的订阅者与发射器
type node struct {
	mu   sync.Mutex
	typ  reflect.Type
	subs []*Subscription

	emitters atomic.Int32
	keepLast bool
	last     interface{}
	dropped  atomic.Uint64
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{nodes: make(map[reflect.Type]*node)}
}

// eventElem 返回指针事件类型的元素类型
func eventElem(eventType interface{}) (reflect.Type, error) {
	typ := reflect.TypeOf(eventType)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, ErrInvalidEventType
	}
	return typ.Elem(), nil
}

// Subscribe 订阅事件
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	elem, err := eventElem(eventType)
	if err != nil {
		return nil, err
	}
	settings := pkgif.SubscriptionSettings{Buffer: DefaultBufSize}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Buffer < 0 {
		return nil, fmt.Errorf("eventbus: negative buffer size %d", settings.Buffer)
	}

	sub := &Subscription{bus: b, typ: elem, out: make(chan interface{}, settings.Buffer)}
	err = b.withNode(elem, func(n *node) {
		n.subs = append(n.subs, sub)
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Emitter 获取事件发射器
func (b *Bus) Emitter(eventType interface{}, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	elem, err := eventElem(eventType)
	if err != nil {
		return nil, err
	}
	var settings pkgif.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	var n *node
	err = b.withNode(elem, func(nd *node) {
		n = nd
		n.emitters.Add(1)
		if settings.Stateful {
			n.keepLast = true
		}
	})
	if err != nil {
		return nil, err
	}
	return &Emitter{bus: b, node: n}, nil
}

// GetAllEventTypes 返回已注册事件类型的指针零值
func (b *Bus) GetAllEventTypes() []interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]interface{}, 0, len(b.nodes))
	for typ := range b.nodes {
		out = append(out, reflect.New(typ).Interface())
	}
	return out
}

// Dropped 返回某类事件因订阅者缓冲区满被丢弃的次数
func (b *Bus) Dropped(eventType interface{}) uint64 {
	elem, err := eventElem(eventType)
	if err != nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n, ok := b.nodes[elem]; ok {
		return n.dropped.Load()
	}
	return 0
}

// Close 关闭所有订阅
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*Subscription
	for _, n := range b.nodes {
		n.mu.Lock()
		subs = append(subs, n.subs...)
		n.mu.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	logger.Debug("事件总线已关闭", "subscriptions", len(subs))
	return nil
}

// withNode 在持有节点锁时执行 cb，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	n.mu.Lock()
	b.mu.Unlock()

	cb(n)
	n.mu.Unlock()
	return nil
}

// release 节点上没有订阅者和发射器时删除
func (b *Bus) release(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.mu.Lock()
	unused := len(n.subs) == 0 && n.emitters.Load() == 0
	n.mu.Unlock()
	if unused {
		delete(b.nodes, typ)
	}
}

func (b *Bus) removeSub(sub *Subscription) {
	b.mu.RLock()
	n, ok := b.nodes[sub.typ]
	b.mu.RUnlock()
	if !ok {
		return
	}

	n.mu.Lock()
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
	b.release(sub.typ)
}

// emit 非阻塞地投递给所有订阅者
func (n *node) emit(event interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.keepLast {
		n.last = event
	}
	for _, sub := range n.subs {
		select {
		case sub.out <- event:
		default:
			// 每 100 次丢弃告警一次
			if d := n.dropped.Add(1); d%100 == 1 {
				logger.Warn("订阅者处理过慢，事件被丢弃", "type", n.typ, "dropped", d)
			}
		}
	}
}
