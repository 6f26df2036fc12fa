package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

func recv(t *testing.T, sub pkgif.Subscription) interface{} {
	t.Helper()
	select {
	case ev, ok := <-sub.Out():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

// TestBus_EmitAndReceive 测试按类型分发
func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	links, err := bus.Subscribe(new(types.EvtLinkStateChanged))
	require.NoError(t, err)
	defer links.Close()
	psms, err := bus.Subscribe(new(types.EvtPSMStateChanged))
	require.NoError(t, err)
	defer psms.Close()

	em, err := bus.Emitter(new(types.EvtLinkStateChanged))
	require.NoError(t, err)
	defer em.Close()

	ev := &types.EvtLinkStateChanged{Old: types.LinkStateNull, New: types.LinkStateConnected}
	require.NoError(t, em.Emit(ev))

	got := recv(t, links).(*types.EvtLinkStateChanged)
	assert.Equal(t, types.LinkStateConnected, got.New)
	assert.Empty(t, psms.Out())

	t.Log("✅ 事件分发测试通过")
}

// TestBus_InvalidTypes 测试非法事件类型
func TestBus_InvalidTypes(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)
	_, err = bus.Subscribe(types.EvtPSMStateChanged{})
	assert.ErrorIs(t, err, ErrInvalidEventType)
	_, err = bus.Emitter(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)
	_, err = bus.Subscribe(new(types.EvtPSMStateChanged), pkgif.BufSize(-1))
	assert.Error(t, err)

	em, err := bus.Emitter(new(types.EvtPSMStateChanged))
	require.NoError(t, err)
	assert.ErrorIs(t, em.Emit(types.EvtPSMStateChanged{}), ErrWrongEventType)
	assert.ErrorIs(t, em.Emit(&types.EvtLinkStateChanged{}), ErrWrongEventType)
	assert.ErrorIs(t, em.Emit(nil), ErrWrongEventType)

	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(&types.EvtPSMStateChanged{}), ErrEmitterClosed)
}

// TestBus_Stateful 测试有状态发射器
func TestBus_Stateful(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtPSMRegistered), pkgif.Stateful())
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(&types.EvtPSMRegistered{LocalPSM: 0x1001, Status: types.StatusFailed}))
	require.NoError(t, em.Emit(&types.EvtPSMRegistered{LocalPSM: 0x1001, Status: types.StatusSuccess}))

	sub, err := bus.Subscribe(new(types.EvtPSMRegistered))
	require.NoError(t, err)
	defer sub.Close()

	got := recv(t, sub).(*types.EvtPSMRegistered)
	assert.Equal(t, types.StatusSuccess, got.Status)
	assert.Empty(t, sub.Out())
}

// TestBus_SlowSubscriber 测试缓冲区满时丢弃
func TestBus_SlowSubscriber(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtConnectFailed), pkgif.BufSize(2))
	require.NoError(t, err)
	defer sub.Close()
	em, err := bus.Emitter(new(types.EvtConnectFailed))
	require.NoError(t, err)
	defer em.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, em.Emit(&types.EvtConnectFailed{}))
	}
	assert.Len(t, sub.Out(), 2)
	assert.Equal(t, uint64(3), bus.Dropped(new(types.EvtConnectFailed)))
	assert.Zero(t, bus.Dropped(new(types.EvtLinkStateChanged)))
}

// TestBus_NodeRelease 测试节点在无引用时删除
func TestBus_NodeRelease(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtLinkStateChanged))
	require.NoError(t, err)
	em, err := bus.Emitter(new(types.EvtLinkStateChanged))
	require.NoError(t, err)
	assert.Len(t, bus.GetAllEventTypes(), 1)
	_, ok := bus.GetAllEventTypes()[0].(*types.EvtLinkStateChanged)
	assert.True(t, ok)

	require.NoError(t, sub.Close())
	assert.Len(t, bus.GetAllEventTypes(), 1)
	require.NoError(t, em.Close())
	assert.Empty(t, bus.GetAllEventTypes())

	_, ok = <-sub.Out()
	assert.False(t, ok)
}

// TestBus_Close 测试关闭总线
func TestBus_Close(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtLinkStateChanged))
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)
	require.NoError(t, sub.Close())

	_, err = bus.Subscribe(new(types.EvtLinkStateChanged))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = bus.Emitter(new(types.EvtLinkStateChanged))
	assert.ErrorIs(t, err, ErrClosed)
}

// TestBus_Concurrent 测试并发订阅、发射与取消
func TestBus_Concurrent(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtLinkStateChanged))
	require.NoError(t, err)
	defer em.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = em.Emit(&types.EvtLinkStateChanged{})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				sub, err := bus.Subscribe(new(types.EvtLinkStateChanged), pkgif.BufSize(4))
				if err != nil {
					return
				}
				_ = sub.Close()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, bus.GetAllEventTypes(), 1)
}
