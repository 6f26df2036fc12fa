package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/transport/sim"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

func init() {
	log.Discard()
}

type handlerFunc func(ev types.TransportEvent)

func (f handlerFunc) Deliver(_ context.Context, ev types.TransportEvent) error {
	f(ev)
	return nil
}

// TestProvideTransport 测试统一配置转换
func TestProvideTransport(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Sim.MTU = 1021
	out := ProvideTransport(Params{UnifiedCfg: cfg})
	require.NotNil(t, out.Controller)
	assert.Same(t, out.Controller, out.Transport)

	c := sim.ConfigFromUnified(cfg)
	assert.Equal(t, uint16(1021), c.MTU)
	assert.Equal(t, time.Duration(0), c.Latency)
}

// TestModule_Fx 测试 Fx 装配与生命周期
func TestModule_Fx(t *testing.T) {
	var tr pkgif.Transport
	var c *sim.Controller
	app := fxtest.New(t,
		fx.WithLogger(func() fxevent.Logger { return &fxevent.ZapLogger{Logger: zap.NewNop()} }),
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&tr, &c),
	)
	app.RequireStart()

	got := make(chan types.TransportEvent, 1)
	tr.SetEventHandler(handlerFunc(func(ev types.TransportEvent) { got <- ev }))
	require.NoError(t, tr.RegisterPSM(types.RegisterPSMReq{Instance: 0x4001, PSM: types.PSMDynamic}))

	select {
	case ev := <-got:
		cfm, ok := ev.(types.RegisterPSMCfm)
		require.True(t, ok)
		assert.Equal(t, types.PSM(0x1001), cfm.LocalPSM)
	case <-time.After(2 * time.Second):
		t.Fatal("没有收到注册确认")
	}

	app.RequireStop()
	assert.ErrorIs(t, tr.RegisterPSM(types.RegisterPSMReq{Instance: 0x4002}), sim.ErrClosed)
}
