package metrics

import (
	"sync/atomic"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

var logger = log.Logger("core/metrics")

// Counters 进程内计数器
type Counters struct {
	registered       atomic.Int64
	registerFailed   atomic.Int64
	connectLocal     atomic.Int64
	connectRemote    atomic.Int64
	connected        atomic.Int64
	connectFailed    atomic.Int64
	sdpFailed        atomic.Int64
	sdpSearches      atomic.Int64
	sdpRetries       atomic.Int64
	sdpFound         atomic.Int64
	disconnectLocal  atomic.Int64
	disconnectRemote atomic.Int64
	linksActive      atomic.Int64

	connectRate *RateMeter
}

var _ pkgif.MetricsRecorder = (*Counters)(nil)

// Snapshot 计数器快照
type Snapshot struct {
	PSMsRegistered     int64   `json:"psmsRegistered"`
	RegistrationFailed int64   `json:"registrationFailed"`
	ConnectsLocal      int64   `json:"connectsLocal"`
	ConnectsRemote     int64   `json:"connectsRemote"`
	Connected          int64   `json:"connected"`
	ConnectFailed      int64   `json:"connectFailed"`
	SDPSearchFailed    int64   `json:"sdpSearchFailed"`
	SDPSearches        int64   `json:"sdpSearches"`
	SDPRetries         int64   `json:"sdpRetries"`
	SDPFound           int64   `json:"sdpFound"`
	DisconnectsLocal   int64   `json:"disconnectsLocal"`
	DisconnectsRemote  int64   `json:"disconnectsRemote"`
	LinksActive        int64   `json:"linksActive"`
	ConnectsPerSecond  float64 `json:"connectsPerSecond"`
}

// NewCounters 创建计数器，clk 用于连接速率窗口
func NewCounters(clk clock.Clock) *Counters {
	return &Counters{connectRate: NewRateMeter(clk)}
}

// PSMRegistered 实现 MetricsRecorder
func (c *Counters) PSMRegistered(status types.Status) {
	if status == types.StatusSuccess {
		c.registered.Add(1)
		return
	}
	c.registerFailed.Add(1)
}

// ConnectIssued 实现 MetricsRecorder
func (c *Counters) ConnectIssued(localInitiated bool) {
	if localInitiated {
		c.connectLocal.Add(1)
	} else {
		c.connectRemote.Add(1)
	}
	c.connectRate.Add(1)
}

// ConnectCompleted 实现 MetricsRecorder
func (c *Counters) ConnectCompleted(status types.ConnectStatus) {
	switch status {
	case types.ConnectSuccess:
		c.connected.Add(1)
	case types.ConnectFailedSDPSearch:
		c.sdpFailed.Add(1)
	default:
		c.connectFailed.Add(1)
	}
}

// SDPSearchStarted 实现 MetricsRecorder
func (c *Counters) SDPSearchStarted(retry bool) {
	c.sdpSearches.Add(1)
	if retry {
		c.sdpRetries.Add(1)
	}
}

// SDPSearchFinished 实现 MetricsRecorder
func (c *Counters) SDPSearchFinished(found bool) {
	if found {
		c.sdpFound.Add(1)
	}
}

// Disconnected 实现 MetricsRecorder
func (c *Counters) Disconnected(_ types.DisconnectStatus, localInitiated bool) {
	if localInitiated {
		c.disconnectLocal.Add(1)
	} else {
		c.disconnectRemote.Add(1)
	}
}

// LinksActive 实现 MetricsRecorder
func (c *Counters) LinksActive(n int) {
	c.linksActive.Store(int64(n))
}

// Snapshot 返回当前计数
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PSMsRegistered:     c.registered.Load(),
		RegistrationFailed: c.registerFailed.Load(),
		ConnectsLocal:      c.connectLocal.Load(),
		ConnectsRemote:     c.connectRemote.Load(),
		Connected:          c.connected.Load(),
		ConnectFailed:      c.connectFailed.Load(),
		SDPSearchFailed:    c.sdpFailed.Load(),
		SDPSearches:        c.sdpSearches.Load(),
		SDPRetries:         c.sdpRetries.Load(),
		SDPFound:           c.sdpFound.Load(),
		DisconnectsLocal:   c.disconnectLocal.Load(),
		DisconnectsRemote:  c.disconnectRemote.Load(),
		LinksActive:        c.linksActive.Load(),
		ConnectsPerSecond:  c.connectRate.Rate(),
	}
}

// LogSnapshot 以 Info 级别输出快照
func (c *Counters) LogSnapshot() {
	s := c.Snapshot()
	logger.Info("连接管理器指标",
		"registered", s.PSMsRegistered,
		"connected", s.Connected,
		"connectFailed", s.ConnectFailed,
		"sdpFailed", s.SDPSearchFailed,
		"sdpRetries", s.SDPRetries,
		"linksActive", s.LinksActive,
		"connectsPerSecond", s.ConnectsPerSecond)
}
