package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// Collector Prometheus 指标
type Collector struct {
	registered   *prometheus.CounterVec
	connects     *prometheus.CounterVec
	completed    *prometheus.CounterVec
	sdpSearches  *prometheus.CounterVec
	sdpFinished  *prometheus.CounterVec
	disconnects  *prometheus.CounterVec
	linksActive  prometheus.Gauge
	collectorSet []prometheus.Collector
}

var _ pkgif.MetricsRecorder = (*Collector)(nil)

// NewCollector 创建指标，namespace 为指标名前缀
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "psm_registrations_total",
			Help:      "PSM registrations by result.",
		}, []string{"status"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_issued_total",
			Help:      "Connect requests and accept responses submitted to the transport.",
		}, []string{"initiator"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_completed_total",
			Help:      "Connect confirmations delivered to clients by status.",
		}, []string{"status"}),
		sdpSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdp_searches_total",
			Help:      "SDP service searches submitted.",
		}, []string{"retry"}),
		sdpFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdp_searches_finished_total",
			Help:      "SDP discoveries that ended, by whether a remote PSM was found.",
		}, []string{"found"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Link disconnections by status and initiator.",
		}, []string{"status", "initiator"}),
		linksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links_active",
			Help:      "Links currently held by the connection manager.",
		}),
	}
	c.collectorSet = []prometheus.Collector{
		c.registered, c.connects, c.completed, c.sdpSearches, c.sdpFinished, c.disconnects, c.linksActive,
	}
	return c
}

// Register 注册到 reg
func (c *Collector) Register(reg prometheus.Registerer) error {
	var err error
	for _, col := range c.collectorSet {
		err = multierr.Append(err, reg.Register(col))
	}
	return err
}

// Unregister 从 reg 注销
func (c *Collector) Unregister(reg prometheus.Registerer) {
	for _, col := range c.collectorSet {
		reg.Unregister(col)
	}
}

func initiator(local bool) string {
	if local {
		return "local"
	}
	return "remote"
}

// PSMRegistered 实现 MetricsRecorder
func (c *Collector) PSMRegistered(status types.Status) {
	c.registered.WithLabelValues(status.String()).Inc()
}

// ConnectIssued 实现 MetricsRecorder
func (c *Collector) ConnectIssued(localInitiated bool) {
	c.connects.WithLabelValues(initiator(localInitiated)).Inc()
}

// ConnectCompleted 实现 MetricsRecorder
func (c *Collector) ConnectCompleted(status types.ConnectStatus) {
	c.completed.WithLabelValues(status.String()).Inc()
}

// SDPSearchStarted 实现 MetricsRecorder
func (c *Collector) SDPSearchStarted(retry bool) {
	c.sdpSearches.WithLabelValues(strconv.FormatBool(retry)).Inc()
}

// SDPSearchFinished 实现 MetricsRecorder
func (c *Collector) SDPSearchFinished(found bool) {
	c.sdpFinished.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// Disconnected 实现 MetricsRecorder
func (c *Collector) Disconnected(status types.DisconnectStatus, localInitiated bool) {
	c.disconnects.WithLabelValues(status.String(), initiator(localInitiated)).Inc()
}

// LinksActive 实现 MetricsRecorder
func (c *Collector) LinksActive(n int) {
	c.linksActive.Set(float64(n))
}

// Handler 返回导出 g 中指标的 HTTP 处理器
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
