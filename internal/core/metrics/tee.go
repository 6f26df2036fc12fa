package metrics

import (
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// Tee 把调用依次分发给多个记录器
type Tee []pkgif.MetricsRecorder

var _ pkgif.MetricsRecorder = Tee(nil)

func (t Tee) PSMRegistered(status types.Status) {
	for _, r := range t {
		r.PSMRegistered(status)
	}
}

func (t Tee) ConnectIssued(localInitiated bool) {
	for _, r := range t {
		r.ConnectIssued(localInitiated)
	}
}

func (t Tee) ConnectCompleted(status types.ConnectStatus) {
	for _, r := range t {
		r.ConnectCompleted(status)
	}
}

func (t Tee) SDPSearchStarted(retry bool) {
	for _, r := range t {
		r.SDPSearchStarted(retry)
	}
}

func (t Tee) SDPSearchFinished(found bool) {
	for _, r := range t {
		r.SDPSearchFinished(found)
	}
}

func (t Tee) Disconnected(status types.DisconnectStatus, localInitiated bool) {
	for _, r := range t {
		r.Disconnected(status, localInitiated)
	}
}

func (t Tee) LinksActive(n int) {
	for _, r := range t {
		r.LinksActive(n)
	}
}
