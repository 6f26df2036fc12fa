package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dep2p/go-l2cap"
	"github.com/dep2p/go-l2cap/internal/core/sdp"
	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// serviceUUID 演示服务的 128 位 UUID
var serviceUUID = types.MustParseUUID("1f3e5e6a-8a58-4b43-a7c1-2df0a4ad3a72")

// maxPeers 模拟远端 PSM 从 0x1003 起按奇数分配，不能跨过 0x10FF
const maxPeers = 60

// report 场景执行结果
type report struct {
	RunID        string        `json:"runId"`
	LocalPSM     types.PSM     `json:"localPsm"`
	Peers        int           `json:"peers"`
	Connected    int           `json:"connected"`
	Failed       int           `json:"failed"`
	DataEvents   int           `json:"dataEvents"`
	Disconnected int           `json:"disconnected"`
	Elapsed      time.Duration `json:"elapsed"`
}

// scenarioClient 把回调转发到通道
//
// 回调在管理器的事件循环中执行，这里只做非阻塞发送。
type scenarioClient struct {
	runID      string
	registered chan types.Status
	connected  chan types.ConnectCfm
	data       chan types.MoreDataInfo
	closed     chan types.DisconnectCfm
}

func newScenarioClient(runID string, peers int) *scenarioClient {
	return &scenarioClient{
		runID:      runID,
		registered: make(chan types.Status, 1),
		connected:  make(chan types.ConnectCfm, peers),
		data:       make(chan types.MoreDataInfo, peers),
		closed:     make(chan types.DisconnectCfm, peers),
	}
}

func (c *scenarioClient) LinkConfig(types.TypedAddr) (types.LinkConfig, error) {
	return types.LinkConfig{SecurityLevel: 1}, nil
}

func (c *scenarioClient) SDPRecord(types.PSM) (types.SDPRecord, bool) {
	return sdp.L2capServiceRecord(serviceUUID, "l2capd "+c.runID[:8]), true
}

func (c *scenarioClient) SDPSearchPattern(*types.TypedAddr) (types.SearchPattern, error) {
	return types.SearchPattern{
		ServiceUUID:   serviceUUID,
		UUIDSize:      types.UUIDSize128,
		AttributeList: sdp.AttributeIDList(sdp.AttrProtocolDescriptorList),
		MaxRetries:    3,
	}, nil
}

func (c *scenarioClient) Registered(status types.Status) {
	select {
	case c.registered <- status:
	default:
	}
}

func (c *scenarioClient) RespondConnectInd(ind *types.ConnectInd) (types.ConnectRsp, any) {
	logger.Info("远端发起连接", "peer", ind.Peer)
	return types.ConnectRsp{Accept: true}, nil
}

func (c *scenarioClient) HandleConnectCfm(cfm *types.ConnectCfm, _ any) {
	select {
	case c.connected <- *cfm:
	default:
	}
}

func (c *scenarioClient) HandleDisconnectCfm(cfm *types.DisconnectCfm, _ any) {
	select {
	case c.closed <- *cfm:
	default:
	}
}

func (c *scenarioClient) RespondDisconnectInd(ind *types.DisconnectInd, _ any) {
	logger.Info("远端断开", "sink", ind.Sink, "status", ind.Status)
}

func (c *scenarioClient) ProcessMoreData(info *types.MoreDataInfo, _ any) {
	select {
	case c.data <- *info:
	default:
	}
}

func (c *scenarioClient) ProcessMoreSpace(*types.MoreSpaceInfo, any) {}

var (
	_ interfaces.Client      = (*scenarioClient)(nil)
	_ interfaces.FlowHandler = (*scenarioClient)(nil)
)

// peerAddr 第 i 个模拟远端的地址
func peerAddr(i int) types.TypedAddr {
	return types.NewBREDRAddr(types.BDAddr{0x00, 0x1a, 0x7d, 0x00, byte(i >> 8), byte(i + 1)})
}

// runScenario 注册一个 PSM，依次连接所有模拟远端，注入数据后断开
//
// 每隔三个远端让第一次 SDP 搜索超时，以覆盖重试路径。
func runScenario(ctx context.Context, node *l2cap.Node, runID string, peers int, hold time.Duration) (*report, error) {
	if peers <= 0 || peers > maxPeers {
		return nil, fmt.Errorf("peers must be in [1, %d]", maxPeers)
	}
	start := time.Now()
	simc := node.Simulator()
	mgr := node.Manager()

	for i := 0; i < peers; i++ {
		p := simc.AddPeer(peerAddr(i)).AddService(serviceUUID, types.PSM(0x1003+2*i), "remote")
		if i%3 == 2 {
			p.FailSearches(types.ResultTimeout)
		}
	}

	client := newScenarioClient(runID, peers)
	id, err := mgr.RegisterClient(types.PSMDynamic, client)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	select {
	case status := <-client.registered:
		if status != types.StatusSuccess {
			return nil, fmt.Errorf("register: %s", status)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rep := &report{RunID: runID, Peers: peers}
	infos, err := mgr.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID == id {
			rep.LocalPSM = info.LocalPSM
		}
	}
	logger.Info("PSM 已注册", "instance", id, "psm", rep.LocalPSM, "run", runID)

	for i := 0; i < peers; i++ {
		if err := mgr.Connect(peerAddr(i), id, i); err != nil {
			return nil, fmt.Errorf("connect %s: %w", peerAddr(i), err)
		}
	}

	var links []types.ConnectCfm
	for len(links)+rep.Failed < peers {
		select {
		case cfm := <-client.connected:
			if cfm.Status != types.ConnectSuccess {
				rep.Failed++
				logger.Warn("连接失败", "peer", cfm.Peer, "status", cfm.Status)
				continue
			}
			links = append(links, cfm)
			logger.Info("连接成功", "peer", cfm.Peer, "remotePSM", cfm.RemotePSM, "sink", cfm.Sink)
		case <-ctx.Done():
			return rep, ctx.Err()
		}
	}
	rep.Connected = len(links)

	for _, l := range links {
		if err := simc.InjectData(l.ConnectionID); err != nil {
			return rep, fmt.Errorf("inject data: %w", err)
		}
	}
	for rep.DataEvents < len(links) {
		select {
		case <-client.data:
			rep.DataEvents++
		case <-ctx.Done():
			return rep, ctx.Err()
		}
	}

	if hold > 0 {
		select {
		case <-time.After(hold):
		case <-ctx.Done():
			return rep, ctx.Err()
		}
	}

	for _, l := range links {
		if err := mgr.Disconnect(l.Sink, id); err != nil {
			return rep, fmt.Errorf("disconnect: %w", err)
		}
	}
	for rep.Disconnected < len(links) {
		select {
		case <-client.closed:
			rep.Disconnected++
		case <-ctx.Done():
			return rep, ctx.Err()
		}
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}
