package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/dep2p/go-didpeer"
	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/memnet"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// meshRound 两轮重新公告的间隔
var meshRound = time.Second

var demoCommand = &cli.Command{
	Name:  "demo",
	Usage: "在进程内网络上运行多个节点，打印互相认证后的节点表",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "nodes", Aliases: []string{"n"}, Value: 3, Usage: "节点数量"},
		&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "等待全部认证的超时"},
		&cli.DurationFlag{Name: "linger", Usage: "认证完成后继续运行的时长（0 = 立即退出，Ctrl-C 提前结束）"},
		&cli.StringFlag{Name: "introspect-addr", Usage: "第一个节点的诊断服务地址（含 /metrics），例如 127.0.0.1:6060"},
	},
	Action: runDemo,
}

func runDemo(cctx *cli.Context) error {
	count := cctx.Int("nodes")
	if count < 2 {
		return errors.New("至少需要 2 个节点")
	}
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if addr := cctx.String("introspect-addr"); addr != "" {
		cfg.Introspect.Enable = true
		cfg.Introspect.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	net := memnet.NewNetwork()
	nodes := make([]*didpeer.Node, 0, count)
	defer func() {
		var errs error
		for _, n := range nodes {
			errs = multierr.Append(errs, n.Close())
		}
		if errs != nil {
			logger.Warn("关闭演示节点出错", "error", errs)
		}
	}()

	for i := 0; i < count; i++ {
		n, err := newDemoNode(ctx, net, cfg, i)
		if err != nil {
			return fmt.Errorf("节点 %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}

	if addr := nodes[0].IntrospectAddr(); addr != "" {
		fmt.Fprintf(cctx.App.Writer, "诊断: http://%s/debug/introspect\n", addr)
	}

	if err := waitMesh(ctx, nodes, cctx.Duration("timeout")); err != nil {
		printTables(cctx.App.Writer, nodes)
		return err
	}
	printTables(cctx.App.Writer, nodes)

	if linger := cctx.Duration("linger"); linger > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(linger):
		}
		printTables(cctx.App.Writer, nodes)
	}
	return nil
}

// newDemoNode 创建并启动一个演示节点，存储使用内存模式
func newDemoNode(ctx context.Context, net *memnet.Network, base *config.Config, i int) (*didpeer.Node, error) {
	key, err := memnet.PooledKey(i)
	if err != nil {
		return nil, err
	}
	peer, err := net.NewPeerWithKey(ctx, fmt.Sprintf("user%d", i), "Earth", key)
	if err != nil {
		return nil, err
	}

	// 只有第一个节点对外暴露指标和诊断
	cfg := *base
	if i > 0 {
		cfg.Metrics.Enable = false
		cfg.Introspect.Enable = false
	}
	n, err := didpeer.New(ctx,
		didpeer.WithConfig(&cfg),
		didpeer.WithInMemoryStorage(),
		didpeer.WithCollaborators(didpeer.Collaborators{
			Host:    peer.Host,
			PubSub:  peer.PubSub,
			Content: peer.Content,
			DIDs:    peer.Resolver,
			QR:      peer.QR,
			Keys:    peer.Keystore,
			Profile: peer.Profile,
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		_ = n.Close()
		return nil, err
	}
	return n, nil
}

// meshNode waitMesh 需要的节点能力
type meshNode interface {
	AuthenticatedPeers() []types.PeerSnapshot
	Announce(ctx context.Context) error
}

// waitMesh 每轮所有节点都重新公告，直到每个节点都认证了其余全部节点
//
// 已完成的节点也要继续公告，后加入或错过公告的节点依赖它。
func waitMesh[N meshNode](ctx context.Context, nodes []N, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(meshRound)
	defer ticker.Stop()
	for {
		if meshComplete(nodes) {
			logger.Info("全部节点已互相认证", "nodes", len(nodes))
			return nil
		}
		for _, n := range nodes {
			_ = n.Announce(ctx)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("等待认证超时: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func meshComplete[N meshNode](nodes []N) bool {
	want := len(nodes) - 1
	for _, n := range nodes {
		if len(n.AuthenticatedPeers()) < want {
			return false
		}
	}
	return true
}

func printTables(w io.Writer, nodes []*didpeer.Node) {
	for _, n := range nodes {
		fmt.Fprintf(w, "\n节点 %s\n", log.TruncateID(string(n.ID()), 16))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "HANDLE\tDID\tVALIDATED\tAUTHENTICATED\tRTT\tLAST FAILURE")
		for _, p := range n.Peers() {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\t%s\n",
				p.Handle, log.TruncateID(p.DID, 28), p.Validated, p.Authenticated, lastRTT(p), p.LastAuthFailure)
		}
		_ = tw.Flush()
	}
}

func lastRTT(p types.PeerSnapshot) string {
	if len(p.Pings) == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", p.Pings[0].LatencyMs)
}
