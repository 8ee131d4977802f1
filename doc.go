// Package didpeer 实现基于 gossip 发布订阅的 DID 认证节点发现
//
// 节点周期性地在公告主题上发布签名的身份公告；收到公告的节点校验
// 发送方、所有权签名与 QR 证明，解析 DID 文档后直连对端发起挑战应答，
// 认证通过的 DID 写入持久化信任缓存，之后的公告只做刷新。
//
// # 快速开始
//
//	node, err := didpeer.New(ctx,
//	    didpeer.WithCollaborators(didpeer.Collaborators{
//	        Host:    host,
//	        PubSub:  ps,
//	        Content: store,
//	        DIDs:    resolver,
//	        QR:      decoder,
//	        Keys:    keystore,
//	        Profile: profile,
//	    }),
//	    didpeer.WithConfigFile("didpeer.json"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	sub, _ := node.Subscribe(new(types.EvtPeerAuthenticated))
//	for evt := range sub.Out() {
//	    fmt.Println(evt.(types.EvtPeerAuthenticated).Handle)
//	}
//
// # 组件
//
//	┌──────────────────────────────────────────────────────────┐
//	│  Node                    didpeer.New()                   │
//	├──────────────────────────────────────────────────────────┤
//	│  announce   身份公告（周期 + 资料变化）                   │
//	│  registry   注册状态机、单飞认证、信任缓存                 │
//	│  didauth    直连挑战应答、DID ping、旧版 ping             │
//	│  liveness   周期探测                                      │
//	├──────────────────────────────────────────────────────────┤
//	│  pubsub     过滤 + 限速的主题传输                          │
//	│  qrproof    QR 证明校验                                   │
//	├──────────────────────────────────────────────────────────┤
//	│  eventbus / storage / trustcache / keybook / metrics     │
//	└──────────────────────────────────────────────────────────┘
//
// 网络、内容存储、DID 解析、二维码解码与密钥由调用方通过
// Collaborators 提供；internal/core/memnet 提供进程内实现，用于测试和演示。
package didpeer
