// Package eventbus 实现类型化事件总线
//
// 事件按具体 Go 类型路由。订阅者通过带缓冲的通道接收事件，
// 发射永不阻塞：订阅者缓冲区满时事件被丢弃并计数。
//
// 使用示例：
//
//	sub, _ := bus.Subscribe(new(types.EvtPeerAuthenticated))
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtPeerAuthenticated))
//	_ = em.Emit(types.EvtPeerAuthenticated{...})
//
//	for ev := range sub.Out() {
//	    e := ev.(types.EvtPeerAuthenticated)
//	}
package eventbus
