package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-didpeer/pkg/types"
)

// PubSub gossip 发布订阅
type PubSub interface {
	// Join 加入主题
	Join(topic string) (Topic, error)
}

// Topic 已加入的主题
type Topic interface {
	// String 返回主题名称
	String() string

	// Publish 发布消息
	Publish(ctx context.Context, data []byte) error

	// Subscribe 订阅主题
	Subscribe() (TopicSubscription, error)

	// Close 离开主题
	Close() error
}

// TopicSubscription 主题订阅
type TopicSubscription interface {
	// Next 阻塞直到下一条消息到达或 ctx 取消
	Next(ctx context.Context) (*Message, error)

	// Cancel 取消订阅
	Cancel()
}

// Message 收到的 gossip 消息
type Message struct {
	// From 传输层发送方
	From types.PeerID

	// Data 消息负载
	Data []byte

	// Topic 所属主题
	Topic string

	// ReceivedAt 本地接收时间
	ReceivedAt time.Time
}
