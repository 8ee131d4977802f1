package config

import (
	"errors"
	"time"

	"github.com/dep2p/go-didpeer/pkg/protocolids"
)

// 消息大小上限
const (
	// DefaultMaxMessageSize 普通主题消息上限
	DefaultMaxMessageSize = 32 * 1024
	// DefaultBulkMaxMessageSize 批量主题消息上限
	DefaultBulkMaxMessageSize = 128 * 1024
)

// PubSubConfig 主题传输配置
//
// 过滤链顺序固定：大小 → 自身来源 → 最小间隔 → 自定义过滤器。
type PubSubConfig struct {
	// Topic 身份公告主题
	Topic string `json:"topic"`

	// MaxMessageSize 单条消息字节上限
	MaxMessageSize int `json:"max_message_size"`

	// MinInterval 同一发送方两条被接纳消息之间的最小间隔
	MinInterval Duration `json:"min_interval"`

	// IntervalWindow 每个发送方保留的到达记录数
	IntervalWindow int `json:"interval_window"`

	// MaxTrackedSenders 跟踪到达记录的发送方数量上限（LRU）
	MaxTrackedSenders int `json:"max_tracked_senders"`

	// InboundQueueSize 入站队列容量，满时接收循环阻塞
	InboundQueueSize int `json:"inbound_queue_size"`

	// RateCount 每个 RatePeriod 内允许分发的消息数
	RateCount int `json:"rate_count"`

	// RatePeriod 令牌桶周期
	RatePeriod Duration `json:"rate_period"`

	// RetryInterval 令牌耗尽时的等待间隔
	RetryInterval Duration `json:"retry_interval"`

	// ResubscribeDelay 接收循环异常后重新订阅的延迟
	ResubscribeDelay Duration `json:"resubscribe_delay"`
}

// DefaultPubSubConfig 返回默认主题传输配置
func DefaultPubSubConfig() PubSubConfig {
	return PubSubConfig{
		Topic:             protocolids.TopicPeers,
		MaxMessageSize:    DefaultMaxMessageSize,
		MinInterval:       Duration(time.Second),
		IntervalWindow:    8,
		MaxTrackedSenders: 1024,
		InboundQueueSize:  64,
		RateCount:         20,
		RatePeriod:        Duration(time.Second),
		RetryInterval:     Duration(100 * time.Millisecond),
		ResubscribeDelay:  Duration(10 * time.Second),
	}
}

// Validate 验证主题传输配置
func (c *PubSubConfig) Validate() error {
	if c.Topic == "" {
		return errors.New("pubsub: topic cannot be empty")
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("pubsub: max_message_size must be positive")
	}
	if c.MinInterval < 0 {
		return errors.New("pubsub: min_interval cannot be negative")
	}
	if c.IntervalWindow <= 0 || c.MaxTrackedSenders <= 0 {
		return errors.New("pubsub: interval_window and max_tracked_senders must be positive")
	}
	if c.InboundQueueSize <= 0 {
		return errors.New("pubsub: inbound_queue_size must be positive")
	}
	if c.RateCount <= 0 || c.RatePeriod <= 0 {
		return errors.New("pubsub: rate_count and rate_period must be positive")
	}
	if c.RetryInterval <= 0 {
		return errors.New("pubsub: retry_interval must be positive")
	}
	if c.ResubscribeDelay <= 0 {
		return errors.New("pubsub: resubscribe_delay must be positive")
	}
	return nil
}
