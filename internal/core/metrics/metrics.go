// Package metrics 提供 didpeer 的 Prometheus 指标
//
// 所有方法对 nil 接收者安全：指标关闭时组件拿到 nil，调用变为空操作。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 结果标签
const (
	ResultOK       = "ok"
	ResultRefresh  = "refresh"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
	ResultBusy     = "busy"
	ResultFailed   = "failed"
)

// Metrics 节点指标集合
type Metrics struct {
	registry *prometheus.Registry

	received      *prometheus.CounterVec
	admitted      *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
	pingLatency   *prometheus.HistogramVec
	eventsDropped *prometheus.CounterVec
	peers         *prometheus.GaugeVec
}

// New 创建指标并注册到节点私有的 Registry
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pubsub", Name: "received_total",
			Help: "Messages received from the topic before filtering.",
		}, []string{"topic"}),
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pubsub", Name: "admitted_total",
			Help: "Messages that passed the filter chain.",
		}, []string{"topic"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pubsub", Name: "dropped_total",
			Help: "Messages dropped by a filter.",
		}, []string{"topic", "filter"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pubsub", Name: "decode_errors_total",
			Help: "Admitted messages that failed to decode.",
		}, []string{"topic"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry", Name: "registrations_total",
			Help: "Identity announcements processed by the registry.",
		}, []string{"result"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "didauth", Name: "attempts_total",
			Help: "DID challenge/response attempts.",
		}, []string{"result"}),
		pingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "liveness", Name: "ping_latency_seconds",
			Help:    "Round-trip latency of liveness probes.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "eventbus", Name: "dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		}, []string{"type"}),
		peers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "registry", Name: "peers",
			Help: "Peer records by state.",
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		m.received, m.admitted, m.dropped, m.decodeErrors,
		m.registrations, m.authAttempts, m.pingLatency,
		m.eventsDropped, m.peers,
	)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReceived 记录收到的消息
func (m *Metrics) ObserveReceived(topic string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(topic).Inc()
}

// ObserveAdmitted 记录通过过滤链的消息
func (m *Metrics) ObserveAdmitted(topic string) {
	if m == nil {
		return
	}
	m.admitted.WithLabelValues(topic).Inc()
}

// ObserveDropped 记录被过滤器丢弃的消息
func (m *Metrics) ObserveDropped(topic, filter string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(topic, filter).Inc()
}

// ObserveDecodeError 记录解码失败
func (m *Metrics) ObserveDecodeError(topic string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(topic).Inc()
}

// ObserveRegistration 记录一次注册结果
func (m *Metrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

// ObserveAuth 记录一次认证结果
func (m *Metrics) ObserveAuth(result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(result).Inc()
}

// ObservePing 记录一次探测时延
func (m *Metrics) ObservePing(kind string, rtt time.Duration) {
	if m == nil {
		return
	}
	m.pingLatency.WithLabelValues(kind).Observe(rtt.Seconds())
}

// ObserveEventDropped 记录事件总线丢弃
func (m *Metrics) ObserveEventDropped(eventType string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

// SetPeers 更新节点数量
func (m *Metrics) SetPeers(total, validated, authenticated int) {
	if m == nil {
		return
	}
	m.peers.WithLabelValues("total").Set(float64(total))
	m.peers.WithLabelValues("validated").Set(float64(validated))
	m.peers.WithLabelValues("authenticated").Set(float64(authenticated))
}
