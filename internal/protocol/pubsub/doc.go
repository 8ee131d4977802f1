// Package pubsub 实现主题传输服务
//
// Service 订阅单个主题，将入站消息依次通过过滤链：
//
//	大小 → 自身来源 → 最小间隔 → 自定义过滤器
//
// 被接纳的消息进入有界入站队列，由分发循环在令牌桶限速下解码并交给处理器。
// 队列满时接收循环阻塞，令牌耗尽时分发循环等待，形成自然背压而不丢消息。
//
// 解码失败只计数并丢弃；接收循环出现异常（包括 panic）时在固定延迟后重新订阅，
// 服务本身不会退出。
package pubsub
