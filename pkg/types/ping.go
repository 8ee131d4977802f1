package types

import "time"

// PingHistorySize 每个节点保留的探测样本数
const PingHistorySize = 4

// PingSample 一次探测结果
type PingSample struct {
	// LatencyMs 往返时延（毫秒）
	LatencyMs int64
	// At 探测完成时间
	At time.Time
}

// PingHistory 定长探测记录，最新的在前
//
// 零值可用。非并发安全，由持有者加锁。
type PingHistory struct {
	samples []PingSample
}

// Push 插入新样本，超出容量时淘汰最旧的样本
func (h *PingHistory) Push(s PingSample) {
	n := len(h.samples) + 1
	if n > PingHistorySize {
		n = PingHistorySize
	}
	next := make([]PingSample, n)
	next[0] = s
	copy(next[1:], h.samples)
	h.samples = next
}

// Samples 返回样本副本，最新的在前
func (h *PingHistory) Samples() []PingSample {
	out := make([]PingSample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Latest 返回最新样本
func (h *PingHistory) Latest() (PingSample, bool) {
	if len(h.samples) == 0 {
		return PingSample{}, false
	}
	return h.samples[0], true
}

// Len 返回样本数
func (h *PingHistory) Len() int {
	return len(h.samples)
}
