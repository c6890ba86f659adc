package service

import (
	"sort"
	"sync"
	"time"
)

// ScoringMonitor 是打分链路的内存观测：区分真实预测与降级兜底，
// 记录失败原因与延迟分布。
// 生产环境可以对接 Prometheus、StatsD 等外部监控系统。
//
// 所有方法对 nil 接收者安全（未配置 Monitor 时零开销）。
type ScoringMonitor struct {
	mu            sync.Mutex
	modelCount    uint64
	fallbackCount uint64
	failures      map[string]uint64
	latencies     []float64 // 毫秒
	maxSamples    int
}

// ScoringStats 是一次快照的统计结果。
type ScoringStats struct {
	ModelCount    uint64
	FallbackCount uint64
	FallbackRate  float64
	LatencyMeanMS float64
	LatencyP95MS  float64
	Failures      map[string]uint64
}

// NewScoringMonitor 创建打分观测；maxSamples 限制延迟样本保留数量。
func NewScoringMonitor(maxSamples int) *ScoringMonitor {
	if maxSamples <= 0 {
		maxSamples = 1024
	}
	return &ScoringMonitor{
		failures:   make(map[string]uint64),
		maxSamples: maxSamples,
	}
}

// RecordModel 记录一次成功的模型预测及其耗时。
func (m *ScoringMonitor) RecordModel(latency time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modelCount++
	if len(m.latencies) >= m.maxSamples {
		m.latencies = m.latencies[1:]
	}
	m.latencies = append(m.latencies, float64(latency.Microseconds())/1000)
}

// RecordFallback 记录一次降级及其原因。
func (m *ScoringMonitor) RecordFallback(err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallbackCount++
	if err != nil {
		m.failures[err.Error()]++
	}
}

// Snapshot 返回当前统计快照。
func (m *ScoringMonitor) Snapshot() ScoringStats {
	if m == nil {
		return ScoringStats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ScoringStats{
		ModelCount:    m.modelCount,
		FallbackCount: m.fallbackCount,
		Failures:      make(map[string]uint64, len(m.failures)),
	}
	for k, v := range m.failures {
		stats.Failures[k] = v
	}

	total := m.modelCount + m.fallbackCount
	if total > 0 {
		stats.FallbackRate = float64(m.fallbackCount) / float64(total)
	}

	if len(m.latencies) > 0 {
		sorted := make([]float64, len(m.latencies))
		copy(sorted, m.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, v := range sorted {
			sum += v
		}
		stats.LatencyMeanMS = sum / float64(len(sorted))
		stats.LatencyP95MS = percentile(sorted, 0.95)
	}
	return stats
}

// percentile 从已排序样本中取分位数。
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
