package wheel

import (
	"sync"
	"sync/atomic"
	"time"
)

// SpinMetrics 转盘运行指标
type SpinMetrics struct {
	// 旋转统计
	TotalSpins    int64 `json:"total_spins"`    // 开始的旋转次数
	RejectedSpins int64 `json:"rejected_spins"` // 因已有旋转进行中而被拒绝的次数
	FailedSpins   int64 `json:"failed_spins"`   // 因选项或随机源错误而失败的次数
	RevealedSpins int64 `json:"revealed_spins"` // 已揭晓的旋转次数

	// 选项统计
	RemovedWinners int64 `json:"removed_winners"` // 揭晓后被移除的中奖选项数
	OptionEdits    int64 `json:"option_edits"`    // 选项增删改次数

	// 存储统计
	StoreErrors int64 `json:"store_errors"` // 存储读写错误数

	// 性能统计
	TotalSpinTime   int64 `json:"total_spin_time"`   // 从开始到揭晓的总时间(纳秒)
	AverageSpinTime int64 `json:"average_spin_time"` // 平均旋转时间(纳秒)

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// GetRejectionRate 获取被拒绝的旋转占比
func (m *SpinMetrics) GetRejectionRate() float64 {
	total := atomic.LoadInt64(&m.TotalSpins) + atomic.LoadInt64(&m.RejectedSpins)
	if total == 0 {
		return 0.0
	}
	return float64(atomic.LoadInt64(&m.RejectedSpins)) / float64(total) * 100.0
}

// GetAverageSpinTime 获取平均旋转时间
func (m *SpinMetrics) GetAverageSpinTime() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.AverageSpinTime))
}

// Reset 重置指标
func (m *SpinMetrics) Reset() {
	atomic.StoreInt64(&m.TotalSpins, 0)
	atomic.StoreInt64(&m.RejectedSpins, 0)
	atomic.StoreInt64(&m.FailedSpins, 0)
	atomic.StoreInt64(&m.RevealedSpins, 0)
	atomic.StoreInt64(&m.RemovedWinners, 0)
	atomic.StoreInt64(&m.OptionEdits, 0)
	atomic.StoreInt64(&m.StoreErrors, 0)
	atomic.StoreInt64(&m.TotalSpinTime, 0)
	atomic.StoreInt64(&m.AverageSpinTime, 0)
	atomic.StoreInt64(&m.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&m.LastUpdateTime, time.Now().UnixNano())
}

// ================================================================================

// SpinMonitor 转盘指标监控器
type SpinMonitor struct {
	metrics *SpinMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewSpinMonitor 创建新的监控器
func NewSpinMonitor() *SpinMonitor {
	sm := &SpinMonitor{
		metrics: &SpinMetrics{},
		enabled: true,
	}
	sm.metrics.Reset()
	return sm
}

// Enable 启用监控
func (sm *SpinMonitor) Enable() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.enabled = true
}

// Disable 禁用监控
func (sm *SpinMonitor) Disable() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.enabled = false
}

// IsEnabled 检查是否启用了监控
func (sm *SpinMonitor) IsEnabled() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.enabled
}

func (sm *SpinMonitor) touch() {
	atomic.StoreInt64(&sm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordSpin 记录旋转开始
func (sm *SpinMonitor) RecordSpin() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.TotalSpins, 1)
	sm.touch()
}

// RecordRejected 记录被拒绝的旋转
func (sm *SpinMonitor) RecordRejected() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.RejectedSpins, 1)
	sm.touch()
}

// RecordFailed 记录失败的旋转
func (sm *SpinMonitor) RecordFailed() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.FailedSpins, 1)
	sm.touch()
}

// RecordReveal 记录揭晓及从开始到揭晓的时间
func (sm *SpinMonitor) RecordReveal(duration time.Duration) {
	if !sm.IsEnabled() {
		return
	}

	revealed := atomic.AddInt64(&sm.metrics.RevealedSpins, 1)
	totalTime := atomic.AddInt64(&sm.metrics.TotalSpinTime, int64(duration))
	atomic.StoreInt64(&sm.metrics.AverageSpinTime, totalTime/revealed)
	sm.touch()
}

// RecordRemovedWinner 记录移除中奖选项
func (sm *SpinMonitor) RecordRemovedWinner() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.RemovedWinners, 1)
	sm.touch()
}

// RecordOptionEdit 记录选项编辑
func (sm *SpinMonitor) RecordOptionEdit() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.OptionEdits, 1)
	sm.touch()
}

// RecordStoreError 记录存储错误
func (sm *SpinMonitor) RecordStoreError() {
	if !sm.IsEnabled() {
		return
	}
	atomic.AddInt64(&sm.metrics.StoreErrors, 1)
	sm.touch()
}

// GetMetrics 获取指标的副本
func (sm *SpinMonitor) GetMetrics() SpinMetrics {
	return SpinMetrics{
		TotalSpins:      atomic.LoadInt64(&sm.metrics.TotalSpins),
		RejectedSpins:   atomic.LoadInt64(&sm.metrics.RejectedSpins),
		FailedSpins:     atomic.LoadInt64(&sm.metrics.FailedSpins),
		RevealedSpins:   atomic.LoadInt64(&sm.metrics.RevealedSpins),
		RemovedWinners:  atomic.LoadInt64(&sm.metrics.RemovedWinners),
		OptionEdits:     atomic.LoadInt64(&sm.metrics.OptionEdits),
		StoreErrors:     atomic.LoadInt64(&sm.metrics.StoreErrors),
		TotalSpinTime:   atomic.LoadInt64(&sm.metrics.TotalSpinTime),
		AverageSpinTime: atomic.LoadInt64(&sm.metrics.AverageSpinTime),
		StartTime:       atomic.LoadInt64(&sm.metrics.StartTime),
		LastUpdateTime:  atomic.LoadInt64(&sm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置指标
func (sm *SpinMonitor) ResetMetrics() { sm.metrics.Reset() }
