package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-signal-sentry/internal/storage"
)

// 统计报告周期与回看窗口
const (
	reportInterval = 30 * time.Minute
	lookbackWindow = 24 * time.Hour
)

// AlertMonitor 周期性汇总最近24小时各类报警的发送量
type AlertMonitor struct {
	repo *storage.ChatRepo

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAlertMonitor 创建报警统计监控器
func NewAlertMonitor(repo *storage.ChatRepo) *AlertMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertMonitor{repo: repo, ctx: ctx, cancel: cancel}
}

// Start 启动统计循环
func (m *AlertMonitor) Start() {
	zap.L().Info("📊 启动报警统计监控器", zap.Duration("interval", reportInterval))
	go m.reportLoop()
}

// Stop 停止统计循环
func (m *AlertMonitor) Stop() {
	m.cancel()
}

func (m *AlertMonitor) reportLoop() {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *AlertMonitor) report() {
	stats, err := m.repo.CountAlertsSince(time.Now().Add(-lookbackWindow))
	if err != nil {
		zap.L().Warn("⚠️ 报警统计查询失败", zap.Error(err))
		return
	}

	var total int64
	fields := make([]zap.Field, 0, len(stats)+1)
	for kind, count := range stats {
		total += count
		fields = append(fields, zap.Int64(kind, count))
	}
	fields = append(fields, zap.Int64("total", total))

	zap.L().Info("📊 最近24小时报警统计", fields...)
}
