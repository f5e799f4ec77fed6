package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"crypto-signal-sentry/pkg/types"
)

// runtimeSnapshot 单个聊天的运行期状态快照（Redis备份格式）
type runtimeSnapshot struct {
	EntryBar    *time.Time `json:"entry_bar,omitempty"`
	Peak        *float64   `json:"peak,omitempty"`
	HeaderTrend string     `json:"header_trend,omitempty"`
	LastPlot    *time.Time `json:"last_plot,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RuntimeStore 运行期报警状态：进场K线、峰值价、头部趋势、制图冷却
// 纯内存存储，Redis可用时异步备份；重启后状态重置是可接受的
type RuntimeStore struct {
	mu          sync.RWMutex
	entryBars   map[int64]time.Time
	peaks       map[int64]float64
	headerTrend map[int64]string
	lastPlots   map[int64]time.Time

	redisClient *redis.Client
	useRedis    bool
}

// NewRuntimeStore 创建运行期状态存储
func NewRuntimeStore(redisConfig types.RedisConfig) *RuntimeStore {
	rs := &RuntimeStore{
		entryBars:   make(map[int64]time.Time),
		peaks:       make(map[int64]float64),
		headerTrend: make(map[int64]string),
		lastPlots:   make(map[int64]time.Time),
	}

	// 尝试连接Redis
	if redisConfig.URL != "" {
		rs.redisClient = redis.NewClient(&redis.Options{
			Addr:     redisConfig.URL,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := rs.redisClient.Ping(ctx).Result(); err != nil {
			zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
			rs.useRedis = false
		} else {
			zap.L().Info("✅ Redis连接成功")
			rs.useRedis = true
		}
	} else {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
	}

	return rs
}

// EntryBar 上次进场所在的15分钟K线时间
func (rs *RuntimeStore) EntryBar(chatID int64) (time.Time, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	ts, ok := rs.entryBars[chatID]
	return ts, ok
}

// SetEntryBar 记录进场K线时间
func (rs *RuntimeStore) SetEntryBar(chatID int64, ts time.Time) {
	rs.mu.Lock()
	rs.entryBars[chatID] = ts
	rs.mu.Unlock()
	rs.backup(chatID)
}

// Peak 持仓期间的峰值价
func (rs *RuntimeStore) Peak(chatID int64) (float64, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	peak, ok := rs.peaks[chatID]
	return peak, ok
}

// SetPeak 更新峰值价
func (rs *RuntimeStore) SetPeak(chatID int64, peak float64) {
	rs.mu.Lock()
	rs.peaks[chatID] = peak
	rs.mu.Unlock()
	rs.backup(chatID)
}

// ClearPosition 平仓后清除峰值记录
func (rs *RuntimeStore) ClearPosition(chatID int64) {
	rs.mu.Lock()
	delete(rs.peaks, chatID)
	rs.mu.Unlock()
	rs.backup(chatID)
}

// HeaderTrend 上次发布的头部趋势状态，无记录返回空串
func (rs *RuntimeStore) HeaderTrend(chatID int64) string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.headerTrend[chatID]
}

// SetHeaderTrend 记录头部趋势状态
func (rs *RuntimeStore) SetHeaderTrend(chatID int64, state string) {
	rs.mu.Lock()
	rs.headerTrend[chatID] = state
	rs.mu.Unlock()
	rs.backup(chatID)
}

// LastPlot 上次发图时间，无记录返回零值
func (rs *RuntimeStore) LastPlot(chatID int64) time.Time {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.lastPlots[chatID]
}

// MarkPlot 记录发图时间
func (rs *RuntimeStore) MarkPlot(chatID int64, ts time.Time) {
	rs.mu.Lock()
	rs.lastPlots[chatID] = ts
	rs.mu.Unlock()
	rs.backup(chatID)
}

// Forget 清除聊天的全部运行期状态
func (rs *RuntimeStore) Forget(chatID int64) {
	rs.mu.Lock()
	delete(rs.entryBars, chatID)
	delete(rs.peaks, chatID)
	delete(rs.headerTrend, chatID)
	delete(rs.lastPlots, chatID)
	rs.mu.Unlock()

	if rs.useRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		rs.redisClient.Del(ctx, runtimeKey(chatID))
	}
}

// backup 异步备份聊天状态到Redis
func (rs *RuntimeStore) backup(chatID int64) {
	if !rs.useRedis {
		return
	}
	go rs.backupToRedis(chatID)
}

func (rs *RuntimeStore) backupToRedis(chatID int64) {
	rs.mu.RLock()
	snap := runtimeSnapshot{UpdatedAt: time.Now()}
	if ts, ok := rs.entryBars[chatID]; ok {
		snap.EntryBar = &ts
	}
	if peak, ok := rs.peaks[chatID]; ok {
		snap.Peak = &peak
	}
	snap.HeaderTrend = rs.headerTrend[chatID]
	if ts, ok := rs.lastPlots[chatID]; ok {
		snap.LastPlot = &ts
	}
	rs.mu.RUnlock()

	value, err := json.Marshal(snap)
	if err != nil {
		zap.L().Warn("序列化运行期状态失败", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rs.redisClient.Set(ctx, runtimeKey(chatID), value, 24*time.Hour).Err(); err != nil {
		zap.L().Warn("Redis备份失败", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func runtimeKey(chatID int64) string {
	return fmt.Sprintf("sentry:runtime:%d", chatID)
}
