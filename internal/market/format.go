package market

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// PriceFormatter 按交易对的tickSz确定价格显示精度，带进程内缓存
type PriceFormatter struct {
	okx *OKXClient

	mu    sync.RWMutex
	cache map[string]int // instId -> 小数位数
}

// NewPriceFormatter 创建价格格式化器
func NewPriceFormatter(okx *OKXClient) *PriceFormatter {
	return &PriceFormatter{
		okx:   okx,
		cache: make(map[string]int),
	}
}

// FmtPrice 按交易对精度格式化价格
func (f *PriceFormatter) FmtPrice(ctx context.Context, instID string, value float64) string {
	dp := f.Decimals(ctx, instID, value)
	return strconv.FormatFloat(value, 'f', dp, 64)
}

// Decimals 交易对显示小数位：优先OKX tickSz，失败按价格量级兜底
// 结果限制在[0,10]
func (f *PriceFormatter) Decimals(ctx context.Context, instID string, samplePrice float64) int {
	if instID != "" {
		f.mu.RLock()
		dp, ok := f.cache[instID]
		f.mu.RUnlock()
		if ok {
			return dp
		}

		if tick, err := f.okx.TickSize(ctx, instID); err == nil {
			dp = decimalsFromTickSize(tick)
			f.mu.Lock()
			f.cache[instID] = dp
			f.mu.Unlock()
			return dp
		}
	}

	return fallbackDecimals(samplePrice)
}

// decimalsFromTickSize tickSz形如"0.0001"或"0.01"
func decimalsFromTickSize(tick string) int {
	if tick == "" || !strings.Contains(tick, ".") {
		return 0
	}
	frac := strings.TrimRight(strings.SplitN(tick, ".", 2)[1], "0")
	dp := len(frac)
	return clampDecimals(dp)
}

// fallbackDecimals 按价格量级取合理小数位
func fallbackDecimals(price float64) int {
	switch {
	case price >= 100:
		return 2
	case price >= 1:
		return 3
	case price >= 0.1:
		return 4
	case price >= 0.01:
		return 5
	case price >= 0.001:
		return 6
	case price >= 0.0001:
		return 7
	default:
		return 8
	}
}

func clampDecimals(dp int) int {
	if dp < 0 {
		return 0
	}
	if dp > 10 {
		return 10
	}
	return dp
}
