package market

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// 符号解析时按此顺序优先选择计价币
var preferredQuotes = []string{"USDT", "USDC", "USD"}

// SymbolResolver 由CoinGecko币种ID解析OKX现货instId，带进程内缓存
type SymbolResolver struct {
	okx *OKXClient
	cg  *CoinGeckoClient

	mu    sync.RWMutex
	cache map[string]string // coinID -> instId
}

// NewSymbolResolver 创建符号解析器
func NewSymbolResolver(okx *OKXClient, cg *CoinGeckoClient) *SymbolResolver {
	return &SymbolResolver{
		okx:   okx,
		cg:    cg,
		cache: make(map[string]string),
	}
}

// Resolve 解析coinID对应的OKX instId
// 策略：符号直接猜测 <SYM>-USDT → 目录按基础币检索 → CoinGecko挂牌兜底
func (r *SymbolResolver) Resolve(ctx context.Context, coinID string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(coinID))
	if key == "" {
		return "", fmt.Errorf("币种ID为空")
	}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	base, err := r.cg.CoinSymbol(ctx, key)
	if err != nil {
		return "", fmt.Errorf("获取币种符号失败: %w", err)
	}

	// 1. 直接猜测 <SYM>-USDT
	guess := base + "-USDT"
	if r.okx.ValidateInstrument(ctx, guess) {
		r.store(key, guess)
		return guess, nil
	}

	// 2. 在现货目录中按基础币检索
	if found := r.searchByBase(ctx, base); found != "" {
		r.store(key, found)
		return found, nil
	}

	// 3. 最后手段：CoinGecko挂牌中找OKX市场
	if found := r.fromCoinTickers(ctx, key); found != "" {
		r.store(key, found)
		return found, nil
	}

	return "", fmt.Errorf("无法为币种解析OKX交易对: %s", coinID)
}

func (r *SymbolResolver) store(key, instID string) {
	r.mu.Lock()
	r.cache[key] = instID
	r.mu.Unlock()
	zap.L().Info("✅ 解析交易对成功", zap.String("coin_id", key), zap.String("inst_id", instID))
}

func (r *SymbolResolver) searchByBase(ctx context.Context, base string) string {
	items, err := r.okx.ListInstruments(ctx)
	if err != nil {
		zap.L().Warn("获取交易对目录失败", zap.Error(err))
		return ""
	}

	base = strings.ToUpper(base)
	for _, quote := range preferredQuotes {
		for _, it := range items {
			if strings.ToUpper(it.BaseCcy) == base && strings.ToUpper(it.QuoteCcy) == quote {
				if it.State == "live" || it.State == "suspend" {
					return it.InstID
				}
			}
		}
	}

	// 未命中偏好计价币时返回任意匹配
	for _, it := range items {
		if strings.ToUpper(it.BaseCcy) == base {
			return it.InstID
		}
	}
	return ""
}

func (r *SymbolResolver) fromCoinTickers(ctx context.Context, coinID string) string {
	tickers, err := r.cg.CoinTickers(ctx, coinID)
	if err != nil {
		zap.L().Warn("获取币种挂牌失败", zap.Error(err))
		return ""
	}

	for _, quote := range preferredQuotes {
		for _, t := range tickers {
			if strings.Contains(strings.ToUpper(t.Market), "OKX") && t.Target == quote && t.Base != "" {
				inst := t.Base + "-" + t.Target
				if r.okx.ValidateInstrument(ctx, inst) {
					return inst
				}
			}
		}
	}
	return ""
}
