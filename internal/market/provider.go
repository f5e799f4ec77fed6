package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-signal-sentry/pkg/types"
)

// Provider 按优先级组合数据源：实时订阅缓存 → OKX REST → CoinGecko
// 所有方法在全部数据源失败时返回nil，不返回空切片
type Provider struct {
	okx    *OKXClient
	cg     *CoinGeckoClient
	stream *Stream // 可为nil（未开启实时订阅）
}

// NewProvider 创建行情数据提供者
func NewProvider(okx *OKXClient, cg *CoinGeckoClient, stream *Stream) *Provider {
	return &Provider{okx: okx, cg: cg, stream: stream}
}

// Candles15m 15分钟K线：订阅缓存 → OKX REST → CoinGecko收盘价填充重采样
func (p *Provider) Candles15m(ctx context.Context, instID, coinID string, limit int) []types.Candle {
	if p.stream != nil {
		if candles := p.stream.Candles(instID, types.Bar15m); candles != nil {
			return candles
		}
	}

	candles, err := p.okx.FetchCandles(ctx, instID, types.Bar15m, limit)
	if err == nil && len(candles) > 0 {
		return candles
	}
	zap.L().Warn("⚠️ OKX 15m K线获取失败，回退CoinGecko",
		zap.String("inst_id", instID), zap.Error(err))

	points, err := p.cg.MarketChart(ctx, coinID, 3)
	if err != nil {
		zap.L().Warn("❌ CoinGecko价格序列获取失败", zap.String("coin_id", coinID), zap.Error(err))
		return nil
	}
	resampled := PadResample(points, 15*time.Minute)
	if len(resampled) == 0 {
		return nil
	}
	return resampled
}

// Candles5m 5分钟K线：订阅缓存 → OKX REST 5m → 15m收盘价填充重采样
func (p *Provider) Candles5m(ctx context.Context, instID, coinID string, limit int) []types.Candle {
	if p.stream != nil {
		if candles := p.stream.Candles(instID, types.Bar5m); candles != nil {
			return candles
		}
	}

	candles, err := p.okx.FetchCandles(ctx, instID, types.Bar5m, limit)
	if err == nil && len(candles) > 0 {
		return candles
	}
	zap.L().Warn("⚠️ OKX 5m K线获取失败，回退15m重采样",
		zap.String("inst_id", instID), zap.Error(err))

	fallback, err := p.okx.FetchCandles(ctx, instID, types.Bar15m, 200)
	if err != nil || len(fallback) == 0 {
		return nil
	}
	resampled := PadResample(PointsFromCandles(fallback), 5*time.Minute)
	if len(resampled) == 0 {
		return nil
	}
	return resampled
}

// Candles4H 4小时K线：15m聚合 → CoinGecko收盘价按4h取末值
func (p *Provider) Candles4H(ctx context.Context, instID, coinID string) []types.Candle {
	candles15 := p.Candles15m(ctx, instID, coinID, 400)
	if candles15 != nil {
		aggregated := AggregateOHLC(candles15, 4*time.Hour)
		if len(aggregated) > 0 {
			return aggregated
		}
	}

	points, err := p.cg.MarketChart(ctx, coinID, 8)
	if err != nil {
		zap.L().Warn("❌ CoinGecko价格序列获取失败", zap.String("coin_id", coinID), zap.Error(err))
		return nil
	}
	resampled := CandlesFromResampledLast(points, 4*time.Hour)
	if len(resampled) == 0 {
		return nil
	}
	return resampled
}

// DailyOHLC 日线K线（支撑阻力位计算用）：CoinGecko OHLC → 15m聚合兜底
func (p *Provider) DailyOHLC(ctx context.Context, instID, coinID string) []types.Candle {
	daily, err := p.cg.OHLCDaily(ctx, coinID, 14)
	if err == nil && len(daily) > 0 {
		return daily
	}
	zap.L().Warn("⚠️ CoinGecko日线OHLC获取失败，回退15m聚合",
		zap.String("coin_id", coinID), zap.Error(err))

	candles15, err := p.okx.FetchCandles(ctx, instID, types.Bar15m, 400)
	if err != nil || len(candles15) < 4 {
		return nil
	}
	aggregated := AggregateOHLC(candles15, 24*time.Hour)
	if len(aggregated) == 0 {
		return nil
	}
	return aggregated
}

// SpotPrice 现价：CoinGecko简单价格
func (p *Provider) SpotPrice(ctx context.Context, coinID string) (float64, error) {
	return p.cg.SimplePrice(ctx, coinID)
}
