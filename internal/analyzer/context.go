package analyzer

import (
	"context"

	"crypto-signal-sentry/internal/indicators"
	"crypto-signal-sentry/internal/market"
	"crypto-signal-sentry/pkg/types"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Builder 多周期行情快照构建器
type Builder struct {
	provider *market.Provider
}

// NewBuilder 创建快照构建器
func NewBuilder(provider *market.Provider) *Builder {
	return &Builder{provider: provider}
}

// Context4H 构建4小时趋势快照，数据不可用返回nil
func (b *Builder) Context4H(ctx context.Context, instID, coinID string) *types.Context4H {
	candles := b.provider.Candles4H(ctx, instID, coinID)
	return BuildContext4H(candles)
}

// Context15M 构建15分钟操作快照，数据不可用返回nil
func (b *Builder) Context15M(ctx context.Context, instID, coinID string) *types.Context15M {
	candles := b.provider.Candles15m(ctx, instID, coinID, 400)
	return BuildContext15M(candles)
}

// Context5M 构建5分钟执行快照，数据不可用返回nil
func (b *Builder) Context5M(ctx context.Context, instID, coinID string) *types.Context5M {
	candles := b.provider.Candles5m(ctx, instID, coinID, 300)
	return BuildContext5M(candles)
}

// BuildContext4H 由4小时K线计算趋势快照
// 趋势判定：RSI>50且价格>EMA50为上行，RSI<50且价格<EMA50为下行
func BuildContext4H(candles []types.Candle) *types.Context4H {
	if len(candles) == 0 {
		return nil
	}

	closes := market.Closes(candles)
	rsiSeries := indicators.RSI(closes, rsiPeriod)
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	ema200 := indicators.EMA(closes, 200)

	last := len(closes) - 1
	price := closes[last]
	rsi := rsiSeries[last]
	e50 := ema50[last]

	return &types.Context4H{
		Candles:   candles,
		Price:     price,
		RSI:       rsi,
		EMA20:     ema20[last],
		EMA50:     e50,
		EMA200:    ema200[last],
		TrendUp:   rsi > 50 && price > e50,
		TrendDown: rsi < 50 && price < e50,
	}
}

// BuildContext15M 由15分钟K线计算操作快照
func BuildContext15M(candles []types.Candle) *types.Context15M {
	if len(candles) == 0 {
		return nil
	}

	closes := market.Closes(candles)
	macdLine, sigLine, _ := indicators.MACD(closes, macdFast, macdSlow, macdSignal)
	rsiSeries := indicators.RSI(closes, rsiPeriod)
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	ema200 := indicators.EMA(closes, 200)

	last := len(closes) - 1
	return &types.Context15M{
		Candles: candles,
		Price:   closes[last],
		RSI:     rsiSeries[last],
		EMA20:   ema20[last],
		EMA50:   ema50[last],
		EMA200:  ema200[last],
		MACDUp:  macdLine[last] > sigLine[last],
	}
}

// BuildContext5M 由5分钟K线计算执行快照
func BuildContext5M(candles []types.Candle) *types.Context5M {
	if len(candles) == 0 {
		return nil
	}

	closes := market.Closes(candles)
	macdLine, sigLine, _ := indicators.MACD(closes, macdFast, macdSlow, macdSignal)
	rsiSeries := indicators.RSI(closes, rsiPeriod)

	last := len(closes) - 1
	return &types.Context5M{
		Candles: candles,
		Price:   closes[last],
		RSI:     rsiSeries[last],
		MACDUp:  macdLine[last] > sigLine[last],
	}
}

// TrendState 由快照得到趋势状态标签
func TrendState(ctx4 *types.Context4H) string {
	switch {
	case ctx4 == nil:
		return types.TrendStateSide
	case ctx4.TrendUp:
		return types.TrendStateUp
	case ctx4.TrendDown:
		return types.TrendStateDown
	default:
		return types.TrendStateSide
	}
}
