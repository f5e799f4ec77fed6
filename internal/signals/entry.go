package signals

import (
	"time"

	"crypto-signal-sentry/internal/indicators"
	"crypto-signal-sentry/internal/market"
	"crypto-signal-sentry/pkg/types"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// 精确模式下F618突破/回踩的确认容差
	fibBreakoutTolerance = 1.0005
	fibRetestTolerance   = 1.0010

	// 精确模式进场后需等待的15分钟K线数（约90分钟）
	entryCooldownBars = 6
)

// EntryInput 进场评估输入
type EntryInput struct {
	Mode      string
	Precision bool

	Ctx4  *types.Context4H
	Ctx15 *types.Context15M
	Ctx5  *types.Context5M

	Levels *types.LevelSet // 可为nil（支撑阻力位不可用）

	// 上一次进场所在的15分钟K线时间，无记录为nil
	LastEntryBar *time.Time
}

// EntryDecision 进场评估结果
type EntryDecision struct {
	Enter      bool
	EntryPrice float64
	EntryBar   time.Time // 评估所用K线时间（冷却记录用）
}

// EvaluateEntry 评估是否满足进场条件
// 宽松模式使用快照末值；精确模式只用已收盘K线并附加严格过滤
func EvaluateEntry(in EntryInput) EntryDecision {
	if in.Ctx4 == nil || in.Ctx15 == nil || in.Ctx5 == nil {
		return EntryDecision{}
	}
	if in.Precision {
		return evaluatePrecision(in)
	}
	return evaluateLoose(in)
}

func evaluateLoose(in EntryInput) EntryDecision {
	mp := ParamsForMode(in.Mode)

	rsiBuyMax := mp.RSIBuy
	if rsiBuyMax < 40 {
		rsiBuyMax = 40
	}

	enter := in.Ctx4.TrendUp &&
		in.Ctx15.RSI < rsiBuyMax &&
		in.Ctx15.MACDUp &&
		in.Ctx15.Price > in.Ctx15.EMA20 &&
		in.Ctx5.MACDUp &&
		in.Ctx5.RSI > 45

	if !enter {
		return EntryDecision{}
	}

	bar := time.Time{}
	if n := len(in.Ctx15.Candles); n > 0 {
		bar = in.Ctx15.Candles[n-1].Timestamp
	}
	return EntryDecision{Enter: true, EntryPrice: in.Ctx15.Price, EntryBar: bar}
}

func evaluatePrecision(in EntryInput) EntryDecision {
	candles15 := in.Ctx15.Candles
	candles5 := in.Ctx5.Candles
	if len(candles15) < 3 || len(candles5) < 3 {
		return EntryDecision{}
	}

	closes15 := market.Closes(candles15)
	idxC := len(closes15) - 2 // 已收盘K线

	priceC := closes15[idxC]
	prevClose := closes15[idxC-1]
	lowC := candles15[idxC].Low

	rsi15Series := indicators.RSI(closes15, rsiPeriod)
	rsi15C := rsi15Series[idxC]
	rsi15Prev := rsi15Series[idxC-1]

	macd15, sig15, hist15 := indicators.MACD(closes15, macdFast, macdSlow, macdSignal)
	macd15Up := macd15[idxC] > sig15[idxC]
	histGrows := hist15[idxC] > hist15[idxC-1]

	ema20 := indicators.EMA(closes15, 20)
	ema50 := indicators.EMA(closes15, 50)
	ema20C := ema20[idxC]
	ema50C := ema50[idxC]

	closes5 := market.Closes(candles5)
	idx5 := len(closes5) - 2
	macd5, sig5, _ := indicators.MACD(closes5, macdFast, macdSlow, macdSignal)
	macd5Up := macd5[idx5] > sig5[idx5]
	rsi5Series := indicators.RSI(closes5, rsiPeriod)
	rsi5C := rsi5Series[idx5]

	// 4H严格趋势：RSI>52且EMA完整多头排列
	trendStrict := in.Ctx4.RSI > 52 &&
		in.Ctx4.EMA20 > in.Ctx4.EMA50 && in.Ctx4.EMA50 > in.Ctx4.EMA200

	// F618突破或回踩确认；无支撑位数据时直接放行
	fibOK := true
	if in.Levels != nil && in.Levels.F618 > 0 {
		f618 := in.Levels.F618
		breakout := prevClose < f618 && priceC >= f618*fibBreakoutTolerance
		retest := priceC >= f618 && lowC <= f618*fibRetestTolerance
		fibOK = breakout || retest
	}

	// 进场冷却：距上次进场至少6根15分钟K线；K线查找失败视为放行
	cooldownOK := true
	if in.LastEntryBar != nil {
		if idxLast, found := findBarIndex(candles15, *in.LastEntryBar); found {
			cooldownOK = idxC-idxLast >= entryCooldownBars
		}
	}

	mp := ParamsForMode(in.Mode)
	thresh := mp.RSIBuy
	if thresh < 40 {
		thresh = 40
	}
	rsiCrossUp := rsi15Prev < thresh && rsi15C >= thresh+0.8

	enter := trendStrict &&
		priceC > ema20C && ema20C > ema50C &&
		macd15Up && histGrows &&
		rsi15C > 45 && rsiCrossUp &&
		macd5Up && rsi5C > 50 &&
		fibOK && cooldownOK

	if !enter {
		return EntryDecision{}
	}
	return EntryDecision{Enter: true, EntryPrice: priceC, EntryBar: candles15[idxC].Timestamp}
}

func findBarIndex(candles []types.Candle, ts time.Time) (int, bool) {
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Timestamp.Equal(ts) {
			return i, true
		}
	}
	return 0, false
}
