package levels

import (
	"time"

	"crypto-signal-sentry/pkg/types"
)

const minRange = 1e-12

// Calculate 由日线K线计算经典枢轴点和斐波那契回撤位
// 始终取最后一根UTC已收盘日K（若不存在则取最后一根）；无数据返回nil
func Calculate(daily []types.Candle, now time.Time) *types.LevelSet {
	if len(daily) == 0 {
		return nil
	}

	row := pickRow(daily, now)

	ls := pivotsFrom(row.High, row.Low, row.Close)
	applyFib(ls, row.High, row.Low)

	// 保证顺序 S3<S2<S1<P<R1<R2<R3，数据异常时按H/L/C重算
	if !ordered(ls) {
		ls = pivotsFrom(row.High, row.Low, row.Close)
		applyFib(ls, row.High, row.Low)
	}

	return ls
}

// pickRow 选取最后一根UTC日期早于今天的K线
func pickRow(daily []types.Candle, now time.Time) types.Candle {
	today := now.UTC().Truncate(24 * time.Hour)
	row := daily[len(daily)-1]

	for i := len(daily) - 1; i >= 0; i-- {
		day := daily[i].Timestamp.UTC().Truncate(24 * time.Hour)
		if day.Before(today) {
			return daily[i]
		}
	}

	return row
}

func pivotsFrom(high, low, close float64) *types.LevelSet {
	p := (high + low + close) / 3.0
	return &types.LevelSet{
		P:  p,
		R1: 2*p - low,
		S1: 2*p - high,
		R2: p + (high - low),
		S2: p - (high - low),
		R3: high + 2*(p-low),
		S3: low - 2*(high-p),
	}
}

func applyFib(ls *types.LevelSet, high, low float64) {
	diff := high - low
	if diff < minRange {
		diff = minRange
	}
	ls.F236 = high - 0.236*diff
	ls.F382 = high - 0.382*diff
	ls.F500 = high - 0.500*diff
	ls.F618 = high - 0.618*diff
	ls.F786 = high - 0.786*diff
}

func ordered(ls *types.LevelSet) bool {
	return ls.S3 < ls.S2 && ls.S2 < ls.S1 && ls.S1 < ls.P &&
		ls.P < ls.R1 && ls.R1 < ls.R2 && ls.R2 < ls.R3
}
