package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"crypto-signal-sentry/internal/market"
	"crypto-signal-sentry/internal/storage"
	"crypto-signal-sentry/pkg/types"
)

type stubNotifier struct {
	alerts int
	photos int
}

func (n *stubNotifier) SendAlert(chatID int64, text string) error { n.alerts++; return nil }

func (n *stubNotifier) SendPhoto(chatID int64, image []byte, caption string) error {
	n.photos++
	return nil
}

type stubRenderer struct{ calls int }

func (r *stubRenderer) Render(candles []types.Candle, lv *types.LevelSet, title string) ([]byte, error) {
	r.calls++
	return []byte{0x89}, nil
}

func seriesCandles(step time.Duration, closes []float64) []types.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Timestamp: base.Add(time.Duration(i) * step),
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return candles
}

func dailyCandles(closes ...float64) []types.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return candles
}

func TestDayChangePct(t *testing.T) {
	assert.InDelta(t, 5.0, dayChangePct(dailyCandles(100, 105)), 1e-9)
	assert.InDelta(t, -2.0, dayChangePct(dailyCandles(100, 98)), 1e-9)
	assert.Zero(t, dayChangePct(dailyCandles(100)))
	assert.Zero(t, dayChangePct(nil))
}

func TestHeaderText(t *testing.T) {
	up := headerText("BTC-USDT", types.TrendStateUp, "65000", 1.23)
	assert.Contains(t, up, "🟢")
	assert.Contains(t, up, "上行")
	assert.Contains(t, up, "BTC-USDT")
	assert.Contains(t, up, "+1.23%")

	down := headerText("BTC-USDT", types.TrendStateDown, "65000", -0.5)
	assert.Contains(t, down, "🔴")
	assert.Contains(t, down, "下行")

	side := headerText("BTC-USDT", types.TrendStateSide, "65000", 0)
	assert.Contains(t, side, "⚪")
	assert.Contains(t, side, "震荡")
}

func TestGainPct(t *testing.T) {
	assert.Equal(t, "+2.50%", gainPct(0.025))
	assert.Equal(t, "-1.00%", gainPct(-0.01))
}

func TestManagePositionPlotsWhileHolding(t *testing.T) {
	rt := storage.NewRuntimeStore(types.RedisConfig{})
	rend := &stubRenderer{}
	nt := &stubNotifier{}
	s := NewSentry(nil, rt, nil, nil, nil, market.NewPriceFormatter(nil), nt, rend)

	entry := 100.0
	cfg := &storage.ChatConfig{ChatID: 7, TakeProfitPct: 50, StopLossPct: 50, EntryPrice: &entry}
	snap := snapshot{ctx15: &types.Context15M{Candles: seriesCandles(15*time.Minute, []float64{100, 101, 100})}}
	in := evalInputs{price: 100.0, ema20: 99.0, macd5Up: true}

	// 持仓未平时每轮附带图表
	s.managePosition(context.Background(), 7, cfg, "", snap, nil, in)
	assert.Equal(t, 1, rend.calls)
	assert.Equal(t, 1, nt.photos)

	// 冷却期内不重复发图
	s.managePosition(context.Background(), 7, cfg, "", snap, nil, in)
	assert.Equal(t, 1, rend.calls)
	assert.Equal(t, 1, nt.photos)
}

func TestTickInputsPrecisionUsesClosedCandle(t *testing.T) {
	closes15 := make([]float64, 40)
	for i := range closes15 {
		closes15[i] = 100 + float64(i)
	}
	closes5 := make([]float64, 40)
	for i := range closes5 {
		closes5[i] = 50 + float64(i)
	}

	snap := snapshot{
		ctx15: &types.Context15M{
			Candles: seriesCandles(15*time.Minute, closes15),
			Price:   999, RSI: 1, EMA20: 2, MACDUp: false,
		},
		ctx5: &types.Context5M{Candles: seriesCandles(5*time.Minute, closes5), MACDUp: false},
	}

	// 非精确模式直接取快照值
	live := tickInputs(snap, false)
	assert.Equal(t, 999.0, live.price)
	assert.Equal(t, 1.0, live.rsi15)
	assert.False(t, live.macd15Up)

	// 精确模式取已收盘K线（倒数第二根）重新计算
	prec := tickInputs(snap, true)
	assert.InDelta(t, closes15[len(closes15)-2], prec.price, 1e-9)
	assert.Greater(t, prec.rsi15, 90.0) // 单边上行RSI接近满值
	assert.Less(t, prec.ema20, prec.price)
	assert.True(t, prec.macd15Up)
	assert.True(t, prec.macd5Up)
}

func TestTickInputsFallsBackOnShortSeries(t *testing.T) {
	snap := snapshot{
		ctx15: &types.Context15M{Candles: seriesCandles(15*time.Minute, []float64{100, 101}), Price: 5},
		ctx5:  &types.Context5M{Candles: seriesCandles(5*time.Minute, []float64{50, 51})},
	}
	fb := tickInputs(snap, true)
	assert.Equal(t, 5.0, fb.price)
}

func TestHist15Grows(t *testing.T) {
	// 加速上涨的收盘序列，柱状图应在走强
	closes := make([]float64, 60)
	v := 100.0
	for i := range closes {
		v += float64(i) * 0.05
		closes[i] = v
	}
	candles := make([]types.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = types.Candle{Timestamp: base.Add(time.Duration(i) * 15 * time.Minute), Close: c}
	}
	assert.True(t, hist15Grows(&types.Context15M{Candles: candles}))

	assert.False(t, hist15Grows(&types.Context15M{Candles: candles[:1]}))
}
