package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-sentry/pkg/types"
)

func minuteCandles(start time.Time, step time.Duration, closes ...float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      c - 1,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    1,
		}
	}
	return candles
}

func TestAggregateOHLC(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 15*time.Minute, 100, 105, 95, 102)

	hourly := AggregateOHLC(candles, time.Hour)
	require.Len(t, hourly, 1)

	assert.Equal(t, start, hourly[0].Timestamp)
	assert.InDelta(t, 99.0, hourly[0].Open, 1e-9)  // 第一根的开盘
	assert.InDelta(t, 107.0, hourly[0].High, 1e-9) // 105+2
	assert.InDelta(t, 93.0, hourly[0].Low, 1e-9)   // 95-2
	assert.InDelta(t, 102.0, hourly[0].Close, 1e-9)
	assert.InDelta(t, 4.0, hourly[0].Volume, 1e-9)
}

func TestAggregateOHLCMultipleBuckets(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 2*time.Hour, 100, 105, 95)

	fourH := AggregateOHLC(candles, 4*time.Hour)
	require.Len(t, fourH, 2)
	assert.True(t, fourH[0].Timestamp.Before(fourH[1].Timestamp))
	assert.InDelta(t, 105.0, fourH[0].Close, 1e-9)
	assert.InDelta(t, 95.0, fourH[1].Close, 1e-9)
}

func TestAggregateOHLCEmpty(t *testing.T) {
	assert.Nil(t, AggregateOHLC(nil, time.Hour))
	assert.Nil(t, AggregateOHLC([]types.Candle{{}}, 0))
}

func TestPadResampleForwardFills(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	points := []types.PricePoint{
		{Timestamp: start, Price: 10},
		{Timestamp: start.Add(45 * time.Minute), Price: 12}, // 中间两个15m空档
	}

	candles := PadResample(points, 15*time.Minute)
	require.Len(t, candles, 4)
	assert.InDelta(t, 10.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 10.0, candles[1].Close, 1e-9) // 前向填充
	assert.InDelta(t, 10.0, candles[2].Close, 1e-9)
	assert.InDelta(t, 12.0, candles[3].Close, 1e-9)

	// 只有收盘价时四价相等
	for _, c := range candles {
		assert.Equal(t, c.Close, c.Open)
		assert.Equal(t, c.Close, c.High)
		assert.Equal(t, c.Close, c.Low)
	}
}

func TestCandlesFromResampledLast(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	points := []types.PricePoint{
		{Timestamp: start.Add(10 * time.Minute), Price: 10},
		{Timestamp: start.Add(50 * time.Minute), Price: 11}, // 同一个4h bucket，取末值
		{Timestamp: start.Add(5 * time.Hour), Price: 20},
	}

	candles := CandlesFromResampledLast(points, 4*time.Hour)
	require.Len(t, candles, 2)
	assert.InDelta(t, 11.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 20.0, candles[1].Close, 1e-9)
}

func TestClosesAndPoints(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 5*time.Minute, 1, 2, 3)

	assert.Equal(t, []float64{1, 2, 3}, Closes(candles))

	points := PointsFromCandles(candles)
	require.Len(t, points, 3)
	assert.Equal(t, candles[2].Timestamp, points[2].Timestamp)
	assert.InDelta(t, 3.0, points[2].Price, 1e-9)
}

func TestDecimalsFromTickSize(t *testing.T) {
	assert.Equal(t, 4, decimalsFromTickSize("0.0001"))
	assert.Equal(t, 2, decimalsFromTickSize("0.01"))
	assert.Equal(t, 1, decimalsFromTickSize("0.100"))
	assert.Equal(t, 0, decimalsFromTickSize("1"))
	assert.Equal(t, 0, decimalsFromTickSize(""))
}

func TestFallbackDecimals(t *testing.T) {
	assert.Equal(t, 2, fallbackDecimals(25000))
	assert.Equal(t, 3, fallbackDecimals(1.5))
	assert.Equal(t, 4, fallbackDecimals(0.35))
	assert.Equal(t, 8, fallbackDecimals(0.00001))
}
