package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSeries(value float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestEMAConstantSeries(t *testing.T) {
	series := constantSeries(100, 50)
	ema := EMA(series, 20)

	require.Len(t, ema, 50)
	for _, v := range ema {
		assert.InDelta(t, 100.0, v, 1e-9)
	}
}

func TestEMASeedsFromFirstElement(t *testing.T) {
	series := []float64{10, 20, 30}
	ema := EMA(series, 9)

	require.Len(t, ema, 3)
	assert.Equal(t, 10.0, ema[0])
	// alpha = 2/(9+1) = 0.2
	assert.InDelta(t, 0.2*20+0.8*10, ema[1], 1e-9)
}

func TestEMAShortAndEmptyInput(t *testing.T) {
	assert.Nil(t, EMA(nil, 20))
	assert.Nil(t, EMA([]float64{1, 2, 3}, 0))

	// 数据不足span时仍返回等长的近似序列
	ema := EMA([]float64{5, 6}, 200)
	require.Len(t, ema, 2)
	assert.Equal(t, 5.0, ema[0])
}

func TestRSIConstantSeriesIsNeutral(t *testing.T) {
	series := constantSeries(42, 100)
	rsi := RSI(series, 14)

	require.Len(t, rsi, 100)
	for _, v := range rsi {
		assert.InDelta(t, 50.0, v, 1e-9)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 60)
	down := make([]float64, 60)
	for i := range up {
		up[i] = float64(i)
		down[i] = float64(60 - i)
	}

	rsiUp := RSI(up, 14)
	rsiDown := RSI(down, 14)

	assert.Greater(t, rsiUp[len(rsiUp)-1], 90.0)
	assert.Less(t, rsiDown[len(rsiDown)-1], 10.0)
}

func TestRSIBounds(t *testing.T) {
	series := []float64{10, 12, 11, 13, 9, 15, 14, 16, 12, 18, 17, 19, 15, 21, 20}
	rsi := RSI(series, 14)

	require.Len(t, rsi, len(series))
	for _, v := range rsi {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestMACDConstantSeriesHistogramIsZero(t *testing.T) {
	series := constantSeries(250, 120)
	macd, sig, hist := MACD(series, 12, 26, 9)

	require.Len(t, macd, 120)
	require.Len(t, sig, 120)
	require.Len(t, hist, 120)
	for i := range hist {
		assert.InDelta(t, 0.0, macd[i], 1e-9)
		assert.InDelta(t, 0.0, hist[i], 1e-9)
	}
}

func TestMACDUptrendHistogramTurnsPositive(t *testing.T) {
	series := make([]float64, 100)
	for i := range series {
		series[i] = 100 + float64(i)*0.5
	}

	_, _, hist := MACD(series, 12, 26, 9)
	assert.Greater(t, hist[len(hist)-1], 0.0)
}
