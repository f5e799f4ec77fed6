package levels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-sentry/pkg/types"
)

func dayCandle(daysAgo int, now time.Time, o, h, l, c float64) types.Candle {
	ts := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -daysAgo)
	return types.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c}
}

func TestCalculateClassicPivots(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	daily := []types.Candle{
		dayCandle(2, now, 95, 108, 88, 98),
		dayCandle(1, now, 98, 110, 90, 100),
	}

	ls := Calculate(daily, now)
	require.NotNil(t, ls)

	// P=(110+90+100)/3=100
	assert.InDelta(t, 100.0, ls.P, 1e-9)
	assert.InDelta(t, 110.0, ls.R1, 1e-9)
	assert.InDelta(t, 90.0, ls.S1, 1e-9)
	assert.InDelta(t, 120.0, ls.R2, 1e-9)
	assert.InDelta(t, 80.0, ls.S2, 1e-9)
	assert.InDelta(t, 130.0, ls.R3, 1e-9)
	assert.InDelta(t, 70.0, ls.S3, 1e-9)

	// F618 = 110 - 0.618*20 = 97.64
	assert.InDelta(t, 97.64, ls.F618, 1e-9)
	assert.InDelta(t, 105.28, ls.F236, 1e-9)
}

func TestCalculateUsesLastClosedDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	daily := []types.Candle{
		dayCandle(1, now, 98, 110, 90, 100),
		dayCandle(0, now, 100, 300, 100, 200), // 今日未收盘，应被忽略
	}

	ls := Calculate(daily, now)
	require.NotNil(t, ls)
	assert.InDelta(t, 100.0, ls.P, 1e-9)
}

func TestCalculateFallsBackToLastRow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	daily := []types.Candle{
		dayCandle(0, now, 98, 110, 90, 100),
	}

	ls := Calculate(daily, now)
	require.NotNil(t, ls)
	assert.InDelta(t, 100.0, ls.P, 1e-9)
}

func TestCalculateOrderingInvariant(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	daily := []types.Candle{
		dayCandle(1, now, 0.052, 0.0584, 0.0497, 0.0551),
	}

	ls := Calculate(daily, now)
	require.NotNil(t, ls)
	assert.True(t, ls.S3 < ls.S2)
	assert.True(t, ls.S2 < ls.S1)
	assert.True(t, ls.S1 < ls.P)
	assert.True(t, ls.P < ls.R1)
	assert.True(t, ls.R1 < ls.R2)
	assert.True(t, ls.R2 < ls.R3)
}

func TestCalculateDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	daily := []types.Candle{
		dayCandle(1, now, 98, 110, 90, 100),
	}

	a := Calculate(daily, now)
	b := Calculate(daily, now)
	assert.Equal(t, a, b)
}

func TestCalculateNoData(t *testing.T) {
	assert.Nil(t, Calculate(nil, time.Now()))
	assert.Nil(t, Calculate([]types.Candle{}, time.Now()))
}
