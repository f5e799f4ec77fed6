package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-sentry/internal/signals"
	"crypto-signal-sentry/pkg/types"
)

func baseInput() Input {
	return Input{
		EntryPrice:    100,
		Price:         100.5,
		Peak:          0,
		TakeProfitPct: 2.0,
		StopLossPct:   1.0,
		MACD5Up:       true,
		Price15:       100.5,
		EMA20At15M:    100,
	}
}

func closingEvents(events []Event) int {
	n := 0
	for _, e := range events {
		if e.Closes {
			n++
		}
	}
	return n
}

func TestEvaluateTakeProfit(t *testing.T) {
	in := baseInput()
	in.Price = 102.5 // +2.5% >= 2%

	res := Evaluate(in)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventTakeProfit, res.Events[0].Kind)
	assert.True(t, res.Events[0].Closes)
	assert.InDelta(t, 0.025, res.Events[0].Gain, 1e-9)
}

func TestEvaluateStopLoss(t *testing.T) {
	in := baseInput()
	in.Price = 98.5 // -1.5% <= -1%

	res := Evaluate(in)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventStopLoss, res.Events[0].Kind)
	assert.True(t, res.Events[0].Closes)
}

func TestEvaluateTrailingStop(t *testing.T) {
	in := baseInput()
	in.Peak = 103    // 曾到+3%
	in.Price = 101.5 // 浮盈1.5%，距峰值回撤约1.46%

	res := Evaluate(in)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventTrailing, res.Events[0].Kind)
	assert.True(t, res.Events[0].Closes)
	assert.Greater(t, res.Events[0].Drawdown, trailingMaxDrawdown)
}

func TestEvaluateTrailingNeedsMinGain(t *testing.T) {
	in := baseInput()
	in.Peak = 101.5
	in.Price = 100.5 // 浮盈0.5%不足1%，即使回撤达标也不触发

	res := Evaluate(in)
	assert.Empty(t, res.Events)
}

func TestEvaluateAtMostOneClosingEvent(t *testing.T) {
	// TP和追踪同时可触发时只产生TP
	in := baseInput()
	in.Peak = 106
	in.Price = 103 // +3% ≥ TP，且距峰值回撤2.8%

	res := Evaluate(in)
	assert.Equal(t, 1, closingEvents(res.Events))
	assert.Equal(t, EventTakeProfit, res.Events[0].Kind)
}

func TestEvaluatePeakUpdates(t *testing.T) {
	in := baseInput()
	in.Peak = 100.2
	in.Price = 100.9

	res := Evaluate(in)
	assert.InDelta(t, 100.9, res.Peak, 1e-9)

	in.Peak = res.Peak
	in.Price = 100.3
	res = Evaluate(in)
	assert.InDelta(t, 100.9, res.Peak, 1e-9) // 峰值单调不减
}

func TestEvaluateWeakExitWarning(t *testing.T) {
	in := baseInput()
	in.Price = 100.5 // 浮盈但未到TP
	in.MACD5Up = false
	in.Price15 = 99.5
	in.EMA20At15M = 100

	res := Evaluate(in)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventWeakExit, res.Events[0].Kind)
	assert.False(t, res.Events[0].Closes) // 预警不平仓
}

func TestEvaluateWeakExitNeedsGain(t *testing.T) {
	in := baseInput()
	in.Price = 99.9 // 浮亏
	in.MACD5Up = false
	in.Price15 = 99.5
	in.EMA20At15M = 100

	res := Evaluate(in)
	assert.Empty(t, res.Events)
}

func dangerLevels() *types.LevelSet {
	return &types.LevelSet{S1: 99.8, S2: 97.0}
}

func TestDetectDanger(t *testing.T) {
	res := DetectDanger(DangerInput{
		Mode:   signals.ModeBalanced,
		Price:  99.9, // 距S1约0.1%，在0.4%缓冲内
		Levels: dangerLevels(),
		RSI15:  40, MACD15Up: false, EMA20: 100.5, MACD5Up: false,
	})
	require.True(t, res.Danger)
	assert.Equal(t, "S1", res.Level)
	assert.InDelta(t, 99.8, res.Value, 1e-9)
}

func TestDetectDangerPicksNearerSupport(t *testing.T) {
	// S1与S2都在缓冲内时提示距离更近的那个
	res := DetectDanger(DangerInput{
		Mode:   signals.ModeBalanced,
		Price:  99.95,
		Levels: &types.LevelSet{S1: 100.2, S2: 99.9},
		RSI15:  40, MACD15Up: false, EMA20: 100.5, MACD5Up: false,
	})
	require.True(t, res.Danger)
	assert.Equal(t, "S2", res.Level)
	assert.InDelta(t, 99.9, res.Value, 1e-9)
}

func TestDetectDangerRequiresBearishConfluence(t *testing.T) {
	res := DetectDanger(DangerInput{
		Mode:   signals.ModeBalanced,
		Price:  99.9,
		Levels: dangerLevels(),
		RSI15:  50, MACD15Up: false, EMA20: 100.5, MACD5Up: false, // RSI不够弱
	})
	assert.False(t, res.Danger)
}

func TestDetectDangerFarFromSupport(t *testing.T) {
	res := DetectDanger(DangerInput{
		Mode:   signals.ModeBalanced,
		Price:  105,
		Levels: dangerLevels(),
		RSI15:  40, MACD15Up: false, EMA20: 106, MACD5Up: false,
	})
	assert.False(t, res.Danger)
}

func TestDetectDangerNoLevels(t *testing.T) {
	res := DetectDanger(DangerInput{Mode: signals.ModeBalanced, Price: 100})
	assert.False(t, res.Danger)
}
