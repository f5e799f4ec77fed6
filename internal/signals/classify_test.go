package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bullishInput() ClassifyInput {
	return ClassifyInput{
		TrendUp: true,
		RSI15:   60, RSI5: 55,
		MACD15Up: true, MACD5Up: true, HistUp: true,
		Price: 110, EMA20: 105, EMA50: 100, EMA200: 95,
		F618: 104,
	}
}

func TestClassifyStrongBuy(t *testing.T) {
	assert.Equal(t, SignalStrongBuy, Classify(bullishInput()))
}

func TestClassifyStrongBuyRequiresFibConfirmation(t *testing.T) {
	in := bullishInput()
	in.F618 = 110.5 // 价格在F618下方，强信号不成立
	// 评分依然足够给出次级BUY
	assert.Equal(t, SignalBuy, Classify(in))
}

func TestClassifyStrongSell(t *testing.T) {
	in := ClassifyInput{
		TrendDown: true,
		RSI15:     40, RSI5: 44,
		MACD15Up: false, MACD5Up: false, HistUp: false,
		Price: 90, EMA20: 95, EMA50: 100, EMA200: 105,
		F618: 96,
	}
	assert.Equal(t, SignalStrongSell, Classify(in))
}

func TestClassifyStrongSignalWithoutFib(t *testing.T) {
	in := bullishInput()
	in.F618 = 0 // 不可用时不阻止强信号
	assert.Equal(t, SignalStrongBuy, Classify(in))
}

func TestClassifyModerateScore(t *testing.T) {
	// trend +2, macd15 +1, macd5 -1, price>ema20/50/200 +3, rsi无加减 => 5
	in := ClassifyInput{
		TrendUp: true,
		RSI15:   50, RSI5: 50,
		MACD15Up: true, MACD5Up: false, HistUp: false,
		Price: 110, EMA20: 105, EMA50: 100, EMA200: 95,
	}
	assert.Equal(t, SignalBuy, Classify(in))
}

func TestClassifyNeutral(t *testing.T) {
	// macd15 +1, macd5 -1, 价格在EMA之间 +1-1-1, RSI中性 => -1
	in := ClassifyInput{
		RSI15: 50, RSI5: 50,
		MACD15Up: true, MACD5Up: false,
		Price: 100, EMA20: 99, EMA50: 101, EMA200: 102,
	}
	assert.Equal(t, SignalNeutral, Classify(in))
}

func TestClassifySell(t *testing.T) {
	in := ClassifyInput{
		TrendDown: true,
		RSI15:     40, RSI5: 40,
		MACD15Up: false, MACD5Up: false,
		Price: 90, EMA20: 95, EMA50: 100, EMA200: 105,
	}
	assert.Equal(t, SignalSell, Classify(in))
}

func TestReasonsBullish(t *testing.T) {
	text := Reasons(ReasonsInput{
		Signal:  SignalBuy,
		TrendUp: true,
		Price:   110, EMA20: 105, EMA50: 100,
		RSI15: 55, RSI5: 52,
		MACD15Up: true, MACD5Up: true, HistUp: true,
		RSICrossUp: true, F618Confirmed: true,
	})
	assert.Contains(t, text, "立即进场")
	assert.Contains(t, text, "4H趋势对齐")
	assert.Contains(t, text, "MACD 15m↑")
}

func TestReasonsWaiting(t *testing.T) {
	text := Reasons(ReasonsInput{
		Signal: SignalNeutral,
		Price:  90, EMA20: 95, EMA50: 100,
		RSI15: 40, RSI5: 40,
	})
	assert.Contains(t, text, "继续等待")
	assert.Contains(t, text, "4H趋势未对齐")
	assert.Contains(t, text, "RSI 15m偏低")
}
