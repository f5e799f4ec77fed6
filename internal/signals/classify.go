package signals

import "strings"

// 信号分类结果
const (
	SignalStrongBuy  = "STRONG BUY"
	SignalStrongSell = "STRONG SELL"
	SignalBuy        = "BUY"
	SignalSell       = "SELL"
	SignalNeutral    = "NEUTRAL"
)

// ClassifyInput 信号分类输入
type ClassifyInput struct {
	TrendUp   bool
	TrendDown bool

	RSI15 float64
	RSI5  float64

	MACD15Up bool
	MACD5Up  bool
	HistUp   bool

	Price  float64
	EMA20  float64
	EMA50  float64
	EMA200 float64

	F618 float64 // 0表示不可用
}

// Classify 先做强信号严格判定，不满足时按加权评分给出次级信号
func Classify(in ClassifyInput) string {
	if s := strongSignal(in); s != "" {
		return s
	}
	return moderateSignal(in)
}

func strongSignal(in ClassifyInput) string {
	fibUpOK := in.F618 <= 0 || in.Price >= in.F618*1.0005
	if in.TrendUp && in.MACD15Up && in.MACD5Up && in.HistUp &&
		in.Price > in.EMA20 && in.EMA20 > in.EMA50 && in.EMA50 > in.EMA200 &&
		in.RSI15 >= 55 && in.RSI5 >= 50 && fibUpOK {
		return SignalStrongBuy
	}

	fibDownOK := in.F618 <= 0 || in.Price <= in.F618*0.9995
	if in.TrendDown && !in.MACD15Up && !in.MACD5Up && !in.HistUp &&
		in.Price < in.EMA20 && in.EMA20 < in.EMA50 && in.EMA50 < in.EMA200 &&
		in.RSI15 <= 45 && in.RSI5 <= 50 && fibDownOK {
		return SignalStrongSell
	}

	return ""
}

func moderateSignal(in ClassifyInput) string {
	score := 0
	if in.TrendUp {
		score += 2
	}
	if in.TrendDown {
		score -= 2
	}

	score += boolScore(in.MACD15Up)
	score += boolScore(in.MACD5Up)
	score += boolScore(in.Price > in.EMA20)
	score += boolScore(in.Price > in.EMA50)
	score += boolScore(in.Price > in.EMA200)

	if in.RSI15 >= 60 {
		score++
	}
	if in.RSI15 < 45 {
		score--
	}
	if in.RSI5 >= 55 {
		score++
	}
	if in.RSI5 < 45 {
		score--
	}

	switch {
	case score >= 2:
		return SignalBuy
	case score <= -2:
		return SignalSell
	default:
		return SignalNeutral
	}
}

func boolScore(b bool) int {
	if b {
		return 1
	}
	return -1
}

// ReasonsInput 信号依据说明输入
type ReasonsInput struct {
	Signal string // Classify的结果

	TrendUp bool
	Price   float64
	EMA20   float64
	EMA50   float64

	RSI15 float64
	RSI5  float64

	MACD15Up bool
	MACD5Up  bool
	HistUp   bool

	RSICrossUp    bool
	F618Confirmed bool
}

// Reasons 生成信号依据文本（最多列9条）
func Reasons(in ReasonsInput) string {
	bullish := in.Signal == SignalStrongBuy || in.Signal == SignalBuy

	var reasons []string
	if bullish {
		if in.TrendUp {
			reasons = append(reasons, "4H趋势对齐")
		}
		if in.Price > in.EMA20 && in.Price > in.EMA50 {
			reasons = append(reasons, "价格>EMA20/50")
		}
		if in.MACD15Up {
			reasons = append(reasons, "MACD 15m↑")
		}
		if in.HistUp {
			reasons = append(reasons, "柱状图15m↑")
		}
		if in.RSI15 >= 50 {
			reasons = append(reasons, "RSI 15m正常")
		}
		if in.RSICrossUp {
			reasons = append(reasons, "RSI 15m上穿阈值")
		}
		if in.MACD5Up {
			reasons = append(reasons, "MACD 5m↑")
		}
		if in.RSI5 >= 50 {
			reasons = append(reasons, "RSI 5m正常")
		}
		if in.F618Confirmed {
			reasons = append(reasons, "F618已确认")
		}
		return "✅ 立即进场 — " + joinReasons(reasons)
	}

	if !in.TrendUp {
		reasons = append(reasons, "4H趋势未对齐")
	}
	if !(in.Price > in.EMA20 && in.Price > in.EMA50) {
		reasons = append(reasons, "价格/EMA20/50未就绪")
	}
	if !in.MACD15Up {
		reasons = append(reasons, "MACD 15m↓")
	}
	if !in.HistUp {
		reasons = append(reasons, "柱状图15m未走强")
	}
	if in.RSI15 < 45 {
		reasons = append(reasons, "RSI 15m偏低")
	}
	if !in.RSICrossUp {
		reasons = append(reasons, "RSI 15m未上穿阈值")
	}
	if !in.MACD5Up {
		reasons = append(reasons, "MACD 5m↓")
	}
	if in.RSI5 < 45 {
		reasons = append(reasons, "RSI 5m偏低")
	}
	if !in.F618Confirmed {
		reasons = append(reasons, "F618未确认")
	}
	return "⏳ 继续等待 — " + joinReasons(reasons)
}

func joinReasons(reasons []string) string {
	if len(reasons) > 9 {
		reasons = reasons[:9]
	}
	return strings.Join(reasons, " · ")
}
