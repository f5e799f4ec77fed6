package position

import (
	"math"

	"crypto-signal-sentry/internal/signals"
	"crypto-signal-sentry/pkg/types"
)

// 离场参数
const (
	trailingMinGain     = 0.01  // 启动追踪止盈所需的最低浮盈
	trailingMaxDrawdown = 0.008 // 距峰值的回撤阈值
)

// EventKind 持仓事件类型
type EventKind string

const (
	EventTakeProfit EventKind = "take_profit"
	EventStopLoss   EventKind = "stop_loss"
	EventTrailing   EventKind = "trailing"
	EventWeakExit   EventKind = "weak_exit" // 预警，不平仓
)

// Event 持仓评估事件
type Event struct {
	Kind     EventKind
	Gain     float64 // 相对进场价的收益率
	Drawdown float64 // 追踪止盈触发时距峰值的回撤
	Closes   bool    // 是否结束持仓
}

// Input 持仓评估输入
type Input struct {
	EntryPrice float64
	Price      float64
	Peak       float64 // 持仓期间最高价，首次评估传0

	TakeProfitPct float64 // 百分数，如2.0表示2%
	StopLossPct   float64

	MACD5Up    bool
	Price15    float64
	EMA20At15M float64
}

// Result 持仓评估结果
type Result struct {
	Events []Event
	Peak   float64 // 更新后的峰值
}

// Evaluate 评估持仓：先更新峰值，再按TP → SL → 追踪止盈的顺序判定
// 每个tick最多产生一个平仓事件；弱势预警独立发出且不平仓
func Evaluate(in Input) Result {
	peak := in.Peak
	if in.Price > peak {
		peak = in.Price
	}

	entry := math.Max(in.EntryPrice, 1e-12)
	gain := (in.Price - entry) / entry

	tp := in.TakeProfitPct / 100.0
	sl := in.StopLossPct / 100.0

	var events []Event
	switch {
	case gain >= tp:
		events = append(events, Event{Kind: EventTakeProfit, Gain: gain, Closes: true})
	case gain <= -sl:
		events = append(events, Event{Kind: EventStopLoss, Gain: gain, Closes: true})
	default:
		if gain >= trailingMinGain && peak > 0 {
			dd := (peak - in.Price) / peak
			if dd >= trailingMaxDrawdown {
				events = append(events, Event{Kind: EventTrailing, Gain: gain, Drawdown: dd, Closes: true})
			}
		}
	}

	// 弱势预警：有浮盈但5m动能转弱且价格跌破15m EMA20
	closed := len(events) > 0 && events[len(events)-1].Closes
	if !closed && gain > 0 && !in.MACD5Up && in.Price15 < in.EMA20At15M {
		events = append(events, Event{Kind: EventWeakExit, Gain: gain})
	}

	return Result{Events: events, Peak: peak}
}

// DangerInput 支撑位险情检测输入
type DangerInput struct {
	Mode  string
	Price float64

	Levels *types.LevelSet

	RSI15    float64
	MACD15Up bool
	EMA20    float64
	MACD5Up  bool
}

// DangerResult 险情检测结果
type DangerResult struct {
	Danger bool
	Level  string  // "S1"或"S2"，取距离更近者
	Value  float64 // 对应支撑位价格
}

// DetectDanger 价格贴近S1/S2且15m/5m同时走弱时触发险情
func DetectDanger(in DangerInput) DangerResult {
	if in.Levels == nil {
		return DangerResult{}
	}

	preBuf := signals.ParamsForMode(in.Mode).PreBreakBuffer

	near := func(level float64) bool {
		if !isFinite(level) {
			return false
		}
		rel := math.Abs(in.Price-level) / math.Max(level, 1e-9)
		return rel <= preBuf && in.Price <= level*(1+preBuf)
	}

	bearish := in.RSI15 < 45 && !in.MACD15Up && in.Price < in.EMA20 && !in.MACD5Up
	if !bearish {
		return DangerResult{}
	}

	nearS1 := near(in.Levels.S1)
	nearS2 := near(in.Levels.S2)
	if !nearS1 && !nearS2 {
		return DangerResult{}
	}

	// 取距离更近的支撑位作为提示目标
	level, value := "S1", in.Levels.S1
	if nearS2 {
		d1 := math.Abs(in.Price - in.Levels.S1)
		d2 := math.Abs(in.Price - in.Levels.S2)
		if !nearS1 || d2 < d1 {
			level, value = "S2", in.Levels.S2
		}
	}

	return DangerResult{Danger: true, Level: level, Value: value}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
