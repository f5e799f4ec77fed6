package types

// LevelSet 日线支撑/阻力位集合：经典枢轴点 + 斐波那契回撤
// 不变量：S3 < S2 < S1 < P < R1 < R2 < R3
type LevelSet struct {
	P  float64 `json:"p"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
	R3 float64 `json:"r3"`

	F236 float64 `json:"f236"`
	F382 float64 `json:"f382"`
	F500 float64 `json:"f500"`
	F618 float64 `json:"f618"`
	F786 float64 `json:"f786"`
}

// Context4H 4小时趋势上下文
type Context4H struct {
	Candles []Candle `json:"-"`
	Price   float64  `json:"price"`
	RSI     float64  `json:"rsi"`
	EMA20   float64  `json:"ema20"`
	EMA50   float64  `json:"ema50"`
	EMA200  float64  `json:"ema200"`

	TrendUp   bool `json:"trend_up"`
	TrendDown bool `json:"trend_down"`
}

// Context15M 15分钟操作级上下文
type Context15M struct {
	Candles []Candle `json:"-"`
	Price   float64  `json:"price"`
	RSI     float64  `json:"rsi"`
	EMA20   float64  `json:"ema20"`
	EMA50   float64  `json:"ema50"`
	EMA200  float64  `json:"ema200"`
	MACDUp  bool     `json:"macd_up"`
}

// Context5M 5分钟执行级上下文
type Context5M struct {
	Candles []Candle `json:"-"`
	Price   float64  `json:"price"`
	RSI     float64  `json:"rsi"`
	MACDUp  bool     `json:"macd_up"`
}

// 4H趋势状态（头部同步/报警去重使用）
const (
	TrendStateUp   = "up"
	TrendStateDown = "down"
	TrendStateSide = "side"
)
