package types

import "time"

// K线周期（OKX bar参数格式）
const (
	Bar5m  = "5m"
	Bar15m = "15m"
	Bar4H  = "4H"
	Bar1D  = "1D"
)

// Candle K线数据（时间升序，调用方不做原地修改）
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PricePoint 价格采样点（CoinGecko市场曲线）
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
