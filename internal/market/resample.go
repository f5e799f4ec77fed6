package market

import (
	"sort"
	"time"

	"crypto-signal-sentry/pkg/types"
)

// AggregateOHLC 将K线按bucket聚合（开=首、高=最大、低=最小、收=末、量=求和）
// 输入需按时间升序；返回升序结果
func AggregateOHLC(candles []types.Candle, bucket time.Duration) []types.Candle {
	if len(candles) == 0 || bucket <= 0 {
		return nil
	}

	grouped := make(map[time.Time]*types.Candle)
	for _, c := range candles {
		key := c.Timestamp.UTC().Truncate(bucket)
		agg, ok := grouped[key]
		if !ok {
			cc := c
			cc.Timestamp = key
			grouped[key] = &cc
			continue
		}
		if c.High > agg.High {
			agg.High = c.High
		}
		if c.Low < agg.Low {
			agg.Low = c.Low
		}
		agg.Close = c.Close
		agg.Volume += c.Volume
	}

	result := make([]types.Candle, 0, len(grouped))
	for _, agg := range grouped {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}

// PadResample 将收盘价采样序列重采样为固定步长的K线并前向填充空档
// 只有收盘价时O=H=L=C；输入需按时间升序
func PadResample(points []types.PricePoint, step time.Duration) []types.Candle {
	if len(points) == 0 || step <= 0 {
		return nil
	}

	// 每个bucket取最后一个采样值
	lastPerBucket := make(map[time.Time]float64)
	first := points[0].Timestamp.UTC().Truncate(step)
	last := first
	for _, p := range points {
		key := p.Timestamp.UTC().Truncate(step)
		lastPerBucket[key] = p.Price
		if key.After(last) {
			last = key
		}
		if key.Before(first) {
			first = key
		}
	}

	var result []types.Candle
	prev := 0.0
	havePrev := false
	for ts := first; !ts.After(last); ts = ts.Add(step) {
		price, ok := lastPerBucket[ts]
		if !ok {
			if !havePrev {
				continue
			}
			price = prev
		}
		prev = price
		havePrev = true
		result = append(result, types.Candle{
			Timestamp: ts,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		})
	}
	return result
}

// CandlesFromResampledLast 每个bucket取最后一根收盘价，空档丢弃（不填充）
func CandlesFromResampledLast(points []types.PricePoint, bucket time.Duration) []types.Candle {
	if len(points) == 0 || bucket <= 0 {
		return nil
	}

	lastPerBucket := make(map[time.Time]float64)
	for _, p := range points {
		key := p.Timestamp.UTC().Truncate(bucket)
		lastPerBucket[key] = p.Price
	}

	result := make([]types.Candle, 0, len(lastPerBucket))
	for ts, price := range lastPerBucket {
		result = append(result, types.Candle{
			Timestamp: ts,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}

// Closes 提取收盘价序列
func Closes(candles []types.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// PointsFromCandles 将K线退化为收盘价采样点
func PointsFromCandles(candles []types.Candle) []types.PricePoint {
	if len(candles) == 0 {
		return nil
	}
	points := make([]types.PricePoint, len(candles))
	for i, c := range candles {
		points[i] = types.PricePoint{Timestamp: c.Timestamp, Price: c.Close}
	}
	return points
}
