package indicators

const rsiEpsilon = 1e-9

// EMA 指数移动平均（未调整权重，以首个元素为种子）
// 返回与输入等长的序列；输入为空或span<1时返回nil
func EMA(series []float64, span int) []float64 {
	if len(series) == 0 || span < 1 {
		return nil
	}

	alpha := 2.0 / (float64(span) + 1.0)
	result := make([]float64, len(series))
	result[0] = series[0]

	for i := 1; i < len(series); i++ {
		result[i] = alpha*series[i] + (1-alpha)*result[i-1]
	}

	return result
}

// RSI 相对强弱指标（Wilder平滑，alpha=1/period）
// 首个元素无涨跌信息，取中性值50；涨跌幅均为零的区段同样返回50
func RSI(series []float64, period int) []float64 {
	if len(series) == 0 || period < 1 {
		return nil
	}

	result := make([]float64, len(series))
	result[0] = 50

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64

	for i := 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i == 1 {
			avgGain = gain
			avgLoss = loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		if avgGain < rsiEpsilon && avgLoss < rsiEpsilon {
			result[i] = 50
			continue
		}

		rs := avgGain / (avgLoss + rsiEpsilon)
		result[i] = 100 - 100/(1+rs)
	}

	return result
}

// MACD 指数平滑异同移动平均线
// 返回macd线、信号线、柱状图三个等长序列
func MACD(series []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	emaFast := EMA(series, fast)
	emaSlow := EMA(series, slow)
	if emaFast == nil || emaSlow == nil {
		return nil, nil, nil
	}

	macd = make([]float64, len(series))
	for i := range series {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	sig = EMA(macd, signal)

	hist = make([]float64, len(series))
	for i := range series {
		hist[i] = macd[i] - sig[i]
	}

	return macd, sig, hist
}
