package signals

// 交易模式
const (
	ModeAggressive   = "aggressive"
	ModeConservative = "conservative"
	ModeBalanced     = "balanced"
)

// ModeParams 模式参数：支撑位预警缓冲与RSI买卖阈值
type ModeParams struct {
	PreBreakBuffer float64
	RSIBuy         float64
	RSISell        float64
}

// ParamsForMode 返回模式对应的参数，未知模式按balanced处理
func ParamsForMode(mode string) ModeParams {
	switch mode {
	case ModeAggressive:
		return ModeParams{PreBreakBuffer: 0.006, RSIBuy: 35, RSISell: 65}
	case ModeConservative:
		return ModeParams{PreBreakBuffer: 0.003, RSIBuy: 30, RSISell: 70}
	default:
		return ModeParams{PreBreakBuffer: 0.004, RSIBuy: 33, RSISell: 67}
	}
}

// ValidMode 校验模式名是否合法
func ValidMode(mode string) bool {
	return mode == ModeAggressive || mode == ModeConservative || mode == ModeBalanced
}
