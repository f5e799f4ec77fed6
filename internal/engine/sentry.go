package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"crypto-signal-sentry/internal/analyzer"
	"crypto-signal-sentry/internal/indicators"
	"crypto-signal-sentry/internal/levels"
	"crypto-signal-sentry/internal/market"
	"crypto-signal-sentry/internal/notifier"
	"crypto-signal-sentry/internal/position"
	"crypto-signal-sentry/internal/signals"
	"crypto-signal-sentry/internal/storage"
	"crypto-signal-sentry/pkg/types"
)

// 发图冷却：同一聊天共享一个冷却时间戳，险情图冷却更长
const (
	plotCooldownEntry  = 5 * time.Minute
	plotCooldownDanger = 30 * time.Minute
)

// Renderer 图表渲染接口，返回PNG字节；为nil时只发文本
type Renderer interface {
	Render(candles []types.Candle, lv *types.LevelSet, title string) ([]byte, error)
}

// Sentry 单个聊天一轮完整评估的编排器
type Sentry struct {
	repo      *storage.ChatRepo
	runtime   *storage.RuntimeStore
	builder   *analyzer.Builder
	provider  *market.Provider
	resolver  *market.SymbolResolver
	formatter *market.PriceFormatter
	notify    notifier.Interface
	renderer  Renderer
}

// NewSentry 创建评估编排器
func NewSentry(
	repo *storage.ChatRepo,
	runtime *storage.RuntimeStore,
	builder *analyzer.Builder,
	provider *market.Provider,
	resolver *market.SymbolResolver,
	formatter *market.PriceFormatter,
	notify notifier.Interface,
	renderer Renderer,
) *Sentry {
	return &Sentry{
		repo:      repo,
		runtime:   runtime,
		builder:   builder,
		provider:  provider,
		resolver:  resolver,
		formatter: formatter,
		notify:    notify,
		renderer:  renderer,
	}
}

// snapshot 一轮评估所需的全部行情数据
type snapshot struct {
	ctx4  *types.Context4H
	ctx15 *types.Context15M
	ctx5  *types.Context5M
	daily []types.Candle
}

// RunTick 对一个聊天执行一轮完整评估
// 流程：建档→解析交易对→并发取数→头部趋势→持仓管理/进场评估→险情检测
func (s *Sentry) RunTick(ctx context.Context, chatID int64) error {
	cfg, err := s.repo.GetOrCreate(chatID)
	if err != nil {
		return fmt.Errorf("读取聊天配置失败: %v", err)
	}
	if !cfg.AlertsOn {
		return nil
	}

	instID := cfg.TradingSymbol
	if instID == "" {
		resolved, err := s.resolver.Resolve(ctx, cfg.CoinID)
		if err != nil {
			zap.L().Warn("⚠️ 交易对解析失败",
				zap.Int64("chat_id", chatID),
				zap.String("coin_id", cfg.CoinID),
				zap.Error(err))
			return nil
		}
		instID = resolved
		if err := s.repo.UpdateFields(chatID, map[string]interface{}{"trading_symbol": instID}); err != nil {
			zap.L().Warn("保存交易对失败", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	snap := s.gather(ctx, instID, cfg.CoinID)
	if snap.ctx4 == nil || snap.ctx15 == nil || snap.ctx5 == nil {
		zap.L().Warn("📭 数据不足，跳过本轮评估",
			zap.Int64("chat_id", chatID),
			zap.String("symbol", instID))
		return nil
	}

	lv := levels.Calculate(snap.daily, time.Now().UTC())
	in := tickInputs(snap, cfg.PrecisionOn)

	s.publishHeader(ctx, chatID, instID, snap)

	if cfg.EntryPrice != nil {
		s.managePosition(ctx, chatID, cfg, instID, snap, lv, in)
	} else {
		s.tryEnter(ctx, chatID, cfg, instID, snap, lv)
	}

	s.checkDanger(ctx, chatID, cfg, instID, snap, lv, in)
	return nil
}

// evalInputs 持仓管理与险情检测所用的本轮取值
type evalInputs struct {
	price    float64
	rsi15    float64
	ema20    float64
	macd15Up bool
	macd5Up  bool
}

// tickInputs 精确模式下取已收盘K线（倒数第二根）的值，否则取最新快照值
// K线不足三根时退回快照值
func tickInputs(snap snapshot, precision bool) evalInputs {
	live := evalInputs{
		price:    snap.ctx15.Price,
		rsi15:    snap.ctx15.RSI,
		ema20:    snap.ctx15.EMA20,
		macd15Up: snap.ctx15.MACDUp,
		macd5Up:  snap.ctx5.MACDUp,
	}
	if !precision {
		return live
	}

	closes15 := market.Closes(snap.ctx15.Candles)
	closes5 := market.Closes(snap.ctx5.Candles)
	if len(closes15) < 3 || len(closes5) < 3 {
		return live
	}

	i := len(closes15) - 2
	macd15, sig15, _ := indicators.MACD(closes15, 12, 26, 9)
	j := len(closes5) - 2
	macd5, sig5, _ := indicators.MACD(closes5, 12, 26, 9)

	return evalInputs{
		price:    closes15[i],
		rsi15:    indicators.RSI(closes15, 14)[i],
		ema20:    indicators.EMA(closes15, 20)[i],
		macd15Up: macd15[i] > sig15[i],
		macd5Up:  macd5[j] > sig5[j],
	}
}

// gather 并发拉取四路行情数据
func (s *Sentry) gather(ctx context.Context, instID, coinID string) snapshot {
	var snap snapshot
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		snap.ctx4 = s.builder.Context4H(ctx, instID, coinID)
	}()
	go func() {
		defer wg.Done()
		snap.ctx15 = s.builder.Context15M(ctx, instID, coinID)
	}()
	go func() {
		defer wg.Done()
		snap.ctx5 = s.builder.Context5M(ctx, instID, coinID)
	}()
	go func() {
		defer wg.Done()
		snap.daily = s.provider.DailyOHLC(ctx, instID, coinID)
	}()

	wg.Wait()
	return snap
}

// publishHeader 4H趋势状态变化时发布一条状态消息
func (s *Sentry) publishHeader(ctx context.Context, chatID int64, instID string, snap snapshot) {
	state := analyzer.TrendState(snap.ctx4)
	prev := s.runtime.HeaderTrend(chatID)
	if state == prev {
		return
	}

	text := headerText(instID, state, s.formatter.FmtPrice(ctx, instID, snap.ctx4.Price), dayChangePct(snap.daily))
	s.send(chatID, text)
	s.record(chatID, "trend_change", instID, snap.ctx4.Price, 0, text)
	s.runtime.SetHeaderTrend(chatID, state)
}

// managePosition 评估虚拟持仓：TP/SL/追踪止盈平仓，弱势预警不平仓
// 持仓未平时每轮附带一张图表（受发图冷却约束）
func (s *Sentry) managePosition(ctx context.Context, chatID int64, cfg *storage.ChatConfig, instID string, snap snapshot, lv *types.LevelSet, in evalInputs) {
	entry := *cfg.EntryPrice
	peak, _ := s.runtime.Peak(chatID)

	res := position.Evaluate(position.Input{
		EntryPrice:    entry,
		Price:         in.price,
		Peak:          peak,
		TakeProfitPct: cfg.TakeProfitPct,
		StopLossPct:   cfg.StopLossPct,
		MACD5Up:       in.macd5Up,
		Price15:       in.price,
		EMA20At15M:    in.ema20,
	})
	s.runtime.SetPeak(chatID, res.Peak)

	closed := false
	for _, ev := range res.Events {
		text := s.exitText(ctx, ev, instID, entry, in.price)
		s.send(chatID, text)
		s.record(chatID, string(ev.Kind), instID, in.price, ev.Gain, text)

		if ev.Closes {
			closed = true
			if err := s.repo.UpdateFields(chatID, map[string]interface{}{"entry_price": nil}); err != nil {
				zap.L().Error("❌ 清除持仓失败", zap.Int64("chat_id", chatID), zap.Error(err))
			}
			s.runtime.ClearPosition(chatID)
			zap.L().Info("📴 虚拟持仓已平仓",
				zap.Int64("chat_id", chatID),
				zap.String("kind", string(ev.Kind)),
				zap.Float64("gain", ev.Gain))
		}
	}

	if !closed {
		gain := (in.price - entry) / math.Max(entry, 1e-12)
		caption := fmt.Sprintf("📊 %s 持仓中 @ %s (%s)",
			instID, s.formatter.FmtPrice(ctx, instID, entry), gainPct(gain))
		s.maybePlot(chatID, snap.ctx15.Candles, lv, plotCooldownEntry, caption)
	}
}

// tryEnter 无持仓时评估进场条件
func (s *Sentry) tryEnter(ctx context.Context, chatID int64, cfg *storage.ChatConfig, instID string, snap snapshot, lv *types.LevelSet) {
	var lastBar *time.Time
	if ts, ok := s.runtime.EntryBar(chatID); ok {
		lastBar = &ts
	}

	decision := signals.EvaluateEntry(signals.EntryInput{
		Mode:         cfg.Mode,
		Precision:    cfg.PrecisionOn,
		Ctx4:         snap.ctx4,
		Ctx15:        snap.ctx15,
		Ctx5:         snap.ctx5,
		Levels:       lv,
		LastEntryBar: lastBar,
	})
	if !decision.Enter {
		return
	}

	if err := s.repo.UpdateFields(chatID, map[string]interface{}{"entry_price": decision.EntryPrice}); err != nil {
		zap.L().Error("❌ 保存持仓失败，放弃本次进场", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	s.runtime.SetEntryBar(chatID, decision.EntryBar)
	s.runtime.SetPeak(chatID, decision.EntryPrice)

	histUp := hist15Grows(snap.ctx15)
	f618 := 0.0
	if lv != nil {
		f618 = lv.F618
	}
	sig := signals.Classify(signals.ClassifyInput{
		TrendUp:   snap.ctx4.TrendUp,
		TrendDown: snap.ctx4.TrendDown,
		RSI15:     snap.ctx15.RSI,
		RSI5:      snap.ctx5.RSI,
		MACD15Up:  snap.ctx15.MACDUp,
		MACD5Up:   snap.ctx5.MACDUp,
		HistUp:    histUp,
		Price:     snap.ctx15.Price,
		EMA20:     snap.ctx15.EMA20,
		EMA50:     snap.ctx15.EMA50,
		EMA200:    snap.ctx15.EMA200,
		F618:      f618,
	})
	reason := signals.Reasons(signals.ReasonsInput{
		Signal:        sig,
		TrendUp:       snap.ctx4.TrendUp,
		Price:         snap.ctx15.Price,
		EMA20:         snap.ctx15.EMA20,
		EMA50:         snap.ctx15.EMA50,
		RSI15:         snap.ctx15.RSI,
		RSI5:          snap.ctx5.RSI,
		MACD15Up:      snap.ctx15.MACDUp,
		MACD5Up:       snap.ctx5.MACDUp,
		HistUp:        histUp,
		F618Confirmed: f618 > 0 && snap.ctx15.Price >= f618*1.0005,
	})

	entryStr := s.formatter.FmtPrice(ctx, instID, decision.EntryPrice)
	text := fmt.Sprintf("🟢 <b>进场信号</b> %s\n💰 进场价: %s\n🎯 止盈 +%.1f%% / 止损 -%.1f%%\n📊 信号: %s\n%s",
		instID, entryStr, cfg.TakeProfitPct, cfg.StopLossPct, sig, reason)
	s.send(chatID, text)
	s.record(chatID, "entry", instID, decision.EntryPrice, 0, text)

	caption := fmt.Sprintf("📊 %s 进场 @ %s", instID, entryStr)
	s.maybePlot(chatID, snap.ctx15.Candles, lv, plotCooldownEntry, caption)

	zap.L().Info("🟢 发出进场信号",
		zap.Int64("chat_id", chatID),
		zap.String("symbol", instID),
		zap.Float64("entry_price", decision.EntryPrice),
		zap.String("signal", sig))
}

// checkDanger 价格贴近支撑且多周期同步走弱时发出险情提示
func (s *Sentry) checkDanger(ctx context.Context, chatID int64, cfg *storage.ChatConfig, instID string, snap snapshot, lv *types.LevelSet, in evalInputs) {
	res := position.DetectDanger(position.DangerInput{
		Mode:     cfg.Mode,
		Price:    in.price,
		Levels:   lv,
		RSI15:    in.rsi15,
		MACD15Up: in.macd15Up,
		EMA20:    in.ema20,
		MACD5Up:  in.macd5Up,
	})
	if !res.Danger {
		return
	}

	text := fmt.Sprintf("⚠️ <b>险情预警</b> %s\n💰 当前价: %s\n📉 贴近支撑 %s (%s)，多周期同步走弱\n➡️ 立即卖出",
		instID,
		s.formatter.FmtPrice(ctx, instID, in.price),
		res.Level,
		s.formatter.FmtPrice(ctx, instID, res.Value))
	s.send(chatID, text)
	s.record(chatID, "danger", instID, in.price, 0, text)

	caption := fmt.Sprintf("⚠️ %s 贴近支撑 %s", instID, res.Level)
	s.maybePlot(chatID, snap.ctx15.Candles, lv, plotCooldownDanger, caption)
}

// exitText 持仓事件的报警文案
func (s *Sentry) exitText(ctx context.Context, ev position.Event, instID string, entry, price float64) string {
	entryStr := s.formatter.FmtPrice(ctx, instID, entry)
	priceStr := s.formatter.FmtPrice(ctx, instID, price)

	switch ev.Kind {
	case position.EventTakeProfit:
		return fmt.Sprintf("🏆 <b>止盈达成</b> %s\n进场 %s → 现价 %s (%s)", instID, entryStr, priceStr, gainPct(ev.Gain))
	case position.EventStopLoss:
		return fmt.Sprintf("🔻 <b>止损离场</b> %s\n进场 %s → 现价 %s (%s)", instID, entryStr, priceStr, gainPct(ev.Gain))
	case position.EventTrailing:
		return fmt.Sprintf("🛡️ <b>追踪止盈</b> %s\n进场 %s → 现价 %s (%s)，距峰值回撤%.2f%%",
			instID, entryStr, priceStr, gainPct(ev.Gain), ev.Drawdown*100)
	default:
		return fmt.Sprintf("⚠️ <b>动能转弱</b> %s\n浮盈%s但5m动能消失且跌破15m EMA20，注意离场", instID, gainPct(ev.Gain))
	}
}

// maybePlot 发图冷却满足时渲染并发送图表
// 同一聊天共享一个冷却时间戳，进场图与险情图各用各的冷却长度
func (s *Sentry) maybePlot(chatID int64, candles []types.Candle, lv *types.LevelSet, cooldown time.Duration, caption string) {
	if s.renderer == nil {
		return
	}
	last := s.runtime.LastPlot(chatID)
	if !last.IsZero() && time.Since(last) < cooldown {
		return
	}

	image, err := s.renderer.Render(candles, lv, caption)
	if err != nil || len(image) == 0 {
		zap.L().Warn("图表渲染失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if err := s.notify.SendPhoto(chatID, image, caption); err != nil {
		zap.L().Warn("❌ 图表发送失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	s.runtime.MarkPlot(chatID, time.Now())
}

func (s *Sentry) send(chatID int64, text string) {
	if err := s.notify.SendAlert(chatID, text); err != nil {
		zap.L().Warn("❌ 报警发送失败", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Sentry) record(chatID int64, kind, symbol string, price, gain float64, message string) {
	err := s.repo.SaveAlert(&storage.AlertRecord{
		ChatID:  chatID,
		Kind:    kind,
		Symbol:  symbol,
		Price:   price,
		Gain:    gain,
		Message: message,
	})
	if err != nil {
		zap.L().Warn("保存报警记录失败", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// hist15Grows 15分钟MACD柱状图是否在走强
func hist15Grows(ctx15 *types.Context15M) bool {
	closes := market.Closes(ctx15.Candles)
	if len(closes) < 2 {
		return false
	}
	_, _, hist := indicators.MACD(closes, 12, 26, 9)
	return hist[len(hist)-1] > hist[len(hist)-2]
}

func gainPct(gain float64) string {
	return fmt.Sprintf("%+.2f%%", gain*100)
}

// dayChangePct 当日涨跌幅：日线最后一根相对前一根收盘
func dayChangePct(daily []types.Candle) float64 {
	if len(daily) < 2 {
		return 0
	}
	prev := daily[len(daily)-2].Close
	last := daily[len(daily)-1].Close
	if prev <= 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// headerText 4H趋势状态消息
func headerText(instID, state, priceStr string, dayChange float64) string {
	var badge, label string
	switch state {
	case types.TrendStateUp:
		badge, label = "🟢", "上行"
	case types.TrendStateDown:
		badge, label = "🔴", "下行"
	default:
		badge, label = "⚪", "震荡"
	}
	return fmt.Sprintf("%s <b>4H趋势转为%s</b> %s\n💰 现价: %s | 今日 %+.2f%%",
		badge, label, instID, priceStr, dayChange)
}
