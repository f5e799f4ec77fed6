package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crypto-signal-sentry/internal/analyzer"
	"crypto-signal-sentry/internal/engine"
	"crypto-signal-sentry/internal/market"
	"crypto-signal-sentry/internal/monitor"
	"crypto-signal-sentry/internal/notifier"
	"crypto-signal-sentry/internal/scheduler"
	"crypto-signal-sentry/internal/storage"
	"crypto-signal-sentry/pkg/types"
)

// App 应用程序管理器
type App struct {
	config *types.Config

	repo      *storage.ChatRepo
	runtime   *storage.RuntimeStore
	stream    *market.Stream
	scheduler *scheduler.Scheduler
	monitor   *monitor.AlertMonitor
}

// NewApp 创建应用程序实例并完成全部组件装配
func NewApp(config *types.Config) (*App, error) {
	repo, err := storage.NewChatRepo(config.MySQL, config.Storage, config.Defaults)
	if err != nil {
		return nil, err
	}

	runtime := storage.NewRuntimeStore(config.Redis)

	okxClient := market.NewOKXClient(config.Network)
	cgClient := market.NewCoinGeckoClient(config.Network)

	var stream *market.Stream
	if config.Stream.Enabled {
		stream = market.NewStream(config.Network.Proxy, config.Stream)
	}

	provider := market.NewProvider(okxClient, cgClient, stream)
	builder := analyzer.NewBuilder(provider)
	resolver := market.NewSymbolResolver(okxClient, cgClient)
	formatter := market.NewPriceFormatter(okxClient)

	notifyService := notifier.NewTelegramNotifier(config.Telegram.BotToken, config.Network.Proxy)

	sentry := engine.NewSentry(repo, runtime, builder, provider, resolver, formatter, notifyService, nil)
	sched := scheduler.NewScheduler(sentry, repo, config.Poll.Interval, config.Poll.TickTimeout)
	alertMonitor := monitor.NewAlertMonitor(repo)

	return &App{
		config:    config,
		repo:      repo,
		runtime:   runtime,
		stream:    stream,
		scheduler: sched,
		monitor:   alertMonitor,
	}, nil
}

// Start 启动应用程序
func (app *App) Start() error {
	zap.L().Info("🚀 Crypto Signal Sentry 启动中...")

	if app.stream != nil {
		if err := app.stream.Connect(); err != nil {
			zap.L().Warn("⚠️ 行情WebSocket连接失败，降级为REST拉取", zap.Error(err))
		} else {
			app.stream.StartReading()
			app.subscribeActiveSymbols()
		}
	}

	if err := app.scheduler.Start(); err != nil {
		return err
	}
	app.monitor.Start()

	zap.L().Info("✅ Crypto Signal Sentry 已启动")
	return nil
}

// subscribeActiveSymbols 为已建档聊天的交易对订阅15m/5m行情
func (app *App) subscribeActiveSymbols() {
	ids, err := app.repo.ListChatIDs()
	if err != nil {
		zap.L().Warn("⚠️ 读取聊天列表失败，跳过行情订阅", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	for _, chatID := range ids {
		cfg, err := app.repo.GetChat(chatID)
		if err != nil || cfg == nil || cfg.TradingSymbol == "" || seen[cfg.TradingSymbol] {
			continue
		}
		seen[cfg.TradingSymbol] = true

		for _, bar := range []string{types.Bar15m, types.Bar5m} {
			if err := app.stream.Subscribe(cfg.TradingSymbol, bar); err != nil {
				zap.L().Warn("⚠️ 行情订阅失败",
					zap.String("symbol", cfg.TradingSymbol),
					zap.String("bar", bar),
					zap.Error(err))
			}
		}
	}

	zap.L().Info("📊 行情订阅完成", zap.Int("symbols", len(seen)))
}

// Stop 停止应用程序
func (app *App) Stop() {
	zap.L().Info("🛑 收到停止信号，正在优雅关闭...")

	done := make(chan struct{})
	go func() {
		app.monitor.Stop()
		app.scheduler.Stop()
		if app.stream != nil {
			if err := app.stream.Close(); err != nil {
				zap.L().Warn("关闭行情连接失败", zap.Error(err))
			}
		}
		if err := app.repo.Close(); err != nil {
			zap.L().Warn("关闭数据库连接失败", zap.Error(err))
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("✅ Crypto Signal Sentry 已安全关闭")
	case <-time.After(30 * time.Second):
		zap.L().Warn("⚠️ 强制关闭超时")
	}
}

// WaitForShutdown 等待关闭信号
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
