package main

import (
	"log"

	"crypto-signal-sentry/pkg/config"
	"crypto-signal-sentry/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志
	zapLogger, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}
	defer zapLogger.Sync()

	// 装配并启动应用
	app, err := NewApp(cfg)
	if err != nil {
		log.Fatal("初始化应用失败:", err)
	}
	if err := app.Start(); err != nil {
		log.Fatal("启动应用失败:", err)
	}

	// 等待中断信号后优雅关闭
	app.WaitForShutdown()
	app.Stop()
}
