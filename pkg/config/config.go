package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"crypto-signal-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	setDefaults()

	// 读取环境变量
	viper.AutomaticEnv()

	// 优先尝试读取本地配置文件
	viper.SetConfigName("config.local")
	if err := viper.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}

	var config types.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file_path", "logs")
	viper.SetDefault("log.max_size", 200)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.compress", false)

	viper.SetDefault("mysql.host", "localhost")
	viper.SetDefault("mysql.port", 3306)
	viper.SetDefault("mysql.username", "root")
	viper.SetDefault("mysql.password", "")
	viper.SetDefault("mysql.database", "signal_sentry")
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.max_open_conns", 100)

	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("telegram.bot_token", "")

	viper.SetDefault("poll.interval", 90*time.Second)
	viper.SetDefault("poll.tick_timeout", 60*time.Second)

	viper.SetDefault("network.proxy", "")
	viper.SetDefault("network.timeout", 30*time.Second)

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.endpoint", "wss://ws.okx.com:8443/ws/v5/business")
	viper.SetDefault("stream.reconnect_interval", 5*time.Second)
	viper.SetDefault("stream.ping_interval", 20*time.Second)
	viper.SetDefault("stream.max_reconnect_attempts", 10)

	viper.SetDefault("defaults.coin_id", "bitcoin")
	viper.SetDefault("defaults.trading_symbol", "BTC-USDT")
	viper.SetDefault("defaults.take_profit_pct", 2.0)
	viper.SetDefault("defaults.stop_loss_pct", 1.0)
	viper.SetDefault("defaults.mode", "balanced")

	viper.SetDefault("storage.strict_fields", true)
}
