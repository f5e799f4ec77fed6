package types

import "time"

// Config 主配置结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Poll     PollConfig     `mapstructure:"poll"`
	Network  NetworkConfig  `mapstructure:"network"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Defaults ChatDefaults   `mapstructure:"defaults"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// MySQLConfig MySQL配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelegramConfig Telegram推送配置
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"` // 为空时降级为控制台通知
}

// PollConfig 聊天评估任务周期配置
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`     // 每个chat的tick间隔
	TickTimeout time.Duration `mapstructure:"tick_timeout"` // 单次tick的超时上限
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// StreamConfig K线实时订阅配置
type StreamConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Endpoint             string        `mapstructure:"endpoint"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// ChatDefaults 新聊天的默认交易配置
type ChatDefaults struct {
	CoinID        string  `mapstructure:"coin_id"`        // CoinGecko币种ID
	TradingSymbol string  `mapstructure:"trading_symbol"` // OKX现货instId
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	Mode          string  `mapstructure:"mode"` // aggressive/balanced/conservative
}

// StorageConfig 持久层行为配置
type StorageConfig struct {
	StrictFields bool `mapstructure:"strict_fields"` // 字段更新严格校验，未知字段直接报错
}
