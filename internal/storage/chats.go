package storage

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crypto-signal-sentry/internal/signals"
	"crypto-signal-sentry/pkg/types"
)

// TP/SL百分比允许区间
const (
	minPct = 0.2
	maxPct = 50.0
)

// allowedFields 可通过UpdateFields修改的列
var allowedFields = map[string]bool{
	"coin_id":         true,
	"trading_symbol":  true,
	"take_profit_pct": true,
	"stop_loss_pct":   true,
	"mode":            true,
	"precision_on":    true,
	"alerts_on":       true,
	"entry_price":     true,
}

// ChatConfig 每个聊天的交易配置
type ChatConfig struct {
	ChatID        int64    `gorm:"primaryKey" json:"chat_id"`
	CoinID        string   `gorm:"type:varchar(64);not null" json:"coin_id"`
	TradingSymbol string   `gorm:"type:varchar(32);not null" json:"trading_symbol"`
	TakeProfitPct float64  `gorm:"type:decimal(6,2);not null;default:2.0" json:"take_profit_pct"`
	StopLossPct   float64  `gorm:"type:decimal(6,2);not null;default:1.0" json:"stop_loss_pct"`
	Mode          string   `gorm:"type:varchar(16);not null;default:'balanced'" json:"mode"`
	PrecisionOn   bool     `gorm:"not null;default:false" json:"precision_on"`
	AlertsOn      bool     `gorm:"not null;default:true" json:"alerts_on"`
	EntryPrice    *float64 `gorm:"type:decimal(20,8)" json:"entry_price"` // nil表示无虚拟持仓

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlertRecord 报警发送记录（统计用）
type AlertRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;index:idx_chat_time" json:"chat_id"`
	Kind      string    `gorm:"type:varchar(24);not null" json:"kind"`
	Symbol    string    `gorm:"type:varchar(32);not null" json:"symbol"`
	Price     float64   `gorm:"type:decimal(20,8);not null" json:"price"`
	Gain      float64   `gorm:"type:decimal(10,6)" json:"gain"`
	Message   string    `gorm:"type:varchar(512)" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_chat_time" json:"created_at"`
}

// ChatRepo 聊天配置仓库（MySQL/GORM）
type ChatRepo struct {
	db       *gorm.DB
	strict   bool
	defaults types.ChatDefaults
}

// NewChatRepo 创建聊天配置仓库并完成表结构迁移
func NewChatRepo(config types.MySQLConfig, storage types.StorageConfig, defaults types.ChatDefaults) (*ChatRepo, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 生产环境使用Silent
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %v", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ChatConfig{}, &AlertRecord{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %v", err)
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return &ChatRepo{db: db, strict: storage.StrictFields, defaults: defaults}, nil
}

// GetChat 查询聊天配置，不存在返回nil
func (r *ChatRepo) GetChat(chatID int64) (*ChatConfig, error) {
	var cfg ChatConfig
	err := r.db.Where("chat_id = ?", chatID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetOrCreate 查询聊天配置，首次出现时按默认值建档
func (r *ChatRepo) GetOrCreate(chatID int64) (*ChatConfig, error) {
	cfg, err := r.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = &ChatConfig{
		ChatID:        chatID,
		CoinID:        r.defaults.CoinID,
		TradingSymbol: r.defaults.TradingSymbol,
		TakeProfitPct: clampPct(r.defaults.TakeProfitPct),
		StopLossPct:   clampPct(r.defaults.StopLossPct),
		Mode:          r.defaults.Mode,
		AlertsOn:      true,
	}
	if err := r.UpsertChat(cfg); err != nil {
		return nil, err
	}

	zap.L().Info("🆕 新聊天建档",
		zap.Int64("chat_id", chatID),
		zap.String("coin_id", cfg.CoinID),
		zap.String("symbol", cfg.TradingSymbol))
	return cfg, nil
}

// UpsertChat 整行写入（存在则全量覆盖）
func (r *ChatRepo) UpsertChat(cfg *ChatConfig) error {
	return r.db.Save(cfg).Error
}

// UpdateFields 按字段名部分更新
// 严格模式下未知字段返回错误；兼容模式下仅丢弃并告警
func (r *ChatRepo) UpdateFields(chatID int64, fields map[string]interface{}) error {
	payload, err := NormalizeFields(fields, r.strict)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}

	// 确保记录存在后再做部分更新
	if _, err := r.GetOrCreate(chatID); err != nil {
		return err
	}

	return r.db.Model(&ChatConfig{}).Where("chat_id = ?", chatID).Updates(payload).Error
}

// NormalizeFields 校验并规范化待更新字段
// TP/SL超出[0.2,50]时收拢到边界
func NormalizeFields(fields map[string]interface{}, strict bool) (map[string]interface{}, error) {
	payload := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if !allowedFields[key] {
			if strict {
				return nil, fmt.Errorf("不允许更新的字段: %s", key)
			}
			zap.L().Warn("⚠️ 忽略未知更新字段", zap.String("field", key))
			continue
		}

		if key == "take_profit_pct" || key == "stop_loss_pct" {
			pct, ok := toFloat(value)
			if !ok {
				return nil, fmt.Errorf("字段%s需要数值类型", key)
			}
			value = clampPct(pct)
		}

		if key == "mode" {
			mode, ok := value.(string)
			if !ok || !signals.ValidMode(mode) {
				return nil, fmt.Errorf("无效的交易模式: %v", value)
			}
		}

		payload[key] = value
	}
	return payload, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func clampPct(v float64) float64 {
	if v < minPct {
		return minPct
	}
	if v > maxPct {
		return maxPct
	}
	return v
}

// ListChatIDs 返回所有已建档的聊天ID
func (r *ChatRepo) ListChatIDs() ([]int64, error) {
	var ids []int64
	err := r.db.Model(&ChatConfig{}).Pluck("chat_id", &ids).Error
	return ids, err
}

// SaveAlert 记录一次报警发送
func (r *ChatRepo) SaveAlert(record *AlertRecord) error {
	record.CreatedAt = time.Now()
	return r.db.Create(record).Error
}

// CountAlertsSince 统计某时间之后各类型报警数量
func (r *ChatRepo) CountAlertsSince(since time.Time) (map[string]int64, error) {
	type row struct {
		Kind  string
		Count int64
	}
	var rows []row
	err := r.db.Model(&AlertRecord{}).
		Select("kind, count(*) as count").
		Where("created_at >= ?", since).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Kind] = r.Count
	}
	return stats, nil
}

// Close 关闭数据库连接
func (r *ChatRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接健康状态
func (r *ChatRepo) Health() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
