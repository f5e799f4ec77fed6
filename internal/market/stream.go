package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crypto-signal-sentry/pkg/types"
)

// 每个交易对每个周期最多缓存的K线数量
const streamBufferCap = 400

// 缓存量达到此数量后才作为数据源使用，否则退回REST
const streamMinBars = 300

// Stream OKX实时K线订阅，维护按时间升序的环形缓存
type Stream struct {
	endpoint      string
	proxy         string
	conn          *websocket.Conn
	mu            sync.RWMutex
	isConnected   bool
	reconnectChan chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
	config        types.StreamConfig

	bufMu   sync.RWMutex
	buffers map[string][]types.Candle // "instId|bar" -> 升序K线

	subMu sync.Mutex
	subs  map[string]bool // 已订阅的 "instId|bar"
}

// streamMessage OKX K线推送消息
type streamMessage struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data [][]string `json:"data"`
}

// subscription OKX订阅消息
type subscription struct {
	Op   string `json:"op"`
	Args []struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"args"`
}

// NewStream 创建K线订阅客户端
func NewStream(proxy string, config types.StreamConfig) *Stream {
	ctx, cancel := context.WithCancel(context.Background())

	return &Stream{
		endpoint:      config.Endpoint,
		proxy:         proxy,
		reconnectChan: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		config:        config,
		buffers:       make(map[string][]types.Candle),
		subs:          make(map[string]bool),
	}
}

// Connect 建立WebSocket连接
func (s *Stream) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dialer := websocket.DefaultDialer
	if s.proxy != "" {
		proxyURL, err := url.Parse(s.proxy)
		if err != nil {
			return fmt.Errorf("解析代理URL失败: %v", err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	conn, _, err := dialer.Dial(s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("WebSocket连接失败: %v", err)
	}

	s.conn = conn
	s.isConnected = true

	zap.L().Info("✅ K线订阅连接建立成功",
		zap.String("endpoint", s.endpoint),
		zap.String("proxy", s.proxy))

	return nil
}

// Subscribe 订阅一个交易对的K线周期
func (s *Stream) Subscribe(instID, bar string) error {
	key := bufferKey(instID, bar)

	s.subMu.Lock()
	if s.subs[key] {
		s.subMu.Unlock()
		return nil
	}
	s.subs[key] = true
	s.subMu.Unlock()

	return s.sendSubscribe(instID, bar)
}

func (s *Stream) sendSubscribe(instID, bar string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isConnected || s.conn == nil {
		return fmt.Errorf("WebSocket未连接")
	}

	msg := subscription{Op: "subscribe"}
	msg.Args = append(msg.Args, struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}{
		Channel: "candle" + bar,
		InstID:  instID,
	})

	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("发送订阅消息失败: %v", err)
	}

	zap.L().Info("📊 已订阅K线数据",
		zap.String("inst_id", instID),
		zap.String("bar", bar))

	return nil
}

// StartReading 启动读取、重连、心跳循环
func (s *Stream) StartReading() {
	go s.readLoop()
	go s.reconnectLoop()
	go s.pingLoop()
}

// Candles 返回缓存中的K线副本；缓存量不足时返回nil
func (s *Stream) Candles(instID, bar string) []types.Candle {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()

	buf := s.buffers[bufferKey(instID, bar)]
	if len(buf) < streamMinBars {
		return nil
	}

	out := make([]types.Candle, len(buf))
	copy(out, buf)
	return out
}

func (s *Stream) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("WebSocket读取panic", zap.Any("error", r))
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()

			if conn == nil {
				time.Sleep(time.Second)
				continue
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				zap.L().Error("WebSocket读取消息失败", zap.Error(err))
				s.handleDisconnect()
				continue
			}

			if err := s.handleMessage(message); err != nil {
				zap.L().Warn("解析K线推送失败", zap.Error(err))
			}
		}
	}
}

func (s *Stream) handleMessage(message []byte) error {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	if !strings.HasPrefix(msg.Arg.Channel, "candle") {
		return nil // 忽略非K线消息
	}

	bar := strings.TrimPrefix(msg.Arg.Channel, "candle")
	for _, row := range msg.Data {
		candle, err := parseStreamRow(row)
		if err != nil {
			zap.L().Warn("解析单条K线数据失败", zap.Error(err))
			continue
		}
		s.upsertCandle(msg.Arg.InstID, bar, candle)
	}

	return nil
}

// upsertCandle 同一时间戳的推送覆盖最后一根（未收盘K线），否则追加
func (s *Stream) upsertCandle(instID, bar string, candle types.Candle) {
	key := bufferKey(instID, bar)

	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	buf := s.buffers[key]
	if n := len(buf); n > 0 {
		last := buf[n-1]
		if last.Timestamp.Equal(candle.Timestamp) {
			buf[n-1] = candle
			return
		}
		if candle.Timestamp.Before(last.Timestamp) {
			return // 乱序的旧推送直接丢弃
		}
	}

	buf = append(buf, candle)
	if len(buf) > streamBufferCap {
		buf = buf[len(buf)-streamBufferCap:]
	}
	s.buffers[key] = buf
}

// parseStreamRow 解析推送行: [ts, open, high, low, close, volume, ...]
func parseStreamRow(row []string) (types.Candle, error) {
	if len(row) < 6 {
		return types.Candle{}, fmt.Errorf("K线数据格式不正确")
	}

	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("解析时间戳失败: %v", err)
	}

	values := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("解析价格失败: %v", err)
		}
		values[i-1] = v
	}

	return types.Candle{
		Timestamp: time.UnixMilli(ts).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func (s *Stream) reconnectLoop() {
	ticker := time.NewTicker(s.config.ReconnectInterval)
	defer ticker.Stop()

	reconnectAttempts := 0

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.reconnectChan:
			reconnectAttempts++
			if reconnectAttempts > s.config.MaxReconnectAttempts {
				zap.L().Error("达到最大重连次数，停止重连",
					zap.Int("max_attempts", s.config.MaxReconnectAttempts))
				return
			}

			zap.L().Info("尝试重连WebSocket",
				zap.Int("attempt", reconnectAttempts),
				zap.Int("max_attempts", s.config.MaxReconnectAttempts))

			if err := s.Connect(); err != nil {
				zap.L().Error("重连失败", zap.Error(err))
				time.Sleep(s.config.ReconnectInterval)
				s.reconnectChan <- struct{}{}
				continue
			}

			reconnectAttempts = 0
			s.resubscribe()
			zap.L().Info("WebSocket重连成功")
		}
	}
}

// resubscribe 重连后恢复全部订阅
func (s *Stream) resubscribe() {
	s.subMu.Lock()
	keys := make([]string, 0, len(s.subs))
	for key := range s.subs {
		keys = append(keys, key)
	}
	s.subMu.Unlock()

	for _, key := range keys {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 {
			continue
		}
		if err := s.sendSubscribe(parts[0], parts[1]); err != nil {
			zap.L().Warn("恢复订阅失败", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Stream) pingLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			isConnected := s.isConnected
			s.mu.RUnlock()

			if !isConnected || conn == nil {
				continue
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Error("发送心跳失败", zap.Error(err))
				s.handleDisconnect()
			}
		}
	}
}

func (s *Stream) handleDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.isConnected = false

	select {
	case s.reconnectChan <- struct{}{}:
	default:
	}
}

// IsConnected 检查连接状态
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// Close 关闭连接并停止所有循环
func (s *Stream) Close() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		s.isConnected = false
		return err
	}

	return nil
}

func bufferKey(instID, bar string) string {
	return instID + "|" + bar
}
