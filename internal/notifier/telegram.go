package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier 通过Bot API向聊天推送文本与图表
type TelegramNotifier struct {
	botToken   string
	httpClient *http.Client
}

// telegramResponse Bot API响应外壳
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewTelegramNotifier 创建Telegram通知器；未配置token时降级为控制台输出
func NewTelegramNotifier(botToken string, proxy string) Interface {
	if botToken == "" {
		zap.L().Info("🔧 未配置Telegram Bot Token，使用控制台输出模式")
		return NewConsoleNotifier()
	}

	transport := &http.Transport{}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	zap.L().Info("✅ 已配置Telegram通知服务")
	return &TelegramNotifier{
		botToken: botToken,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// SendAlert 发送HTML格式的文本报警
func (tn *TelegramNotifier) SendAlert(chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, tn.botToken)
	resp, err := tn.httpClient.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	return checkTelegramResponse(resp.Body)
}

// SendPhoto 发送图表，caption使用HTML格式
func (tn *TelegramNotifier) SendPhoto(chatID int64, image []byte, caption string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return err
		}
		if err := writer.WriteField("parse_mode", "HTML"); err != nil {
			return err
		}
	}

	part, err := writer.CreateFormFile("photo", "chart.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", telegramAPIBase, tn.botToken)
	resp, err := tn.httpClient.Post(endpoint, writer.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	return checkTelegramResponse(resp.Body)
}

func checkTelegramResponse(body io.Reader) error {
	var tgResp telegramResponse
	if err := json.NewDecoder(body).Decode(&tgResp); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("Telegram API错误 [%d]: %s", tgResp.ErrorCode, tgResp.Description)
	}
	return nil
}
