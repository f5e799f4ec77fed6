package market

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	okxcommon "github.com/nntaoli-project/goex/v2/okx/common"
	"go.uber.org/zap"

	"crypto-signal-sentry/pkg/types"
)

const (
	okxBaseURL     = "https://www.okx.com"
	maxCandleLimit = 300
	fetchAttempts  = 2
	retryPause     = 500 * time.Millisecond
)

// OKXClient OKX行情客户端
type OKXClient struct {
	baseURL    string
	okxClient  *okxcommon.OKxV5
	httpClient *http.Client
}

// Instrument OKX现货交易对信息
type Instrument struct {
	InstID   string `json:"instId"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	State    string `json:"state"`
	TickSz   string `json:"tickSz"`
}

// NewOKXClient 创建OKX行情客户端
func NewOKXClient(network types.NetworkConfig) *OKXClient {
	// 使用goex v2 OKX客户端
	client := okxcommon.New()

	timeout := network.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// 创建自定义HTTP客户端
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
		},
	}

	// 如果配置了代理，则使用代理
	if network.Proxy != "" {
		proxyURL, err := url.Parse(network.Proxy)
		if err == nil {
			httpClient.Transport.(*http.Transport).Proxy = http.ProxyURL(proxyURL)
			zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", network.Proxy))
		} else {
			zap.L().Warn("⚠️ 代理地址格式错误", zap.Error(err))
		}
	}

	return &OKXClient{
		baseURL:    okxBaseURL,
		okxClient:  client,
		httpClient: httpClient,
	}
}

// FetchCandles 获取K线数据，按时间升序返回
// 请求失败时短暂停顿后重试一次，彻底失败返回nil和错误
func (c *OKXClient) FetchCandles(ctx context.Context, instID, bar string, limit int) ([]types.Candle, error) {
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}

	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryPause):
			}
		}

		candles, err := c.fetchCandlesOnce(ctx, instID, bar, limit)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candles) > 0 {
			return candles, nil
		}
		lastErr = fmt.Errorf("OKX返回空K线数据: %s %s", instID, bar)
	}

	return nil, lastErr
}

func (c *OKXClient) fetchCandlesOnce(ctx context.Context, instID, bar string, limit int) ([]types.Candle, error) {
	requestURL := fmt.Sprintf("%s/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		c.baseURL, instID, bar, limit)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %v", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("OKX API返回错误: code=%s, msg=%s", resp.Code, resp.Msg)
	}

	candles := make([]types.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		candle, err := parseCandleRow(row)
		if err != nil {
			zap.L().Warn("解析K线数据失败", zap.Error(err))
			continue
		}
		candles = append(candles, candle)
	}

	// OKX返回的数据是从新到旧排序，需要反转为从旧到新
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	return candles, nil
}

// parseCandleRow 解析OKX K线行: [ts, open, high, low, close, vol, ...]
func parseCandleRow(row []string) (types.Candle, error) {
	if len(row) < 5 {
		return types.Candle{}, fmt.Errorf("K线数据格式不正确")
	}

	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("解析时间戳失败: %v", err)
	}

	values := make([]float64, 4)
	for i := 1; i <= 4; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("解析价格失败: %v", err)
		}
		values[i-1] = v
	}

	volume := 0.0
	if len(row) > 5 {
		volume, _ = strconv.ParseFloat(row[5], 64)
	}

	return types.Candle{
		Timestamp: time.UnixMilli(ts).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    volume,
	}, nil
}

// ValidateInstrument 校验instId是否存在于OKX现货交易对目录
func (c *OKXClient) ValidateInstrument(ctx context.Context, instID string) bool {
	insts, err := c.fetchInstruments(ctx, instID)
	if err != nil || len(insts) == 0 {
		return false
	}
	state := insts[0].State
	return state == "live" || state == "suspend"
}

// ListInstruments 获取全部现货交易对目录
func (c *OKXClient) ListInstruments(ctx context.Context) ([]Instrument, error) {
	return c.fetchInstruments(ctx, "")
}

// TickSize 获取交易对的最小价格步长
func (c *OKXClient) TickSize(ctx context.Context, instID string) (string, error) {
	insts, err := c.fetchInstruments(ctx, instID)
	if err != nil {
		return "", err
	}
	if len(insts) == 0 {
		return "", fmt.Errorf("交易对不存在: %s", instID)
	}
	return insts[0].TickSz, nil
}

func (c *OKXClient) fetchInstruments(ctx context.Context, instID string) ([]Instrument, error) {
	requestURL := c.baseURL + "/api/v5/public/instruments?instType=SPOT"
	if instID != "" {
		requestURL += "&instId=" + url.QueryEscape(instID)
	}

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code string       `json:"code"`
		Msg  string       `json:"msg"`
		Data []Instrument `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %v", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("OKX API返回错误: code=%s, msg=%s", resp.Code, resp.Msg)
	}

	return resp.Data, nil
}

func (c *OKXClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %v", err)
	}
	req.Header.Set("User-Agent", "Crypto-Signal-Sentry/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP响应错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %v", err)
	}

	return body, nil
}
