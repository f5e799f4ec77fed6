package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-signal-sentry/pkg/types"
)

const cgBaseURL = "https://api.coingecko.com/api/v3"

// cgAllowedOHLCDays CoinGecko OHLC接口只接受固定的天数档位
var cgAllowedOHLCDays = map[int]bool{1: true, 7: true, 14: true, 30: true, 90: true, 180: true, 365: true}

// CoinGeckoClient CoinGecko行情客户端（备用数据源）
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoClient 创建CoinGecko客户端
func NewCoinGeckoClient(network types.NetworkConfig) *CoinGeckoClient {
	timeout := network.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if network.Proxy != "" {
		if proxyURL, err := url.Parse(network.Proxy); err == nil {
			httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &CoinGeckoClient{
		baseURL:    cgBaseURL,
		httpClient: httpClient,
	}
}

// SimplePrice 获取币种的美元现价
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, coinID string) (float64, error) {
	requestURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(coinID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return 0, err
	}

	var resp map[string]map[string]float64
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("解析JSON失败: %v", err)
	}

	price, ok := resp[coinID]["usd"]
	if !ok {
		return 0, fmt.Errorf("CoinGecko未返回价格: %s", coinID)
	}
	return price, nil
}

// MarketChart 获取最近days天的收盘价采样序列（时间升序）
func (c *CoinGeckoClient) MarketChart(ctx context.Context, coinID string, days int) ([]types.PricePoint, error) {
	requestURL := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		c.baseURL, url.PathEscape(coinID), days)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %v", err)
	}
	if len(resp.Prices) == 0 {
		return nil, fmt.Errorf("CoinGecko未返回价格序列: %s", coinID)
	}

	points := make([]types.PricePoint, 0, len(resp.Prices))
	for _, row := range resp.Prices {
		if len(row) < 2 {
			continue
		}
		points = append(points, types.PricePoint{
			Timestamp: time.UnixMilli(int64(row[0])).UTC(),
			Price:     row[1],
		})
	}
	return points, nil
}

// OHLCDaily 获取OHLC数据并重采样为每UTC日一根K线
// days不在允许档位时回退到14天
func (c *CoinGeckoClient) OHLCDaily(ctx context.Context, coinID string, days int) ([]types.Candle, error) {
	if !cgAllowedOHLCDays[days] {
		days = 14
	}

	requestURL := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%d",
		c.baseURL, url.PathEscape(coinID), days)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CoinGecko未返回OHLC数据: %s", coinID)
	}

	candles := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(int64(row[0])).UTC(),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
		})
	}

	daily := AggregateOHLC(candles, 24*time.Hour)
	if len(daily) == 0 {
		return nil, fmt.Errorf("OHLC重采样后为空: %s", coinID)
	}
	return daily, nil
}

// CoinSymbol 获取币种的基础符号（如 bitcoin -> BTC）
func (c *CoinGeckoClient) CoinSymbol(ctx context.Context, coinID string) (string, error) {
	requestURL := fmt.Sprintf("%s/coins/%s?localization=false&tickers=false&market_data=false&community_data=false&developer_data=false&sparkline=false",
		c.baseURL, url.PathEscape(coinID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return "", err
	}

	var resp struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析JSON失败: %v", err)
	}
	if resp.Symbol == "" {
		return "", fmt.Errorf("CoinGecko未返回币种符号: %s", coinID)
	}
	return strings.ToUpper(resp.Symbol), nil
}

// CoinTicker CoinGecko币种在某交易所的挂牌信息
type CoinTicker struct {
	Base   string
	Target string
	Market string
}

// CoinTickers 获取币种的全部交易所挂牌（符号解析的最后手段）
func (c *CoinGeckoClient) CoinTickers(ctx context.Context, coinID string) ([]CoinTicker, error) {
	requestURL := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(coinID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tickers []struct {
			Base   string `json:"base"`
			Target string `json:"target"`
			Market struct {
				Name       string `json:"name"`
				Identifier string `json:"identifier"`
			} `json:"market"`
		} `json:"tickers"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %v", err)
	}

	tickers := make([]CoinTicker, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		market := t.Market.Identifier
		if market == "" {
			market = t.Market.Name
		}
		tickers = append(tickers, CoinTicker{
			Base:   strings.ToUpper(t.Base),
			Target: strings.ToUpper(t.Target),
			Market: market,
		})
	}
	return tickers, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %v", err)
	}
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
