// Package venue 币安合约签名 REST 客户端
// 生成摘要：
// 1) HMAC-SHA256 对查询串签名，X-MBX-APIKEY 鉴权
// 2) 按订单请求变体分发编码，响应映射为领域快照
// 3) 传输失败与业务码拒绝统一为 VenueError
package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
	"github.com/wyfcoding/binancebot/pkg/metrics"
)

const (
	mainnetBaseURL = "https://fapi.binance.com"
	testnetBaseURL = "https://testnet.binancefuture.com"

	pathOrder         = "/fapi/v1/order"
	pathOrderOCO      = "/fapi/v1/order/oco"
	pathOpenOrders    = "/fapi/v1/openOrders"
	pathAllOpenOrders = "/fapi/v1/allOpenOrders"
	pathTickerPrice   = "/fapi/v1/ticker/price"
	pathKlines        = "/fapi/v1/klines"
)

// Config 客户端配置
type Config struct {
	APIKey         string
	APISecret      string
	Testnet        bool
	BaseURL        string // 留空时按 Testnet 选择
	RequestTimeout time.Duration
	RecvWindow     int // 毫秒
}

// Client 签名 REST 客户端，实现 domain.VenueGateway
type Client struct {
	http       *resty.Client
	apiSecret  string
	recvWindow int
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient 创建客户端
func NewClient(cfg Config, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Testnet {
			baseURL = testnetBaseURL
		} else {
			baseURL = mainnetBaseURL
		}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	recvWindow := cfg.RecvWindow
	if recvWindow <= 0 {
		recvWindow = 5000
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("X-MBX-APIKEY", cfg.APIKey)

	return &Client{
		http:       httpClient,
		apiSecret:  cfg.APISecret,
		recvWindow: recvWindow,
		clock:      clk,
		metrics:    m,
		logger:     logger,
	}
}

// PlaceOrder 提交订单，按请求变体分发编码
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderSnapshot, error) {
	params := url.Values{}
	switch r := req.(type) {
	case domain.MarketOrderRequest:
		params.Set("symbol", r.Symbol)
		params.Set("side", string(r.Side))
		params.Set("type", "MARKET")
		params.Set("quantity", r.Quantity.String())
		if r.ReduceOnly {
			params.Set("reduceOnly", "true")
		}
		if r.ClientOrderID != "" {
			params.Set("newClientOrderId", r.ClientOrderID)
		}
	case domain.LimitOrderRequest:
		params.Set("symbol", r.Symbol)
		params.Set("side", string(r.Side))
		params.Set("type", "LIMIT")
		params.Set("quantity", r.Quantity.String())
		params.Set("price", r.Price.String())
		params.Set("timeInForce", string(timeInForceOrGTC(r.TimeInForce)))
		if r.ReduceOnly {
			params.Set("reduceOnly", "true")
		}
		if r.ClientOrderID != "" {
			params.Set("newClientOrderId", r.ClientOrderID)
		}
	case domain.StopLimitOrderRequest:
		params.Set("symbol", r.Symbol)
		params.Set("side", string(r.Side))
		params.Set("type", "STOP")
		params.Set("quantity", r.Quantity.String())
		params.Set("price", r.Price.String())
		params.Set("stopPrice", r.StopPrice.String())
		params.Set("timeInForce", string(timeInForceOrGTC(r.TimeInForce)))
		if r.ReduceOnly {
			params.Set("reduceOnly", "true")
		}
		if r.ClientOrderID != "" {
			params.Set("newClientOrderId", r.ClientOrderID)
		}
	default:
		return nil, domain.NewParameterError("order_type", "unsupported order request kind")
	}

	var resp orderResponse
	if err := c.signedRequest(ctx, http.MethodPost, pathOrder, params, &resp); err != nil {
		c.metrics.OrderFailuresTotal.Inc()
		return nil, err
	}
	c.metrics.OrdersPlacedTotal.WithLabelValues(params.Get("side"), params.Get("type")).Inc()
	return resp.toSnapshot(), nil
}

// PlaceOCOOrder 原子提交一组 OCO 订单
func (c *Client) PlaceOCOOrder(ctx context.Context, req domain.OCOOrderRequest) (*domain.OCOListSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("quantity", req.Quantity.String())
	params.Set("price", req.Price.String())
	params.Set("stopPrice", req.StopPrice.String())
	params.Set("stopLimitPrice", req.StopLimitPrice.String())
	params.Set("stopLimitTimeInForce", string(timeInForceOrGTC(req.StopLimitTimeInForce)))
	if req.ListClientOrderID != "" {
		params.Set("listClientOrderId", req.ListClientOrderID)
	}

	var resp ocoResponse
	if err := c.signedRequest(ctx, http.MethodPost, pathOrderOCO, params, &resp); err != nil {
		c.metrics.OrderFailuresTotal.Inc()
		return nil, err
	}

	out := &domain.OCOListSnapshot{
		OrderListID: resp.OrderListID,
		Symbol:      resp.Symbol,
		Status:      resp.ListOrderStatus,
		Orders:      make([]domain.OrderSnapshot, 0, len(resp.OrderReports)),
	}
	for _, o := range resp.OrderReports {
		out.Orders = append(out.Orders, *o.toSnapshot())
	}
	return out, nil
}

// GetOrder 查询单张订单
func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*domain.OrderSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var resp orderResponse
	if err := c.signedRequest(ctx, http.MethodGet, pathOrder, params, &resp); err != nil {
		return nil, err
	}
	return resp.toSnapshot(), nil
}

// CancelOrder 撤销订单
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (*domain.OrderSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var resp orderResponse
	if err := c.signedRequest(ctx, http.MethodDelete, pathOrder, params, &resp); err != nil {
		return nil, err
	}
	return resp.toSnapshot(), nil
}

// GetOpenOrders 查询交易对的在场订单
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OrderSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp []orderResponse
	if err := c.signedRequest(ctx, http.MethodGet, pathOpenOrders, params, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.OrderSnapshot, 0, len(resp))
	for _, o := range resp {
		out = append(out, *o.toSnapshot())
	}
	return out, nil
}

// CancelAllOpenOrders 撤销交易对的全部在场订单
func (c *Client) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp apiError
	return c.signedRequest(ctx, http.MethodDelete, pathAllOpenOrders, params, &resp)
}

// GetSymbolPrice 查询最新成交价
func (c *Client) GetSymbolPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp priceResponse
	if err := c.publicRequest(ctx, pathTickerPrice, params, &resp); err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Zero, &domain.VenueError{Message: "malformed price in response", Err: err}
	}
	return price, nil
}

// GetKlines 查询 K 线
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	// K 线以混合类型数组返回：时间戳为数值，价格为字符串
	var raw [][]json.RawMessage
	if err := c.publicRequest(ctx, pathKlines, params, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		var openTime, closeTime int64
		var open, high, low, closePx, volume string
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			continue
		}
		_ = json.Unmarshal(row[1], &open)
		_ = json.Unmarshal(row[2], &high)
		_ = json.Unmarshal(row[3], &low)
		_ = json.Unmarshal(row[4], &closePx)
		_ = json.Unmarshal(row[5], &volume)
		_ = json.Unmarshal(row[6], &closeTime)
		out = append(out, domain.Kline{
			OpenTime:  time.UnixMilli(openTime),
			Open:      parseDecimal(open),
			High:      parseDecimal(high),
			Low:       parseDecimal(low),
			Close:     parseDecimal(closePx),
			Volume:    parseDecimal(volume),
			CloseTime: time.UnixMilli(closeTime),
		})
	}
	return out, nil
}

// signedRequest 加时间戳与接收窗口后对查询串签名并执行
func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	params.Set("timestamp", strconv.FormatInt(c.clock.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(c.recvWindow))

	payload := params.Encode()
	query := payload + "&signature=" + c.sign(payload)

	return c.execute(ctx, method, path, query, out)
}

// publicRequest 公共行情接口，无需签名
func (c *Client) publicRequest(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.execute(ctx, http.MethodGet, path, params.Encode(), out)
}

func (c *Client) execute(ctx context.Context, method, path, query string, out interface{}) error {
	started := c.clock.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryString(query).
		Execute(method, path)
	c.metrics.VenueRequestDuration.WithLabelValues(path).Observe(c.clock.Now().Sub(started).Seconds())

	if err != nil {
		c.metrics.VenueRequestsTotal.WithLabelValues(path, "error").Inc()
		c.logger.ErrorContext(ctx, "venue request transport failure",
			"method", method, "path", path, "error", err)
		return &domain.VenueError{Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		c.metrics.VenueRequestsTotal.WithLabelValues(path, "error").Inc()
		var apiErr apiError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		c.logger.WarnContext(ctx, "venue rejected request",
			"method", method, "path", path,
			"status", resp.StatusCode(), "code", apiErr.Code, "msg", apiErr.Msg)
		return &domain.VenueError{
			HTTPStatus: resp.StatusCode(),
			Code:       apiErr.Code,
			Message:    apiErr.Msg,
		}
	}

	c.metrics.VenueRequestsTotal.WithLabelValues(path, "ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &domain.VenueError{Message: "malformed response body", Err: err}
	}
	return nil
}

// sign 对请求载荷做 HMAC-SHA256 签名
func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func timeInForceOrGTC(tif domain.TimeInForce) domain.TimeInForce {
	if tif == "" {
		return domain.TimeInForceGTC
	}
	return tif
}
