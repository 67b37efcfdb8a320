// Package domain 场内网关端口。
// 领域层只依赖该接口，真实的签名 REST 客户端在基础设施层实现。
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSnapshot 场内订单的一次状态观察
type OrderSnapshot struct {
	OrderID          string          `json:"order_id"`
	ClientOrderID    string          `json:"client_order_id,omitempty"`
	Symbol           string          `json:"symbol"`
	Side             Side            `json:"side"`
	Type             OrderType       `json:"type"`
	Status           OrderStatus     `json:"status"`
	Price            decimal.Decimal `json:"price"`
	OrigQuantity     decimal.Decimal `json:"orig_quantity"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OCOListSnapshot 场内返回的 OCO 订单组快照
type OCOListSnapshot struct {
	OrderListID int64           `json:"order_list_id"`
	Symbol      string          `json:"symbol"`
	Status      string          `json:"status"`
	Orders      []OrderSnapshot `json:"orders"`
}

// Kline K 线
type Kline struct {
	OpenTime  time.Time       `json:"open_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
}

// VenueGateway 场内网关。所有方法接受 context，失败返回 *VenueError。
type VenueGateway interface {
	// PlaceOrder 提交一张订单，按请求变体的 Kind 分发编码
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderSnapshot, error)
	// PlaceOCOOrder 原子提交一组 OCO 订单
	PlaceOCOOrder(ctx context.Context, req OCOOrderRequest) (*OCOListSnapshot, error)
	// GetOrder 查询单张订单的当前快照
	GetOrder(ctx context.Context, symbol, orderID string) (*OrderSnapshot, error)
	// CancelOrder 撤销一张订单
	CancelOrder(ctx context.Context, symbol, orderID string) (*OrderSnapshot, error)
	// GetOpenOrders 查询交易对的全部在场订单
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderSnapshot, error)
	// CancelAllOpenOrders 撤销交易对的全部在场订单
	CancelAllOpenOrders(ctx context.Context, symbol string) error
	// GetSymbolPrice 查询最新成交价
	GetSymbolPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// GetKlines 查询 K 线
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
}
