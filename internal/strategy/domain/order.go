// Package domain 策略执行引擎领域层
// 生成摘要：
// 1) 定义交易方向、订单类型、订单状态等基础枚举
// 2) 定义按订单种类划分的下单请求记录（带标签变体）
// 3) 定义子单实体与 OCO 订单组
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 交易方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回相反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP"
)

// TimeInForce 订单有效方式
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // 成交为止
	TimeInForceIOC TimeInForce = "IOC" // 立即成交并取消剩余
	TimeInForceFOK TimeInForce = "FOK" // 全部成交或立即取消
)

// OrderStatus 子单状态
type OrderStatus string

const (
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusTimeout         OrderStatus = "TIMEOUT"
)

// Terminal 终态订单不会再变化，只能被新子单取代
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusTimeout:
		return true
	}
	return false
}

// Open 订单是否仍在场内挂着
func (s OrderStatus) Open() bool {
	return s == OrderStatusSubmitted || s == OrderStatusPartiallyFilled
}

// OrderRequest 下单请求的带标签变体。
// 每种订单各自携带显式类型化的参数记录，网关按 Kind 分发编码。
type OrderRequest interface {
	Kind() OrderType
}

// MarketOrderRequest 市价单请求
type MarketOrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

func (MarketOrderRequest) Kind() OrderType { return OrderTypeMarket }

// LimitOrderRequest 限价单请求
type LimitOrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

func (LimitOrderRequest) Kind() OrderType { return OrderTypeLimit }

// StopLimitOrderRequest 止损限价单请求
type StopLimitOrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

func (StopLimitOrderRequest) Kind() OrderType { return OrderTypeStopLimit }

// BaseQuantityFromQuote 按参考价把计价币金额折算为基础币数量。
// 网格层位按买入价折算，OCO 按止盈限价折算。
func BaseQuantityFromQuote(quote, price decimal.Decimal) (decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, NewParameterError("price", "must be positive")
	}
	if quote.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, NewParameterError("quote_quantity", "must be positive")
	}
	return quote.Div(price), nil
}

// OCOOrderRequest OCO 订单请求：限价止盈 + 止损触发 + 止损限价，三者由场内原子关联。
// 各价格只做单独校验，止盈/止损/止损限价之间的相对顺序由场内裁决。
type OCOOrderRequest struct {
	Symbol               string
	Side                 Side
	Quantity             decimal.Decimal
	Price                decimal.Decimal // 止盈限价
	StopPrice            decimal.Decimal // 止损触发价
	StopLimitPrice       decimal.Decimal // 止损执行价
	StopLimitTimeInForce TimeInForce
	ListClientOrderID    string
}

// ChildOrder 子单：策略拆分后提交到场内的实际执行单。
// 创建于提交时刻；状态只由生命周期监视器更新；进入终态后不再复用。
type ChildOrder struct {
	OrderID          string          `json:"order_id"`
	StrategyID       string          `json:"strategy_id"`
	UnitIndex        int             `json:"unit_index"` // 分片序号或网格层号
	Symbol           string          `json:"symbol"`
	Side             Side            `json:"side"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	Status           OrderStatus     `json:"status"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

// ApplySnapshot 用场内快照刷新子单状态。终态子单不接受任何更新。
func (c *ChildOrder) ApplySnapshot(snap *OrderSnapshot) {
	if c.Status.Terminal() {
		return
	}
	c.Status = snap.Status
	c.ExecutedQuantity = snap.ExecutedQuantity
	c.AvgPrice = snap.AvgPrice
}

// Terminal 子单是否已进入终态
func (c *ChildOrder) Terminal() bool { return c.Status.Terminal() }

// OCOGroup 一组关联的止盈/止损订单。
// 不变式：其中一个成交时另一个由场内取消，两者同时成交不会被观察到。
type OCOGroup struct {
	OrderListID int64         `json:"order_list_id"`
	Symbol      string        `json:"symbol"`
	Orders      []*ChildOrder `json:"orders"`
}
