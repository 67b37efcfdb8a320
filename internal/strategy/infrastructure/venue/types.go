// Package venue 场内 REST 接口的线格式定义与领域映射
package venue

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// apiError 场内业务错误体
type apiError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

// orderResponse 订单接口响应
type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	AvgPrice      string `json:"avgPrice"`
	UpdateTime    int64  `json:"updateTime"`
}

// ocoResponse OCO 接口响应
type ocoResponse struct {
	OrderListID     int64           `json:"orderListId"`
	Symbol          string          `json:"symbol"`
	ListOrderStatus string          `json:"listOrderStatus"`
	OrderReports    []orderResponse `json:"orderReports"`
}

// priceResponse 最新价接口响应
type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// toSnapshot 把线格式订单映射为领域快照
func (r *orderResponse) toSnapshot() *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		OrderID:          strconv.FormatInt(r.OrderID, 10),
		ClientOrderID:    r.ClientOrderID,
		Symbol:           r.Symbol,
		Side:             domain.Side(r.Side),
		Type:             domain.OrderType(r.Type),
		Status:           mapStatus(r.Status),
		Price:            parseDecimal(r.Price),
		OrigQuantity:     parseDecimal(r.OrigQty),
		ExecutedQuantity: parseDecimal(r.ExecutedQty),
		AvgPrice:         parseDecimal(r.AvgPrice),
		UpdatedAt:        time.UnixMilli(r.UpdateTime),
	}
}

// mapStatus 场内状态到领域状态的映射。EXPIRED 视同撤销。
func mapStatus(s string) domain.OrderStatus {
	switch s {
	case "NEW":
		return domain.OrderStatusSubmitted
	case "PARTIALLY_FILLED":
		return domain.OrderStatusPartiallyFilled
	case "FILLED":
		return domain.OrderStatusFilled
	case "CANCELED", "EXPIRED":
		return domain.OrderStatusCanceled
	case "REJECTED":
		return domain.OrderStatusRejected
	}
	return domain.OrderStatus(s)
}

// parseDecimal 宽容解析，场内偶尔返回空串表示零值
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
