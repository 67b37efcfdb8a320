// Package application OCO 协调器
// 止盈限价与止损触发单由场内原子关联，本地只做单项参数校验与结果映射。
package application

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// OCOParams OCO 下单参数。
// Quantity 为零时可改用 QuoteQuantity（计价币金额），按止盈限价折算为基础币数量。
type OCOParams struct {
	Symbol               string
	Side                 domain.Side
	Quantity             decimal.Decimal
	QuoteQuantity        decimal.Decimal
	Price                decimal.Decimal // 止盈限价
	StopPrice            decimal.Decimal // 止损触发价
	StopLimitPrice       decimal.Decimal // 止损执行价
	StopLimitTimeInForce domain.TimeInForce
}

// OCOCoordinator OCO 协调器
type OCOCoordinator struct {
	gateway   domain.VenueGateway
	validator *domain.Validator
	clock     clock.Clock
	logger    *slog.Logger
	events    EventPublisher // 可为 nil
}

// NewOCOCoordinator 创建协调器
func NewOCOCoordinator(gateway domain.VenueGateway, validator *domain.Validator, clk clock.Clock, logger *slog.Logger, events EventPublisher) *OCOCoordinator {
	return &OCOCoordinator{gateway: gateway, validator: validator, clock: clk, logger: logger, events: events}
}

// Place 提交一组 OCO 订单。
// 三个价格各自单独校验；止盈与止损之间的相对顺序由场内裁决，
// 顺序不合法时表现为场内拒绝而非参数错误。
func (c *OCOCoordinator) Place(ctx context.Context, p OCOParams) (*domain.OCOGroup, error) {
	symbol, err := c.validator.Symbol(p.Symbol)
	if err != nil {
		return nil, err
	}
	if p.Side != domain.SideBuy && p.Side != domain.SideSell {
		return nil, domain.NewParameterError("side", "must be BUY or SELL")
	}
	qty := p.Quantity
	if qty.IsZero() && p.QuoteQuantity.GreaterThan(decimal.Zero) {
		qty, err = domain.BaseQuantityFromQuote(p.QuoteQuantity, p.Price)
		if err != nil {
			return nil, err
		}
	}
	if err := c.validator.Quantity(qty); err != nil {
		return nil, err
	}
	if err := c.validator.Price(p.Price); err != nil {
		return nil, err
	}
	if err := c.validator.StopPrice(p.StopPrice); err != nil {
		return nil, err
	}
	if err := c.validator.Price(p.StopLimitPrice); err != nil {
		return nil, domain.NewParameterError("stop_limit_price", err.(*domain.ParameterError).Reason)
	}
	tif := p.StopLimitTimeInForce
	if tif == "" {
		tif = domain.TimeInForceGTC
	}

	snap, err := c.gateway.PlaceOCOOrder(ctx, domain.OCOOrderRequest{
		Symbol:               symbol,
		Side:                 p.Side,
		Quantity:             qty,
		Price:                p.Price,
		StopPrice:            p.StopPrice,
		StopLimitPrice:       p.StopLimitPrice,
		StopLimitTimeInForce: tif,
		ListClientOrderID:    newClientOrderID(),
	})
	if err != nil {
		c.logger.Error("oco placement rejected",
			"symbol", symbol, "side", p.Side, "error", err)
		return nil, err
	}

	group := &domain.OCOGroup{
		OrderListID: snap.OrderListID,
		Symbol:      snap.Symbol,
		Orders:      make([]*domain.ChildOrder, 0, len(snap.Orders)),
	}
	now := c.clock.Now()
	for _, o := range snap.Orders {
		group.Orders = append(group.Orders, &domain.ChildOrder{
			OrderID:          o.OrderID,
			Symbol:           o.Symbol,
			Side:             o.Side,
			Price:            o.Price,
			Quantity:         o.OrigQuantity,
			Status:           o.Status,
			ExecutedQuantity: o.ExecutedQuantity,
			AvgPrice:         o.AvgPrice,
			SubmittedAt:      now,
		})
	}

	c.logger.Info("oco order placed",
		"symbol", symbol, "side", p.Side,
		"order_list_id", group.OrderListID, "legs", len(group.Orders))
	c.publish(ctx, &domain.OCOPlacedEvent{
		OrderListID: group.OrderListID,
		Symbol:      symbol,
		Side:        p.Side,
		Timestamp:   now,
	})
	return group, nil
}

func (c *OCOCoordinator) publish(ctx context.Context, event domain.DomainEvent) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("event publish failed", "event", event.EventName(), "error", err)
	}
}
