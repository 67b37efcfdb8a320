// Package application 网格执行器
// 生成摘要：
// 1) 按规划铺设初始订单，只提交当前可成交方向，受在场订单上限约束
// 2) 监控窗口内轮询场内，成交的层位立即提交对侧配对单
// 3) 卖单成交即确认一次买卖闭环的已实现利润，按订单号去重
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

const (
	defaultGridWindow       = time.Hour
	defaultGridPollInterval = 30 * time.Second
)

// EventPublisher 领域事件发布端口
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// GridRunParams 网格运行参数
type GridRunParams struct {
	Plan            *domain.GridPlan
	MaxActiveOrders int           // 在场订单上限，0 表示不限制
	Window          time.Duration // 监控窗口，零值取默认 1h
	PollInterval    time.Duration // 轮询间隔，零值取默认 30s
}

// GridResult 网格运行报告
type GridResult struct {
	StrategyID       string          `json:"strategy_id"`
	Symbol           string          `json:"symbol"`
	InitialOrders    int             `json:"initial_orders"`
	RoundTrips       int             `json:"round_trips"`
	RealizedProfit   decimal.Decimal `json:"realized_profit"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	SkippedUnits     int             `json:"skipped_units"`
	ActiveOrders     int             `json:"active_orders"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
}

// trackedOrder 在场订单与其所属层位的关联
type trackedOrder struct {
	level int // Levels 下标
	side  domain.Side
}

// GridExecutor 网格执行器
type GridExecutor struct {
	gateway domain.VenueGateway
	clock   clock.Clock
	logger  *slog.Logger
	events  EventPublisher // 可为 nil
}

// NewGridExecutor 创建执行器
func NewGridExecutor(gateway domain.VenueGateway, clk clock.Clock, logger *slog.Logger, events EventPublisher) *GridExecutor {
	return &GridExecutor{gateway: gateway, clock: clk, logger: logger, events: events}
}

// Execute 铺设网格并监控再平衡，直到窗口耗尽或 ctx 取消。
// 窗口耗尽时在场订单原样保留，不做强制撤销。
func (e *GridExecutor) Execute(ctx context.Context, strategyID string, p GridRunParams) (*GridResult, error) {
	if p.Plan == nil || len(p.Plan.Levels) == 0 {
		return nil, domain.NewParameterError("plan", "must contain at least one level")
	}
	if p.Window <= 0 {
		p.Window = defaultGridWindow
	}
	if p.PollInterval <= 0 {
		p.PollInterval = defaultGridPollInterval
	}

	plan := p.Plan
	ledger := domain.NewExecutionLedger(strategyID)
	active := make(map[string]trackedOrder)

	result := &GridResult{
		StrategyID: strategyID,
		Symbol:     plan.Symbol,
		StartedAt:  e.clock.Now(),
	}

	current, err := e.gateway.GetSymbolPrice(ctx, plan.Symbol)
	if err != nil {
		return nil, err
	}

	e.logger.Info("grid execution started",
		"strategy_id", strategyID, "symbol", plan.Symbol,
		"levels", len(plan.Levels), "current_price", current.String(),
		"max_active_orders", p.MaxActiveOrders)

	// 初始铺设：只提交相对现价立即有意义的方向
	e.placeInitial(ctx, strategyID, plan, current, p.MaxActiveOrders, active, ledger)
	result.InitialOrders = len(active)

	deadline := e.clock.Now().Add(p.Window)
	for {
		e.rebalance(ctx, strategyID, plan, p.MaxActiveOrders, active, ledger)

		if !e.clock.Now().Before(deadline) {
			break
		}
		timer := e.clock.Timer(p.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.finish(result, ledger, len(active))
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	e.finish(result, ledger, len(active))
	e.logger.Info("grid execution finished",
		"strategy_id", strategyID,
		"round_trips", result.RoundTrips,
		"realized_profit", result.RealizedProfit.String(),
		"active_orders", result.ActiveOrders)
	return result, nil
}

func (e *GridExecutor) finish(result *GridResult, ledger *domain.ExecutionLedger, activeCount int) {
	result.RoundTrips = ledger.RoundTrips()
	result.RealizedProfit = ledger.RealizedProfit()
	result.ExecutedQuantity = ledger.ExecutedQuantity()
	result.SkippedUnits = ledger.Failures()
	result.ActiveOrders = activeCount
	result.FinishedAt = e.clock.Now()
}

func (e *GridExecutor) placeInitial(ctx context.Context, strategyID string, plan *domain.GridPlan, current decimal.Decimal, maxActive int, active map[string]trackedOrder, ledger *domain.ExecutionLedger) {
	for i, level := range plan.Levels {
		if maxActive > 0 && len(active) >= maxActive {
			e.logger.Warn("active order cap reached during initial placement",
				"strategy_id", strategyID, "placed", len(active), "cap", maxActive)
			break
		}
		if current.GreaterThan(level.BuyPrice) {
			e.submit(ctx, strategyID, plan.Symbol, i, domain.SideBuy, level.BuyPrice, level.BuyQuantity, active, ledger)
		}
		if maxActive > 0 && len(active) >= maxActive {
			e.logger.Warn("active order cap reached during initial placement",
				"strategy_id", strategyID, "placed", len(active), "cap", maxActive)
			break
		}
		if current.LessThan(level.SellPrice) {
			e.submit(ctx, strategyID, plan.Symbol, i, domain.SideSell, level.SellPrice, level.SellQuantity, active, ledger)
		}
	}
}

// rebalance 扫描一轮：跟踪中的订单从在场列表消失则查询终态，
// 成交的买单配对提交卖单，成交的卖单配对提交买单并确认闭环利润。
func (e *GridExecutor) rebalance(ctx context.Context, strategyID string, plan *domain.GridPlan, maxActive int, active map[string]trackedOrder, ledger *domain.ExecutionLedger) {
	open, err := e.gateway.GetOpenOrders(ctx, plan.Symbol)
	if err != nil {
		e.logger.Warn("open orders query failed, will retry next cycle",
			"strategy_id", strategyID, "error", err)
		return
	}
	openSet := make(map[string]struct{}, len(open))
	for _, o := range open {
		openSet[o.OrderID] = struct{}{}
	}

	for orderID, tracked := range active {
		if _, stillOpen := openSet[orderID]; stillOpen {
			continue
		}
		snap, err := e.gateway.GetOrder(ctx, plan.Symbol, orderID)
		if err != nil {
			e.logger.Warn("order lookup failed, will retry next cycle",
				"strategy_id", strategyID, "order_id", orderID, "error", err)
			continue
		}
		if snap.Status.Open() {
			continue
		}
		delete(active, orderID)

		if snap.Status != domain.OrderStatusFilled {
			e.logger.Info("grid order left the book unfilled",
				"strategy_id", strategyID, "order_id", orderID, "status", snap.Status)
			continue
		}
		if ledger.Seen(orderID) {
			continue
		}

		level := plan.Levels[tracked.level]
		ledger.RecordFill(tracked.level, orderID, tracked.side, snap.ExecutedQuantity, snap.AvgPrice, e.clock.Now())

		if tracked.side == domain.SideSell {
			// 闭环完成：利润按层位冻结价差计算
			ledger.RecordRoundTrip(level.BuyPrice, level.SellPrice, snap.ExecutedQuantity)
			e.logger.Info("grid round trip completed",
				"strategy_id", strategyID, "level", level.Level,
				"buy_price", level.BuyPrice.String(), "sell_price", level.SellPrice.String(),
				"quantity", snap.ExecutedQuantity.String())
			e.publish(ctx, &domain.RoundTripCompletedEvent{
				StrategyID: strategyID,
				Symbol:     plan.Symbol,
				Level:      level.Level,
				BuyPrice:   level.BuyPrice,
				SellPrice:  level.SellPrice,
				Quantity:   snap.ExecutedQuantity,
				Profit:     level.SellPrice.Sub(level.BuyPrice).Mul(snap.ExecutedQuantity),
				Timestamp:  e.clock.Now(),
			})
		}

		// 配对提交：上限同样约束再平衡期间的新单
		if maxActive > 0 && len(active) >= maxActive {
			e.logger.Warn("paired submission skipped, active order cap reached",
				"strategy_id", strategyID, "level", level.Level, "cap", maxActive)
			ledger.RecordFailure(tracked.level, "paired submission skipped: active order cap reached", e.clock.Now())
			continue
		}
		pairSide := tracked.side.Opposite()
		pairPrice := level.SellPrice
		if pairSide == domain.SideBuy {
			pairPrice = level.BuyPrice
		}
		e.submit(ctx, strategyID, plan.Symbol, tracked.level, pairSide, pairPrice, snap.ExecutedQuantity, active, ledger)
	}
}

func (e *GridExecutor) submit(ctx context.Context, strategyID, symbol string, levelIndex int, side domain.Side, price, qty decimal.Decimal, active map[string]trackedOrder, ledger *domain.ExecutionLedger) {
	snap, err := e.gateway.PlaceOrder(ctx, domain.LimitOrderRequest{
		Symbol:        symbol,
		Side:          side,
		Quantity:      qty,
		Price:         price,
		TimeInForce:   domain.TimeInForceGTC,
		ClientOrderID: newClientOrderID(),
	})
	if err != nil {
		e.logger.Warn("grid order placement failed",
			"strategy_id", strategyID, "level", levelIndex+1, "side", side,
			"price", price.String(), "error", err)
		ledger.RecordFailure(levelIndex, err.Error(), e.clock.Now())
		return
	}
	active[snap.OrderID] = trackedOrder{level: levelIndex, side: side}
	e.logger.Info("grid order placed",
		"strategy_id", strategyID, "order_id", snap.OrderID,
		"level", levelIndex+1, "side", side,
		"price", price.String(), "quantity", qty.String())
}

func (e *GridExecutor) publish(ctx context.Context, event domain.DomainEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn("event publish failed", "event", event.EventName(), "error", err)
	}
}
