// Package application TWAP 调度器
// 生成摘要：
// 1) 把母单均分为若干分片，在执行窗口内按基准间隔顺序提交，间隔可选抖动
// 2) 市价分片监测滑点，限价分片等待成交后撤销残留
// 3) 单片失败只记录不中断，运行结束产出结构化报告
package application

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

const (
	defaultFillWait     = 2 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// TWAPParams TWAP 执行参数
type TWAPParams struct {
	Symbol        string
	Side          domain.Side
	TotalQuantity decimal.Decimal
	Duration      time.Duration
	Chunks        int
	OrderType     domain.OrderType // MARKET 或 LIMIT
	PriceOffset   decimal.Decimal  // 限价分片相对现价的偏移比例
	MaxSlippage   decimal.Decimal  // 市价分片滑点告警阈值
	FillWait      time.Duration    // 分片等待成交时长，零值取默认 2s
	Jitter        bool             // 分片间隔是否随机化；关闭时严格按基准间隔调度
}

// Validate 校验参数。任何分片被调度之前失败。
func (p TWAPParams) Validate() error {
	if p.TotalQuantity.LessThanOrEqual(decimal.Zero) {
		return domain.NewParameterError("total_quantity", "must be positive")
	}
	if p.Duration <= 0 {
		return domain.NewParameterError("duration", "must be positive")
	}
	if p.Chunks < 1 {
		return domain.NewParameterError("chunks", "must be at least 1")
	}
	if decimal.NewFromInt(int64(p.Chunks)).GreaterThan(p.TotalQuantity) {
		return domain.NewParameterError("chunks", "must not exceed total quantity")
	}
	if p.OrderType != domain.OrderTypeMarket && p.OrderType != domain.OrderTypeLimit {
		return domain.NewParameterError("order_type", "must be MARKET or LIMIT")
	}
	if p.Side != domain.SideBuy && p.Side != domain.SideSell {
		return domain.NewParameterError("side", "must be BUY or SELL")
	}
	return nil
}

// ChunkOutcome 单个分片的执行结局
type ChunkOutcome struct {
	Index            int                `json:"index"`
	OrderID          string             `json:"order_id,omitempty"`
	Status           domain.OrderStatus `json:"status,omitempty"`
	Quantity         decimal.Decimal    `json:"quantity"`
	ExecutedQuantity decimal.Decimal    `json:"executed_quantity"`
	AvgPrice         decimal.Decimal    `json:"avg_price"`
	Slippage         decimal.Decimal    `json:"slippage"`
	SlippageExceeded bool               `json:"slippage_exceeded,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// TWAPResult TWAP 运行报告
type TWAPResult struct {
	StrategyID       string          `json:"strategy_id"`
	Symbol           string          `json:"symbol"`
	Side             domain.Side     `json:"side"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	AveragePrice     decimal.Decimal `json:"average_price"`
	Chunks           []ChunkOutcome  `json:"chunks"`
	Failures         int             `json:"failures"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
}

// TWAPExecutor TWAP 执行器
type TWAPExecutor struct {
	gateway      domain.VenueGateway
	monitor      *OrderMonitor
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewTWAPExecutor 创建执行器
func NewTWAPExecutor(gateway domain.VenueGateway, monitor *OrderMonitor, clk clock.Clock, logger *slog.Logger) *TWAPExecutor {
	return &TWAPExecutor{
		gateway:      gateway,
		monitor:      monitor,
		clock:        clk,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Execute 执行一次 TWAP 运行。
// 第一个分片立即提交，后续分片按基准间隔调度；开启 Jitter 时间隔随机化。
// ctx 取消只在分片之间生效，已提交的分片不会被中断。
func (e *TWAPExecutor) Execute(ctx context.Context, strategyID string, p TWAPParams) (*TWAPResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.FillWait <= 0 {
		p.FillWait = defaultFillWait
	}

	quantities := splitQuantity(p.TotalQuantity, p.Chunks)
	baseInterval := p.Duration / time.Duration(p.Chunks)
	ledger := domain.NewExecutionLedger(strategyID)

	result := &TWAPResult{
		StrategyID:    strategyID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		TotalQuantity: p.TotalQuantity,
		Chunks:        make([]ChunkOutcome, 0, p.Chunks),
		StartedAt:     e.clock.Now(),
	}

	e.logger.Info("twap execution started",
		"strategy_id", strategyID, "symbol", p.Symbol, "side", p.Side,
		"total_quantity", p.TotalQuantity.String(), "chunks", p.Chunks,
		"duration", p.Duration.String(), "order_type", p.OrderType)

	for i, qty := range quantities {
		if i > 0 {
			wait := baseInterval
			if p.Jitter {
				wait = jitter(baseInterval)
			}
			timer := e.clock.Timer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				e.finish(result, ledger)
				return result, ctx.Err()
			case <-timer.C:
			}
		}

		outcome := e.executeChunk(ctx, p, i, qty, ledger)
		result.Chunks = append(result.Chunks, outcome)
		if outcome.Error != "" {
			e.logger.Warn("twap chunk failed",
				"strategy_id", strategyID, "chunk", i, "error", outcome.Error)
		}
	}

	e.finish(result, ledger)
	e.logger.Info("twap execution finished",
		"strategy_id", strategyID,
		"executed_quantity", result.ExecutedQuantity.String(),
		"average_price", result.AveragePrice.String(),
		"failures", result.Failures)
	return result, nil
}

func (e *TWAPExecutor) finish(result *TWAPResult, ledger *domain.ExecutionLedger) {
	result.ExecutedQuantity = ledger.ExecutedQuantity()
	result.AveragePrice = ledger.AveragePrice()
	result.Failures = ledger.Failures()
	result.FinishedAt = e.clock.Now()
}

func (e *TWAPExecutor) executeChunk(ctx context.Context, p TWAPParams, index int, qty decimal.Decimal, ledger *domain.ExecutionLedger) ChunkOutcome {
	outcome := ChunkOutcome{Index: index, Quantity: qty}

	price, err := e.gateway.GetSymbolPrice(ctx, p.Symbol)
	if err != nil {
		outcome.Error = err.Error()
		ledger.RecordFailure(index, outcome.Error, e.clock.Now())
		return outcome
	}

	var req domain.OrderRequest
	if p.OrderType == domain.OrderTypeMarket {
		req = domain.MarketOrderRequest{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Quantity:      qty,
			ClientOrderID: newClientOrderID(),
		}
	} else {
		req = domain.LimitOrderRequest{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Quantity:      qty,
			Price:         limitPrice(price, p.Side, p.PriceOffset),
			TimeInForce:   domain.TimeInForceGTC,
			ClientOrderID: newClientOrderID(),
		}
	}

	placed, err := e.gateway.PlaceOrder(ctx, req)
	if err != nil {
		outcome.Error = err.Error()
		ledger.RecordFailure(index, outcome.Error, e.clock.Now())
		return outcome
	}
	outcome.OrderID = placed.OrderID

	snap, err := e.monitor.Await(ctx, p.Symbol, placed.OrderID, e.pollInterval, p.FillWait)
	if err != nil {
		outcome.Error = err.Error()
		ledger.RecordFailure(index, outcome.Error, e.clock.Now())
		return outcome
	}

	// 限价分片窗口内未终态则撤销，残留数量不再追补
	if p.OrderType == domain.OrderTypeLimit && snap.Status == domain.OrderStatusTimeout {
		canceled, cErr := e.gateway.CancelOrder(ctx, p.Symbol, placed.OrderID)
		if cErr != nil {
			e.logger.Warn("cancel of unfilled chunk failed",
				"symbol", p.Symbol, "order_id", placed.OrderID, "error", cErr)
		} else {
			snap = canceled
		}
	}

	outcome.Status = snap.Status
	outcome.ExecutedQuantity = snap.ExecutedQuantity
	outcome.AvgPrice = snap.AvgPrice

	if snap.ExecutedQuantity.GreaterThan(decimal.Zero) {
		ledger.RecordFill(index, placed.OrderID, p.Side, snap.ExecutedQuantity, snap.AvgPrice, e.clock.Now())
	} else {
		ledger.RecordFailure(index, "no quantity executed", e.clock.Now())
	}

	// 市价分片用提交前的现价作为期望价衡量滑点，超限只告警不中止
	if p.OrderType == domain.OrderTypeMarket && snap.ExecutedQuantity.GreaterThan(decimal.Zero) && price.GreaterThan(decimal.Zero) {
		outcome.Slippage = snap.AvgPrice.Sub(price).Abs().Div(price)
		if p.MaxSlippage.GreaterThan(decimal.Zero) && outcome.Slippage.GreaterThan(p.MaxSlippage) {
			outcome.SlippageExceeded = true
			e.logger.Warn("chunk slippage exceeded threshold",
				"symbol", p.Symbol, "chunk", index,
				"slippage", outcome.Slippage.String(), "max_slippage", p.MaxSlippage.String())
		}
	}
	return outcome
}

// limitPrice 限价分片定价：买单在现价上方偏移，卖单在下方偏移
func limitPrice(price decimal.Decimal, side domain.Side, offset decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if side == domain.SideBuy {
		return price.Mul(one.Add(offset))
	}
	return price.Mul(one.Sub(offset))
}

// jitter 返回 [0.8, 1.2) 倍的基准间隔，避免分片节奏被预测
func jitter(base time.Duration) time.Duration {
	return time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
}

// splitQuantity 均分数量，余数并入最后一个分片，分片之和精确等于总量
func splitQuantity(total decimal.Decimal, n int) []decimal.Decimal {
	share := total.Div(decimal.NewFromInt(int64(n)))
	out := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = share
		allocated = allocated.Add(share)
	}
	out[n-1] = total.Sub(allocated)
	return out
}

func newClientOrderID() string {
	return "bot-" + uuid.NewString()
}
