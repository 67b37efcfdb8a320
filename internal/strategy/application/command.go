// Package application 策略执行引擎应用层
package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
	"github.com/wyfcoding/binancebot/pkg/metrics"
)

// ExecutionDefaults 执行参数的服务级默认值，请求未指定时生效
type ExecutionDefaults struct {
	FillWait         time.Duration
	GridWindow       time.Duration
	GridPollInterval time.Duration
	MaxActiveOrders  int
}

// CommandService 策略命令服务
type CommandService struct {
	strategyRepo domain.StrategyRepository
	validator    *domain.Validator
	twap         *TWAPExecutor
	grid         *GridExecutor
	oco          *OCOCoordinator
	events       EventPublisher
	clock        clock.Clock
	metrics      *metrics.Metrics
	defaults     ExecutionDefaults
	logger       *slog.Logger
}

// NewCommandService 创建命令服务
func NewCommandService(
	strategyRepo domain.StrategyRepository,
	validator *domain.Validator,
	twap *TWAPExecutor,
	grid *GridExecutor,
	oco *OCOCoordinator,
	events EventPublisher,
	clk clock.Clock,
	m *metrics.Metrics,
	defaults ExecutionDefaults,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		strategyRepo: strategyRepo,
		validator:    validator,
		twap:         twap,
		grid:         grid,
		oco:          oco,
		events:       events,
		clock:        clk,
		metrics:      m,
		defaults:     defaults,
		logger:       logger,
	}
}

// CreateGridStrategyCommand 创建网格策略命令
type CreateGridStrategyCommand struct {
	UserID          uint64
	Symbol          string
	GridType        string
	UpperPrice      decimal.Decimal
	LowerPrice      decimal.Decimal
	GridNumber      int
	TotalInvestment decimal.Decimal
	BasePrice       decimal.Decimal
	Multiplier      decimal.Decimal
}

// CreateGridStrategy 创建网格策略：校验参数、计算规划并持久化。
// 规划在创建时刻冻结，执行阶段按冻结的参数重算同一规划。
func (s *CommandService) CreateGridStrategy(ctx context.Context, cmd CreateGridStrategyCommand) (string, *domain.GridPlan, error) {
	symbol, err := s.validator.Symbol(cmd.Symbol)
	if err != nil {
		return "", nil, err
	}

	params := domain.GridParams{
		Symbol:          symbol,
		Type:            domain.GridType(cmd.GridType),
		UpperPrice:      cmd.UpperPrice,
		LowerPrice:      cmd.LowerPrice,
		GridNumber:      cmd.GridNumber,
		TotalInvestment: cmd.TotalInvestment,
		BasePrice:       cmd.BasePrice,
		Multiplier:      cmd.Multiplier,
	}
	plan, err := domain.PlanGrid(params, s.clock.Now())
	if err != nil {
		return "", nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", nil, err
	}

	strategyID := domain.NewStrategyID(s.clock.Now())
	strategy := domain.NewStrategy(strategyID, cmd.UserID, domain.StrategyTypeGrid, symbol, string(paramsJSON), s.clock.Now())
	if err := s.strategyRepo.Save(ctx, strategy); err != nil {
		return "", nil, err
	}

	s.publishEvents(ctx, strategy.GetDomainEvents())
	strategy.ClearDomainEvents()

	s.logger.InfoContext(ctx, "grid strategy created",
		"strategy_id", strategyID, "symbol", symbol,
		"grid_type", cmd.GridType, "levels", len(plan.Levels))
	return strategyID, plan, nil
}

// ExecuteGridStrategyCommand 执行网格策略命令
type ExecuteGridStrategyCommand struct {
	StrategyID      string
	MaxActiveOrders int
	Window          time.Duration
	PollInterval    time.Duration
}

// ExecuteGridStrategy 同步执行一次网格运行，返回结构化报告。
func (s *CommandService) ExecuteGridStrategy(ctx context.Context, cmd ExecuteGridStrategyCommand) (*GridResult, error) {
	strategy, err := s.strategyRepo.FindByStrategyID(ctx, cmd.StrategyID)
	if err != nil {
		return nil, err
	}

	var params domain.GridParams
	if err := json.Unmarshal([]byte(strategy.Parameters), &params); err != nil {
		return nil, err
	}
	plan, err := domain.PlanGrid(params, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := strategy.Start(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.strategyRepo.Update(ctx, strategy); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, strategy.GetDomainEvents())
	strategy.ClearDomainEvents()

	runParams := GridRunParams{
		Plan:            plan,
		MaxActiveOrders: cmd.MaxActiveOrders,
		Window:          cmd.Window,
		PollInterval:    cmd.PollInterval,
	}
	if runParams.MaxActiveOrders <= 0 {
		runParams.MaxActiveOrders = s.defaults.MaxActiveOrders
	}
	if runParams.Window <= 0 {
		runParams.Window = s.defaults.GridWindow
	}
	if runParams.PollInterval <= 0 {
		runParams.PollInterval = s.defaults.GridPollInterval
	}

	s.metrics.StrategiesRunning.Inc()
	started := s.clock.Now()
	result, runErr := s.grid.Execute(ctx, strategy.StrategyID, runParams)
	s.metrics.StrategiesRunning.Dec()
	s.metrics.StrategyExecutionDuration.WithLabelValues("grid").Observe(s.clock.Now().Sub(started).Seconds())

	return s.settleGrid(ctx, strategy, result, runErr)
}

func (s *CommandService) settleGrid(ctx context.Context, strategy *domain.Strategy, result *GridResult, runErr error) (*GridResult, error) {
	now := s.clock.Now()
	if runErr != nil && result == nil {
		s.metrics.StrategyExecutionsTotal.WithLabelValues("grid", "failed").Inc()
		if err := strategy.Fail(now, runErr.Error()); err == nil {
			if err := s.strategyRepo.Update(ctx, strategy); err != nil {
				s.logger.ErrorContext(ctx, "failed to persist strategy failure",
					"strategy_id", strategy.StrategyID, "error", err)
			}
			s.publishEvents(ctx, strategy.GetDomainEvents())
			strategy.ClearDomainEvents()
		}
		return nil, runErr
	}

	// ctx 取消返回部分结果，仍按完成落库
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := strategy.Complete(now, string(resultJSON)); err != nil {
		return nil, err
	}
	if err := s.strategyRepo.Update(ctx, strategy); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, strategy.GetDomainEvents())
	strategy.ClearDomainEvents()

	s.metrics.StrategyExecutionsTotal.WithLabelValues("grid", "completed").Inc()
	s.metrics.RoundTripsTotal.Add(float64(result.RoundTrips))
	s.logger.InfoContext(ctx, "grid strategy settled",
		"strategy_id", strategy.StrategyID,
		"round_trips", result.RoundTrips,
		"realized_profit", result.RealizedProfit.String())
	return result, runErr
}

// ExecuteTWAPCommand 执行 TWAP 命令
type ExecuteTWAPCommand struct {
	UserID        uint64
	Symbol        string
	Side          string
	TotalQuantity decimal.Decimal
	Duration      time.Duration
	Chunks        int
	OrderType     string
	PriceOffset   decimal.Decimal
	MaxSlippage   decimal.Decimal
	FillWait      time.Duration
	Jitter        bool
}

// ExecuteTWAP 创建并同步执行一次 TWAP 运行。
// 参数拒绝发生在任何分片被调度之前，此时不留运行痕迹。
func (s *CommandService) ExecuteTWAP(ctx context.Context, cmd ExecuteTWAPCommand) (string, *TWAPResult, error) {
	symbol, err := s.validator.Symbol(cmd.Symbol)
	if err != nil {
		return "", nil, err
	}
	side, err := s.validator.Side(cmd.Side)
	if err != nil {
		return "", nil, err
	}
	if err := s.validator.Quantity(cmd.TotalQuantity); err != nil {
		return "", nil, err
	}

	params := TWAPParams{
		Symbol:        symbol,
		Side:          side,
		TotalQuantity: cmd.TotalQuantity,
		Duration:      cmd.Duration,
		Chunks:        cmd.Chunks,
		OrderType:     domain.OrderType(cmd.OrderType),
		PriceOffset:   cmd.PriceOffset,
		MaxSlippage:   cmd.MaxSlippage,
		FillWait:      cmd.FillWait,
		Jitter:        cmd.Jitter,
	}
	if params.FillWait <= 0 {
		params.FillWait = s.defaults.FillWait
	}
	if err := params.Validate(); err != nil {
		return "", nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", nil, err
	}

	strategyID := domain.NewStrategyID(s.clock.Now())
	strategy := domain.NewStrategy(strategyID, cmd.UserID, domain.StrategyTypeTWAP, symbol, string(paramsJSON), s.clock.Now())
	if err := strategy.Start(s.clock.Now()); err != nil {
		return "", nil, err
	}
	if err := s.strategyRepo.Save(ctx, strategy); err != nil {
		return "", nil, err
	}
	s.publishEvents(ctx, strategy.GetDomainEvents())
	strategy.ClearDomainEvents()

	s.metrics.StrategiesRunning.Inc()
	started := s.clock.Now()
	result, runErr := s.twap.Execute(ctx, strategyID, params)
	s.metrics.StrategiesRunning.Dec()
	s.metrics.StrategyExecutionDuration.WithLabelValues("twap").Observe(s.clock.Now().Sub(started).Seconds())

	now := s.clock.Now()
	if runErr != nil && result == nil {
		s.metrics.StrategyExecutionsTotal.WithLabelValues("twap", "failed").Inc()
		if err := strategy.Fail(now, runErr.Error()); err == nil {
			if err := s.strategyRepo.Update(ctx, strategy); err != nil {
				s.logger.ErrorContext(ctx, "failed to persist strategy failure",
					"strategy_id", strategyID, "error", err)
			}
			s.publishEvents(ctx, strategy.GetDomainEvents())
			strategy.ClearDomainEvents()
		}
		return strategyID, nil, runErr
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return strategyID, result, err
	}
	if err := strategy.Complete(now, string(resultJSON)); err != nil {
		return strategyID, result, err
	}
	if err := s.strategyRepo.Update(ctx, strategy); err != nil {
		return strategyID, result, err
	}
	s.publishEvents(ctx, strategy.GetDomainEvents())
	strategy.ClearDomainEvents()

	s.metrics.StrategyExecutionsTotal.WithLabelValues("twap", "completed").Inc()
	s.logger.InfoContext(ctx, "twap strategy settled",
		"strategy_id", strategyID,
		"executed_quantity", result.ExecutedQuantity.String(),
		"average_price", result.AveragePrice.String())
	return strategyID, result, runErr
}

// PlaceOCOCommand OCO 下单命令
type PlaceOCOCommand struct {
	Symbol               string
	Side                 string
	Quantity             decimal.Decimal
	QuoteQuantity        decimal.Decimal
	Price                decimal.Decimal
	StopPrice            decimal.Decimal
	StopLimitPrice       decimal.Decimal
	StopLimitTimeInForce string
}

// PlaceOCO 提交一组 OCO 订单
func (s *CommandService) PlaceOCO(ctx context.Context, cmd PlaceOCOCommand) (*domain.OCOGroup, error) {
	side, err := s.validator.Side(cmd.Side)
	if err != nil {
		return nil, err
	}
	var tif domain.TimeInForce
	if cmd.StopLimitTimeInForce != "" {
		tif, err = s.validator.TimeInForce(cmd.StopLimitTimeInForce)
		if err != nil {
			return nil, err
		}
	}

	group, err := s.oco.Place(ctx, OCOParams{
		Symbol:               cmd.Symbol,
		Side:                 side,
		Quantity:             cmd.Quantity,
		QuoteQuantity:        cmd.QuoteQuantity,
		Price:                cmd.Price,
		StopPrice:            cmd.StopPrice,
		StopLimitPrice:       cmd.StopLimitPrice,
		StopLimitTimeInForce: tif,
	})
	if err != nil {
		s.metrics.OrderFailuresTotal.Inc()
		return nil, err
	}
	s.metrics.OrdersPlacedTotal.WithLabelValues(string(side), "OCO").Inc()
	return group, nil
}

// publishEvents 发布领域事件
func (s *CommandService) publishEvents(ctx context.Context, events []domain.DomainEvent) {
	if s.events == nil {
		return
	}
	for _, event := range events {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish event",
				"event", event.EventName(),
				"error", err)
		}
	}
}
