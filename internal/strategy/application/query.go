// Package application 策略查询服务
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// QueryService 策略查询服务
type QueryService struct {
	strategyRepo    domain.StrategyRepository
	gateway         domain.VenueGateway
	monitor         *OrderMonitor
	validator       *domain.Validator
	monitorInterval time.Duration
	monitorTimeout  time.Duration
	logger          *slog.Logger
}

// NewQueryService 创建查询服务。
// monitorInterval 与 monitorTimeout 是订单跟踪的默认轮询间隔与窗口，非正值取 5s/1m。
func NewQueryService(
	strategyRepo domain.StrategyRepository,
	gateway domain.VenueGateway,
	monitor *OrderMonitor,
	validator *domain.Validator,
	monitorInterval, monitorTimeout time.Duration,
	logger *slog.Logger,
) *QueryService {
	if monitorInterval <= 0 {
		monitorInterval = 5 * time.Second
	}
	if monitorTimeout <= 0 {
		monitorTimeout = time.Minute
	}
	return &QueryService{
		strategyRepo:    strategyRepo,
		gateway:         gateway,
		monitor:         monitor,
		validator:       validator,
		monitorInterval: monitorInterval,
		monitorTimeout:  monitorTimeout,
		logger:          logger,
	}
}

// StrategyDTO 策略 DTO
type StrategyDTO struct {
	StrategyID string                `json:"strategy_id"`
	UserID     uint64                `json:"user_id"`
	Type       domain.StrategyType   `json:"type"`
	Status     domain.StrategyStatus `json:"status"`
	Symbol     string                `json:"symbol"`
	Parameters string                `json:"parameters"`
	ResultJSON string                `json:"result_json,omitempty"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// GetStrategy 获取策略
func (s *QueryService) GetStrategy(ctx context.Context, strategyID string) (*StrategyDTO, error) {
	strategy, err := s.strategyRepo.FindByStrategyID(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	return toStrategyDTO(strategy), nil
}

// ListStrategies 分页列出用户的策略
func (s *QueryService) ListStrategies(ctx context.Context, userID uint64, offset, limit int) ([]*StrategyDTO, int64, error) {
	strategies, total, err := s.strategyRepo.ListByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*StrategyDTO, 0, len(strategies))
	for _, st := range strategies {
		out = append(out, toStrategyDTO(st))
	}
	return out, total, nil
}

// GetSymbolPrice 查询最新成交价
func (s *QueryService) GetSymbolPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol, err := s.validator.Symbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return s.gateway.GetSymbolPrice(ctx, symbol)
}

// GetKlines 查询 K 线
func (s *QueryService) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	symbol, err := s.validator.Symbol(symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.gateway.GetKlines(ctx, symbol, interval, limit)
}

// GetOpenOrders 查询交易对的在场订单
func (s *QueryService) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OrderSnapshot, error) {
	symbol, err := s.validator.Symbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetOpenOrders(ctx, symbol)
}

// MonitorOrder 跟踪单张订单直至终态或窗口耗尽
func (s *QueryService) MonitorOrder(ctx context.Context, symbol, orderID string, interval, timeout time.Duration) (*domain.OrderSnapshot, error) {
	symbol, err := s.validator.Symbol(symbol)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, domain.NewParameterError("order_id", "cannot be empty")
	}
	if interval <= 0 {
		interval = s.monitorInterval
	}
	if timeout <= 0 {
		timeout = s.monitorTimeout
	}
	return s.monitor.Await(ctx, symbol, orderID, interval, timeout)
}

func toStrategyDTO(strategy *domain.Strategy) *StrategyDTO {
	return &StrategyDTO{
		StrategyID: strategy.StrategyID,
		UserID:     strategy.UserID,
		Type:       strategy.Type,
		Status:     strategy.Status,
		Symbol:     strategy.Symbol,
		Parameters: strategy.Parameters,
		ResultJSON: strategy.ResultJSON,
		StartedAt:  strategy.StartedAt,
		FinishedAt: strategy.FinishedAt,
		CreatedAt:  strategy.CreatedAt,
	}
}
