// Package domain 策略执行引擎领域事件
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// StrategyCreatedEvent 策略创建事件
type StrategyCreatedEvent struct {
	StrategyID string       `json:"strategy_id"`
	UserID     uint64       `json:"user_id"`
	Type       StrategyType `json:"type"`
	Symbol     string       `json:"symbol"`
	Timestamp  time.Time    `json:"timestamp"`
}

func (e *StrategyCreatedEvent) EventName() string     { return "strategyengine.strategy_created" }
func (e *StrategyCreatedEvent) OccurredAt() time.Time { return e.Timestamp }

// ExecutionStartedEvent 策略开始执行事件
type ExecutionStartedEvent struct {
	StrategyID string    `json:"strategy_id"`
	UserID     uint64    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *ExecutionStartedEvent) EventName() string     { return "strategyengine.execution_started" }
func (e *ExecutionStartedEvent) OccurredAt() time.Time { return e.Timestamp }

// ExecutionCompletedEvent 策略执行结束事件（成功或失败）
type ExecutionCompletedEvent struct {
	StrategyID string    `json:"strategy_id"`
	UserID     uint64    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Succeeded  bool      `json:"succeeded"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *ExecutionCompletedEvent) EventName() string     { return "strategyengine.execution_completed" }
func (e *ExecutionCompletedEvent) OccurredAt() time.Time { return e.Timestamp }

// RoundTripCompletedEvent 网格买卖闭环完成事件
type RoundTripCompletedEvent struct {
	StrategyID string          `json:"strategy_id"`
	Symbol     string          `json:"symbol"`
	Level      int             `json:"level"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Profit     decimal.Decimal `json:"profit"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *RoundTripCompletedEvent) EventName() string     { return "strategyengine.round_trip_completed" }
func (e *RoundTripCompletedEvent) OccurredAt() time.Time { return e.Timestamp }

// OCOPlacedEvent OCO 订单组提交事件
type OCOPlacedEvent struct {
	OrderListID int64     `json:"order_list_id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *OCOPlacedEvent) EventName() string     { return "strategyengine.oco_placed" }
func (e *OCOPlacedEvent) OccurredAt() time.Time { return e.Timestamp }
