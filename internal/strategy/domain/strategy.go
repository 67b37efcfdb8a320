// Package domain 策略聚合根
// 生成摘要：
// 1) 定义策略聚合根及其生命周期状态机
// 2) 定义策略类型枚举
// 3) 聚合根在状态转换时产生领域事件
package domain

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StrategyType 策略类型
type StrategyType int8

const (
	StrategyTypeTWAP StrategyType = 1 // 时间加权平均价格
	StrategyTypeGrid StrategyType = 2 // 网格交易
)

// StrategyStatus 策略状态
type StrategyStatus int8

const (
	StrategyStatusCreated   StrategyStatus = 1
	StrategyStatusRunning   StrategyStatus = 2
	StrategyStatusCompleted StrategyStatus = 3
	StrategyStatusFailed    StrategyStatus = 4
)

// Strategy 策略聚合根。
// 一次执行的参数在创建时刻冻结为 JSON，运行结果在终态时写回。
type Strategy struct {
	gorm.Model
	StrategyID string         `gorm:"column:strategy_id;type:varchar(32);unique_index;not null"`
	UserID     uint64         `gorm:"column:user_id;index;not null"`
	Type       StrategyType   `gorm:"column:type;type:tinyint;not null"`
	Status     StrategyStatus `gorm:"column:status;type:tinyint;not null;default:1"`
	Symbol     string         `gorm:"column:symbol;type:varchar(32);not null"`
	Parameters string         `gorm:"column:parameters;type:json"` // JSON存储参数
	ResultJSON string         `gorm:"column:result_json;type:json"`

	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`

	// 领域事件
	domainEvents []DomainEvent `gorm:"-"`
}

// TableName 表名
func (Strategy) TableName() string {
	return "strategies"
}

// NewStrategyID 生成策略ID
func NewStrategyID(now time.Time) string {
	return fmt.Sprintf("ST%s%04d", now.Format("20060102150405"), now.UnixNano()%10000)
}

// NewStrategy 创建策略，now 作为创建事件时间戳。
func NewStrategy(id string, userID uint64, sType StrategyType, symbol, params string, now time.Time) *Strategy {
	s := &Strategy{
		StrategyID: id,
		UserID:     userID,
		Type:       sType,
		Status:     StrategyStatusCreated,
		Symbol:     symbol,
		Parameters: params,
	}
	s.addEvent(&StrategyCreatedEvent{
		StrategyID: id,
		UserID:     userID,
		Type:       sType,
		Symbol:     symbol,
		Timestamp:  now,
	})
	return s
}

// Start 进入运行态
func (s *Strategy) Start(now time.Time) error {
	if s.Status != StrategyStatusCreated {
		return errors.New("invalid status for start")
	}
	s.Status = StrategyStatusRunning
	s.StartedAt = &now

	s.addEvent(&ExecutionStartedEvent{
		StrategyID: s.StrategyID,
		UserID:     s.UserID,
		Symbol:     s.Symbol,
		Timestamp:  now,
	})
	return nil
}

// Complete 运行结束，写回结果
func (s *Strategy) Complete(now time.Time, resultJSON string) error {
	if s.Status != StrategyStatusRunning {
		return errors.New("invalid status for complete")
	}
	s.Status = StrategyStatusCompleted
	s.FinishedAt = &now
	s.ResultJSON = resultJSON

	s.addEvent(&ExecutionCompletedEvent{
		StrategyID: s.StrategyID,
		UserID:     s.UserID,
		Symbol:     s.Symbol,
		Succeeded:  true,
		Timestamp:  now,
	})
	return nil
}

// Fail 运行失败。致命失败可以发生在运行前（参数拒绝）或运行中。
func (s *Strategy) Fail(now time.Time, reason string) error {
	if s.Status == StrategyStatusCompleted || s.Status == StrategyStatusFailed {
		return errors.New("invalid status for fail")
	}
	s.Status = StrategyStatusFailed
	s.FinishedAt = &now
	s.ResultJSON = fmt.Sprintf(`{"error":%q}`, reason)

	s.addEvent(&ExecutionCompletedEvent{
		StrategyID: s.StrategyID,
		UserID:     s.UserID,
		Symbol:     s.Symbol,
		Succeeded:  false,
		Reason:     reason,
		Timestamp:  now,
	})
	return nil
}

func (s *Strategy) addEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

func (s *Strategy) GetDomainEvents() []DomainEvent {
	return s.domainEvents
}

func (s *Strategy) ClearDomainEvents() {
	s.domainEvents = nil
}
