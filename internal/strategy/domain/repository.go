// Package domain 仓储接口定义
package domain

import "context"

// StrategyRepository 策略仓储接口
type StrategyRepository interface {
	Save(ctx context.Context, strategy *Strategy) error
	Update(ctx context.Context, strategy *Strategy) error
	FindByStrategyID(ctx context.Context, strategyID string) (*Strategy, error)
	ListByUserID(ctx context.Context, userID uint64, offset, limit int) ([]*Strategy, int64, error)
}
