// 生成摘要：实现策略执行引擎的 MySQL 仓储层，基于 GORM。

package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// strategyRepository GORM 策略仓储实现
type strategyRepository struct {
	db *gorm.DB
}

// NewStrategyRepository 创建策略仓储
func NewStrategyRepository(db *gorm.DB) domain.StrategyRepository {
	return &strategyRepository{db: db}
}

// Save 保存策略聚合根
func (r *strategyRepository) Save(ctx context.Context, strategy *domain.Strategy) error {
	return r.db.WithContext(ctx).Create(strategy).Error
}

// Update 更新策略聚合根
func (r *strategyRepository) Update(ctx context.Context, strategy *domain.Strategy) error {
	return r.db.WithContext(ctx).Save(strategy).Error
}

// FindByStrategyID 根据业务 ID 获取策略
func (r *strategyRepository) FindByStrategyID(ctx context.Context, strategyID string) (*domain.Strategy, error) {
	var strategy domain.Strategy
	if err := r.db.WithContext(ctx).Where("strategy_id = ?", strategyID).First(&strategy).Error; err != nil {
		return nil, fmt.Errorf("strategy not found: %w", err)
	}
	return &strategy, nil
}

// ListByUserID 分页获取用户策略，按创建时间倒序
func (r *strategyRepository) ListByUserID(ctx context.Context, userID uint64, offset, limit int) ([]*domain.Strategy, int64, error) {
	var strategies []*domain.Strategy
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Strategy{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&strategies).Error; err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}
