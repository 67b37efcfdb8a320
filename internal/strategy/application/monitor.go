// Package application 订单生命周期监视器
// 生成摘要：
// 1) 周期性轮询场内订单快照直至终态或窗口耗尽
// 2) 瞬时场内错误在窗口内重试，不向上传播
// 3) 窗口耗尽时返回最后一次快照并标记超时
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// OrderMonitor 订单生命周期监视器。
// 第一次检查在任何等待之前执行，已终态的订单立即返回。
type OrderMonitor struct {
	gateway domain.VenueGateway
	clock   clock.Clock
	logger  *slog.Logger
}

// NewOrderMonitor 创建监视器
func NewOrderMonitor(gateway domain.VenueGateway, clk clock.Clock, logger *slog.Logger) *OrderMonitor {
	return &OrderMonitor{gateway: gateway, clock: clk, logger: logger}
}

// Await 轮询订单直到进入终态或窗口耗尽。
// 窗口耗尽时返回最后观察到的快照，状态标记为 TIMEOUT；订单不会被自动撤销。
// 若窗口内没有任何一次成功观察，返回最后一次场内错误。
func (m *OrderMonitor) Await(ctx context.Context, symbol, orderID string, interval, timeout time.Duration) (*domain.OrderSnapshot, error) {
	deadline := m.clock.Now().Add(timeout)

	var last *domain.OrderSnapshot
	var lastErr error
	for {
		snap, err := m.gateway.GetOrder(ctx, symbol, orderID)
		if err != nil {
			if !domain.IsVenueError(err) {
				return nil, err
			}
			lastErr = err
			m.logger.Warn("order poll failed, will retry",
				"symbol", symbol, "order_id", orderID, "error", err)
		} else {
			last = snap
			if snap.Status.Terminal() {
				return snap, nil
			}
		}

		if !m.clock.Now().Before(deadline) {
			if last == nil {
				return nil, lastErr
			}
			out := *last
			out.Status = domain.OrderStatusTimeout
			m.logger.Warn("order monitoring window exhausted",
				"symbol", symbol, "order_id", orderID,
				"executed_quantity", out.ExecutedQuantity.String())
			return &out, nil
		}

		timer := m.clock.Timer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
