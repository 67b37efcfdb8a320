// Package domain 执行台账。
// 每次策略运行独占一个台账；只追加，不回溯修改。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry 台账条目：一次成交观察或一次单元失败。
type LedgerEntry struct {
	UnitIndex int             `json:"unit_index"`
	OrderID   string          `json:"order_id,omitempty"`
	Side      Side            `json:"side,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Failed    bool            `json:"failed,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	At        time.Time       `json:"at"`
}

// ExecutionLedger 一次策略运行的执行台账。
// 记录每个单元的成交与失败，汇总已执行数量、总成本与已实现利润。
// 同一订单号的成交只入账一次。
type ExecutionLedger struct {
	StrategyID string

	entries        []LedgerEntry
	seen           map[string]struct{}
	executedQty    decimal.Decimal
	totalCost      decimal.Decimal
	realizedProfit decimal.Decimal
	roundTrips     int
	failures       int
}

// NewExecutionLedger 创建空台账
func NewExecutionLedger(strategyID string) *ExecutionLedger {
	return &ExecutionLedger{
		StrategyID:     strategyID,
		seen:           make(map[string]struct{}),
		executedQty:    decimal.Zero,
		totalCost:      decimal.Zero,
		realizedProfit: decimal.Zero,
	}
}

// Seen 订单是否已入账
func (l *ExecutionLedger) Seen(orderID string) bool {
	_, ok := l.seen[orderID]
	return ok
}

// RecordFill 记录一笔成交。重复的订单号被忽略，返回 false。
func (l *ExecutionLedger) RecordFill(unitIndex int, orderID string, side Side, qty, price decimal.Decimal, at time.Time) bool {
	if orderID != "" {
		if _, ok := l.seen[orderID]; ok {
			return false
		}
		l.seen[orderID] = struct{}{}
	}
	l.entries = append(l.entries, LedgerEntry{
		UnitIndex: unitIndex,
		OrderID:   orderID,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		At:        at,
	})
	l.executedQty = l.executedQty.Add(qty)
	l.totalCost = l.totalCost.Add(qty.Mul(price))
	return true
}

// RecordFailure 记录一个单元失败。失败不会中断运行，只留痕。
func (l *ExecutionLedger) RecordFailure(unitIndex int, reason string, at time.Time) {
	l.entries = append(l.entries, LedgerEntry{
		UnitIndex: unitIndex,
		Failed:    true,
		Reason:    reason,
		At:        at,
	})
	l.failures++
}

// RecordRoundTrip 记录一次买卖闭环的已实现利润。
// profit = (卖出价 - 买入价) × 数量，按层位冻结价差计算。
func (l *ExecutionLedger) RecordRoundTrip(buyPrice, sellPrice, qty decimal.Decimal) {
	l.realizedProfit = l.realizedProfit.Add(sellPrice.Sub(buyPrice).Mul(qty))
	l.roundTrips++
}

// ExecutedQuantity 已执行总数量
func (l *ExecutionLedger) ExecutedQuantity() decimal.Decimal { return l.executedQty }

// TotalCost 已执行总成本
func (l *ExecutionLedger) TotalCost() decimal.Decimal { return l.totalCost }

// RealizedProfit 已实现利润
func (l *ExecutionLedger) RealizedProfit() decimal.Decimal { return l.realizedProfit }

// RoundTrips 完成的买卖闭环次数
func (l *ExecutionLedger) RoundTrips() int { return l.roundTrips }

// Failures 失败单元数
func (l *ExecutionLedger) Failures() int { return l.failures }

// AveragePrice 成交量加权均价。无成交时返回零。
func (l *ExecutionLedger) AveragePrice() decimal.Decimal {
	if l.executedQty.IsZero() {
		return decimal.Zero
	}
	return l.totalCost.Div(l.executedQty)
}

// Entries 返回台账条目副本
func (l *ExecutionLedger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
