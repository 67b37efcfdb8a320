// Package domain 网格规划器。
// 纯函数：由策略参数计算出不可变的价格/数量阶梯，不产生任何副作用。
// 投资份额在规划时刻冻结，再平衡过程中不重新计算。
package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// GridType 网格间距类型
type GridType string

const (
	GridArithmetic GridType = "arithmetic" // 等差：固定价格步长
	GridGeometric  GridType = "geometric"  // 等比：固定价格比率
	GridMartingale GridType = "martingale" // 马丁格尔：围绕基准价按倍数加仓
)

// 马丁格尔网格每层偏移占基准价的比例
var martingaleStepRatio = decimal.NewFromFloat(0.01)

// GridLevel 网格的一个层位。
// 不变式：BuyPrice < SellPrice；Investment 份额在规划时刻冻结。
type GridLevel struct {
	Level           int             `json:"level"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	BuyQuantity     decimal.Decimal `json:"buy_quantity"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	SellQuantity    decimal.Decimal `json:"sell_quantity"`
	Investment      decimal.Decimal `json:"investment"`
	PotentialProfit decimal.Decimal `json:"potential_profit"`
}

// GridParams 网格规划参数
type GridParams struct {
	Symbol          string          `json:"symbol"`
	Type            GridType        `json:"type"`
	UpperPrice      decimal.Decimal `json:"upper_price"`
	LowerPrice      decimal.Decimal `json:"lower_price"`
	GridNumber      int             `json:"grid_number"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	// 马丁格尔专用
	BasePrice  decimal.Decimal `json:"base_price,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier,omitempty"`
}

// GridPlan 规划结果：有序层位序列，价格沿阶梯单调递增（等差/等比）。
type GridPlan struct {
	Symbol           string            `json:"symbol"`
	Type             GridType          `json:"type"`
	UpperPrice       decimal.Decimal   `json:"upper_price,omitempty"`
	LowerPrice       decimal.Decimal   `json:"lower_price,omitempty"`
	BasePrice        decimal.Decimal   `json:"base_price,omitempty"`
	Multiplier       decimal.Decimal   `json:"multiplier,omitempty"`
	GridNumber       int               `json:"grid_number"`
	TotalInvestment  decimal.Decimal   `json:"total_investment"`
	Prices           []decimal.Decimal `json:"prices,omitempty"`
	InvestmentShares []decimal.Decimal `json:"investment_shares"`
	Levels           []GridLevel       `json:"levels"`
	CreatedAt        time.Time         `json:"created_at"`
}

// PlanGrid 计算网格规划，now 作为规划时刻写入结果。失败时返回 ParameterError。
func PlanGrid(p GridParams, now time.Time) (*GridPlan, error) {
	if p.GridNumber < 2 {
		return nil, NewParameterError("grid_number", "must be at least 2")
	}
	if p.TotalInvestment.LessThanOrEqual(decimal.Zero) {
		return nil, NewParameterError("total_investment", "must be positive")
	}

	switch p.Type {
	case GridArithmetic, GridGeometric:
		return planRangeGrid(p, now)
	case GridMartingale:
		return planMartingaleGrid(p, now)
	}
	return nil, NewParameterError("type", "must be arithmetic, geometric or martingale")
}

// planRangeGrid 在 [lower, upper] 区间内铺设 n 个价格档，n-1 个可交易层位。
func planRangeGrid(p GridParams, now time.Time) (*GridPlan, error) {
	if p.UpperPrice.LessThanOrEqual(p.LowerPrice) {
		return nil, NewParameterError("upper_price", "must be greater than lower price")
	}
	if p.LowerPrice.LessThanOrEqual(decimal.Zero) {
		return nil, NewParameterError("lower_price", "must be positive")
	}

	n := p.GridNumber
	prices := make([]decimal.Decimal, n)
	if p.Type == GridArithmetic {
		step := p.UpperPrice.Sub(p.LowerPrice).Div(decimal.NewFromInt(int64(n - 1)))
		for i := 0; i < n; i++ {
			prices[i] = p.LowerPrice.Add(step.Mul(decimal.NewFromInt(int64(i))))
		}
	} else {
		upper, _ := p.UpperPrice.Float64()
		lower, _ := p.LowerPrice.Float64()
		ratio := decimal.NewFromFloat(math.Pow(upper/lower, 1/float64(n-1)))
		prices[0] = p.LowerPrice
		for i := 1; i < n; i++ {
			prices[i] = prices[i-1].Mul(ratio)
		}
	}

	shares := splitInvestment(p.TotalInvestment, n)

	levels := make([]GridLevel, 0, n-1)
	for i := 0; i < n-1; i++ {
		buyPrice := prices[i]
		sellPrice := prices[i+1]
		qty, err := BaseQuantityFromQuote(shares[i], buyPrice)
		if err != nil {
			return nil, err
		}
		levels = append(levels, GridLevel{
			Level:           i + 1,
			BuyPrice:        buyPrice,
			BuyQuantity:     qty,
			SellPrice:       sellPrice,
			SellQuantity:    qty,
			Investment:      shares[i],
			PotentialProfit: sellPrice.Sub(buyPrice).Mul(qty),
		})
	}

	return &GridPlan{
		Symbol:           p.Symbol,
		Type:             p.Type,
		UpperPrice:       p.UpperPrice,
		LowerPrice:       p.LowerPrice,
		GridNumber:       n,
		TotalInvestment:  p.TotalInvestment,
		Prices:           prices,
		InvestmentShares: shares,
		Levels:           levels,
		CreatedAt:        now,
	}, nil
}

// planMartingaleGrid 围绕基准价按固定百分比步长铺层，仓位按 multiplier^i 加权，
// 权重用有限几何级数归一化。第 i 层偏移 (i+1) 个步长，保证每层 buy < sell。
func planMartingaleGrid(p GridParams, now time.Time) (*GridPlan, error) {
	if p.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, NewParameterError("base_price", "must be positive")
	}
	if p.Multiplier.LessThanOrEqual(decimal.NewFromInt(1)) {
		return nil, NewParameterError("multiplier", "must be greater than 1.0")
	}

	n := p.GridNumber
	step := p.BasePrice.Mul(martingaleStepRatio)
	if p.BasePrice.Sub(step.Mul(decimal.NewFromInt(int64(n)))).LessThanOrEqual(decimal.Zero) {
		return nil, NewParameterError("grid_number", "price steps drive buy price non-positive")
	}

	// 权重 multiplier^i，归一化后乘以总投资
	weights := make([]decimal.Decimal, n)
	sum := decimal.Zero
	w := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		weights[i] = w
		sum = sum.Add(w)
		w = w.Mul(p.Multiplier)
	}

	shares := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = p.TotalInvestment.Mul(weights[i]).Div(sum)
		allocated = allocated.Add(shares[i])
	}
	shares[n-1] = p.TotalInvestment.Sub(allocated) // 余数归入最后一层，份额之和精确等于总投资

	levels := make([]GridLevel, 0, n)
	for i := 0; i < n; i++ {
		offset := step.Mul(decimal.NewFromInt(int64(i + 1)))
		buyPrice := p.BasePrice.Sub(offset)
		sellPrice := p.BasePrice.Add(offset)
		levels = append(levels, GridLevel{
			Level:           i + 1,
			BuyPrice:        buyPrice,
			BuyQuantity:     shares[i].Div(buyPrice),
			SellPrice:       sellPrice,
			SellQuantity:    shares[i].Div(sellPrice),
			Investment:      shares[i],
			PotentialProfit: sellPrice.Sub(buyPrice).Mul(shares[i].Div(buyPrice)),
		})
	}

	return &GridPlan{
		Symbol:           p.Symbol,
		Type:             GridMartingale,
		BasePrice:        p.BasePrice,
		Multiplier:       p.Multiplier,
		GridNumber:       n,
		TotalInvestment:  p.TotalInvestment,
		InvestmentShares: shares,
		Levels:           levels,
		CreatedAt:        now,
	}, nil
}

// splitInvestment 把总投资均分为 n 份，除不尽的余数归入最后一份，
// 保证各份额之和精确等于总投资。
func splitInvestment(total decimal.Decimal, n int) []decimal.Decimal {
	share := total.Div(decimal.NewFromInt(int64(n)))
	shares := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[n-1] = total.Sub(allocated)
	return shares
}
