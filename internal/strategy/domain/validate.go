// Package domain 参数校验器。
// 校验器在构造时注入白名单与上限，校验失败返回 ParameterError，不使用 panic 传播。
package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSymbols 默认支持的交易对
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "SOLUSDT",
	"DOTUSDT", "LINKUSDT", "MATICUSDT", "AVAXUSDT", "UNIUSDT",
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// 数量与价格的合理上限
var maxMagnitude = decimal.NewFromInt(1_000_000)

// Validator 订单参数校验器
type Validator struct {
	symbols map[string]struct{}
}

// NewValidator 创建校验器；symbols 为空时使用默认白名单
func NewValidator(symbols []string) *Validator {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[strings.ToUpper(s)] = struct{}{}
	}
	return &Validator{symbols: set}
}

// Symbol 校验交易对，返回规范化（大写）后的符号
func (v *Validator) Symbol(symbol string) (string, error) {
	if symbol == "" {
		return "", NewParameterError("symbol", "cannot be empty")
	}
	symbol = strings.ToUpper(symbol)
	if !symbolPattern.MatchString(symbol) {
		return "", NewParameterError("symbol", "invalid format")
	}
	if _, ok := v.symbols[symbol]; !ok {
		return "", NewParameterError("symbol", "not supported: "+symbol)
	}
	return symbol, nil
}

// Side 校验交易方向
func (v *Validator) Side(side string) (Side, error) {
	switch Side(strings.ToUpper(side)) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", NewParameterError("side", "must be BUY or SELL")
}

// Quantity 校验数量：正数且不超过上限
func (v *Validator) Quantity(q decimal.Decimal) error {
	if q.LessThanOrEqual(decimal.Zero) {
		return NewParameterError("quantity", "must be positive")
	}
	if q.GreaterThan(maxMagnitude) {
		return NewParameterError("quantity", "too large (max: 1,000,000)")
	}
	return nil
}

// Price 校验价格：正数且不超过上限
func (v *Validator) Price(p decimal.Decimal) error {
	if p.LessThanOrEqual(decimal.Zero) {
		return NewParameterError("price", "must be positive")
	}
	if p.GreaterThan(maxMagnitude) {
		return NewParameterError("price", "too large (max: 1,000,000)")
	}
	return nil
}

// StopPrice 校验止损触发价
func (v *Validator) StopPrice(p decimal.Decimal) error {
	if err := v.Price(p); err != nil {
		return NewParameterError("stop_price", err.(*ParameterError).Reason)
	}
	return nil
}

// TimeInForce 校验订单有效方式
func (v *Validator) TimeInForce(tif string) (TimeInForce, error) {
	switch TimeInForce(strings.ToUpper(tif)) {
	case TimeInForceGTC:
		return TimeInForceGTC, nil
	case TimeInForceIOC:
		return TimeInForceIOC, nil
	case TimeInForceFOK:
		return TimeInForceFOK, nil
	}
	return "", NewParameterError("time_in_force", "must be GTC, IOC or FOK")
}
