package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPlanGridArithmetic(t *testing.T) {
	plan, err := PlanGrid(GridParams{
		Symbol:          "BTCUSDT",
		Type:            GridArithmetic,
		LowerPrice:      d("100"),
		UpperPrice:      d("200"),
		GridNumber:      5,
		TotalInvestment: d("1000"),
	}, time.Now())
	if err != nil {
		t.Fatalf("PlanGrid: %v", err)
	}

	wantPrices := []string{"100", "125", "150", "175", "200"}
	if len(plan.Prices) != len(wantPrices) {
		t.Fatalf("prices = %d, want %d", len(plan.Prices), len(wantPrices))
	}
	for i, w := range wantPrices {
		if !plan.Prices[i].Equal(d(w)) {
			t.Errorf("price[%d] = %s, want %s", i, plan.Prices[i], w)
		}
	}

	if len(plan.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(plan.Levels))
	}
	for i, level := range plan.Levels {
		if !level.BuyPrice.LessThan(level.SellPrice) {
			t.Errorf("level %d: buy %s >= sell %s", i, level.BuyPrice, level.SellPrice)
		}
		if !level.BuyPrice.Equal(plan.Prices[i]) || !level.SellPrice.Equal(plan.Prices[i+1]) {
			t.Errorf("level %d prices not aligned with ladder", i)
		}
		wantQty := level.Investment.Div(level.BuyPrice)
		if !level.BuyQuantity.Equal(wantQty) {
			t.Errorf("level %d quantity = %s, want %s", i, level.BuyQuantity, wantQty)
		}
	}

	// 步长恒定
	step := plan.Prices[1].Sub(plan.Prices[0])
	for i := 1; i < len(plan.Prices)-1; i++ {
		if !plan.Prices[i+1].Sub(plan.Prices[i]).Equal(step) {
			t.Errorf("step not constant at %d", i)
		}
	}
}

func TestPlanGridArithmeticNarrowBand(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	plan, err := PlanGrid(GridParams{
		Symbol:          "BTCUSDT",
		Type:            GridArithmetic,
		LowerPrice:      d("95"),
		UpperPrice:      d("105"),
		GridNumber:      3,
		TotalInvestment: d("300"),
	}, now)
	if err != nil {
		t.Fatalf("PlanGrid: %v", err)
	}

	wantPrices := []string{"95", "100", "105"}
	if len(plan.Prices) != len(wantPrices) {
		t.Fatalf("prices = %d, want %d", len(plan.Prices), len(wantPrices))
	}
	for i, w := range wantPrices {
		if !plan.Prices[i].Equal(d(w)) {
			t.Errorf("price[%d] = %s, want %s", i, plan.Prices[i], w)
		}
	}

	if len(plan.Levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(plan.Levels))
	}
	for i, share := range plan.InvestmentShares {
		if !share.Equal(d("100")) {
			t.Errorf("share[%d] = %s, want 100", i, share)
		}
	}
	// 第一层 100 USDT 按买入价 95 折算数量
	if !plan.Levels[0].BuyQuantity.Equal(d("100").Div(d("95"))) {
		t.Errorf("level 1 quantity = %s, want 100/95", plan.Levels[0].BuyQuantity)
	}
	if !plan.Levels[1].BuyQuantity.Equal(d("1")) {
		t.Errorf("level 2 quantity = %s, want 1", plan.Levels[1].BuyQuantity)
	}
	if !plan.CreatedAt.Equal(now) {
		t.Errorf("created_at = %s, want %s", plan.CreatedAt, now)
	}
}

func TestPlanGridGeometricRatioConstant(t *testing.T) {
	plan, err := PlanGrid(GridParams{
		Symbol:          "ETHUSDT",
		Type:            GridGeometric,
		LowerPrice:      d("100"),
		UpperPrice:      d("400"),
		GridNumber:      5,
		TotalInvestment: d("900"),
	}, time.Now())
	if err != nil {
		t.Fatalf("PlanGrid: %v", err)
	}

	first, _ := plan.Prices[1].Div(plan.Prices[0]).Float64()
	for i := 1; i < len(plan.Prices)-1; i++ {
		ratio, _ := plan.Prices[i+1].Div(plan.Prices[i]).Float64()
		if math.Abs(ratio-first) > 1e-9 {
			t.Errorf("ratio not constant at %d: %v vs %v", i, ratio, first)
		}
	}

	// (400/100)^(1/4) = sqrt(2)
	if math.Abs(first-math.Sqrt2) > 1e-9 {
		t.Errorf("ratio = %v, want sqrt(2)", first)
	}
}

func TestPlanGridInvestmentSharesSumExactly(t *testing.T) {
	for _, gridType := range []GridType{GridArithmetic, GridGeometric} {
		plan, err := PlanGrid(GridParams{
			Symbol:          "BTCUSDT",
			Type:            gridType,
			LowerPrice:      d("100"),
			UpperPrice:      d("200"),
			GridNumber:      7, // 1000/7 除不尽
			TotalInvestment: d("1000"),
		}, time.Now())
		if err != nil {
			t.Fatalf("%s: %v", gridType, err)
		}
		sum := decimal.Zero
		for _, share := range plan.InvestmentShares {
			sum = sum.Add(share)
		}
		if !sum.Equal(d("1000")) {
			t.Errorf("%s: shares sum = %s, want 1000", gridType, sum)
		}
	}
}

func TestPlanGridMartingale(t *testing.T) {
	plan, err := PlanGrid(GridParams{
		Symbol:          "BTCUSDT",
		Type:            GridMartingale,
		GridNumber:      3,
		TotalInvestment: d("700"),
		BasePrice:       d("100"),
		Multiplier:      d("2"),
	}, time.Now())
	if err != nil {
		t.Fatalf("PlanGrid: %v", err)
	}

	if len(plan.Levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(plan.Levels))
	}

	// 权重 1:2:4，份额 100:200:400
	wantShares := []string{"100", "200", "400"}
	for i, w := range wantShares {
		if !plan.InvestmentShares[i].Equal(d(w)) {
			t.Errorf("share[%d] = %s, want %s", i, plan.InvestmentShares[i], w)
		}
	}

	// 偏移从一个步长起步，买卖价对称且 buy < sell
	wantBuys := []string{"99", "98", "97"}
	wantSells := []string{"101", "102", "103"}
	for i, level := range plan.Levels {
		if !level.BuyPrice.Equal(d(wantBuys[i])) {
			t.Errorf("level %d buy = %s, want %s", i, level.BuyPrice, wantBuys[i])
		}
		if !level.SellPrice.Equal(d(wantSells[i])) {
			t.Errorf("level %d sell = %s, want %s", i, level.SellPrice, wantSells[i])
		}
		if !level.BuyPrice.LessThan(level.SellPrice) {
			t.Errorf("level %d: buy >= sell", i)
		}
	}

	sum := decimal.Zero
	for _, share := range plan.InvestmentShares {
		sum = sum.Add(share)
	}
	if !sum.Equal(d("700")) {
		t.Errorf("shares sum = %s, want 700", sum)
	}
}

func TestPlanGridParameterErrors(t *testing.T) {
	tests := []struct {
		name   string
		params GridParams
		field  string
	}{
		{
			name: "upper not above lower",
			params: GridParams{
				Type: GridArithmetic, LowerPrice: d("200"), UpperPrice: d("100"),
				GridNumber: 5, TotalInvestment: d("1000"),
			},
			field: "upper_price",
		},
		{
			name: "too few grids",
			params: GridParams{
				Type: GridArithmetic, LowerPrice: d("100"), UpperPrice: d("200"),
				GridNumber: 1, TotalInvestment: d("1000"),
			},
			field: "grid_number",
		},
		{
			name: "non-positive investment",
			params: GridParams{
				Type: GridArithmetic, LowerPrice: d("100"), UpperPrice: d("200"),
				GridNumber: 5, TotalInvestment: d("0"),
			},
			field: "total_investment",
		},
		{
			name: "martingale multiplier too small",
			params: GridParams{
				Type: GridMartingale, GridNumber: 3, TotalInvestment: d("700"),
				BasePrice: d("100"), Multiplier: d("1"),
			},
			field: "multiplier",
		},
		{
			name: "martingale missing base price",
			params: GridParams{
				Type: GridMartingale, GridNumber: 3, TotalInvestment: d("700"),
				Multiplier: d("2"),
			},
			field: "base_price",
		},
		{
			name: "unknown type",
			params: GridParams{
				Type: GridType("fibonacci"), LowerPrice: d("100"), UpperPrice: d("200"),
				GridNumber: 5, TotalInvestment: d("1000"),
			},
			field: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanGrid(tt.params, time.Now())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			pe, ok := err.(*ParameterError)
			if !ok {
				t.Fatalf("expected ParameterError, got %T", err)
			}
			if pe.Field != tt.field {
				t.Errorf("field = %q, want %q", pe.Field, tt.field)
			}
		})
	}
}
