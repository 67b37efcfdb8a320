package domain

import "testing"

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusTimeout}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []OrderStatus{OrderStatusSubmitted, OrderStatusPartiallyFilled}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
		if !s.Open() {
			t.Errorf("%s should be open", s)
		}
	}
}

func TestSideOpposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite mapping broken")
	}
}

func TestChildOrderApplySnapshotTerminalFrozen(t *testing.T) {
	c := &ChildOrder{OrderID: "o1", Status: OrderStatusFilled, ExecutedQuantity: d("5")}

	c.ApplySnapshot(&OrderSnapshot{Status: OrderStatusCanceled, ExecutedQuantity: d("0")})

	if c.Status != OrderStatusFilled {
		t.Errorf("terminal order mutated to %s", c.Status)
	}
	if !c.ExecutedQuantity.Equal(d("5")) {
		t.Errorf("executed quantity mutated to %s", c.ExecutedQuantity)
	}
}

func TestBaseQuantityFromQuote(t *testing.T) {
	qty, err := BaseQuantityFromQuote(d("5500"), d("55000"))
	if err != nil {
		t.Fatalf("BaseQuantityFromQuote: %v", err)
	}
	if !qty.Equal(d("0.1")) {
		t.Errorf("quantity = %s, want 0.1", qty)
	}

	if _, err := BaseQuantityFromQuote(d("100"), d("0")); !IsParameterError(err) {
		t.Errorf("zero price: expected ParameterError, got %v", err)
	}
	if _, err := BaseQuantityFromQuote(d("0"), d("100")); !IsParameterError(err) {
		t.Errorf("zero quote: expected ParameterError, got %v", err)
	}
}

func TestOrderRequestKinds(t *testing.T) {
	tests := []struct {
		req  OrderRequest
		want OrderType
	}{
		{MarketOrderRequest{}, OrderTypeMarket},
		{LimitOrderRequest{}, OrderTypeLimit},
		{StopLimitOrderRequest{}, OrderTypeStopLimit},
	}
	for _, tt := range tests {
		if tt.req.Kind() != tt.want {
			t.Errorf("Kind() = %s, want %s", tt.req.Kind(), tt.want)
		}
	}
}
