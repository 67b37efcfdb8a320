package application

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

func newOCO(gw *fakeGateway, pub EventPublisher) *OCOCoordinator {
	return NewOCOCoordinator(gw, domain.NewValidator(nil), clock.NewMock(), testLogger(), pub)
}

func TestOCOPlaceSuccess(t *testing.T) {
	gw := newFakeGateway("50000")
	gw.ocoResp = &domain.OCOListSnapshot{
		OrderListID: 42,
		Symbol:      "BTCUSDT",
		Status:      "EXECUTING",
		Orders: []domain.OrderSnapshot{
			{OrderID: "101", Symbol: "BTCUSDT", Side: domain.SideSell, Price: d("55000"), OrigQuantity: d("0.1"), Status: domain.OrderStatusSubmitted},
			{OrderID: "102", Symbol: "BTCUSDT", Side: domain.SideSell, Price: d("44000"), OrigQuantity: d("0.1"), Status: domain.OrderStatusSubmitted},
		},
	}
	pub := &recordingPublisher{}
	oco := newOCO(gw, pub)

	group, err := oco.Place(context.Background(), OCOParams{
		Symbol:         "btcusdt",
		Side:           domain.SideSell,
		Quantity:       d("0.1"),
		Price:          d("55000"),
		StopPrice:      d("45000"),
		StopLimitPrice: d("44000"),
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if group.OrderListID != 42 {
		t.Errorf("order list id = %d, want 42", group.OrderListID)
	}
	if len(group.Orders) != 2 {
		t.Fatalf("legs = %d, want 2", len(group.Orders))
	}
	if pub.count() != 1 {
		t.Errorf("events = %d, want 1", pub.count())
	}
}

// 计价币金额按止盈限价折算为基础币数量
func TestOCOQuoteQuantityDerived(t *testing.T) {
	gw := newFakeGateway("50000")
	gw.ocoResp = &domain.OCOListSnapshot{OrderListID: 7, Symbol: "BTCUSDT"}
	oco := newOCO(gw, nil)

	_, err := oco.Place(context.Background(), OCOParams{
		Symbol:         "BTCUSDT",
		Side:           domain.SideSell,
		QuoteQuantity:  d("5500"),
		Price:          d("55000"),
		StopPrice:      d("45000"),
		StopLimitPrice: d("44000"),
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !gw.lastOCO.Quantity.Equal(d("0.1")) {
		t.Errorf("derived quantity = %s, want 0.1", gw.lastOCO.Quantity)
	}
}

func TestOCOParameterValidation(t *testing.T) {
	gw := newFakeGateway("50000")
	oco := newOCO(gw, nil)

	tests := []struct {
		name   string
		params OCOParams
	}{
		{
			name:   "unknown symbol",
			params: OCOParams{Symbol: "NOPEUSDT", Side: domain.SideSell, Quantity: d("1"), Price: d("100"), StopPrice: d("90"), StopLimitPrice: d("89")},
		},
		{
			name:   "missing side",
			params: OCOParams{Symbol: "BTCUSDT", Quantity: d("1"), Price: d("100"), StopPrice: d("90"), StopLimitPrice: d("89")},
		},
		{
			name:   "zero quantity",
			params: OCOParams{Symbol: "BTCUSDT", Side: domain.SideSell, Price: d("100"), StopPrice: d("90"), StopLimitPrice: d("89")},
		},
		{
			name:   "negative stop price",
			params: OCOParams{Symbol: "BTCUSDT", Side: domain.SideSell, Quantity: d("1"), Price: d("100"), StopPrice: d("-1"), StopLimitPrice: d("89")},
		},
		{
			name:   "zero stop limit price",
			params: OCOParams{Symbol: "BTCUSDT", Side: domain.SideSell, Quantity: d("1"), Price: d("100"), StopPrice: d("90")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oco.Place(context.Background(), tt.params)
			if !domain.IsParameterError(err) {
				t.Fatalf("expected ParameterError, got %v", err)
			}
		})
	}
	if gw.placedCount() != 0 {
		t.Errorf("orders placed despite validation failures: %d", gw.placedCount())
	}
}

// 止盈与止损的相对顺序不在本地校验，由场内裁决
func TestOCORelativeOrderingLeftToVenue(t *testing.T) {
	gw := newFakeGateway("50000")
	gw.ocoErr = &domain.VenueError{HTTPStatus: 400, Code: -1102, Message: "invalid price ordering"}
	oco := newOCO(gw, nil)

	// 止损触发价高于止盈价：本地放行，场内拒绝
	_, err := oco.Place(context.Background(), OCOParams{
		Symbol:         "BTCUSDT",
		Side:           domain.SideSell,
		Quantity:       d("0.1"),
		Price:          d("45000"),
		StopPrice:      d("55000"),
		StopLimitPrice: d("54000"),
	})
	if !domain.IsVenueError(err) {
		t.Fatalf("expected VenueError, got %v", err)
	}
}
