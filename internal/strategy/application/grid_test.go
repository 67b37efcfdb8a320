package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// recordingPublisher 收集发布的领域事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func testPlan(t *testing.T) *domain.GridPlan {
	t.Helper()
	// 价格档 90/100/110：层1 买90卖100，层2 买100卖110
	plan, err := domain.PlanGrid(domain.GridParams{
		Symbol:          "BTCUSDT",
		Type:            domain.GridArithmetic,
		LowerPrice:      d("90"),
		UpperPrice:      d("110"),
		GridNumber:      3,
		TotalInvestment: d("180"),
	}, time.Now())
	if err != nil {
		t.Fatalf("PlanGrid: %v", err)
	}
	return plan
}

func TestGridInitialPlacement(t *testing.T) {
	gw := newFakeGateway("100")
	mock := clock.NewMock()
	exec := NewGridExecutor(gw, mock, testLogger(), nil)

	done := make(chan struct{})
	var result *GridResult
	var err error
	go func() {
		result, err = exec.Execute(context.Background(), "ST1", GridRunParams{
			Plan:         testPlan(t),
			Window:       time.Minute,
			PollInterval: 30 * time.Second,
		})
		close(done)
	}()

	waitFor(t, func() bool { return gw.placedCount() == 2 }, "initial orders placed")
	advanceUntil(t, mock, 10*time.Second, done)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.InitialOrders != 2 {
		t.Fatalf("initial orders = %d, want 2", result.InitialOrders)
	}

	// 现价 100：层1 只挂买单 90，层2 只挂卖单 110
	buy := gw.placedAt(0).(domain.LimitOrderRequest)
	sell := gw.placedAt(1).(domain.LimitOrderRequest)
	if buy.Side != domain.SideBuy || !buy.Price.Equal(d("90")) {
		t.Errorf("first order = %s @ %s, want BUY @ 90", buy.Side, buy.Price)
	}
	if sell.Side != domain.SideSell || !sell.Price.Equal(d("110")) {
		t.Errorf("second order = %s @ %s, want SELL @ 110", sell.Side, sell.Price)
	}
	// 窗口耗尽后在场订单原样保留
	if gw.canceledCount() != 0 {
		t.Errorf("canceled = %d, want 0", gw.canceledCount())
	}
	if result.ActiveOrders != 2 {
		t.Errorf("active orders = %d, want 2", result.ActiveOrders)
	}
}

func TestGridActiveOrderCap(t *testing.T) {
	gw := newFakeGateway("100")
	mock := clock.NewMock()
	exec := NewGridExecutor(gw, mock, testLogger(), nil)

	done := make(chan struct{})
	var result *GridResult
	var err error
	go func() {
		result, err = exec.Execute(context.Background(), "ST1", GridRunParams{
			Plan:            testPlan(t),
			MaxActiveOrders: 1,
			Window:          time.Minute,
			PollInterval:    30 * time.Second,
		})
		close(done)
	}()

	advanceUntil(t, mock, 10*time.Second, done)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.InitialOrders != 1 {
		t.Errorf("initial orders = %d, want 1", result.InitialOrders)
	}
	if gw.placedCount() != 1 {
		t.Errorf("placed = %d, want 1", gw.placedCount())
	}
}

func TestGridRoundTrip(t *testing.T) {
	gw := newFakeGateway("100")
	mock := clock.NewMock()
	pub := &recordingPublisher{}
	exec := NewGridExecutor(gw, mock, testLogger(), pub)

	done := make(chan struct{})
	var result *GridResult
	var err error
	go func() {
		result, err = exec.Execute(context.Background(), "ST1", GridRunParams{
			Plan:         testPlan(t),
			Window:       10 * time.Minute,
			PollInterval: 30 * time.Second,
		})
		close(done)
	}()

	// 初始：买90(o1)、卖110(o2)
	waitFor(t, func() bool { return gw.placedCount() == 2 }, "initial orders placed")

	// 层1 买单成交，再平衡应在层1 卖价 100 挂出配对卖单
	gw.fill("1", d("0.5"), d("90"))
	waitFor(t, func() bool {
		if gw.placedCount() < 3 {
			mock.Add(5 * time.Second)
			return false
		}
		return true
	}, "paired sell placed after buy fill")

	paired := gw.placedAt(2).(domain.LimitOrderRequest)
	if paired.Side != domain.SideSell || !paired.Price.Equal(d("100")) {
		t.Fatalf("paired order = %s @ %s, want SELL @ 100", paired.Side, paired.Price)
	}
	if !paired.Quantity.Equal(d("0.5")) {
		t.Fatalf("paired quantity = %s, want 0.5", paired.Quantity)
	}

	// 配对卖单成交：闭环完成，利润 (100-90)*0.5，随后挂出补位买单
	gw.fill("3", d("0.5"), d("100"))
	waitFor(t, func() bool {
		if gw.placedCount() < 4 {
			mock.Add(5 * time.Second)
			return false
		}
		return true
	}, "replacement buy placed after sell fill")

	replacement := gw.placedAt(3).(domain.LimitOrderRequest)
	if replacement.Side != domain.SideBuy || !replacement.Price.Equal(d("90")) {
		t.Fatalf("replacement order = %s @ %s, want BUY @ 90", replacement.Side, replacement.Price)
	}

	advanceUntil(t, mock, time.Minute, done)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.RoundTrips != 1 {
		t.Errorf("round trips = %d, want 1", result.RoundTrips)
	}
	if !result.RealizedProfit.Equal(d("5")) {
		t.Errorf("realized profit = %s, want 5", result.RealizedProfit)
	}
	// 买 0.5 + 卖 0.5
	if !result.ExecutedQuantity.Equal(d("1")) {
		t.Errorf("executed = %s, want 1", result.ExecutedQuantity)
	}
	if pub.count() != 1 {
		t.Errorf("round trip events = %d, want 1", pub.count())
	}
}

func TestGridPriceLookupFailureFatal(t *testing.T) {
	gw := newFakeGateway("100")
	gw.priceErr = transientErr(0)
	exec := NewGridExecutor(gw, clock.NewMock(), testLogger(), nil)

	_, err := exec.Execute(context.Background(), "ST1", GridRunParams{Plan: testPlan(t)})
	if !domain.IsVenueError(err) {
		t.Fatalf("expected VenueError, got %v", err)
	}
}

func TestGridEmptyPlanRejected(t *testing.T) {
	exec := NewGridExecutor(newFakeGateway("100"), clock.NewMock(), testLogger(), nil)

	_, err := exec.Execute(context.Background(), "ST1", GridRunParams{})
	if !domain.IsParameterError(err) {
		t.Fatalf("expected ParameterError, got %v", err)
	}
}
