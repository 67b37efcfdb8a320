package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGateway 内存场内替身。测试通过 fill/price 等方法驱动场内状态。
type fakeGateway struct {
	mu         sync.Mutex
	nextID     int
	price      decimal.Decimal
	priceErr   error
	fillMarket bool            // 市价单提交即全量成交
	avgFill    decimal.Decimal // 市价成交均价，零值取现价
	placeCount int
	placeErrs  map[int]error // 第 n 次提交返回错误（从 1 起）
	orders     map[string]*domain.OrderSnapshot
	placed     []domain.OrderRequest
	getErrs    []error // GetOrder 依次弹出的错误
	getErrAll  error   // 设置后 GetOrder 永远失败
	canceled   []string
	ocoResp    *domain.OCOListSnapshot
	ocoErr     error
	lastOCO    domain.OCOOrderRequest
}

func newFakeGateway(price string) *fakeGateway {
	return &fakeGateway{
		price:  d(price),
		orders: make(map[string]*domain.OrderSnapshot),
	}
}

func (f *fakeGateway) PlaceOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.placeCount++
	if err, ok := f.placeErrs[f.placeCount]; ok {
		return nil, err
	}

	f.nextID++
	snap := &domain.OrderSnapshot{
		OrderID: strconv.Itoa(f.nextID),
		Type:    req.Kind(),
		Status:  domain.OrderStatusSubmitted,
	}
	switch r := req.(type) {
	case domain.MarketOrderRequest:
		snap.Symbol, snap.Side, snap.OrigQuantity = r.Symbol, r.Side, r.Quantity
		if f.fillMarket {
			avg := f.avgFill
			if avg.IsZero() {
				avg = f.price
			}
			snap.Status = domain.OrderStatusFilled
			snap.ExecutedQuantity = r.Quantity
			snap.AvgPrice = avg
		}
	case domain.LimitOrderRequest:
		snap.Symbol, snap.Side, snap.OrigQuantity, snap.Price = r.Symbol, r.Side, r.Quantity, r.Price
	case domain.StopLimitOrderRequest:
		snap.Symbol, snap.Side, snap.OrigQuantity, snap.Price = r.Symbol, r.Side, r.Quantity, r.Price
	}

	f.orders[snap.OrderID] = snap
	f.placed = append(f.placed, req)
	out := *snap
	return &out, nil
}

func (f *fakeGateway) PlaceOCOOrder(_ context.Context, req domain.OCOOrderRequest) (*domain.OCOListSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ocoErr != nil {
		return nil, f.ocoErr
	}
	f.lastOCO = req
	return f.ocoResp, nil
}

func (f *fakeGateway) GetOrder(_ context.Context, _, orderID string) (*domain.OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErrAll != nil {
		return nil, f.getErrAll
	}
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	snap, ok := f.orders[orderID]
	if !ok {
		return nil, &domain.VenueError{HTTPStatus: 400, Code: -2013, Message: "order does not exist"}
	}
	out := *snap
	return &out, nil
}

func (f *fakeGateway) CancelOrder(_ context.Context, _, orderID string) (*domain.OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap, ok := f.orders[orderID]
	if !ok {
		return nil, &domain.VenueError{HTTPStatus: 400, Code: -2011, Message: "unknown order"}
	}
	snap.Status = domain.OrderStatusCanceled
	f.canceled = append(f.canceled, orderID)
	out := *snap
	return &out, nil
}

func (f *fakeGateway) GetOpenOrders(_ context.Context, _ string) ([]domain.OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.OrderSnapshot
	for _, snap := range f.orders {
		if snap.Status.Open() {
			out = append(out, *snap)
		}
	}
	return out, nil
}

func (f *fakeGateway) CancelAllOpenOrders(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, snap := range f.orders {
		if snap.Status.Open() {
			snap.Status = domain.OrderStatusCanceled
			f.canceled = append(f.canceled, id)
		}
	}
	return nil
}

func (f *fakeGateway) GetSymbolPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	return f.price, nil
}

func (f *fakeGateway) GetKlines(_ context.Context, _, _ string, _ int) ([]domain.Kline, error) {
	return nil, nil
}

// fill 把指定订单置为全量成交
func (f *fakeGateway) fill(orderID string, qty, avg decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap, ok := f.orders[orderID]; ok {
		snap.Status = domain.OrderStatusFilled
		snap.ExecutedQuantity = qty
		snap.AvgPrice = avg
	}
}

func (f *fakeGateway) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

func (f *fakeGateway) placedAt(i int) domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placed[i]
}

func (f *fakeGateway) canceledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.canceled)
}

// waitFor 真实时间轮询等待条件成立，用于同步到执行器 goroutine 的进度
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

// advanceUntil 小步推进模拟时钟直到 done 关闭
func advanceUntil(t *testing.T, mock *clock.Mock, step time.Duration, done <-chan struct{}) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-done:
			return
		default:
			mock.Add(step)
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("executor did not finish in time")
}

var _ domain.VenueGateway = (*fakeGateway)(nil)

func transientErr(i int) error {
	return &domain.VenueError{Err: fmt.Errorf("connection reset %d", i)}
}
