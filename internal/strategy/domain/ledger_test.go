package domain

import (
	"testing"
	"time"
)

func TestLedgerRecordFill(t *testing.T) {
	l := NewExecutionLedger("ST1")
	now := time.Now()

	if !l.RecordFill(0, "o1", SideBuy, d("2"), d("100"), now) {
		t.Fatal("first fill rejected")
	}
	if !l.RecordFill(1, "o2", SideBuy, d("3"), d("110"), now) {
		t.Fatal("second fill rejected")
	}

	if !l.ExecutedQuantity().Equal(d("5")) {
		t.Errorf("executed = %s, want 5", l.ExecutedQuantity())
	}
	if !l.TotalCost().Equal(d("530")) {
		t.Errorf("cost = %s, want 530", l.TotalCost())
	}
	// 量加权均价 530/5
	if !l.AveragePrice().Equal(d("106")) {
		t.Errorf("avg = %s, want 106", l.AveragePrice())
	}
}

func TestLedgerDuplicateOrderIgnored(t *testing.T) {
	l := NewExecutionLedger("ST1")
	now := time.Now()

	l.RecordFill(0, "o1", SideSell, d("2"), d("100"), now)
	if l.RecordFill(0, "o1", SideSell, d("2"), d("100"), now) {
		t.Fatal("duplicate fill accepted")
	}
	if !l.ExecutedQuantity().Equal(d("2")) {
		t.Errorf("executed = %s, want 2", l.ExecutedQuantity())
	}
	if !l.Seen("o1") {
		t.Error("order not marked seen")
	}
}

func TestLedgerAveragePriceEmpty(t *testing.T) {
	l := NewExecutionLedger("ST1")
	if !l.AveragePrice().IsZero() {
		t.Errorf("avg on empty ledger = %s, want 0", l.AveragePrice())
	}
}

func TestLedgerRoundTrips(t *testing.T) {
	l := NewExecutionLedger("ST1")

	l.RecordRoundTrip(d("95"), d("100"), d("2"))
	l.RecordRoundTrip(d("100"), d("110"), d("1"))

	if l.RoundTrips() != 2 {
		t.Errorf("round trips = %d, want 2", l.RoundTrips())
	}
	// (100-95)*2 + (110-100)*1 = 20
	if !l.RealizedProfit().Equal(d("20")) {
		t.Errorf("profit = %s, want 20", l.RealizedProfit())
	}
}

func TestLedgerFailures(t *testing.T) {
	l := NewExecutionLedger("ST1")
	now := time.Now()

	l.RecordFailure(2, "venue rejected", now)
	l.RecordFill(3, "o1", SideBuy, d("1"), d("100"), now)

	if l.Failures() != 1 {
		t.Errorf("failures = %d, want 1", l.Failures())
	}
	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].Failed || entries[0].Reason != "venue rejected" {
		t.Errorf("failure entry not recorded: %+v", entries[0])
	}
}
