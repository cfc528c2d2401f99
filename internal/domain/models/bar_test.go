package models

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestApplyTradeSeedsFirstValue(t *testing.T) {
	b := &Bar{}
	b.ApplyTrade(450.10, 100)

	if b.Open != 450.10 || b.High != 450.10 || b.Low != 450.10 || b.Close != 450.10 {
		t.Fatalf("unexpected seed %+v", b)
	}
	if b.Volume != 100 {
		t.Fatalf("expected volume 100, got %v", b.Volume)
	}
}

func TestApplyTradeMergesSubsequentPrints(t *testing.T) {
	b := &Bar{}
	b.ApplyTrade(450.10, 100)
	b.ApplyTrade(450.50, 50)
	b.ApplyTrade(449.80, 0)

	if b.Open != 450.10 {
		t.Fatalf("open moved: %v", b.Open)
	}
	if b.High != 450.50 {
		t.Fatalf("expected high 450.50, got %v", b.High)
	}
	if b.Low != 449.80 {
		t.Fatalf("expected low 449.80, got %v", b.Low)
	}
	if b.Close != 449.80 {
		t.Fatalf("close follows arrival order, got %v", b.Close)
	}
	if b.Volume != 150 {
		t.Fatalf("zero size must not change volume, got %v", b.Volume)
	}
}

func TestApplyTradeInvariants(t *testing.T) {
	prices := []float64{450.10, 452.00, 449.00, 451.50, 450.00}
	b := &Bar{}
	for _, p := range prices {
		b.ApplyTrade(p, 1)
		if b.High < math.Max(b.Open, b.Close) {
			t.Fatalf("high %v < max(open,close) after price %v", b.High, p)
		}
		if b.Low > math.Min(b.Open, b.Close) {
			t.Fatalf("low %v > min(open,close) after price %v", b.Low, p)
		}
	}
}

func TestApplySummaryOverwritesOpenAndClose(t *testing.T) {
	b := &Bar{Open: 450.10, High: 450.50, Low: 449.80, Close: 450.00, Volume: 150}
	b.ApplySummary(SummaryFields{Open: f(450.00), Close: f(450.25)})

	if b.Open != 450.00 {
		t.Fatalf("expected open overwritten, got %v", b.Open)
	}
	if b.Close != 450.25 {
		t.Fatalf("expected close overwritten, got %v", b.Close)
	}
}

func TestApplySummaryWidensHighLow(t *testing.T) {
	b := &Bar{Open: 450.10, High: 450.50, Low: 449.80, Close: 450.00}
	b.ApplySummary(SummaryFields{High: f(450.20), Low: f(450.00)})

	// Narrower summary values must not shrink the range.
	if b.High != 450.50 || b.Low != 449.80 {
		t.Fatalf("range shrank: high=%v low=%v", b.High, b.Low)
	}

	b.ApplySummary(SummaryFields{High: f(451.00), Low: f(449.00)})
	if b.High != 451.00 || b.Low != 449.00 {
		t.Fatalf("range did not widen: high=%v low=%v", b.High, b.Low)
	}
}

func TestApplySummaryTreatsZeroHighLowAsUnset(t *testing.T) {
	b := &Bar{}
	b.ApplySummary(SummaryFields{High: f(451.00), Low: f(449.00)})

	if b.High != 451.00 {
		t.Fatalf("expected zero high replaced, got %v", b.High)
	}
	if b.Low != 449.00 {
		t.Fatalf("expected zero low replaced, got %v", b.Low)
	}
}

func TestApplySummaryVolumeIsCumulativeMax(t *testing.T) {
	b := &Bar{Volume: 500}
	b.ApplySummary(SummaryFields{Volume: f(300)})
	if b.Volume != 500 {
		t.Fatalf("volume must not shrink, got %v", b.Volume)
	}
	b.ApplySummary(SummaryFields{Volume: f(800)})
	if b.Volume != 800 {
		t.Fatalf("expected volume 800, got %v", b.Volume)
	}
}

func TestApplySummaryNilFieldsAreUntouched(t *testing.T) {
	b := &Bar{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	b.ApplySummary(SummaryFields{})

	if b.Open != 1 || b.High != 2 || b.Low != 0.5 || b.Close != 1.5 || b.Volume != 10 {
		t.Fatalf("empty summary mutated bar: %+v", b)
	}
}
