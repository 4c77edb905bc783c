package calculator

import (
	"math"
	"testing"

	"SmartPick/internal/model"
)

func bars(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{Close: c, High: c + 1, Low: c - 1, Volume: float64(100 * (i + 1))}
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %f", got)
	}
	if _, err := CalculateSMA([]float64{1}, 3); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := CalculateSMA([]float64{1}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestAverageVolume(t *testing.T) {
	got, err := AverageVolume(bars(1, 2, 3, 4), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 350 {
		t.Errorf("expected 350, got %f", got)
	}
}

func TestCalculateRange(t *testing.T) {
	high, low, err := CalculateRange(bars(5, 9, 3, 7), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high != 10 || low != 2 {
		t.Errorf("expected (10, 2), got (%f, %f)", high, low)
	}

	high, low, err = CalculateRange(bars(5), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high != 6 || low != 4 {
		t.Errorf("window larger than data: expected (6, 4), got (%f, %f)", high, low)
	}

	if _, _, err := CalculateRange(nil, 3); err == nil {
		t.Error("expected error for empty bars")
	}
}

func TestCalculatePosition(t *testing.T) {
	tests := []struct {
		current, high, low float64
		want               float64
	}{
		{15, 20, 10, 0.5},
		{11, 20, 10, 0.1},
		{10, 10, 10, 0.5},
		{25, 20, 10, 1},
		{5, 20, 10, 0},
	}
	for _, tt := range tests {
		got, err := CalculatePosition(tt.current, tt.high, tt.low)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("position(%v,%v,%v): expected %v, got %v", tt.current, tt.high, tt.low, tt.want, got)
		}
	}
	if _, err := CalculatePosition(1, 1, 2); err == nil {
		t.Error("expected error when high < low")
	}
}

func TestPriorMaxClose(t *testing.T) {
	// today's close (100) must be excluded from the window
	got, err := PriorMaxClose(bars(50, 8, 9, 7, 100), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9 {
		t.Errorf("expected 9, got %f", got)
	}
	if _, err := PriorMaxClose(bars(1, 2), 3); err == nil {
		t.Error("expected error for short input")
	}
}

func TestRatioAndPctChange(t *testing.T) {
	if Ratio(10, 0) != 0 {
		t.Error("ratio with zero denominator should be 0")
	}
	if Ratio(10, 4) != 2.5 {
		t.Errorf("expected 2.5, got %f", Ratio(10, 4))
	}
	if PctChange(0, 5) != 0 {
		t.Error("pct change from zero should be 0")
	}
	if math.Abs(PctChange(10, 11)-10) > 1e-9 {
		t.Errorf("expected 10%%, got %f", PctChange(10, 11))
	}
}
