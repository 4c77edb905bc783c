package calculator

import (
	"errors"
	"math"

	"SmartPick/internal/model"
)

// CalculateRange scans the most recent `period` bars and returns the highest high and lowest low.
func CalculateRange(bars []model.Candle, period int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	if period <= 0 {
		return 0, 0, errors.New("period must be positive")
	}
	n := len(bars)
	start := n - period
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// CalculatePosition returns where the current price sits within [low, high] (0.0~1.0).
// A flat range yields 0.5.
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// PriorMaxClose returns the highest close of the `period` bars before the last one.
func PriorMaxClose(bars []model.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, errors.New("not enough data for prior close window")
	}
	closes := extractCloses(bars[len(bars)-period-1 : len(bars)-1])
	highest := math.Inf(-1)
	for _, c := range closes {
		if c > highest {
			highest = c
		}
	}
	return highest, nil
}
