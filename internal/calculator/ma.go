package calculator

import (
	"errors"

	"SmartPick/internal/model"
)

// CalculateSMA computes the simple moving average of the given values over the trailing period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// AverageVolume returns the mean volume of the trailing period bars.
func AverageVolume(bars []model.Candle, period int) (float64, error) {
	return CalculateSMA(extractVolumes(bars), period)
}

func extractCloses(bars []model.Candle) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractVolumes(bars []model.Candle) []float64 {
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	return volumes
}
