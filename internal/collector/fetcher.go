package collector

import (
	"context"

	"SmartPick/internal/model"
)

// Fetcher defines the interface for fetching daily candles of one instrument.
type Fetcher interface {
	FetchCandles(ctx context.Context, inst model.Instrument) ([]model.Candle, error)
	Name() string
}
