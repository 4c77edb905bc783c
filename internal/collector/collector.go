package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SmartPick/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Instruments without an entry get a generated flat series.
type MockFetcher struct {
	Candles map[string][]model.Candle
	Errs    map[string]error

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, inst model.Instrument) ([]model.Candle, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err, ok := m.Errs[inst.Symbol()]; ok {
		return nil, err
	}
	if c, ok := m.Candles[inst.Symbol()]; ok {
		return c, nil
	}
	return GenerateMockCandles(10, 60), nil
}

// Calls returns how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GenerateMockCandles builds a quiet series of count sessions around basePrice.
func GenerateMockCandles(basePrice float64, count int) []model.Candle {
	bars := make([]model.Candle, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i%5-2)*0.001)
		bars[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// MockLister serves a fixed set of listing pages.
type MockLister struct {
	Pages   [][]model.Instrument
	FailAt  int
	mu      sync.Mutex
	fetched []int
}

func (m *MockLister) FetchPage(_ context.Context, page int) ([]model.Instrument, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, page)
	m.mu.Unlock()

	if m.FailAt > 0 && page == m.FailAt {
		return nil, fmt.Errorf("page %d unavailable", page)
	}
	if page-1 < len(m.Pages) {
		return m.Pages[page-1], nil
	}
	return nil, nil
}

// Fetched returns the pages requested so far.
func (m *MockLister) Fetched() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.fetched...)
}
