package model

import "time"

// Instrument is a tradable A-share stock as listed by the universe source.
type Instrument struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"` // "sh", "sz" or "bj"
}

// Symbol returns the exchange-qualified ticker, e.g. "sh600519".
func (i Instrument) Symbol() string {
	return i.Market + i.Code
}

// Candle represents a single daily bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
