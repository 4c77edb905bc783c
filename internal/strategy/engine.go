package strategy

import (
	"SmartPick/internal/calculator"
	"SmartPick/internal/model"
)

const (
	// MinCandles is the shortest series the detector looks at.
	MinCandles = 30
	// Lookback is the window for range position and volume baselines.
	Lookback = 30
	// BreakoutWindow is the number of sessions before today whose closes must be exceeded.
	BreakoutWindow = 10
	// SustainedWindow is the short volume window compared against the lookback average.
	SustainedWindow = 5
)

// Features are the derived quantities the rule table matches against.
type Features struct {
	model.Metrics
	LastClose     float64
	PriorMaxClose float64
	AvgVolume5    float64
	AvgVolume30   float64
}

// Rule is one entry of the ordered detection table.
type Rule struct {
	Kind     model.RuleKind
	Label    string
	Match    func(f Features) bool
	Classify func(f Features) (model.SignalType, string, string)
}

// ComputeFeatures derives everything the rules need from a candle series.
// Returns false when the series is too short.
func ComputeFeatures(candles []model.Candle) (Features, bool) {
	n := len(candles)
	if n < MinCandles {
		return Features{}, false
	}
	last, prev := candles[n-1], candles[n-2]

	high, low, err := calculator.CalculateRange(candles, Lookback)
	if err != nil {
		return Features{}, false
	}
	pos, err := calculator.CalculatePosition(last.Close, high, low)
	if err != nil {
		return Features{}, false
	}
	avg30, err := calculator.AverageVolume(candles, Lookback)
	if err != nil {
		return Features{}, false
	}
	avg5, err := calculator.AverageVolume(candles, SustainedWindow)
	if err != nil {
		return Features{}, false
	}
	priorMax, err := calculator.PriorMaxClose(candles, BreakoutWindow)
	if err != nil {
		return Features{}, false
	}

	return Features{
		Metrics: model.Metrics{
			Price:                last.Close,
			Position:             pos,
			VolumeRatio:          calculator.Ratio(last.Volume, avg30),
			VolumeRatioYesterday: calculator.Ratio(last.Volume, prev.Volume),
			Volume5dRatio:        calculator.Ratio(avg5, avg30),
			PctChg:               calculator.PctChange(prev.Close, last.Close),
		},
		LastClose:     last.Close,
		PriorMaxClose: priorMax,
		AvgVolume5:    avg5,
		AvgVolume30:   avg30,
	}, true
}

// ComputeMetrics returns the metrics snapshot for a candle series.
func ComputeMetrics(candles []model.Candle) (model.Metrics, bool) {
	f, ok := ComputeFeatures(candles)
	return f.Metrics, ok
}

// Detect evaluates the rule table in order and returns the first match, or nil.
func Detect(inst model.Instrument, candles []model.Candle) *model.Signal {
	f, ok := ComputeFeatures(candles)
	if !ok {
		return nil
	}
	for _, r := range Rules {
		if !r.Match(f) {
			continue
		}
		typ, desc, analysis := r.Classify(f)
		return &model.Signal{
			Instrument: inst,
			Rule:       r.Kind,
			Type:       typ,
			Label:      r.Label,
			Desc:       desc,
			Analysis:   analysis,
			Metrics:    f.Metrics,
		}
	}
	return nil
}
