package strategy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"SmartPick/internal/model"
)

const baseVolume = 1000.0

var testInst = model.Instrument{Code: "600000", Name: "浦发银行", Market: "sh"}

// series builds 40 sessions inside a fixed [10, 20] range. Every session closes at
// prevClose except the last, whose volume is chosen so that lastVolume / avg30 == ratio.
func series(prevClose, lastClose, ratio float64) []model.Candle {
	const n = 40
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   prevClose,
			Close:  prevClose,
			High:   20,
			Low:    10,
			Volume: baseVolume,
		}
	}
	out[n-1].Close = lastClose
	out[n-1].Volume = ratio * float64(Lookback-1) * baseVolume / (float64(Lookback) - ratio)
	return out
}

func TestDetect_ShortSeries(t *testing.T) {
	bars := series(15, 15, 3)[:MinCandles-1]
	if sig := Detect(testInst, bars); sig != nil {
		t.Errorf("expected nil for %d candles, got %+v", len(bars), sig)
	}
	if sig := Detect(testInst, nil); sig != nil {
		t.Error("expected nil for empty series")
	}
}

func TestDetect_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		bars      []model.Candle
		wantRule  model.RuleKind
		wantType  model.SignalType
		wantLabel string
		wantDesc  string
	}{
		{
			name:      "low position accumulation",
			bars:      series(11/1.015, 11, 2.5),
			wantRule:  model.RuleLowPositionVolume,
			wantType:  model.SignalChipGather,
			wantLabel: "低位放量",
			wantDesc:  "底部放量 → 资金吸筹",
		},
		{
			name:      "low position falling",
			bars:      series(11/0.99, 11, 2.5),
			wantRule:  model.RuleLowPositionVolume,
			wantType:  model.SignalAttention,
			wantLabel: "低位放量",
			wantDesc:  "底部巨量 → 关注异动",
		},
		{
			name:      "high position distribution risk",
			bars:      series(19/0.99, 19, 2.1),
			wantRule:  model.RuleHighPositionVolume,
			wantType:  model.SignalRisk,
			wantLabel: "高位放量",
			wantDesc:  "高位放量 → 警惕出货",
		},
		{
			name:     "high position stalling on huge volume",
			bars:     series(19/1.01, 19, 2.8),
			wantRule: model.RuleHighPositionVolume,
			wantType: model.SignalRisk,
			wantDesc: "高位放量 → 警惕出货",
		},
		{
			name:     "high position rising",
			bars:     series(19/1.03, 19, 2.0),
			wantRule: model.RuleHighPositionVolume,
			wantType: model.SignalAttention,
			wantDesc: "高位放量 → 注意分歧",
		},
		{
			name:      "mid range breakout",
			bars:      series(15.5, 16, 2.5),
			wantRule:  model.RuleBreakoutVolume,
			wantType:  model.SignalTrendUp,
			wantLabel: "放量突破",
			wantDesc:  "关键突破 → 趋势强化",
		},
		{
			name:      "mid range panic",
			bars:      series(15/0.93, 15, 3.0),
			wantRule:  model.RulePanicVolume,
			wantType:  model.SignalRisk,
			wantLabel: "恐慌抛售",
			wantDesc:  "中位暴跌 → 恐慌释放",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Detect(testInst, tt.bars)
			if sig == nil {
				t.Fatal("expected a signal, got nil")
			}
			if sig.Rule != tt.wantRule {
				t.Errorf("rule: expected %s, got %s", tt.wantRule, sig.Rule)
			}
			if sig.Type != tt.wantType {
				t.Errorf("type: expected %s, got %s", tt.wantType, sig.Type)
			}
			if tt.wantLabel != "" && sig.Label != tt.wantLabel {
				t.Errorf("label: expected %s, got %s", tt.wantLabel, sig.Label)
			}
			if sig.Desc != tt.wantDesc {
				t.Errorf("desc: expected %s, got %s", tt.wantDesc, sig.Desc)
			}
			if sig.Analysis == "" {
				t.Error("expected non-empty analysis")
			}
			if sig.Instrument != testInst {
				t.Errorf("instrument not carried: %+v", sig.Instrument)
			}
		})
	}
}

func TestDetect_PriorityLowPositionBeatsPanic(t *testing.T) {
	// matches both the low-position surge and the panic thresholds
	sig := Detect(testInst, series(11/0.93, 11, 3.0))
	if sig == nil {
		t.Fatal("expected a signal, got nil")
	}
	if sig.Rule != model.RuleLowPositionVolume {
		t.Errorf("expected low-position rule to win, got %s", sig.Rule)
	}
	if sig.Type != model.SignalAttention {
		t.Errorf("expected attention, got %s", sig.Type)
	}
}

func TestDetect_SustainedVolume(t *testing.T) {
	bars := series(15/1.01, 15, 1)
	for i := len(bars) - SustainedWindow; i < len(bars); i++ {
		bars[i].Volume = 2 * baseVolume
	}
	sig := Detect(testInst, bars)
	if sig == nil {
		t.Fatal("expected a signal, got nil")
	}
	if sig.Rule != model.RuleSustainedVolume {
		t.Fatalf("expected sustained rule, got %s", sig.Rule)
	}
	if sig.Type != model.SignalAttention {
		t.Errorf("expected attention, got %s", sig.Type)
	}
	if sig.Desc != "中位活跃 → 资金关注" {
		t.Errorf("unexpected desc: %s", sig.Desc)
	}
}

func TestDetect_QuietMarket(t *testing.T) {
	if sig := Detect(testInst, series(15, 15.1, 1.0)); sig != nil {
		t.Errorf("expected nil for ordinary volume, got %+v", sig)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	bars := series(11/1.015, 11, 2.5)
	snapshot := make([]model.Candle, len(bars))
	copy(snapshot, bars)

	first := Detect(testInst, bars)
	second := Detect(testInst, bars)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated detection differs: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(bars, snapshot) {
		t.Error("detector mutated its input")
	}
}

func TestComputeMetrics(t *testing.T) {
	m, ok := ComputeMetrics(series(11/1.015, 11, 2.5))
	if !ok {
		t.Fatal("expected metrics")
	}
	if math.Abs(m.Position-0.1) > 1e-9 {
		t.Errorf("position: expected 0.1, got %f", m.Position)
	}
	if math.Abs(m.VolumeRatio-2.5) > 1e-9 {
		t.Errorf("volume ratio: expected 2.5, got %f", m.VolumeRatio)
	}
	if math.Abs(m.PctChg-1.5) > 1e-9 {
		t.Errorf("pct change: expected 1.5, got %f", m.PctChg)
	}
	if m.Price != 11 {
		t.Errorf("price: expected 11, got %f", m.Price)
	}

	if _, ok := ComputeMetrics(series(15, 15, 1)[:10]); ok {
		t.Error("expected no metrics for short series")
	}
}

func TestComputeMetrics_FlatRange(t *testing.T) {
	bars := series(10, 10, 1)
	for i := range bars {
		bars[i].High, bars[i].Low = 10, 10
	}
	m, ok := ComputeMetrics(bars)
	if !ok {
		t.Fatal("expected metrics")
	}
	if m.Position != 0.5 {
		t.Errorf("flat range should yield 0.5, got %f", m.Position)
	}
}

func TestRules_Order(t *testing.T) {
	want := []model.RuleKind{
		model.RuleLowPositionVolume,
		model.RuleHighPositionVolume,
		model.RuleBreakoutVolume,
		model.RulePanicVolume,
		model.RuleSustainedVolume,
	}
	if len(Rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(Rules))
	}
	for i, r := range Rules {
		if r.Kind != want[i] {
			t.Errorf("rule %d: expected %s, got %s", i, want[i], r.Kind)
		}
	}
}

func TestPositionBand(t *testing.T) {
	tests := []struct {
		pos  float64
		want string
	}{
		{0.1, "低位"},
		{0.5, "中位"},
		{0.9, "高位"},
		{0.3, "中位"},
	}
	for _, tt := range tests {
		if got := positionBand(tt.pos, 0.3, 0.7); got != tt.want {
			t.Errorf("positionBand(%v): expected %s, got %s", tt.pos, tt.want, got)
		}
	}
}
