package model

// RuleKind identifies which detection rule produced a signal.
type RuleKind string

const (
	RuleLowPositionVolume  RuleKind = "position-volume-low"
	RuleHighPositionVolume RuleKind = "position-volume-high"
	RuleBreakoutVolume     RuleKind = "breakout-volume"
	RulePanicVolume        RuleKind = "panic-volume"
	RuleSustainedVolume    RuleKind = "sustained-volume"
)

// SignalType is the severity tag shown to the trader.
type SignalType string

const (
	SignalChipGather SignalType = "chip-gather"
	SignalAttention  SignalType = "attention"
	SignalRisk       SignalType = "risk"
	SignalTrendUp    SignalType = "trend-up"
)

// Signal is the output of the detector for one instrument.
type Signal struct {
	Instrument Instrument `json:"instrument"`
	Rule       RuleKind   `json:"rule"`
	Type       SignalType `json:"signal_type"`
	Label      string     `json:"signal"`
	Desc       string     `json:"desc"`
	Analysis   string     `json:"analysis"`
	Metrics    Metrics    `json:"metrics"`
}

// Enrichment is the qualitative verdict returned by the LLM for one candidate.
type Enrichment struct {
	Code       string  `json:"code,omitempty"`
	Industry   string  `json:"industry"`
	CycleStage string  `json:"cycle_stage"`
	Analysis   string  `json:"analysis"`
	Score      float64 `json:"score"`
	Suggestion string  `json:"suggestion"`
}

// DefaultEnrichment is attached when the LLM gave no usable answer for a candidate.
func DefaultEnrichment() Enrichment {
	return Enrichment{
		Industry:   "未知",
		CycleStage: "-",
		Analysis:   "AI分析暂缺",
		Score:      0,
		Suggestion: "待定",
	}
}

// Candidate is a signal that made the shortlist, with its enrichment.
type Candidate struct {
	Signal
	Enrichment Enrichment `json:"ai_analysis"`
}
