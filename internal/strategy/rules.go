package strategy

import (
	"fmt"
	"math"

	"SmartPick/internal/model"
)

// Rules is evaluated top to bottom; the first matching rule wins.
var Rules = []Rule{
	{
		Kind:  model.RuleLowPositionVolume,
		Label: "低位放量",
		Match: func(f Features) bool {
			return f.Position < 0.3 && f.VolumeRatio > 2.0
		},
		Classify: classifyLowPosition,
	},
	{
		Kind:  model.RuleHighPositionVolume,
		Label: "高位放量",
		Match: func(f Features) bool {
			return f.Position > 0.7 && f.VolumeRatio > 1.8
		},
		Classify: classifyHighPosition,
	},
	{
		Kind:  model.RuleBreakoutVolume,
		Label: "放量突破",
		Match: func(f Features) bool {
			return f.Position >= 0.3 && f.Position <= 0.7 &&
				f.LastClose > f.PriorMaxClose && f.VolumeRatio > 2.2
		},
		Classify: classifyBreakout,
	},
	{
		Kind:  model.RulePanicVolume,
		Label: "恐慌抛售",
		Match: func(f Features) bool {
			return f.PctChg < -5 && f.VolumeRatio > 2.5
		},
		Classify: classifyPanic,
	},
	{
		Kind:  model.RuleSustainedVolume,
		Label: "持续放量",
		Match: func(f Features) bool {
			return f.AvgVolume5 > f.AvgVolume30*1.5 && f.VolumeRatio > 1.5 && math.Abs(f.PctChg) < 4
		},
		Classify: classifySustained,
	},
}

func classifyLowPosition(f Features) (model.SignalType, string, string) {
	head := fmt.Sprintf("股价处于30日相对低位(%.1f%%)，今日成交量放大至30日均量的%.1f倍。", f.Position*100, f.VolumeRatio)
	if f.PctChg > 0 {
		return model.SignalChipGather, "底部放量 → 资金吸筹", head + "伴随价格上涨，疑似主力资金底部吸筹或启动信号。"
	}
	return model.SignalAttention, "底部巨量 → 关注异动", head + "量能异常放大，需关注后续价格走势确认方向。"
}

func classifyHighPosition(f Features) (model.SignalType, string, string) {
	head := fmt.Sprintf("股价处于30日相对高位(%.1f%%)，今日成交量放大至30日均量的%.1f倍。", f.Position*100, f.VolumeRatio)
	// falling, or stalling on huge volume
	if f.PctChg < 0 || (f.PctChg < 2 && f.VolumeRatio > 2.5) {
		return model.SignalRisk, "高位放量 → 警惕出货", head + "伴随价格下跌或滞涨，疑似主力出货或获利了结，风险较大。"
	}
	return model.SignalAttention, "高位放量 → 注意分歧", head + "高位量能放大，显示多空分歧加大，需谨慎对待。"
}

func classifyBreakout(f Features) (model.SignalType, string, string) {
	return model.SignalTrendUp, "关键突破 → 趋势强化",
		fmt.Sprintf("股价放量突破近期高点，成交量放大至30日均量的%.1f倍，显示突破有效性较高，可能开启新一轮上涨趋势。", f.VolumeRatio)
}

func classifyPanic(f Features) (model.SignalType, string, string) {
	band := positionBand(f.Position, 0.3, 0.7)
	tail := "在高位需警惕趋势逆转。"
	if f.Position < 0.3 {
		tail = "若在低位可能是最后一跌。"
	}
	analysis := fmt.Sprintf("股价%s暴跌%.1f%%，成交量异常放大至30日均量的%.1f倍，显示恐慌盘集中涌出。%s",
		band, math.Abs(f.PctChg), f.VolumeRatio, tail)
	return model.SignalRisk, band + "暴跌 → 恐慌释放", analysis
}

func classifySustained(f Features) (model.SignalType, string, string) {
	band := positionBand(f.Position, 0.4, 0.6)
	var outlook string
	switch band {
	case "低位":
		outlook = "可能为建仓期"
	case "高位":
		outlook = "需观察资金意图"
	default:
		outlook = "趋势可能强化"
	}
	analysis := fmt.Sprintf("股价在%s区域持续活跃，近期5日平均成交量是30日均量的%.1f倍，显示资金关注度提升，%s。",
		band, f.Volume5dRatio, outlook)
	return model.SignalAttention, band + "活跃 → 资金关注", analysis
}

func positionBand(pos, low, high float64) string {
	switch {
	case pos < low:
		return "低位"
	case pos > high:
		return "高位"
	default:
		return "中位"
	}
}
