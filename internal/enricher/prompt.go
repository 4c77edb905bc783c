package enricher

import (
	"fmt"
	"strings"

	"SmartPick/internal/model"
)

const systemPrompt = "你是一个只输出纯 JSON 数据的金融决策助手。"

// buildPrompt enumerates the batch and asks for one JSON object per candidate.
func buildPrompt(batch []model.Signal) string {
	var b strings.Builder
	b.WriteString("以下 A 股今日出现成交量异动，请结合所属题材热度、产业链地位和资金意图逐只研判。\n\n待分析列表：\n")
	for i, s := range batch {
		fmt.Fprintf(&b, "%d. [%s %s] 形态：%s/%s。描述：%s\n",
			i+1, s.Instrument.Code, s.Instrument.Name, s.Label, s.Type, s.Analysis)
	}
	b.WriteString(`
请严格按以下 JSON 数组格式返回结果（不要 Markdown），每只股票一个对象：
[
  {
    "code": "股票代码",
    "industry": "核心题材",
    "cycle_stage": "爆发期/衰退期/混沌期",
    "analysis": "一句话精炼点评",
    "score": 0-100 的整数,
    "suggestion": "强烈关注/建议观察/规避风险"
  }
]`)
	return b.String()
}
