package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SmartPick/internal/model"
	"SmartPick/internal/recorder"
	"SmartPick/internal/scanner"
)

// TopN is how many candidates a report lists.
const TopN = 3

var typeLabels = map[model.SignalType]string{
	model.SignalChipGather: "🟢 吸筹",
	model.SignalAttention:  "🟡 关注",
	model.SignalRisk:       "🔴 风险",
	model.SignalTrendUp:    "🚀 突破",
}

// FormatScanReport formats a finished cycle into a Telegram message.
func FormatScanReport(r *scanner.Report) string {
	var data []model.Candidate
	if r.Result != nil {
		data = r.Result.Data
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>SmartPick 扫描报告</b> | %s\n\n", r.Started.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("扫描标的: %d (失败 %d)\n", r.Instruments, r.FetchFailures))
	b.WriteString(fmt.Sprintf("异动信号: %d | 入选: %d\n", r.Signals, len(data)))
	b.WriteString(fmt.Sprintf("耗时: %s\n", r.Duration.Round(time.Second)))

	switch {
	case r.Instruments == 0:
		b.WriteString("\n❌ 无法获取股票列表，本轮跳过\n")
		return b.String()
	case r.Quiet():
		b.WriteString("\n💤 市场沉寂，本轮无明显异动\n")
		return b.String()
	}

	if r.Fallbacks > 0 {
		b.WriteString(fmt.Sprintf("⚠️ AI分析缺失: %d 只\n", r.Fallbacks))
	}
	b.WriteString("\n")
	writeTop(&b, data)
	return b.String()
}

// FormatResult formats a stored result for the /latest command.
func FormatResult(res *model.ScanResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📁 <b>最新结果</b> | %s\n", res.Timestamp.Local().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("入选: %d 只\n\n", res.Count))
	writeTop(&b, res.Data)
	return b.String()
}

func writeTop(b *strings.Builder, data []model.Candidate) {
	b.WriteString("🏆 <b>AI 严选 Top 3:</b>\n")
	for i, c := range data {
		if i == TopN {
			break
		}
		b.WriteString(fmt.Sprintf("%d. %s(%s) [%.0f分] %s\n", i+1,
			html.EscapeString(c.Instrument.Name), c.Instrument.Code, c.Enrichment.Score, html.EscapeString(c.Enrichment.CycleStage)))
		b.WriteString(fmt.Sprintf("   %s %s | 量比 %.1f | 位置 %.0f%%\n",
			typeLabels[c.Type], html.EscapeString(c.Desc), c.Metrics.VolumeRatio, c.Metrics.Position*100))
		b.WriteString(fmt.Sprintf("   └─ 逻辑: %s\n", html.EscapeString(c.Enrichment.Analysis)))
	}
}

// FormatHistory formats recent cycles for the /history command.
func FormatHistory(records []recorder.CycleRecord) string {
	if len(records) == 0 {
		return "暂无扫描记录"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>最近扫描</b>\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("%s  %-5s 标的 %d 信号 %d 入选 %d (%s)\n",
			r.Started.Local().Format("01-02 15:04"), r.Status, r.Instruments, r.Signals, r.Candidates,
			r.Duration.Round(time.Second)))
	}
	return b.String()
}

// HelpText lists the supported commands.
func HelpText() string {
	return "📖 <b>可用命令</b>\n" +
		"/latest - 查看最新结果\n" +
		"/scan - 立即执行一轮扫描\n" +
		"/refresh - 重新拉取股票列表\n" +
		"/history - 最近扫描记录\n" +
		"/help - 帮助"
}
