package enricher

import (
	"testing"

	"SmartPick/internal/model"
)

func TestParseReplies(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"plain array", `[{"code":"600000","score":80}]`, 1, false},
		{"fenced", "```json\n[{\"code\":\"600000\"},{\"code\":\"000001\"}]\n```", 2, false},
		{"bare fence", "```\n[{\"code\":\"600000\"}]\n```", 1, false},
		{"single object", `{"code":"600000","score":"75"}`, 1, false},
		{"trailing comma repaired", `[{"code":"600000","score":80,},]`, 1, false},
		{"single quotes repaired", `[{'code':'600000','score':80}]`, 1, false},
		{"empty", "   ", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReplies(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d replies, got %d", tt.want, len(got))
			}
		})
	}
}

func TestFlexScore(t *testing.T) {
	tests := []struct {
		content string
		want    float64
	}{
		{`[{"code":"1","score":85}]`, 85},
		{`[{"code":"1","score":"72.5"}]`, 72.5},
		{`[{"code":"1","score":"90分"}]`, 90},
		{`[{"code":"1","score":"high"}]`, 0},
		{`[{"code":"1","score":null}]`, 0},
		{`[{"code":"1"}]`, 0},
		{`[{"code":"1","score":"NaN"}]`, 0},
		{`[{"code":"1","score":"Inf"}]`, 0},
		{`[{"code":"1","score":"-Infinity"}]`, 0},
		{`[{"code":"1","score":{"value":80}}]`, 0},
	}
	for _, tt := range tests {
		got, err := parseReplies(tt.content)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.content, err)
		}
		if float64(got[0].Score) != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.content, tt.want, got[0].Score)
		}
	}
}

func TestFlexString_NumericCode(t *testing.T) {
	got, err := parseReplies(`[{"code":600000}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got[0].Code) != "600000" {
		t.Errorf("expected 600000, got %q", got[0].Code)
	}
}

func TestFlexString_NonScalarFieldsDefaultOnly(t *testing.T) {
	got, err := parseReplies(`[
		{"code":"600000","industry":"银行","analysis":{"text":"估值修复"},"cycle_stage":["启动期"],"score":66,"suggestion":true},
		{"code":"000001","industry":"保险","score":50}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(got))
	}
	e := toEnrichment(got[0], "600000")
	def := model.DefaultEnrichment()
	if e.Industry != "银行" || e.Score != 66 {
		t.Errorf("scalar fields should survive, got %+v", e)
	}
	if e.Analysis != def.Analysis || e.CycleStage != def.CycleStage || e.Suggestion != def.Suggestion {
		t.Errorf("non-scalar fields should take defaults, got %+v", e)
	}
	if string(got[1].Industry) != "保险" {
		t.Errorf("sibling reply should be intact, got %+v", got[1])
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"600000":     "600000",
		" SH600000 ": "600000",
		"sz000001":   "000001",
		"bj830799":   "830799",
		"600000.SH":  "600000",
	}
	for in, want := range tests {
		if got := normalizeCode(in); got != want {
			t.Errorf("normalizeCode(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestToEnrichment(t *testing.T) {
	e := toEnrichment(reply{Industry: "半导体", Score: 130}, "600000")
	def := model.DefaultEnrichment()
	if e.Score != 100 {
		t.Errorf("score should clamp to 100, got %v", e.Score)
	}
	if e.Industry != "半导体" || e.Code != "600000" {
		t.Errorf("unexpected enrichment: %+v", e)
	}
	if e.CycleStage != def.CycleStage || e.Analysis != def.Analysis || e.Suggestion != def.Suggestion {
		t.Errorf("empty fields should take defaults: %+v", e)
	}

	if got := toEnrichment(reply{Score: -5}, "1").Score; got != 0 {
		t.Errorf("negative score should clamp to 0, got %v", got)
	}
}
