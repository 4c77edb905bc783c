package enricher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"SmartPick/internal/model"
)

// flexString accepts a JSON string or number. Objects, arrays and booleans read as "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// flexScore accepts a JSON number or numeric string; anything else, NaN and Inf read as 0.
type flexScore float64

func (f *flexScore) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(string(s)), "分"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = flexScore(v)
	return nil
}

// reply is the advisory schema of one enrichment object.
type reply struct {
	Code       flexString `json:"code"`
	Industry   flexString `json:"industry"`
	CycleStage flexString `json:"cycle_stage"`
	Analysis   flexString `json:"analysis"`
	Score      flexScore  `json:"score"`
	Suggestion flexString `json:"suggestion"`
}

var errNoReply = errors.New("no enrichment objects in reply")

// parseReplies turns model output into reply objects.
// Code fences are stripped; a single object counts as a one-element array.
// If strict decoding fails, one jsonrepair pass is attempted.
func parseReplies(content string) ([]reply, error) {
	text := stripFences(content)
	if text == "" {
		return nil, errNoReply
	}
	out, err := decodeReplies(text)
	if err == nil {
		return out, nil
	}
	repaired, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		return nil, fmt.Errorf("parse reply: %w; repair: %v", err, rerr)
	}
	out, rerr = decodeReplies(repaired)
	if rerr != nil {
		return nil, fmt.Errorf("parse repaired reply: %w", rerr)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func decodeReplies(text string) ([]reply, error) {
	var list []reply
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}
	var one reply
	if err := json.Unmarshal([]byte(text), &one); err != nil {
		return nil, err
	}
	return []reply{one}, nil
}

// normalizeCode reduces "SH600000", "600000.sz" or " 600000 " to "600000".
func normalizeCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	for _, p := range []string{"sh", "sz", "bj"} {
		c = strings.TrimPrefix(c, p)
		c = strings.TrimSuffix(c, "."+p)
	}
	return strings.TrimSpace(c)
}

// toEnrichment coerces a reply into the enrichment schema, defaulting empty fields.
func toEnrichment(r reply, code string) model.Enrichment {
	def := model.DefaultEnrichment()
	e := model.Enrichment{
		Code:       code,
		Industry:   orDefault(string(r.Industry), def.Industry),
		CycleStage: orDefault(string(r.CycleStage), def.CycleStage),
		Analysis:   orDefault(string(r.Analysis), def.Analysis),
		Score:      float64(r.Score),
		Suggestion: orDefault(string(r.Suggestion), def.Suggestion),
	}
	if e.Score < 0 || math.IsNaN(e.Score) {
		e.Score = 0
	}
	if e.Score > 100 {
		e.Score = 100
	}
	return e
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
