// Package enricher attaches LLM-produced qualitative verdicts to shortlisted signals.
package enricher

import (
	"context"
	"sort"
	"time"

	"SmartPick/internal/logger"
	"SmartPick/internal/model"
)

// Fallback reasons reported through OnFallback.
const (
	ReasonDisabled  = "disabled"
	ReasonRequest   = "request"
	ReasonParse     = "parse"
	ReasonUnmatched = "unmatched"
)

// Enricher batches signals into completion requests and merges the replies.
type Enricher struct {
	completer  Completer
	batchSize  int
	batchPause time.Duration

	// OnFallback, when set, is told how many candidates fell back and why.
	OnFallback func(reason string, n int)
}

// New creates an Enricher. A nil completer disables enrichment; every candidate gets the default.
func New(completer Completer, batchSize int, batchPause time.Duration) *Enricher {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Enricher{completer: completer, batchSize: batchSize, batchPause: batchPause}
}

// Enrich returns candidates sorted by score (descending, stable) and the number
// that received the default enrichment. It never fails; problems degrade to defaults.
func (e *Enricher) Enrich(ctx context.Context, signals []model.Signal) ([]model.Candidate, int) {
	out := make([]model.Candidate, 0, len(signals))
	fallbacks := 0

	for i := 0; i < len(signals); i += e.batchSize {
		end := i + e.batchSize
		if end > len(signals) {
			end = len(signals)
		}
		batch := signals[i:end]

		if i > 0 && e.batchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.batchPause):
			}
		}

		logger.Info("Enriching batch %d (%d candidates)...", i/e.batchSize+1, len(batch))
		enrichments, n := e.enrichBatch(ctx, batch)
		fallbacks += n
		for j, s := range batch {
			out = append(out, model.Candidate{Signal: s, Enrichment: enrichments[j]})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Enrichment.Score > out[b].Enrichment.Score
	})
	return out, fallbacks
}

// enrichBatch returns one enrichment per signal, in order, and the fallback count.
func (e *Enricher) enrichBatch(ctx context.Context, batch []model.Signal) ([]model.Enrichment, int) {
	if e.completer == nil {
		e.fallback(ReasonDisabled, len(batch))
		return defaults(len(batch)), len(batch)
	}
	if ctx.Err() != nil {
		e.fallback(ReasonRequest, len(batch))
		return defaults(len(batch)), len(batch)
	}

	content, err := e.completer.Complete(ctx, systemPrompt, buildPrompt(batch))
	if err != nil {
		logger.Warn("Enrichment request failed, using defaults: %v", err)
		e.fallback(ReasonRequest, len(batch))
		return defaults(len(batch)), len(batch)
	}

	replies, err := parseReplies(content)
	if err != nil {
		logger.Warn("Enrichment reply unparseable, using defaults: %v", err)
		e.fallback(ReasonParse, len(batch))
		return defaults(len(batch)), len(batch)
	}

	byCode := make(map[string]reply, len(replies))
	for _, r := range replies {
		code := normalizeCode(string(r.Code))
		if _, dup := byCode[code]; code != "" && !dup {
			byCode[code] = r
		}
	}

	out := make([]model.Enrichment, len(batch))
	unmatched := 0
	for i, s := range batch {
		r, ok := byCode[normalizeCode(s.Instrument.Code)]
		if !ok {
			out[i] = model.DefaultEnrichment()
			unmatched++
			continue
		}
		out[i] = toEnrichment(r, s.Instrument.Code)
	}
	if unmatched > 0 {
		logger.Debug("%d candidates not echoed back by the model", unmatched)
		e.fallback(ReasonUnmatched, unmatched)
	}
	return out, unmatched
}

func (e *Enricher) fallback(reason string, n int) {
	if e.OnFallback != nil && n > 0 {
		e.OnFallback(reason, n)
	}
}

func defaults(n int) []model.Enrichment {
	out := make([]model.Enrichment, n)
	for i := range out {
		out[i] = model.DefaultEnrichment()
	}
	return out
}
