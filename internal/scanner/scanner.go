// Package scanner runs one screening cycle over the instrument universe.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SmartPick/internal/collector"
	"SmartPick/internal/logger"
	"SmartPick/internal/metrics"
	"SmartPick/internal/model"
	"SmartPick/internal/strategy"
)

// InstrumentSource resolves the instruments to scan.
type InstrumentSource interface {
	Instruments(ctx context.Context) []model.Instrument
}

// Enricher attaches qualitative verdicts to shortlisted signals.
type Enricher interface {
	Enrich(ctx context.Context, signals []model.Signal) ([]model.Candidate, int)
}

// ResultSaver persists a finished result and returns where it was written.
type ResultSaver interface {
	Save(result *model.ScanResult) (string, error)
}

// Options tunes batching and shortlisting.
type Options struct {
	BatchSize     int
	BatchPause    time.Duration
	MaxCandidates int
	ProgressEvery int
}

// Report summarizes one cycle.
type Report struct {
	RunID         string
	Status        string
	Result        *model.ScanResult
	Instruments   int
	FetchFailures int
	Signals       int
	Fallbacks     int
	ResultFile    string
	Started       time.Time
	Duration      time.Duration
}

// Quiet reports whether the cycle produced no candidates.
func (r *Report) Quiet() bool {
	return r.Result == nil || len(r.Result.Data) == 0
}

// Scanner owns the per-cycle pipeline. Only one cycle runs at a time.
type Scanner struct {
	universe InstrumentSource
	fetcher  collector.Fetcher
	enricher Enricher
	saver    ResultSaver
	metrics  *metrics.Registry
	opts     Options

	detect func(model.Instrument, []model.Candle) *model.Signal
	now    func() time.Time

	mu sync.Mutex
}

// New creates a Scanner. reg may be nil.
func New(universe InstrumentSource, fetcher collector.Fetcher, enricher Enricher, saver ResultSaver, reg *metrics.Registry, opts Options) *Scanner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 30
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1000
	}
	return &Scanner{
		universe: universe,
		fetcher:  fetcher,
		enricher: enricher,
		saver:    saver,
		metrics:  reg,
		opts:     opts,
		detect:   strategy.Detect,
		now:      time.Now,
	}
}

// RunCycle scans the universe, shortlists, enriches and saves the result.
// Concurrent callers are serialized. Per-instrument failures never fail the cycle.
func (s *Scanner) RunCycle(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	runID := uuid.NewString()
	report := &Report{
		RunID:   runID,
		Started: start,
		Result:  &model.ScanResult{RunID: runID, Timestamp: start.Round(0), Data: []model.Candidate{}},
	}

	instruments := s.universe.Instruments(ctx)
	report.Instruments = len(instruments)
	if len(instruments) == 0 {
		logger.Error("Instrument list is empty, skipping this cycle")
		s.finish(report, metrics.StatusEmpty)
		return report, nil
	}

	logger.Info("Scanning %d instruments for volume anomalies...", len(instruments))
	signals, failures, err := s.scan(ctx, instruments)
	report.FetchFailures = failures
	report.Signals = len(signals)
	if err != nil {
		s.finish(report, metrics.StatusFailed)
		return report, fmt.Errorf("scan interrupted: %w", err)
	}
	logger.Info("Screening done: %d signals, %d fetch failures", len(signals), failures)

	signals = shortlist(signals, s.opts.MaxCandidates)
	if len(signals) == 0 {
		logger.Info("Market quiet, no anomalies this cycle")
		s.finish(report, metrics.StatusQuiet)
		return report, nil
	}
	if report.Signals > len(signals) {
		logger.Info("Kept the %d strongest of %d signals for enrichment", len(signals), report.Signals)
	}

	candidates, fallbacks := s.enricher.Enrich(ctx, signals)
	report.Fallbacks = fallbacks
	report.Result = &model.ScanResult{
		RunID:     runID,
		Timestamp: s.now().Round(0),
		Count:     len(candidates),
		Data:      candidates,
	}

	path, err := s.saver.Save(report.Result)
	if err != nil {
		s.finish(report, metrics.StatusFailed)
		return report, fmt.Errorf("save result: %w", err)
	}
	report.ResultFile = path
	logger.Info("Result saved: %s (%d candidates, %d default enrichments)", path, len(candidates), fallbacks)
	for i, c := range candidates {
		if i == 3 {
			break
		}
		logger.Info("Top %d: %s(%s) [%.0f] %s | %s", i+1, c.Instrument.Name, c.Instrument.Code,
			c.Enrichment.Score, c.Enrichment.CycleStage, c.Enrichment.Analysis)
	}

	s.finish(report, metrics.StatusOK)
	return report, nil
}

func (s *Scanner) finish(report *Report, status string) {
	end := s.now()
	report.Status = status
	report.Duration = end.Sub(report.Started)
	if s.metrics != nil {
		s.metrics.ObserveCycle(status, report.Duration, end, len(report.Result.Data))
	}
}

// scan fetches and detects in fixed-size concurrent batches with a pause between batches.
func (s *Scanner) scan(ctx context.Context, instruments []model.Instrument) ([]model.Signal, int, error) {
	var signals []model.Signal
	total := 0
	failures := 0

	for i := 0; i < len(instruments); i += s.opts.BatchSize {
		end := i + s.opts.BatchSize
		if end > len(instruments) {
			end = len(instruments)
		}
		batch := instruments[i:end]
		found := make([]*model.Signal, len(batch))
		var failed atomic.Int64

		var g errgroup.Group
		for j, inst := range batch {
			g.Go(func() error {
				candles, err := s.fetcher.FetchCandles(ctx, inst)
				if err != nil {
					logger.Debug("Skip %s: %v", inst.Symbol(), err)
					failed.Add(1)
					return nil
				}
				found[j] = s.detect(inst, candles)
				return nil
			})
		}
		_ = g.Wait()

		for _, sig := range found {
			if sig == nil {
				continue
			}
			signals = append(signals, *sig)
			if s.metrics != nil {
				s.metrics.ObserveSignal(string(sig.Rule), string(sig.Type))
			}
		}
		failures += int(failed.Load())
		if s.metrics != nil {
			s.metrics.ObserveBatch(len(batch), int(failed.Load()))
		}

		if end/s.opts.ProgressEvery > total/s.opts.ProgressEvery {
			logger.Info("Scan progress: %d/%d (%.0f%%)", end, len(instruments), float64(end)/float64(len(instruments))*100)
		}
		total = end

		if end < len(instruments) {
			if err := pause(ctx, s.opts.BatchPause); err != nil {
				return signals, failures, err
			}
		}
	}
	return signals, failures, nil
}

// shortlist keeps the max strongest signals by volume ratio; shorter lists are returned unchanged.
func shortlist(signals []model.Signal, max int) []model.Signal {
	if len(signals) <= max {
		return signals
	}
	sorted := make([]model.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metrics.VolumeRatio > sorted[j].Metrics.VolumeRatio
	})
	return sorted[:max]
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
