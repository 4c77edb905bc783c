package recorder

import (
	"time"

	"SmartPick/internal/model"
)

// CycleRecord is one scan cycle's outcome.
type CycleRecord struct {
	RunID         string
	Started       time.Time
	Duration      time.Duration
	Status        string // "ok", "quiet", "empty" or "failed"
	Instruments   int
	FetchFailures int
	Signals       int
	Candidates    int
	Fallbacks     int
	ResultFile    string
	Error         string
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	// RecordCycle stores the cycle and its shortlisted candidates.
	RecordCycle(rec *CycleRecord, candidates []model.Candidate) error
	// RecentCycles returns up to limit cycles, newest first.
	RecentCycles(limit int) ([]CycleRecord, error)
	Close() error
}
