package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPick/internal/model"
	"SmartPick/internal/recorder"
	"SmartPick/internal/scanner"
	"SmartPick/internal/store"
)

type stubRunner struct {
	report *scanner.Report
	err    error
	calls  int
}

func (r *stubRunner) RunCycle(context.Context) (*scanner.Report, error) {
	r.calls++
	return r.report, r.err
}

type stubNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *stubNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

type stubRecorder struct {
	recorder.NoopRecorder
	recs       []*recorder.CycleRecord
	candidates []model.Candidate
	history    []recorder.CycleRecord
}

func (r *stubRecorder) RecordCycle(rec *recorder.CycleRecord, c []model.Candidate) error {
	r.recs = append(r.recs, rec)
	r.candidates = c
	return nil
}

func (r *stubRecorder) RecentCycles(int) ([]recorder.CycleRecord, error) { return r.history, nil }

type stubResults struct {
	res *model.ScanResult
	err error
}

func (s stubResults) LoadLatest() (*model.ScanResult, error) { return s.res, s.err }

type stubUniverse struct{ n int }

func (u stubUniverse) Refresh(context.Context) []model.Instrument {
	return make([]model.Instrument, u.n)
}

func okReport() *scanner.Report {
	return &scanner.Report{
		RunID:       "run-1",
		Status:      "ok",
		Instruments: 100,
		Signals:     3,
		Started:     time.Now(),
		ResultFile:  "data/results/smart_pick_20240305.json",
		Result: &model.ScanResult{RunID: "run-1", Count: 1, Data: []model.Candidate{{
			Signal:     model.Signal{Instrument: model.Instrument{Code: "600519", Name: "贵州茅台", Market: "sh"}},
			Enrichment: model.Enrichment{Score: 88},
		}}},
	}
}

func TestRunNow_RecordsAndNotifies(t *testing.T) {
	runner := &stubRunner{report: okReport()}
	n := &stubNotifier{}
	rec := &stubRecorder{}
	s := NewScheduler(context.Background(), runner, n, rec, stubResults{}, stubUniverse{})

	report, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, "run-1", rec.recs[0].RunID)
	assert.Equal(t, 1, rec.recs[0].Candidates)
	assert.Equal(t, 3, rec.recs[0].Signals)
	assert.Empty(t, rec.recs[0].Error)
	assert.Len(t, rec.candidates, 1)

	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "贵州茅台(600519)")
}

func TestRunNow_FailureIsRecorded(t *testing.T) {
	report := okReport()
	report.Status = "failed"
	runner := &stubRunner{report: report, err: errors.New("save result: disk full")}
	n := &stubNotifier{}
	rec := &stubRecorder{}
	s := NewScheduler(context.Background(), runner, n, rec, stubResults{}, stubUniverse{})

	_, err := s.RunNow()
	require.Error(t, err)

	require.Len(t, rec.recs, 1)
	assert.Contains(t, rec.recs[0].Error, "disk full")
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "扫描失败")
}

func TestRunNow_NoNotifier(t *testing.T) {
	runner := &stubRunner{report: okReport()}
	s := NewScheduler(context.Background(), runner, nil, nil, stubResults{}, stubUniverse{})
	s.RunNow()
	assert.Equal(t, 1, runner.calls)
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &stubRunner{}, nil, nil, stubResults{}, stubUniverse{})
	assert.Error(t, s.Register("not a cron"))
	assert.NoError(t, s.Register("@every 1h"))
	assert.NoError(t, s.Register("0 0 * * * *"))
}

func TestHandleCommand(t *testing.T) {
	rec := &stubRecorder{history: []recorder.CycleRecord{{Status: "ok", Instruments: 5, Started: time.Now()}}}
	s := NewScheduler(context.Background(), &stubRunner{}, nil, rec,
		stubResults{res: okReport().Result}, stubUniverse{n: 4200})

	assert.Contains(t, s.HandleCommand("/latest"), "贵州茅台")
	assert.Contains(t, s.HandleCommand("/latest@SmartPickBot"), "贵州茅台")
	assert.Contains(t, s.HandleCommand("/refresh"), "4200")
	assert.Contains(t, s.HandleCommand("/history"), "标的 5")
	assert.Contains(t, s.HandleCommand("/help"), "/scan")
	assert.Contains(t, s.HandleCommand("/bogus"), "/help")

	s.Results = stubResults{err: store.ErrNoData}
	assert.Equal(t, "暂无数据", s.HandleCommand("/latest"))

	s.Universe = stubUniverse{}
	assert.True(t, strings.Contains(s.HandleCommand("/refresh"), "失败"))
}

func TestHandleCommand_ScanWhileBusy(t *testing.T) {
	s := NewScheduler(context.Background(), &stubRunner{report: okReport()}, nil, nil, stubResults{}, stubUniverse{})
	s.cycles.Add(1)
	assert.Contains(t, s.HandleCommand("/scan"), "进行中")
}

type blockingRunner struct {
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) RunCycle(context.Context) (*scanner.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started <- struct{}{}
	<-r.release
	return okReport(), nil
}

func TestBusy_CoversQueuedCycle(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	s := NewScheduler(context.Background(), runner, nil, nil, stubResults{}, stubUniverse{})

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s.RunNow()
			done <- struct{}{}
		}()
	}
	<-runner.started
	require.Eventually(t, func() bool { return s.cycles.Load() == 2 }, time.Second, time.Millisecond)

	runner.release <- struct{}{}
	<-done
	assert.True(t, s.Busy(), "queued cycle must keep the scheduler busy")
	assert.Contains(t, s.HandleCommand("/scan"), "进行中")

	<-runner.started
	runner.release <- struct{}{}
	<-done
	assert.False(t, s.Busy())
}

func TestStop_WaitsForAsyncCycles(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &stubRecorder{}
	s := NewScheduler(context.Background(), runner, nil, rec, stubResults{}, stubUniverse{})
	s.Start()

	assert.Contains(t, s.HandleCommand("/scan"), "已开始")
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was running")
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}
	<-stopped
	assert.Len(t, rec.recs, 1, "cycle must be recorded before Stop returns")
}
