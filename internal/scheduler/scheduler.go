package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"SmartPick/internal/logger"
	"SmartPick/internal/model"
	"SmartPick/internal/notifier"
	"SmartPick/internal/recorder"
	"SmartPick/internal/scanner"
	"SmartPick/internal/store"
)

// Runner executes one scan cycle.
type Runner interface {
	RunCycle(ctx context.Context) (*scanner.Report, error)
}

// Notifier pushes a formatted message.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ResultLoader reads stored results.
type ResultLoader interface {
	LoadLatest() (*model.ScanResult, error)
}

// Refresher reloads the instrument universe.
type Refresher interface {
	Refresh(ctx context.Context) []model.Instrument
}

const historyLimit = 10

// Scheduler drives scan cycles on a cron schedule and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Notifier // nil disables push
	Recorder recorder.Recorder
	Results  ResultLoader
	Universe Refresher
	Ctx      context.Context

	// cycles counts running and queued RunNow calls.
	cycles atomic.Int32
	async  sync.WaitGroup
}

type cronLogger struct{}

func (cronLogger) Printf(format string, args ...any) { logger.Debug("cron: "+format, args...) }

// NewScheduler creates a Scheduler. Overlapping cron ticks wait for the running cycle.
func NewScheduler(ctx context.Context, runner Runner, n Notifier, rec recorder.Recorder, results ResultLoader, universe Refresher) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	l := cron.PrintfLogger(cronLogger{})
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.DelayIfStillRunning(l))),
		Runner:   runner,
		Notifier: n,
		Recorder: rec,
		Results:  results,
		Universe: universe,
		Ctx:      ctx,
	}
}

// Register adds the scan job under the given spec (seconds field or descriptor).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register scan task %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running and RunAsync cycles to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.async.Wait()
	logger.Info("Scheduler stopped")
}

// RunNow executes one cycle, records it and pushes the report.
// The report is nil only when the cycle could not start.
func (s *Scheduler) RunNow() (*scanner.Report, error) {
	s.cycles.Add(1)
	defer s.cycles.Add(-1)

	logger.Info("Starting scan cycle")
	report, err := s.Runner.RunCycle(s.Ctx)
	if report == nil {
		logger.Error("Scan cycle failed: %v", err)
		return nil, err
	}
	if err != nil {
		logger.Error("Scan cycle %s failed: %v", report.RunID, err)
	}

	s.record(report, err)

	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		s.trySend(fmt.Sprintf("❌ 扫描失败: %v", err))
	default:
		s.trySend(notifier.FormatScanReport(report))
	}
	return report, err
}

// RunAsync starts RunNow in the background; Stop waits for it.
func (s *Scheduler) RunAsync() {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		s.RunNow()
	}()
}

// Busy reports whether a cycle is running or waiting to run.
func (s *Scheduler) Busy() bool { return s.cycles.Load() > 0 }

func (s *Scheduler) record(report *scanner.Report, runErr error) {
	rec := &recorder.CycleRecord{
		RunID:         report.RunID,
		Started:       report.Started,
		Duration:      report.Duration,
		Status:        report.Status,
		Instruments:   report.Instruments,
		FetchFailures: report.FetchFailures,
		Signals:       report.Signals,
		Fallbacks:     report.Fallbacks,
		ResultFile:    report.ResultFile,
	}
	var candidates []model.Candidate
	if report.Result != nil {
		candidates = report.Result.Data
	}
	rec.Candidates = len(candidates)
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.Recorder.RecordCycle(rec, candidates); err != nil {
		logger.Error("record cycle %s: %v", report.RunID, err)
	}
}

// HandleCommand answers a bot command and returns the reply text.
func (s *Scheduler) HandleCommand(cmd string) string {
	// Strip "@botname" suffixes used in group chats.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/latest":
		res, err := s.Results.LoadLatest()
		if errors.Is(err, store.ErrNoData) {
			return "暂无数据"
		}
		if err != nil {
			logger.Error("load latest result: %v", err)
			return "❌ 读取结果失败"
		}
		return notifier.FormatResult(res)
	case "/scan":
		if s.Busy() {
			return "⏳ 扫描进行中，请稍候"
		}
		s.RunAsync()
		return "🔍 已开始扫描，完成后推送结果"
	case "/refresh":
		n := len(s.Universe.Refresh(s.Ctx))
		if n == 0 {
			return "❌ 股票列表刷新失败"
		}
		return fmt.Sprintf("✅ 股票列表已刷新: %d 只", n)
	case "/history":
		records, err := s.Recorder.RecentCycles(historyLimit)
		if err != nil {
			logger.Error("load history: %v", err)
			return "❌ 读取记录失败"
		}
		return notifier.FormatHistory(records)
	case "/help", "/start":
		return notifier.HelpText()
	default:
		return "未知命令，发送 /help 查看帮助"
	}
}

func (s *Scheduler) trySend(msg string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, msg, 3); err != nil {
		logger.Error("send notification: %v", err)
	}
}
