/*
scheduler.go - Automated monthly payroll issuance

PURPOSE:
  Periodically builds the payroll table for the current month and issues
  the receipts that are due, so an admin does not have to click through
  every collaborator.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A collaborator is due once every evaluated task is completed, or,
    for everyone, once the month reaches IssueDay
  - Skips collaborators that already have a receipt for the month
  - Issuance is idempotent per collaborator and month, so overlapping
    runs or a manual issue racing the scheduler write one receipt

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled:       Whether scheduler is active (default: false)
  - IssueDay:      Day of month after which everyone is paid (default: 28)

USAGE:
  scheduler := NewPayrollScheduler(issuer, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

  GET /api/payroll/scheduler reports Running, LastRun and NextRunTime.

SEE ALSO:
  - handlers.go: IssueReceipt endpoint (manual issuance)
  - payroll/issuer.go: Issuer
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/visualoscart/payroll-engine/generic"
	"github.com/visualoscart/payroll-engine/payroll"
)

// SchedulerIssuer is the name recorded on receipts written by the scheduler.
const SchedulerIssuer = "scheduler"

// RunSummary reports the outcome of one scheduler pass.
type RunSummary struct {
	StartedAt time.Time
	Period    generic.Month
	Issued    int
	Skipped   int // already issued
	Waiting   int // open tasks, before IssueDay
	Failed    int
}

// PayrollScheduler handles automated receipt issuance.
type PayrollScheduler struct {
	Issuer        *payroll.Issuer
	Clock         func() time.Time
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool
	IssueDay      int

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun *RunSummary
	nextRun time.Time
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(issuer *payroll.Issuer, logger *slog.Logger) *PayrollScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollScheduler{
		Issuer:        issuer,
		Clock:         time.Now,
		Logger:        logger.With("component", "scheduler"),
		CheckInterval: 1 * time.Hour,
		IssueDay:      28,
	}
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Logger.Info("disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	// A fresh channel per start, so Start after Stop works.
	ps.stop = make(chan struct{})
	ps.nextRun = time.Time{}
	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.wg.Add(1)

	go ps.run(ps.ticker.C, ps.stop)

	ps.Logger.Info("started", "interval", ps.CheckInterval, "issue_day", ps.IssueDay)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	ticker, stop := ps.ticker, ps.stop
	ps.ticker, ps.stop = nil, nil
	ps.nextRun = time.Time{}
	ps.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(stop)
		ps.wg.Wait()
		ps.Logger.Info("stopped")
	}
}

// Running reports whether the background loop is active.
func (ps *PayrollScheduler) Running() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.ticker != nil
}

func (ps *PayrollScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer ps.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	ps.RunNow(ctx)
	ps.scheduleNext(stop)

	for {
		select {
		case <-tick:
			ps.RunNow(ctx)
			ps.scheduleNext(stop)
		case <-stop:
			return
		}
	}
}

// scheduleNext records when the ticker fires next, unless Stop already ran.
func (ps *PayrollScheduler) scheduleNext(stop <-chan struct{}) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	ps.nextRun = ps.Clock().UTC().Add(ps.CheckInterval)
}

// RunNow performs one pass immediately and returns its summary.
func (ps *PayrollScheduler) RunNow(ctx context.Context) RunSummary {
	now := ps.Clock().UTC()
	summary := RunSummary{StartedAt: now, Period: generic.MonthOf(now)}

	rows, err := ps.Issuer.PayrollTable(ctx, now)
	if err != nil {
		ps.Logger.ErrorContext(ctx, "build payroll table", "error", err)
		summary.Failed++
		ps.record(summary)
		return summary
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		if row.Issued != nil {
			summary.Skipped++
			continue
		}
		if !ps.due(row, now) {
			summary.Waiting++
			continue
		}

		_, err := ps.Issuer.Issue(ctx, row.Collaborator.ID, SchedulerIssuer, now)
		switch {
		case errors.Is(err, generic.ErrAlreadyIssued):
			summary.Skipped++
		case err != nil:
			ps.Logger.ErrorContext(ctx, "issue receipt", "collaborator_id", string(row.Collaborator.ID), "error", err)
			summary.Failed++
		default:
			summary.Issued++
		}
	}

	if summary.Issued > 0 || summary.Failed > 0 {
		ps.Logger.InfoContext(ctx, "payroll pass completed",
			"period", summary.Period.String(),
			"issued", summary.Issued,
			"skipped", summary.Skipped,
			"waiting", summary.Waiting,
			"failed", summary.Failed,
		)
	}
	ps.record(summary)
	return summary
}

// LastRun returns the summary of the most recent pass, if any.
func (ps *PayrollScheduler) LastRun() (RunSummary, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.lastRun == nil {
		return RunSummary{}, false
	}
	return *ps.lastRun, true
}

// NextRunTime returns when the next scheduled check will occur. It is
// false while the scheduler is not running.
func (ps *PayrollScheduler) NextRunTime() (time.Time, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.ticker == nil || ps.nextRun.IsZero() {
		return time.Time{}, false
	}
	return ps.nextRun, true
}

func (ps *PayrollScheduler) due(row payroll.Statement, now time.Time) bool {
	return row.Verdict.AllTasksCompleted || now.Day() >= ps.IssueDay
}

func (ps *PayrollScheduler) record(s RunSummary) {
	ps.mu.Lock()
	ps.lastRun = &s
	ps.mu.Unlock()
}
