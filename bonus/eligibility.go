/*
Package bonus decides the monthly achievements of a collaborator.

PURPOSE:
  Given every task in the system, a collaborator, and the instant of
  evaluation, works out whether the collaborator earned the two monthly
  achievements and how far along they are:

    Marketing Ninja  (on-time): every task done no later than its deadline
    Strategy Master  (early):   every task done at least 7 whole days early

  ComputeEligibility is a pure function. It reads the task slice, never
  mutates it, performs no I/O, and never reads the wall clock: now is
  always passed in so that a preview and the payroll run that follows it
  agree on the period boundary.

TASK SETS:
  Relevant (display context). A task belongs if ANY of:
    a. its deadline is in the month of now
    b. its deadline is after now and it is already completed
    c. now is on day 1..7 of the month, the deadline is in the previous
       month, and it is completed (grace window)

  Evaluated (pass/fail). A task belongs if:
    a. its deadline is in the month of now, OR
    b. its deadline is after now and it is already completed
  Grace-window tasks (c) are relevant but NEVER evaluated.

RULES:
  AllTasksCompleted = evaluated is non-empty AND every task is completed
  IsOnTimeBonus     = AllTasksCompleted AND every CompletedAt <= deadline
  IsEarlyBonus      = AllTasksCompleted AND every floor(deadline - CompletedAt) >= 7 days

  The deadline instant is 00:00 UTC of the deadline day. A completed task
  without CompletedAt fails both timing checks.

PROGRESS:
  OnTimeProgressRatio = completed / evaluated
  EarlyProgressRatio  = (CompletedAt present and >= 7 days early) / evaluated
  Both are 0 when nothing is evaluated.

EXAMPLE:
  v := bonus.ComputeEligibility(tasks, "collab-7", clock())
  if v.IsEarlyBonus {
      // Strategy Master this month
  }

SEE ALSO:
  - policy.go: Bonus amounts and achievement names
  - payroll/issuer.go: Turns verdicts into receipts
*/
package bonus

import (
	"time"

	"github.com/visualoscart/payroll-engine/generic"
)

// EarlyLeadDays is the minimum number of whole days before the deadline a
// task must be completed to count as early.
const EarlyLeadDays = 7

// GraceWindowDays is how many days into a month completed tasks from the
// previous month still show as relevant.
const GraceWindowDays = 7

// =============================================================================
// VERDICT
// =============================================================================

// Verdict is the engine output for one collaborator at one instant.
type Verdict struct {
	CollaboratorID generic.CollaboratorID
	Period         generic.Month
	EvaluatedAt    time.Time

	AllTasksCompleted   bool
	IsOnTimeBonus       bool
	IsEarlyBonus        bool
	OnTimeProgressRatio float64
	EarlyProgressRatio  float64

	// Relevant is the display set, Evaluated the strict pass/fail set.
	Relevant  []generic.Task
	Evaluated []generic.Task
}

// =============================================================================
// ENGINE
// =============================================================================

// ComputeEligibility evaluates collaboratorID's tasks at now.
func ComputeEligibility(tasks []generic.Task, collaboratorID generic.CollaboratorID, now time.Time) Verdict {
	now = now.UTC()
	period := generic.MonthOf(now)

	v := Verdict{
		CollaboratorID: collaboratorID,
		Period:         period,
		EvaluatedAt:    now,
		Relevant:       []generic.Task{},
		Evaluated:      []generic.Task{},
	}

	for _, t := range tasks {
		if t.CollaboratorID != collaboratorID {
			continue
		}
		if isEvaluated(t, period, now) {
			v.Relevant = append(v.Relevant, t)
			v.Evaluated = append(v.Evaluated, t)
			continue
		}
		if inGraceWindow(t, period, now) {
			v.Relevant = append(v.Relevant, t)
		}
	}

	if len(v.Evaluated) == 0 {
		return v
	}

	completed, early := 0, 0
	onTime, allEarly := true, true
	for _, t := range v.Evaluated {
		if t.IsCompleted() {
			completed++
		}
		if !completedOnTime(t) {
			onTime = false
		}
		if completedEarly(t) {
			early++
		} else {
			allEarly = false
		}
	}

	total := float64(len(v.Evaluated))
	v.AllTasksCompleted = completed == len(v.Evaluated)
	v.IsOnTimeBonus = v.AllTasksCompleted && onTime
	v.IsEarlyBonus = v.AllTasksCompleted && allEarly
	v.OnTimeProgressRatio = float64(completed) / total
	v.EarlyProgressRatio = float64(early) / total
	return v
}

// isEvaluated: deadline this month, or a future deadline already finished.
func isEvaluated(t generic.Task, period generic.Month, now time.Time) bool {
	if period.Contains(t.Date) {
		return true
	}
	return t.IsCompleted() && t.Date.Instant().After(now)
}

// inGraceWindow: last month's completed work during the first days of a new month.
func inGraceWindow(t generic.Task, period generic.Month, now time.Time) bool {
	return now.Day() <= GraceWindowDays &&
		period.Previous().Contains(t.Date) &&
		t.IsCompleted()
}

func completedOnTime(t generic.Task) bool {
	if t.CompletedAt == nil {
		return false
	}
	return !t.CompletedAt.After(t.Date.Instant())
}

func completedEarly(t generic.Task) bool {
	if t.CompletedAt == nil {
		return false
	}
	return generic.WholeDaysBefore(*t.CompletedAt, t.Date) >= EarlyLeadDays
}
