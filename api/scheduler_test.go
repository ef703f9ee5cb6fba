package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visualoscart/payroll-engine/generic"
	"github.com/visualoscart/payroll-engine/generic/store"
	"github.com/visualoscart/payroll-engine/payroll"
)

func newTestScheduler(t *testing.T, now time.Time) (*PayrollScheduler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	for _, id := range []generic.CollaboratorID{"ana", "ben"} {
		require.NoError(t, mem.SaveCollaborator(ctx, generic.Collaborator{
			ID: id, Name: string(id), BaseSalary: generic.NewAmountFromInt(1000, generic.CurrencyEUR),
		}))
	}
	deadline := generic.NewTimePoint(2025, time.March, 10)
	require.NoError(t, mem.SaveTask(ctx, generic.Task{
		ID: "ana-1", CollaboratorID: "ana", Date: deadline, Status: generic.TaskPending,
	}.Complete(deadline.Instant().Add(-time.Hour))))
	require.NoError(t, mem.SaveTask(ctx, generic.Task{
		ID: "ben-1", CollaboratorID: "ben", Date: deadline.AddDays(20), Status: generic.TaskPending,
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ps := NewPayrollScheduler(payroll.NewIssuer(mem, mem, mem, payroll.WithLogger(logger)), logger)
	ps.Clock = func() time.Time { return now }
	return ps, mem
}

func TestScheduler_IssuesCompleteCollaboratorsOnly(t *testing.T) {
	// GIVEN: Ana is done, Ben has an open task, it is March 25
	// THEN: Ana is paid, Ben waits for IssueDay

	ps, mem := newTestScheduler(t, march25)

	summary := ps.RunNow(context.Background())

	assert.Equal(t, 1, summary.Issued)
	assert.Equal(t, 1, summary.Waiting)
	assert.Equal(t, generic.Month{Year: 2025, Month: time.March}, summary.Period)

	receipts, err := mem.ListReceipts(context.Background(), generic.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, generic.CollaboratorID("ana"), receipts[0].CollaboratorID)
	assert.Equal(t, SchedulerIssuer, receipts[0].IssuedBy)
}

func TestScheduler_SecondPassSkips(t *testing.T) {
	ps, mem := newTestScheduler(t, march25)
	ctx := context.Background()

	ps.RunNow(ctx)
	summary := ps.RunNow(ctx)

	assert.Equal(t, 0, summary.Issued)
	assert.Equal(t, 1, summary.Skipped)
	receipts, err := mem.ListReceipts(ctx, generic.ReceiptFilter{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)

	last, ok := ps.LastRun()
	require.True(t, ok)
	assert.Equal(t, summary, last)
}

func TestScheduler_IssueDayPaysEveryone(t *testing.T) {
	// GIVEN: March 28, Ben still has an open task
	// THEN: Ben gets his base salary with no bonus

	ps, mem := newTestScheduler(t, time.Date(2025, time.March, 28, 6, 0, 0, 0, time.UTC))

	summary := ps.RunNow(context.Background())

	assert.Equal(t, 2, summary.Issued)
	ben, err := mem.GetReceiptByKey(context.Background(), generic.ReceiptKey("ben", generic.Month{Year: 2025, Month: time.March}))
	require.NoError(t, err)
	assert.True(t, ben.Total.Equal(generic.NewAmountFromInt(1000, generic.CurrencyEUR)))
}

func TestScheduler_StartStop(t *testing.T) {
	ps, mem := newTestScheduler(t, march25)
	ps.Enabled = true
	ps.CheckInterval = time.Hour

	ps.Start()
	require.Eventually(t, func() bool {
		_, ok := ps.LastRun()
		return ok
	}, time.Second, 10*time.Millisecond)
	ps.Stop()
	ps.Stop()

	receipts, err := mem.ListReceipts(context.Background(), generic.ReceiptFilter{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestScheduler_DisabledDoesNotRun(t *testing.T) {
	ps, _ := newTestScheduler(t, march25)

	ps.Start()
	ps.Stop()

	_, ok := ps.LastRun()
	assert.False(t, ok)
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	// GIVEN: A scheduler that was started and stopped
	// WHEN: It is started again
	// THEN: It runs a fresh pass and stops cleanly a second time

	ps, _ := newTestScheduler(t, march25)
	ps.Enabled = true

	ps.Start()
	require.Eventually(t, func() bool {
		_, ok := ps.NextRunTime()
		return ok
	}, time.Second, 10*time.Millisecond)
	ps.Stop()
	assert.False(t, ps.Running())
	_, ok := ps.NextRunTime()
	assert.False(t, ok)

	later := march25.Add(2 * time.Hour)
	ps.Clock = func() time.Time { return later }
	ps.Start()
	require.Eventually(t, func() bool {
		last, ok := ps.LastRun()
		return ok && last.StartedAt.Equal(later)
	}, time.Second, 10*time.Millisecond)
	assert.True(t, ps.Running())

	assert.NotPanics(t, ps.Stop)
	assert.False(t, ps.Running())
}

func TestScheduler_NextRunTime(t *testing.T) {
	ps, _ := newTestScheduler(t, march25)
	ps.Enabled = true
	ps.CheckInterval = 15 * time.Minute

	_, ok := ps.NextRunTime()
	assert.False(t, ok, "not running yet")

	ps.Start()
	t.Cleanup(ps.Stop)
	require.Eventually(t, func() bool {
		_, ok := ps.NextRunTime()
		return ok
	}, time.Second, 10*time.Millisecond)

	next, _ := ps.NextRunTime()
	assert.Equal(t, march25.Add(15*time.Minute), next)
}
