package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visualoscart/payroll-engine/generic"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func march(day int) generic.TimePoint {
	return generic.NewTimePoint(2025, time.March, day)
}

// =============================================================================
// TASKS
// =============================================================================

func TestSaveTask_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	done := time.Date(2025, time.March, 2, 14, 30, 0, 123, time.FixedZone("CET", 3600))
	task := generic.Task{
		ID:             "t-1",
		CollaboratorID: "ana",
		ProjectID:      "launch",
		Title:          "Landing page copy",
		Date:           march(10),
		Status:         generic.TaskPending,
	}.Complete(done)
	require.NoError(t, s.SaveTask(ctx, task))

	got, err := s.GetTask(ctx, "t-1")
	require.NoError(t, err)

	assert.Equal(t, generic.TaskCompleted, got.Status)
	assert.Equal(t, "2025-03-10", got.Date.String())
	assert.Equal(t, generic.ProjectID("launch"), got.ProjectID)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))
	assert.Equal(t, time.UTC, got.CompletedAt.Location())
}

func TestSaveTask_UpsertAndReopen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := generic.Task{ID: "t-1", CollaboratorID: "ana", Date: march(10), Status: generic.TaskPending}
	require.NoError(t, s.SaveTask(ctx, task.Complete(march(5).Instant())))
	require.NoError(t, s.SaveTask(ctx, task.Complete(march(5).Instant()).Reopen()))

	got, err := s.GetTask(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, generic.TaskPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	all, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveTask_RejectsInconsistentCompletion(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveTask(context.Background(), generic.Task{
		ID: "t-1", CollaboratorID: "ana", Date: march(10), Status: generic.TaskCompleted,
	})

	assert.True(t, errors.Is(err, generic.ErrInvalidTask))
}

func TestListTasksByCollaborator_OrderedByDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for id, day := range map[string]int{"t-a": 20, "t-b": 3, "t-c": 11} {
		require.NoError(t, s.SaveTask(ctx, generic.Task{
			ID: generic.TaskID(id), CollaboratorID: "ana", Date: march(day), Status: generic.TaskPending,
		}))
	}
	require.NoError(t, s.SaveTask(ctx, generic.Task{
		ID: "t-other", CollaboratorID: "ben", Date: march(1), Status: generic.TaskPending,
	}))

	tasks, err := s.ListTasksByCollaborator(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, generic.TaskID("t-b"), tasks[0].ID)
	assert.Equal(t, generic.TaskID("t-c"), tasks[1].ID)
	assert.Equal(t, generic.TaskID("t-a"), tasks[2].ID)
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTask(ctx, generic.Task{ID: "t-1", CollaboratorID: "ana", Date: march(1), Status: generic.TaskPending}))

	require.NoError(t, s.DeleteTask(ctx, "t-1"))

	_, err := s.GetTask(ctx, "t-1")
	assert.True(t, errors.Is(err, generic.ErrTaskNotFound))
	assert.True(t, errors.Is(s.DeleteTask(ctx, "t-1"), generic.ErrTaskNotFound))
}

// =============================================================================
// COLLABORATORS
// =============================================================================

func TestCollaborators(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCollaborator(ctx, generic.Collaborator{
		ID: "ben", Name: "Ben", BaseSalary: generic.NewAmountFromInt(1200, generic.CurrencyEUR),
	}))
	require.NoError(t, s.SaveCollaborator(ctx, generic.Collaborator{
		ID: "ana", Name: "Ana", Email: "ana@oscart.io", Role: generic.RoleAdmin,
		BaseSalary: generic.Amount{Value: decimal.RequireFromString("1500.50"), Currency: generic.CurrencyEUR},
	}))

	ana, err := s.GetCollaborator(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "1500.50 EUR", ana.BaseSalary.String())
	assert.Equal(t, generic.RoleAdmin, ana.Role)

	ben, err := s.GetCollaborator(ctx, "ben")
	require.NoError(t, err)
	assert.Equal(t, generic.RoleCollaborator, ben.Role, "role defaults to collaborator")

	all, err := s.ListCollaborators(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana", all[0].Name)

	_, err = s.GetCollaborator(ctx, "nobody")
	assert.True(t, errors.Is(err, generic.ErrCollaboratorNotFound))
}

// =============================================================================
// RECEIPTS
// =============================================================================

func testReceipt(id, collaborator string, period generic.Month, issuedAt time.Time) generic.Receipt {
	eur := func(n int) generic.Amount { return generic.NewAmountFromInt(n, generic.CurrencyEUR) }
	return generic.Receipt{
		ID:             generic.ReceiptID(id),
		Reference:      "REC-" + id,
		CollaboratorID: generic.CollaboratorID(collaborator),
		Period:         period,
		BaseSalary:     eur(1500),
		OnTimeBonus:    eur(10),
		EarlyBonus:     eur(0),
		Total:          eur(1510),
		IdempotencyKey: generic.ReceiptKey(generic.CollaboratorID(collaborator), period),
		IssuedBy:       "admin",
		IssuedAt:       issuedAt,
	}
}

func TestAppendReceipt_IdempotencyKeyIsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := generic.Month{Year: 2025, Month: time.March}
	at := time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendReceipt(ctx, testReceipt("r-1", "ana", m, at)))
	err := s.AppendReceipt(ctx, testReceipt("r-2", "ana", m, at.Add(time.Hour)))

	assert.True(t, errors.Is(err, generic.ErrDuplicateIdempotencyKey))

	got, err := s.GetReceiptByKey(ctx, generic.ReceiptKey("ana", m))
	require.NoError(t, err)
	assert.Equal(t, generic.ReceiptID("r-1"), got.ID)
	assert.Equal(t, m, got.Period)
	assert.True(t, got.Total.Equal(generic.NewAmountFromInt(1510, generic.CurrencyEUR)))
	assert.True(t, at.Equal(got.IssuedAt))
}

func TestScan_RejectsCorruptColumns(t *testing.T) {
	// GIVEN: Rows whose stored timestamps or amounts were damaged outside the store
	// THEN: Reads fail instead of yielding zero values

	s := newTestStore(t)
	ctx := context.Background()
	m := generic.Month{Year: 2025, Month: time.March}
	at := time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		update string
		read   func() error
	}{
		{"receipt issued_at", `UPDATE receipts SET issued_at = 'yesterday'`, func() error {
			_, err := s.ListReceipts(ctx, generic.ReceiptFilter{})
			return err
		}},
		{"receipt total", `UPDATE receipts SET total = 'lots'`, func() error {
			_, err := s.GetReceiptByKey(ctx, generic.ReceiptKey("ana", m))
			return err
		}},
		{"task created_at", `UPDATE tasks SET created_at = 'then'`, func() error {
			_, err := s.GetTask(ctx, "t-1")
			return err
		}},
		{"task updated_at", `UPDATE tasks SET updated_at = '2025-13-40'`, func() error {
			_, err := s.ListTasks(ctx)
			return err
		}},
		{"collaborator created_at", `UPDATE collaborators SET created_at = ''`, func() error {
			_, err := s.GetCollaborator(ctx, "ana")
			return err
		}},
		{"collaborator base_salary", `UPDATE collaborators SET base_salary = 'n/a'`, func() error {
			_, err := s.ListCollaborators(ctx)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.Reset(ctx))
			require.NoError(t, s.SaveCollaborator(ctx, generic.Collaborator{
				ID: "ana", Name: "Ana", BaseSalary: generic.NewAmountFromInt(1500, generic.CurrencyEUR),
			}))
			require.NoError(t, s.SaveTask(ctx, generic.Task{ID: "t-1", CollaboratorID: "ana", Date: march(10), Status: generic.TaskPending}))
			require.NoError(t, s.AppendReceipt(ctx, testReceipt("r-1", "ana", m, at)))

			_, err := s.db.ExecContext(ctx, tt.update)
			require.NoError(t, err)

			err = tt.read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed")
		})
	}
}

func TestGetReceiptByKey_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetReceiptByKey(context.Background(), "receipt:ana:2025-03")

	assert.True(t, errors.Is(err, generic.ErrReceiptNotFound))
}

func TestListReceipts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mar := generic.Month{Year: 2025, Month: time.March}
	apr := mar.Next()
	at := time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendReceipt(ctx, testReceipt("r-1", "ana", mar, at)))
	require.NoError(t, s.AppendReceipt(ctx, testReceipt("r-2", "ben", mar, at.Add(time.Second))))
	require.NoError(t, s.AppendReceipt(ctx, testReceipt("r-3", "ana", apr, at.AddDate(0, 1, 0))))

	all, err := s.ListReceipts(ctx, generic.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.ReceiptID("r-1"), all[0].ID)
	assert.Equal(t, generic.ReceiptID("r-3"), all[2].ID)

	ana := generic.CollaboratorID("ana")
	mine, err := s.ListReceipts(ctx, generic.ReceiptFilter{CollaboratorID: &ana})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	inMarch, err := s.ListReceipts(ctx, generic.ReceiptFilter{Period: &mar})
	require.NoError(t, err)
	assert.Len(t, inMarch, 2)

	both, err := s.ListReceipts(ctx, generic.ReceiptFilter{CollaboratorID: &ana, Period: &apr})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, generic.ReceiptID("r-3"), both[0].ID)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCollaborator(ctx, generic.Collaborator{ID: "ana", Name: "Ana"}))
	require.NoError(t, s.SaveTask(ctx, generic.Task{ID: "t-1", CollaboratorID: "ana", Date: march(1), Status: generic.TaskPending}))

	require.NoError(t, s.Reset(ctx))

	collaborators, err := s.ListCollaborators(ctx)
	require.NoError(t, err)
	assert.Empty(t, collaborators)
	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestNew_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oscart.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCollaborator(ctx, generic.Collaborator{ID: "ana", Name: "Ana"}))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetCollaborator(ctx, "ana")
	assert.NoError(t, err)
}
