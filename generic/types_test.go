package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/visualoscart/payroll-engine/generic"
)

func validTask() generic.Task {
	return generic.Task{
		ID:             "task-1",
		CollaboratorID: "collab-1",
		Date:           generic.NewTimePoint(2025, time.March, 20),
		Status:         generic.TaskPending,
	}
}

func TestTask_Validate(t *testing.T) {
	completedAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*generic.Task)
		wantErr bool
	}{
		{"pending without timestamp", func(*generic.Task) {}, false},
		{"completed with timestamp", func(tk *generic.Task) { *tk = tk.Complete(completedAt) }, false},
		{"completed without timestamp", func(tk *generic.Task) { tk.Status = generic.TaskCompleted }, true},
		{"pending with timestamp", func(tk *generic.Task) { tk.CompletedAt = &completedAt }, true},
		{"unknown status", func(tk *generic.Task) { tk.Status = "done" }, true},
		{"missing collaborator", func(tk *generic.Task) { tk.CollaboratorID = "" }, true},
		{"missing date", func(tk *generic.Task) { tk.Date = generic.TimePoint{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(&task)
			err := task.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *generic.InvalidTaskError
			assert.ErrorAs(t, err, &invalid)
			assert.True(t, errors.Is(err, generic.ErrInvalidTask))
		})
	}
}

func TestTask_CompleteAndReopen(t *testing.T) {
	task := validTask()
	local := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	completed := task.Complete(local)
	assert.True(t, completed.IsCompleted())
	assert.Equal(t, time.UTC, completed.CompletedAt.Location())
	assert.Nil(t, task.CompletedAt, "Complete must not modify the receiver")

	reopened := completed.Reopen()
	assert.False(t, reopened.IsCompleted())
	assert.Nil(t, reopened.CompletedAt)
}

func TestAmount_Arithmetic(t *testing.T) {
	base := generic.NewAmountFromInt(1500, generic.CurrencyEUR)
	total := base.Add(generic.NewAmountFromInt(10, generic.CurrencyEUR)).Add(generic.NewAmountFromInt(20, generic.CurrencyEUR))

	assert.Equal(t, "1530.00 EUR", total.String())
	assert.True(t, total.Equal(generic.NewAmountFromInt(1530, generic.CurrencyEUR)))
	assert.False(t, total.Equal(generic.NewAmountFromInt(1530, generic.CurrencyUSD)))
}

func TestReceiptKey(t *testing.T) {
	key := generic.ReceiptKey("collab-1", generic.Month{Year: 2025, Month: time.March})
	assert.Equal(t, "receipt:collab-1:2025-03", key)
}
