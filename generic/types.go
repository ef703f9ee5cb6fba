/*
Package generic provides the core types shared by the bonus engine, the
payroll issuer and the storage layers.

PURPOSE:
  Holds the domain-agnostic building blocks: money amounts, identifiers,
  calendar dates, and the records the engine reads (tasks) and the issuer
  writes (receipts). Nothing in here performs I/O.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a currency (e.g., 1500 EUR)
  - Task: A unit of assigned work with a deadline day and completion stamp
  - Collaborator: A person on the payroll, with a base salary
  - Receipt: An immutable payroll record for one collaborator and month

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64
  2. Type Safety: Distinct ID types so task and collaborator IDs never mix
  3. Immutability: Receipts are appended, never edited
  4. One date model: deadlines are TimePoints (day granularity, UTC),
     completions are full timestamps

USAGE:
  task := generic.Task{
      ID:             "task-1",
      CollaboratorID: "collab-7",
      Date:           generic.NewTimePoint(2025, time.March, 20),
      Status:         generic.TaskPending,
  }

SEE ALSO:
  - time.go: TimePoint and day arithmetic
  - period.go: Monthly evaluation periods
  - store.go: Persistence interfaces
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Money with a currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

func NewAmountFromInt(value int, currency Currency) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Currency: currency}
}

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) IsNegative() bool    { return a.Value.IsNegative() }
func (a Amount) IsZero() bool        { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool { return a.Currency == b.Currency && a.Value.Equal(b.Value) }
func (a Amount) String() string      { return a.Value.StringFixed(2) + " " + string(a.Currency) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CollaboratorID string
type TaskID string
type ProjectID string
type ReceiptID string

// =============================================================================
// TASK - Read-only input of the eligibility engine
// =============================================================================

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// ParseTaskStatus maps a stored or submitted status string to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskPending, TaskCompleted:
		return TaskStatus(s), true
	}
	return "", false
}

// Task is one piece of assigned work. Date is the deadline day;
// CompletedAt is set if and only if Status is TaskCompleted.
type Task struct {
	ID             TaskID
	CollaboratorID CollaboratorID
	ProjectID      ProjectID
	Title          string
	Date           TimePoint
	Status         TaskStatus
	CompletedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Task) IsCompleted() bool { return t.Status == TaskCompleted }

// Validate checks the task invariants. Stores call it before writing so
// the engine only ever sees well-formed records.
func (t Task) Validate() error {
	if t.ID == "" || t.CollaboratorID == "" {
		return &InvalidTaskError{TaskID: t.ID, Reason: "id and collaborator are required"}
	}
	if t.Date.IsZero() {
		return &InvalidTaskError{TaskID: t.ID, Reason: "deadline date is required"}
	}
	if _, ok := ParseTaskStatus(string(t.Status)); !ok {
		return &InvalidTaskError{TaskID: t.ID, Reason: "unknown status " + string(t.Status)}
	}
	if t.IsCompleted() != (t.CompletedAt != nil) {
		return &InvalidTaskError{TaskID: t.ID, Reason: "completed_at must be set exactly when status is completed"}
	}
	return nil
}

// Complete returns a copy of the task marked completed at the given instant.
func (t Task) Complete(at time.Time) Task {
	at = at.UTC()
	t.Status = TaskCompleted
	t.CompletedAt = &at
	return t
}

// Reopen returns a copy of the task back in pending state.
func (t Task) Reopen() Task {
	t.Status = TaskPending
	t.CompletedAt = nil
	return t
}

// =============================================================================
// COLLABORATOR
// =============================================================================

type Role string

const (
	RoleCollaborator Role = "collaborator"
	RoleAdmin        Role = "admin"
)

type Collaborator struct {
	ID         CollaboratorID
	Name       string
	Email      string
	Role       Role
	BaseSalary Amount
	CreatedAt  time.Time
}

// =============================================================================
// RECEIPT - Append-only payroll record
// =============================================================================

type Receipt struct {
	ID             ReceiptID
	Reference      string // human-readable, unique, sortable by issue order
	CollaboratorID CollaboratorID
	Period         Month
	BaseSalary     Amount
	OnTimeBonus    Amount
	EarlyBonus     Amount
	Total          Amount
	IdempotencyKey string

	// Audit fields
	IssuedBy string
	IssuedAt time.Time
}

// ReceiptKey is the idempotency key for a collaborator's receipt in a month.
// One receipt per collaborator per month, ever.
func ReceiptKey(collaboratorID CollaboratorID, period Month) string {
	return "receipt:" + string(collaboratorID) + ":" + period.String()
}
