/*
store.go - Persistence interfaces for tasks, collaborators and receipts

PURPOSE:
  Defines the interface between the domain logic and the database.
  The bonus engine never touches these: callers load tasks through a
  TaskStore and hand the slice to the engine. The payroll issuer writes
  receipts through a ReceiptStore.

KEY INTERFACES:
  TaskStore:         Task CRUD, validated at the boundary
  CollaboratorStore: Collaborator records with base salaries
  ReceiptStore:      Append-only payroll receipts

APPEND-ONLY CONTRACT:
  ReceiptStore has no Update or Delete. A receipt, once issued, is final.
  Every receipt carries an idempotency key (one per collaborator and
  month); a second append with the same key fails with
  ErrDuplicateIdempotencyKey.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - payroll/issuer.go: Uses all three interfaces
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import "context"

// =============================================================================
// TASK STORE
// =============================================================================

// TaskStore persists tasks. SaveTask must reject tasks that fail Validate.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	// GetTask returns ErrTaskNotFound when the task does not exist.
	GetTask(ctx context.Context, id TaskID) (Task, error)

	// ListTasks returns every task, ordered by deadline.
	ListTasks(ctx context.Context) ([]Task, error)

	// ListTasksByCollaborator returns a collaborator's tasks, ordered by deadline.
	ListTasksByCollaborator(ctx context.Context, id CollaboratorID) ([]Task, error)

	DeleteTask(ctx context.Context, id TaskID) error
}

// =============================================================================
// COLLABORATOR STORE
// =============================================================================

type CollaboratorStore interface {
	SaveCollaborator(ctx context.Context, c Collaborator) error

	// GetCollaborator returns ErrCollaboratorNotFound when missing.
	GetCollaborator(ctx context.Context, id CollaboratorID) (Collaborator, error)

	ListCollaborators(ctx context.Context) ([]Collaborator, error)
}

// =============================================================================
// RECEIPT STORE - Append-only
// =============================================================================

// ReceiptStore handles persistence of receipts.
// IMPORTANT: append-only. No Update, No Delete.
type ReceiptStore interface {
	// AppendReceipt persists a receipt. Returns ErrDuplicateIdempotencyKey
	// if a receipt with the same key exists.
	AppendReceipt(ctx context.Context, r Receipt) error

	// GetReceiptByKey returns ErrReceiptNotFound when no receipt has the key.
	GetReceiptByKey(ctx context.Context, idempotencyKey string) (Receipt, error)

	// ListReceipts returns receipts ordered by issue time. An empty
	// ReceiptFilter returns everything.
	ListReceipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)
}

type ReceiptFilter struct {
	CollaboratorID *CollaboratorID
	Period         *Month
}

// Matches reports whether r passes the filter.
func (f ReceiptFilter) Matches(r Receipt) bool {
	if f.CollaboratorID != nil && r.CollaboratorID != *f.CollaboratorID {
		return false
	}
	if f.Period != nil && r.Period != *f.Period {
		return false
	}
	return true
}

// Store is everything the API and the issuer need.
type Store interface {
	TaskStore
	CollaboratorStore
	ReceiptStore
}
