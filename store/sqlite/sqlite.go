/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TaskStore, generic.CollaboratorStore and
  generic.ReceiptStore on SQLite. Columns are snake_case, Go fields are
  CamelCase; the mapping lives in the scan/insert helpers below.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements touch the receipts table
  - idempotency_key is UNIQUE: one receipt per collaborator per month

KEY TABLES:
  collaborators: People on payroll, with base salary (decimal as TEXT)
  tasks:         Assigned work; date is YYYY-MM-DD, completed_at RFC3339 or NULL
  receipts:      Immutable payroll records

TASK INVARIANT:
  SaveTask validates the task (generic.Task.Validate) and the schema
  backs it with a CHECK: completed_at IS NOT NULL exactly when
  status = 'completed'.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode.

USAGE:
  store, err := sqlite.New("./data/oscart.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/visualoscart/payroll-engine/generic"
)

// timestampLayout is RFC3339 with fixed-width nanoseconds so stored
// timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Collaborators
	CREATE TABLE IF NOT EXISTS collaborators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'collaborator',
		base_salary TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Tasks
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		collaborator_id TEXT NOT NULL,
		project_id TEXT,
		title TEXT,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed')),
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK ((status = 'completed') = (completed_at IS NOT NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_collaborator_date
		ON tasks(collaborator_id, date);

	-- Receipts (append-only)
	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		collaborator_id TEXT NOT NULL,
		period TEXT NOT NULL,
		currency TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		on_time_bonus TEXT NOT NULL,
		early_bonus TEXT NOT NULL,
		total TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		issued_by TEXT,
		issued_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_collaborator
		ON receipts(collaborator_id, period);
	CREATE INDEX IF NOT EXISTS idx_receipts_period
		ON receipts(period);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"receipts", "tasks", "collaborators"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// TASK STORE
// =============================================================================

const taskColumns = `id, collaborator_id, project_id, title, date, status, completed_at, created_at, updated_at`

// SaveTask inserts or replaces a task after validating it.
func (s *Store) SaveTask(ctx context.Context, task generic.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collaborator_id = excluded.collaborator_id,
			project_id = excluded.project_id,
			title = excluded.title,
			date = excluded.date,
			status = excluded.status,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(timestampLayout)
	var completedAt sql.NullString
	if task.CompletedAt != nil {
		completedAt = sql.NullString{String: task.CompletedAt.UTC().Format(timestampLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.CollaboratorID,
		nullString(string(task.ProjectID)),
		task.Title,
		task.Date.String(),
		task.Status,
		completedAt,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id generic.TaskID) (generic.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Task{}, generic.ErrTaskNotFound
	}
	return task, err
}

// ListTasks returns all tasks ordered by deadline.
func (s *Store) ListTasks(ctx context.Context) ([]generic.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY date ASC, id ASC")
}

// ListTasksByCollaborator returns a collaborator's tasks ordered by deadline.
func (s *Store) ListTasksByCollaborator(ctx context.Context, id generic.CollaboratorID) ([]generic.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE collaborator_id = ? ORDER BY date ASC, id ASC",
		id,
	)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id generic.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrTaskNotFound
	}
	return nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]generic.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []generic.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (generic.Task, error) {
	var (
		task        generic.Task
		projectID   sql.NullString
		title       sql.NullString
		date        string
		status      string
		completedAt sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(&task.ID, &task.CollaboratorID, &projectID, &title, &date, &status, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task, err
		}
		return task, fmt.Errorf("failed to scan task: %w", err)
	}

	task.ProjectID = generic.ProjectID(projectID.String)
	task.Title = title.String
	task.Status = generic.TaskStatus(status)
	if task.Date, err = generic.ParseDate(date); err != nil {
		return task, fmt.Errorf("task %s has malformed date %q: %w", task.ID, date, err)
	}
	if completedAt.Valid {
		t, err := parseTimestamp("task", string(task.ID), "completed_at", completedAt.String)
		if err != nil {
			return task, err
		}
		task.CompletedAt = &t
	}
	if task.CreatedAt, err = parseTimestamp("task", string(task.ID), "created_at", createdAt); err != nil {
		return task, err
	}
	if task.UpdatedAt, err = parseTimestamp("task", string(task.ID), "updated_at", updatedAt); err != nil {
		return task, err
	}
	return task, nil
}

// =============================================================================
// COLLABORATOR STORE
// =============================================================================

// SaveCollaborator inserts or updates a collaborator.
func (s *Store) SaveCollaborator(ctx context.Context, c generic.Collaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO collaborators (id, name, email, role, base_salary, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			base_salary = excluded.base_salary,
			currency = excluded.currency
	`

	role := c.Role
	if role == "" {
		role = generic.RoleCollaborator
	}
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, role,
		c.BaseSalary.Value.String(), c.BaseSalary.Currency,
		time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save collaborator: %w", err)
	}
	return nil
}

// GetCollaborator retrieves a collaborator by ID.
func (s *Store) GetCollaborator(ctx context.Context, id generic.CollaboratorID) (generic.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, base_salary, currency, created_at FROM collaborators WHERE id = ?",
		id,
	)
	c, err := scanCollaborator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Collaborator{}, generic.ErrCollaboratorNotFound
	}
	return c, err
}

// ListCollaborators returns all collaborators ordered by name.
func (s *Store) ListCollaborators(ctx context.Context) ([]generic.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, role, base_salary, currency, created_at FROM collaborators ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := []generic.Collaborator{}
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}

func scanCollaborator(row scanner) (generic.Collaborator, error) {
	var (
		c          generic.Collaborator
		email      sql.NullString
		role       string
		baseSalary string
		currency   string
		createdAt  string
	)
	if err := row.Scan(&c.ID, &c.Name, &email, &role, &baseSalary, &currency, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan collaborator: %w", err)
	}
	c.Email = email.String
	c.Role = generic.Role(role)
	var err error
	if c.BaseSalary, err = parseAmount("collaborator", string(c.ID), "base_salary", baseSalary, currency); err != nil {
		return c, err
	}
	if c.CreatedAt, err = parseTimestamp("collaborator", string(c.ID), "created_at", createdAt); err != nil {
		return c, err
	}
	return c, nil
}

// =============================================================================
// RECEIPT STORE (append-only)
// =============================================================================

const receiptColumns = `id, reference, collaborator_id, period, currency, base_salary, on_time_bonus, early_bonus, total, idempotency_key, issued_by, issued_at`

// AppendReceipt adds a receipt. Fails with ErrDuplicateIdempotencyKey when
// the collaborator already has a receipt for the period.
func (s *Store) AppendReceipt(ctx context.Context, r generic.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO receipts (` + receiptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Reference,
		r.CollaboratorID,
		r.Period.String(),
		r.Total.Currency,
		r.BaseSalary.Value.String(),
		r.OnTimeBonus.Value.String(),
		r.EarlyBonus.Value.String(),
		r.Total.Value.String(),
		nullString(r.IdempotencyKey),
		r.IssuedBy,
		r.IssuedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append receipt: %w", err)
	}
	return nil
}

// GetReceiptByKey retrieves the receipt with the given idempotency key.
func (s *Store) GetReceiptByKey(ctx context.Context, idempotencyKey string) (generic.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+receiptColumns+" FROM receipts WHERE idempotency_key = ?",
		idempotencyKey,
	)
	if err != nil {
		return generic.Receipt{}, fmt.Errorf("failed to query receipt: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return generic.Receipt{}, err
		}
		return generic.Receipt{}, generic.ErrReceiptNotFound
	}
	return scanReceipt(rows)
}

// ListReceipts returns receipts matching the filter, in issue order.
func (s *Store) ListReceipts(ctx context.Context, filter generic.ReceiptFilter) ([]generic.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.CollaboratorID != nil {
		where = append(where, "collaborator_id = ?")
		args = append(args, *filter.CollaboratorID)
	}
	if filter.Period != nil {
		where = append(where, "period = ?")
		args = append(args, filter.Period.String())
	}

	query := "SELECT " + receiptColumns + " FROM receipts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY issued_at ASC, reference ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []generic.Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func scanReceipt(row scanner) (generic.Receipt, error) {
	var (
		r              generic.Receipt
		period         string
		currency       string
		baseSalary     string
		onTimeBonus    string
		earlyBonus     string
		total          string
		idempotencyKey sql.NullString
		issuedBy       sql.NullString
		issuedAt       string
	)
	err := row.Scan(&r.ID, &r.Reference, &r.CollaboratorID, &period, &currency,
		&baseSalary, &onTimeBonus, &earlyBonus, &total, &idempotencyKey, &issuedBy, &issuedAt)
	if err != nil {
		return r, fmt.Errorf("failed to scan receipt: %w", err)
	}

	if r.Period, err = generic.ParseMonth(period); err != nil {
		return r, err
	}
	amounts := []struct {
		column string
		value  string
		dst    *generic.Amount
	}{
		{"base_salary", baseSalary, &r.BaseSalary},
		{"on_time_bonus", onTimeBonus, &r.OnTimeBonus},
		{"early_bonus", earlyBonus, &r.EarlyBonus},
		{"total", total, &r.Total},
	}
	for _, a := range amounts {
		if *a.dst, err = parseAmount("receipt", string(r.ID), a.column, a.value, currency); err != nil {
			return r, err
		}
	}
	r.IdempotencyKey = idempotencyKey.String
	r.IssuedBy = issuedBy.String
	if r.IssuedAt, err = parseTimestamp("receipt", string(r.ID), "issued_at", issuedAt); err != nil {
		return r, err
	}
	return r, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseTimestamp reads a stored timestamp. Both the fixed-width layout and
// plain RFC3339 parse with RFC3339Nano.
func parseTimestamp(kind, id, column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %s has malformed %s %q: %w", kind, id, column, value, err)
	}
	return t.UTC(), nil
}

func parseAmount(kind, id, column, value, currency string) (generic.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("%s %s has malformed %s %q: %w", kind, id, column, value, err)
	}
	return generic.Amount{Value: d, Currency: generic.Currency(currency)}, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
