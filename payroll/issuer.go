/*
Package payroll turns bonus verdicts into receipts.

PURPOSE:
  The Issuer is the admin-facing call site of the bonus engine. For one
  collaborator and the month of now it loads the tasks, runs
  bonus.ComputeEligibility, adds the bonuses to the collaborator's base
  salary and appends an immutable receipt.

ISSUANCE RULES:
  - on-time verdict  -> +10
  - early verdict    -> +20 (stacks with on-time)
  - total            =  base salary + bonuses
  - One receipt per collaborator per month. Issuing again returns the
    existing receipt together with generic.ErrAlreadyIssued; the engine
    result is never used to rewrite a receipt.

REFERENCES:
  Every receipt gets a human-readable reference REC-<YYYYMM>-<ULID>.
  ULIDs sort by creation time and are monotonic within a process, so
  references are unique and ordered by issue time.

USAGE:
  issuer := payroll.NewIssuer(store, store, store)
  stmt, err := issuer.Preview(ctx, "collab-7", time.Now())
  receipt, err := issuer.Issue(ctx, "collab-7", "admin-1", time.Now())

SEE ALSO:
  - bonus/eligibility.go: The engine
  - summary.go: Monthly totals over receipts
  - api/scheduler.go: Periodic issuance
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/iter"

	"github.com/visualoscart/payroll-engine/bonus"
	"github.com/visualoscart/payroll-engine/generic"
)

// =============================================================================
// STATEMENT - Preview of what a receipt would contain
// =============================================================================

// Statement is the payroll line for one collaborator in one month.
type Statement struct {
	Collaborator generic.Collaborator
	Verdict      bonus.Verdict
	Achievements []bonus.Achievement

	BaseSalary  generic.Amount
	OnTimeBonus generic.Amount
	EarlyBonus  generic.Amount
	Total       generic.Amount

	// Issued is the receipt already on file for this month, if any.
	Issued *generic.Receipt
}

// =============================================================================
// ISSUER
// =============================================================================

type Issuer struct {
	tasks         generic.TaskStore
	collaborators generic.CollaboratorStore
	receipts      generic.ReceiptStore

	currency generic.Currency
	logger   *slog.Logger
}

type Option func(*Issuer)

// WithCurrency sets the currency used when a collaborator's salary has none.
func WithCurrency(c generic.Currency) Option {
	return func(i *Issuer) { i.currency = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

func NewIssuer(tasks generic.TaskStore, collaborators generic.CollaboratorStore, receipts generic.ReceiptStore, opts ...Option) *Issuer {
	i := &Issuer{
		tasks:         tasks,
		collaborators: collaborators,
		receipts:      receipts,
		currency:      generic.CurrencyEUR,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Preview computes the statement for a collaborator without writing anything.
func (i *Issuer) Preview(ctx context.Context, id generic.CollaboratorID, now time.Time) (Statement, error) {
	c, err := i.collaborators.GetCollaborator(ctx, id)
	if err != nil {
		return Statement{}, fmt.Errorf("load collaborator %s: %w", id, err)
	}
	tasks, err := i.tasks.ListTasksByCollaborator(ctx, id)
	if err != nil {
		return Statement{}, fmt.Errorf("load tasks for %s: %w", id, err)
	}

	stmt := i.statement(c, tasks, now)

	existing, err := i.receipts.GetReceiptByKey(ctx, generic.ReceiptKey(id, stmt.Verdict.Period))
	switch {
	case err == nil:
		stmt.Issued = &existing
	case !errors.Is(err, generic.ErrReceiptNotFound):
		return Statement{}, fmt.Errorf("load receipt for %s: %w", id, err)
	}
	return stmt, nil
}

// Issue appends the receipt for the month of now. If one already exists it
// is returned with an error wrapping generic.ErrAlreadyIssued.
func (i *Issuer) Issue(ctx context.Context, id generic.CollaboratorID, issuedBy string, now time.Time) (generic.Receipt, error) {
	stmt, err := i.Preview(ctx, id, now)
	if err != nil {
		return generic.Receipt{}, err
	}
	if stmt.Issued != nil {
		return *stmt.Issued, fmt.Errorf("%s for %s: %w", id, stmt.Verdict.Period, generic.ErrAlreadyIssued)
	}

	receipt := newReceipt(stmt, issuedBy, now)
	if err := i.receipts.AppendReceipt(ctx, receipt); err != nil {
		if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent issue for the same month.
			existing, getErr := i.receipts.GetReceiptByKey(ctx, receipt.IdempotencyKey)
			if getErr != nil {
				return generic.Receipt{}, fmt.Errorf("load receipt for %s: %w", id, getErr)
			}
			return existing, fmt.Errorf("%s for %s: %w", id, stmt.Verdict.Period, generic.ErrAlreadyIssued)
		}
		return generic.Receipt{}, fmt.Errorf("append receipt for %s: %w", id, err)
	}

	i.logger.InfoContext(ctx, "receipt issued",
		"reference", receipt.Reference,
		"collaborator_id", string(id),
		"period", receipt.Period.String(),
		"total", receipt.Total.String(),
		"issued_by", issuedBy,
	)
	return receipt, nil
}

// PayrollTable returns one statement per collaborator for the month of now.
// Rows are computed concurrently; each is an independent engine call.
func (i *Issuer) PayrollTable(ctx context.Context, now time.Time) ([]Statement, error) {
	collaborators, err := i.collaborators.ListCollaborators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	tasks, err := i.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	period := generic.MonthOf(now)
	issued, err := i.receipts.ListReceipts(ctx, generic.ReceiptFilter{Period: &period})
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	byCollaborator := make(map[generic.CollaboratorID]generic.Receipt, len(issued))
	for _, r := range issued {
		byCollaborator[r.CollaboratorID] = r
	}

	return iter.Map(collaborators, func(c *generic.Collaborator) Statement {
		stmt := i.statement(*c, tasks, now)
		if r, ok := byCollaborator[c.ID]; ok {
			stmt.Issued = &r
		}
		return stmt
	}), nil
}

func (i *Issuer) statement(c generic.Collaborator, tasks []generic.Task, now time.Time) Statement {
	v := bonus.ComputeEligibility(tasks, c.ID, now)
	onTime, early := bonus.Amounts(v)

	currency := c.BaseSalary.Currency
	if currency == "" {
		currency = i.currency
	}
	base := generic.Amount{Value: c.BaseSalary.Value, Currency: currency}
	onTimeAmount := generic.Amount{Value: onTime, Currency: currency}
	earlyAmount := generic.Amount{Value: early, Currency: currency}

	return Statement{
		Collaborator: c,
		Verdict:      v,
		Achievements: bonus.Achievements(v),
		BaseSalary:   base,
		OnTimeBonus:  onTimeAmount,
		EarlyBonus:   earlyAmount,
		Total:        base.Add(onTimeAmount).Add(earlyAmount),
	}
}

func newReceipt(stmt Statement, issuedBy string, now time.Time) generic.Receipt {
	period := stmt.Verdict.Period
	return generic.Receipt{
		ID:             generic.ReceiptID(uuid.NewString()),
		Reference:      NewReference(period),
		CollaboratorID: stmt.Collaborator.ID,
		Period:         period,
		BaseSalary:     stmt.BaseSalary,
		OnTimeBonus:    stmt.OnTimeBonus,
		EarlyBonus:     stmt.EarlyBonus,
		Total:          stmt.Total,
		IdempotencyKey: generic.ReceiptKey(stmt.Collaborator.ID, period),
		IssuedBy:       issuedBy,
		IssuedAt:       now.UTC(),
	}
}

// NewReference builds a receipt reference such as REC-202503-01JQ3...
func NewReference(period generic.Month) string {
	return fmt.Sprintf("REC-%04d%02d-%s", period.Year, int(period.Month), ulid.Make().String())
}

// ParseReference extracts the period a reference was issued for.
func ParseReference(ref string) (generic.Month, error) {
	parts := strings.SplitN(ref, "-", 3)
	if len(parts) != 3 || parts[0] != "REC" || len(parts[1]) != 6 {
		return generic.Month{}, fmt.Errorf("%w: reference %q", generic.ErrInvalidPeriod, ref)
	}
	if _, err := ulid.ParseStrict(parts[2]); err != nil {
		return generic.Month{}, fmt.Errorf("%w: reference %q", generic.ErrInvalidPeriod, ref)
	}
	return generic.ParseMonth(parts[1][:4] + "-" + parts[1][4:])
}
