/*
handlers.go - HTTP API handlers for tasks, eligibility and payroll

PURPOSE:
  Exposes the bonus engine and the payroll issuer via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Collaborators:
    GET    /api/collaborators                  List all collaborators
    POST   /api/collaborators                  Create or update a collaborator
    GET    /api/collaborators/{id}             Get collaborator details
    GET    /api/collaborators/{id}/tasks       Tasks assigned to a collaborator
    GET    /api/collaborators/{id}/eligibility Bonus verdict (employee view)

  Tasks:
    GET    /api/tasks                          List all tasks
    POST   /api/tasks                          Create a task
    POST   /api/tasks/{id}/complete            Mark done (sets completed_at)
    POST   /api/tasks/{id}/reopen              Back to pending (clears completed_at)
    DELETE /api/tasks/{id}                     Delete a task

  Payroll (admin):
    GET    /api/payroll                        Payroll table for the current month
    POST   /api/payroll/{id}/issue             Issue the month's receipt
    GET    /api/receipts                       Receipt history
    GET    /api/receipts/summary               Monthly expense totals

TIME:
  Handlers never call time.Now directly. Every "now" comes from Clock so
  that tests and demo scenarios can pin the evaluation instant. The
  eligibility and payroll endpoints also accept ?now=RFC3339.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Role checks belong to the fronting gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/visualoscart/payroll-engine/bonus"
	"github.com/visualoscart/payroll-engine/generic"
	"github.com/visualoscart/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: the domain stores plus Reset
// for demo scenarios.
type Store interface {
	generic.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Issuer *payroll.Issuer

	// Scheduler is reported by the status endpoint; nil when not wired.
	Scheduler *PayrollScheduler

	// Clock supplies "now" for every evaluation.
	Clock    func() time.Time
	Currency generic.Currency
	Logger   *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and issuer.
func NewHandler(store Store, issuer *payroll.Issuer) *Handler {
	return &Handler{
		Store:    store,
		Issuer:   issuer,
		Clock:    time.Now,
		Currency: generic.CurrencyEUR,
		Logger:   slog.Default(),
	}
}

// now returns the ?now= override if present, otherwise the clock.
func (h *Handler) now(r *http.Request) (time.Time, error) {
	if s := r.URL.Query().Get("now"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("now must be RFC3339: %w", err)
		}
		return t.UTC(), nil
	}
	return h.Clock().UTC(), nil
}

// =============================================================================
// COLLABORATOR HANDLERS
// =============================================================================

// ListCollaborators returns all collaborators.
func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := h.Store.ListCollaborators(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list collaborators", err)
		return
	}

	dtos := make([]CollaboratorDTO, len(collaborators))
	for i, c := range collaborators {
		dtos[i] = toCollaboratorDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCollaborator returns a single collaborator.
func (h *Handler) GetCollaborator(w http.ResponseWriter, r *http.Request) {
	id := generic.CollaboratorID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCollaborator(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get collaborator", err)
		return
	}
	writeJSON(w, http.StatusOK, toCollaboratorDTO(c))
}

// CreateCollaborator creates or updates a collaborator.
func (h *Handler) CreateCollaborator(w http.ResponseWriter, r *http.Request) {
	var req CreateCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	salary := decimal.Zero
	if req.BaseSalary != "" {
		var err error
		if salary, err = decimal.NewFromString(req.BaseSalary); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid base_salary (use a decimal string)", err)
			return
		}
	}
	role := generic.Role(req.Role)
	switch role {
	case "":
		role = generic.RoleCollaborator
	case generic.RoleCollaborator, generic.RoleAdmin:
	default:
		writeError(w, http.StatusBadRequest, "role must be collaborator or admin", nil)
		return
	}

	currency := generic.Currency(strings.ToUpper(req.Currency))
	if currency == "" {
		currency = h.Currency
	}

	c := generic.Collaborator{
		ID:         generic.CollaboratorID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		Role:       role,
		BaseSalary: generic.Amount{Value: salary, Currency: currency},
	}
	if c.BaseSalary.IsNegative() {
		writeError(w, http.StatusBadRequest, "base_salary cannot be negative", nil)
		return
	}
	if err := h.Store.SaveCollaborator(r.Context(), c); err != nil {
		h.writeDomainError(w, r, "Failed to save collaborator", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCollaboratorDTO(c))
}

// ListCollaboratorTasks returns the tasks assigned to a collaborator.
func (h *Handler) ListCollaboratorTasks(w http.ResponseWriter, r *http.Request) {
	id := generic.CollaboratorID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetCollaborator(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get collaborator", err)
		return
	}
	tasks, err := h.Store.ListTasksByCollaborator(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// GetEligibility runs the bonus engine for one collaborator.
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	id := generic.CollaboratorID(chi.URLParam(r, "id"))

	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid now parameter", err)
		return
	}
	if _, err := h.Store.GetCollaborator(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get collaborator", err)
		return
	}
	tasks, err := h.Store.ListTasksByCollaborator(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list tasks", err)
		return
	}

	verdict := bonus.ComputeEligibility(tasks, id, now)
	writeJSON(w, http.StatusOK, toEligibilityDTO(verdict, true))
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns every task.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// CreateTask creates a task for an existing collaborator.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	status := generic.TaskPending
	if req.Status != "" {
		var ok bool
		if status, ok = generic.ParseTaskStatus(req.Status); !ok {
			writeError(w, http.StatusBadRequest, "status must be pending or completed", nil)
			return
		}
	}

	if req.ID == "" {
		req.ID = "task-" + uuid.NewString()
	}
	task := generic.Task{
		ID:             generic.TaskID(req.ID),
		CollaboratorID: generic.CollaboratorID(req.CollaboratorID),
		ProjectID:      generic.ProjectID(req.ProjectID),
		Title:          req.Title,
		Date:           date,
		Status:         status,
	}
	if req.CompletedAt != nil {
		at, err := time.Parse(time.RFC3339, *req.CompletedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid completed_at (use RFC3339)", err)
			return
		}
		at = at.UTC()
		task.CompletedAt = &at
	}

	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task", err)
		return
	}
	if _, err := h.Store.GetCollaborator(r.Context(), task.CollaboratorID); err != nil {
		h.writeDomainError(w, r, "Failed to get collaborator", err)
		return
	}
	if err := h.Store.SaveTask(r.Context(), task); err != nil {
		h.writeDomainError(w, r, "Failed to save task", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

// CompleteTask marks a task as done at the given instant (default: now).
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id := generic.TaskID(chi.URLParam(r, "id"))

	var req CompleteTaskRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at := h.Clock()
	if req.CompletedAt != nil {
		var err error
		if at, err = time.Parse(time.RFC3339Nano, *req.CompletedAt); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid completed_at (use RFC3339)", err)
			return
		}
	}

	task, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get task", err)
		return
	}
	task = task.Complete(at)
	if err := h.Store.SaveTask(r.Context(), task); err != nil {
		h.writeDomainError(w, r, "Failed to save task", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// ReopenTask puts a task back into pending state.
func (h *Handler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	id := generic.TaskID(chi.URLParam(r, "id"))

	task, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get task", err)
		return
	}
	task = task.Reopen()
	if err := h.Store.SaveTask(r.Context(), task); err != nil {
		h.writeDomainError(w, r, "Failed to save task", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := generic.TaskID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteTask(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayroll returns the payroll table for the month of now.
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid now parameter", err)
		return
	}

	rows, err := h.Issuer.PayrollTable(r.Context(), now)
	if err != nil {
		h.writeDomainError(w, r, "Failed to build payroll", err)
		return
	}

	dtos := make([]StatementDTO, len(rows))
	for i, s := range rows {
		dtos[i] = toStatementDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueReceipt issues the month's receipt for a collaborator. Issuing
// twice is not an error: the existing receipt comes back with
// already_issued set.
func (h *Handler) IssueReceipt(w http.ResponseWriter, r *http.Request) {
	id := generic.CollaboratorID(chi.URLParam(r, "id"))

	var req IssueReceiptRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.IssuedBy == "" {
		req.IssuedBy = "admin"
	}

	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid now parameter", err)
		return
	}

	receipt, err := h.Issuer.Issue(r.Context(), id, req.IssuedBy, now)
	switch {
	case errors.Is(err, generic.ErrAlreadyIssued):
		writeJSON(w, http.StatusOK, IssueReceiptResponse{Receipt: toReceiptDTO(receipt), AlreadyIssued: true})
	case err != nil:
		h.writeDomainError(w, r, "Failed to issue receipt", err)
	default:
		writeJSON(w, http.StatusCreated, IssueReceiptResponse{Receipt: toReceiptDTO(receipt)})
	}
}

// GetSchedulerStatus reports the payroll scheduler's state and its last pass.
func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, SchedulerStatusDTO{})
		return
	}
	writeJSON(w, http.StatusOK, toSchedulerStatusDTO(h.Scheduler))
}

// ListReceipts returns issued receipts, optionally for one collaborator.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	var filter generic.ReceiptFilter
	if id := r.URL.Query().Get("collaborator_id"); id != "" {
		cid := generic.CollaboratorID(id)
		filter.CollaboratorID = &cid
	}
	if p := r.URL.Query().Get("period"); p != "" {
		m, err := generic.ParseMonth(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
			return
		}
		filter.Period = &m
	}

	receipts, err := h.Store.ListReceipts(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list receipts", err)
		return
	}

	dtos := make([]ReceiptDTO, len(receipts))
	for i, rc := range receipts {
		dtos[i] = toReceiptDTO(rc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReceiptSummary returns the expense totals of one month
// (?year=&month=, default: the current month).
func (h *Handler) GetReceiptSummary(w http.ResponseWriter, r *http.Request) {
	period := generic.MonthOf(h.Clock())
	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		year, yErr := strconv.Atoi(q.Get("year"))
		month, mErr := strconv.Atoi(q.Get("month"))
		period = generic.Month{Year: year, Month: time.Month(month)}
		if yErr != nil || mErr != nil || !period.IsValid() {
			writeError(w, http.StatusBadRequest, "year and month must be given together (month 1-12)", generic.ErrInvalidPeriod)
			return
		}
	}

	currency := h.Currency
	if c := q.Get("currency"); c != "" {
		currency = generic.Currency(strings.ToUpper(c))
	}

	receipts, err := h.Store.ListReceipts(r.Context(), generic.ReceiptFilter{Period: &period})
	if err != nil {
		h.writeDomainError(w, r, "Failed to list receipts", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthTotalsDTO(payroll.MonthlyTotals(receipts, period, currency)))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeOptionalBody decodes a JSON body that may be absent. The body is
// always read: chunked requests report ContentLength -1.
func decodeOptionalBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes. Anything
// unrecognized is a 500 and gets logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
