/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types use
  CamelCase Go fields; the wire format is snake_case throughout.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Collaborator: CollaboratorDTO, CreateCollaboratorRequest
  Task:         TaskDTO, CreateTaskRequest, CompleteTaskRequest
  Eligibility:  EligibilityDTO, AchievementDTO
  Payroll:      StatementDTO, ReceiptDTO, IssueReceiptRequest, MonthTotalsDTO
  Scheduler:    SchedulerStatusDTO, RunSummaryDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

AMOUNTS:
  Money is serialized as a decimal string ("1510.00") next to a currency
  code, never as a float.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/visualoscart/payroll-engine/bonus"
	"github.com/visualoscart/payroll-engine/generic"
	"github.com/visualoscart/payroll-engine/payroll"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

type CollaboratorDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	BaseSalary string `json:"base_salary"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type CreateCollaboratorRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	BaseSalary string `json:"base_salary"`
	Currency   string `json:"currency"`
}

// =============================================================================
// TASKS
// =============================================================================

type TaskDTO struct {
	ID             string  `json:"id"`
	CollaboratorID string  `json:"collaborator_id"`
	ProjectID      string  `json:"project_id,omitempty"`
	Title          string  `json:"title"`
	Date           string  `json:"date"`
	Status         string  `json:"status"`
	CompletedAt    *string `json:"completed_at"`
}

// CreateTaskRequest creates a task. ID is generated when empty. A task
// created with status "completed" needs completed_at.
type CreateTaskRequest struct {
	ID             string  `json:"id"`
	CollaboratorID string  `json:"collaborator_id"`
	ProjectID      string  `json:"project_id"`
	Title          string  `json:"title"`
	Date           string  `json:"date"`
	Status         string  `json:"status"`
	CompletedAt    *string `json:"completed_at"`
}

// CompleteTaskRequest marks a task done. CompletedAt defaults to the
// server clock.
type CompleteTaskRequest struct {
	CompletedAt *string `json:"completed_at"`
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

type AchievementDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EligibilityDTO is the employee view of the bonus engine.
type EligibilityDTO struct {
	CollaboratorID      string           `json:"collaborator_id"`
	Period              string           `json:"period"`
	EvaluatedAt         string           `json:"evaluated_at"`
	AllTasksCompleted   bool             `json:"all_tasks_completed"`
	IsOnTimeBonus       bool             `json:"is_on_time_bonus"`
	IsEarlyBonus        bool             `json:"is_early_bonus"`
	OnTimeProgressRatio float64          `json:"on_time_progress_ratio"`
	EarlyProgressRatio  float64          `json:"early_progress_ratio"`
	Achievements        []AchievementDTO `json:"achievements"`
	RelevantTasks       []TaskDTO        `json:"relevant_tasks,omitempty"`
	EvaluatedTaskIDs    []string         `json:"evaluated_task_ids,omitempty"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// StatementDTO is one row of the admin payroll table.
type StatementDTO struct {
	Collaborator CollaboratorDTO `json:"collaborator"`
	Eligibility  EligibilityDTO  `json:"eligibility"`
	BaseSalary   string          `json:"base_salary"`
	OnTimeBonus  string          `json:"on_time_bonus"`
	EarlyBonus   string          `json:"early_bonus"`
	Total        string          `json:"total"`
	Currency     string          `json:"currency"`
	Receipt      *ReceiptDTO     `json:"receipt"`
}

type ReceiptDTO struct {
	ID             string `json:"id"`
	Reference      string `json:"reference"`
	CollaboratorID string `json:"collaborator_id"`
	Period         string `json:"period"`
	BaseSalary     string `json:"base_salary"`
	OnTimeBonus    string `json:"on_time_bonus"`
	EarlyBonus     string `json:"early_bonus"`
	Total          string `json:"total"`
	Currency       string `json:"currency"`
	IssuedBy       string `json:"issued_by,omitempty"`
	IssuedAt       string `json:"issued_at"`
}

type IssueReceiptRequest struct {
	IssuedBy string `json:"issued_by"`
}

// IssueReceiptResponse reports whether the receipt was written by this call.
type IssueReceiptResponse struct {
	Receipt       ReceiptDTO `json:"receipt"`
	AlreadyIssued bool       `json:"already_issued"`
}

type MonthTotalsDTO struct {
	Period       string `json:"period"`
	Currency     string `json:"currency"`
	Receipts     int    `json:"receipts"`
	OnTimeAwards int    `json:"on_time_awards"`
	EarlyAwards  int    `json:"early_awards"`
	BaseSalaries string `json:"base_salaries"`
	Bonuses      string `json:"bonuses"`
	Total        string `json:"total"`
}

// SchedulerStatusDTO describes the background payroll scheduler.
type SchedulerStatusDTO struct {
	Enabled       bool           `json:"enabled"`
	Running       bool           `json:"running"`
	CheckInterval string         `json:"check_interval,omitempty"`
	IssueDay      int            `json:"issue_day,omitempty"`
	NextRunAt     *string        `json:"next_run_at"`
	LastRun       *RunSummaryDTO `json:"last_run"`
}

type RunSummaryDTO struct {
	StartedAt string `json:"started_at"`
	Period    string `json:"period"`
	Issued    int    `json:"issued"`
	Skipped   int    `json:"skipped"`
	Waiting   int    `json:"waiting"`
	Failed    int    `json:"failed"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type LoadScenarioResponse struct {
	Scenario      ScenarioDTO `json:"scenario"`
	Collaborators int         `json:"collaborators"`
	Tasks         int         `json:"tasks"`
	Now           string      `json:"now"`
}

// ErrorResponse is the error body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCollaboratorDTO(c generic.Collaborator) CollaboratorDTO {
	dto := CollaboratorDTO{
		ID:         string(c.ID),
		Name:       c.Name,
		Email:      c.Email,
		Role:       string(c.Role),
		BaseSalary: c.BaseSalary.Value.StringFixed(2),
		Currency:   string(c.BaseSalary.Currency),
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toTaskDTO(t generic.Task) TaskDTO {
	dto := TaskDTO{
		ID:             string(t.ID),
		CollaboratorID: string(t.CollaboratorID),
		ProjectID:      string(t.ProjectID),
		Title:          t.Title,
		Date:           t.Date.String(),
		Status:         string(t.Status),
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.UTC().Format(time.RFC3339Nano)
		dto.CompletedAt = &s
	}
	return dto
}

func toTaskDTOs(tasks []generic.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = toTaskDTO(t)
	}
	return dtos
}

// toEligibilityDTO converts a verdict. withTasks adds the relevant task
// list and the evaluated IDs, which the payroll table leaves out.
func toEligibilityDTO(v bonus.Verdict, withTasks bool) EligibilityDTO {
	dto := EligibilityDTO{
		CollaboratorID:      string(v.CollaboratorID),
		Period:              v.Period.String(),
		EvaluatedAt:         v.EvaluatedAt.Format(time.RFC3339Nano),
		AllTasksCompleted:   v.AllTasksCompleted,
		IsOnTimeBonus:       v.IsOnTimeBonus,
		IsEarlyBonus:        v.IsEarlyBonus,
		OnTimeProgressRatio: v.OnTimeProgressRatio,
		EarlyProgressRatio:  v.EarlyProgressRatio,
		Achievements:        []AchievementDTO{},
	}
	for _, a := range bonus.Achievements(v) {
		dto.Achievements = append(dto.Achievements, AchievementDTO{ID: string(a), Title: a.Title()})
	}
	if withTasks {
		dto.RelevantTasks = toTaskDTOs(v.Relevant)
		dto.EvaluatedTaskIDs = make([]string, len(v.Evaluated))
		for i, t := range v.Evaluated {
			dto.EvaluatedTaskIDs[i] = string(t.ID)
		}
	}
	return dto
}

func toReceiptDTO(r generic.Receipt) ReceiptDTO {
	return ReceiptDTO{
		ID:             string(r.ID),
		Reference:      r.Reference,
		CollaboratorID: string(r.CollaboratorID),
		Period:         r.Period.String(),
		BaseSalary:     r.BaseSalary.Value.StringFixed(2),
		OnTimeBonus:    r.OnTimeBonus.Value.StringFixed(2),
		EarlyBonus:     r.EarlyBonus.Value.StringFixed(2),
		Total:          r.Total.Value.StringFixed(2),
		Currency:       string(r.Total.Currency),
		IssuedBy:       r.IssuedBy,
		IssuedAt:       r.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toStatementDTO(s payroll.Statement) StatementDTO {
	dto := StatementDTO{
		Collaborator: toCollaboratorDTO(s.Collaborator),
		Eligibility:  toEligibilityDTO(s.Verdict, false),
		BaseSalary:   s.BaseSalary.Value.StringFixed(2),
		OnTimeBonus:  s.OnTimeBonus.Value.StringFixed(2),
		EarlyBonus:   s.EarlyBonus.Value.StringFixed(2),
		Total:        s.Total.Value.StringFixed(2),
		Currency:     string(s.Total.Currency),
	}
	if s.Issued != nil {
		r := toReceiptDTO(*s.Issued)
		dto.Receipt = &r
	}
	return dto
}

func toMonthTotalsDTO(t payroll.MonthTotals) MonthTotalsDTO {
	return MonthTotalsDTO{
		Period:       t.Period.String(),
		Currency:     string(t.Currency),
		Receipts:     t.Receipts,
		OnTimeAwards: t.OnTimeAwards,
		EarlyAwards:  t.EarlyAwards,
		BaseSalaries: t.BaseSalaries.StringFixed(2),
		Bonuses:      t.Bonuses.StringFixed(2),
		Total:        t.Total.StringFixed(2),
	}
}

func toSchedulerStatusDTO(ps *PayrollScheduler) SchedulerStatusDTO {
	dto := SchedulerStatusDTO{
		Enabled:       ps.Enabled,
		Running:       ps.Running(),
		CheckInterval: ps.CheckInterval.String(),
		IssueDay:      ps.IssueDay,
	}
	if next, ok := ps.NextRunTime(); ok {
		s := next.UTC().Format(time.RFC3339Nano)
		dto.NextRunAt = &s
	}
	if last, ok := ps.LastRun(); ok {
		dto.LastRun = &RunSummaryDTO{
			StartedAt: last.StartedAt.UTC().Format(time.RFC3339Nano),
			Period:    last.Period.String(),
			Issued:    last.Issued,
			Skipped:   last.Skipped,
			Waiting:   last.Waiting,
			Failed:    last.Failed,
		}
	}
	return dto
}
