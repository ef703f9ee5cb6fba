/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for demos. Each scenario is a YAML fixture embedded in the binary
  (scenarios/*.yaml) describing collaborators and their tasks.

AVAILABLE SCENARIOS:
  marketing-ninja:  All tasks on time, on-time bonus only
  strategy-master:  All tasks 7+ days early, both bonuses
  pending-work:     An open task blocks every bonus
  grace-window:     Previous-month tasks shown but not evaluated
  team:             Several collaborators for the payroll table

RELATIVE DATES:
  Fixtures never contain absolute dates. A task names a day of the month
  and a month offset from the month of now; completion is given as whole
  days before the deadline (negative means late). The loader resolves
  them against Handler.Clock so a demo always lands in the current month.
  Completion is placed one hour before the resolved instant, so
  completed_days_early: 0 is on time and 7 is exactly early.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "team"}

ADDING NEW SCENARIOS:
  Drop a YAML file into scenarios/. Files load in name order.

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and Clock
*/
package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/visualoscart/payroll-engine/generic"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// =============================================================================
// FIXTURE FORMAT
// =============================================================================

// Scenario is one demo fixture.
type Scenario struct {
	ID            string                 `yaml:"id"`
	Name          string                 `yaml:"name"`
	Description   string                 `yaml:"description"`
	Collaborators []ScenarioCollaborator `yaml:"collaborators"`
	Tasks         []ScenarioTask         `yaml:"tasks"`
}

type ScenarioCollaborator struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	BaseSalary string `yaml:"base_salary"`
	Currency   string `yaml:"currency"`
}

type ScenarioTask struct {
	ID           string `yaml:"id"`
	Collaborator string `yaml:"collaborator"`
	Project      string `yaml:"project"`
	Title        string `yaml:"title"`
	Day          int    `yaml:"day"`
	MonthOffset  int    `yaml:"month_offset"`

	// Nil means the task is still pending.
	CompletedDaysEarly *int `yaml:"completed_days_early"`
}

func (s Scenario) DTO() ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
}

// LoadScenarios parses every embedded fixture, in file name order.
func LoadScenarios() ([]Scenario, error) {
	return loadScenarios(scenarioFS, "scenarios")
}

func loadScenarios(fsys fs.FS, dir string) ([]Scenario, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []Scenario
	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read scenario %s: %w", e.Name(), err)
		}
		var s Scenario
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", e.Name(), err)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %s has no id", e.Name())
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := LoadScenarios()
	if err != nil {
		h.writeDomainError(w, r, "Failed to load scenarios", err)
		return
	}
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = s.DTO()
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	all, err := LoadScenarios()
	if err != nil {
		h.writeDomainError(w, r, "Failed to load scenarios", err)
		return
	}
	for _, s := range all {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.DTO())
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested fixture.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	all, err := LoadScenarios()
	if err != nil {
		h.writeDomainError(w, r, "Failed to load scenarios", err)
		return
	}
	var scenario *Scenario
	for i := range all {
		if all[i].ID == req.ScenarioID {
			scenario = &all[i]
			break
		}
	}
	if scenario == nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	now := h.Clock().UTC()
	if err := h.applyScenario(r.Context(), *scenario, now); err != nil {
		h.writeDomainError(w, r, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = scenario.ID
	h.mu.Unlock()

	h.Logger.InfoContext(r.Context(), "scenario loaded", "scenario", scenario.ID)
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario:      scenario.DTO(),
		Collaborators: len(scenario.Collaborators),
		Tasks:         len(scenario.Tasks),
		Now:           now.Format(time.RFC3339),
	})
}

// applyScenario wipes the store and writes the fixture resolved against now.
func (h *Handler) applyScenario(ctx context.Context, s Scenario, now time.Time) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}

	for _, c := range s.Collaborators {
		collaborator, err := c.resolve(h.Currency)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		if err := h.Store.SaveCollaborator(ctx, collaborator); err != nil {
			return err
		}
	}

	for _, t := range s.Tasks {
		if err := h.Store.SaveTask(ctx, t.resolve(now)); err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
	}
	return nil
}

func (c ScenarioCollaborator) resolve(defaultCurrency generic.Currency) (generic.Collaborator, error) {
	salary, err := decimal.NewFromString(c.BaseSalary)
	if err != nil {
		return generic.Collaborator{}, fmt.Errorf("collaborator %s: invalid base_salary %q: %w", c.ID, c.BaseSalary, err)
	}
	currency := generic.Currency(strings.ToUpper(c.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	role := generic.Role(c.Role)
	if role == "" {
		role = generic.RoleCollaborator
	}
	return generic.Collaborator{
		ID:         generic.CollaboratorID(c.ID),
		Name:       c.Name,
		Email:      c.Email,
		Role:       role,
		BaseSalary: generic.Amount{Value: salary, Currency: currency},
	}, nil
}

// resolve turns the relative fixture into a task. Days past the end of
// the month clamp to its last day.
func (t ScenarioTask) resolve(now time.Time) generic.Task {
	month := generic.MonthOf(now)
	for i := 0; i < t.MonthOffset; i++ {
		month = month.Next()
	}
	for i := 0; i > t.MonthOffset; i-- {
		month = month.Previous()
	}

	day := t.Day
	if last := month.Period().End.Day(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}

	task := generic.Task{
		ID:             generic.TaskID(t.ID),
		CollaboratorID: generic.CollaboratorID(t.Collaborator),
		ProjectID:      generic.ProjectID(t.Project),
		Title:          t.Title,
		Date:           generic.NewTimePoint(month.Year, month.Month, day),
		Status:         generic.TaskPending,
	}
	if t.CompletedDaysEarly != nil {
		at := task.Date.AddDays(-*t.CompletedDaysEarly).Instant().Add(-time.Hour)
		task = task.Complete(at)
	}
	return task
}
