// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/visualoscart/payroll-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	tasks         map[generic.TaskID]generic.Task
	collaborators map[generic.CollaboratorID]generic.Collaborator
	receipts      []generic.Receipt
	idempotency   map[string]int // key -> index into receipts
}

func NewMemory() *Memory {
	return &Memory{
		tasks:         make(map[generic.TaskID]generic.Task),
		collaborators: make(map[generic.CollaboratorID]generic.Collaborator),
		idempotency:   make(map[string]int),
	}
}

var _ generic.Store = (*Memory)(nil)

// =============================================================================
// TASKS
// =============================================================================

func (m *Memory) SaveTask(_ context.Context, task generic.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *Memory) GetTask(_ context.Context, id generic.TaskID) (generic.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return generic.Task{}, generic.ErrTaskNotFound
	}
	return t, nil
}

func (m *Memory) ListTasks(_ context.Context) ([]generic.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTasks(func(generic.Task) bool { return true }), nil
}

func (m *Memory) ListTasksByCollaborator(_ context.Context, id generic.CollaboratorID) ([]generic.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTasks(func(t generic.Task) bool { return t.CollaboratorID == id }), nil
}

func (m *Memory) DeleteTask(_ context.Context, id generic.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return generic.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *Memory) sortedTasks(keep func(generic.Task) bool) []generic.Task {
	result := make([]generic.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if keep(t) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

// =============================================================================
// COLLABORATORS
// =============================================================================

func (m *Memory) SaveCollaborator(_ context.Context, c generic.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collaborators[c.ID] = c
	return nil
}

func (m *Memory) GetCollaborator(_ context.Context, id generic.CollaboratorID) (generic.Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collaborators[id]
	if !ok {
		return generic.Collaborator{}, generic.ErrCollaboratorNotFound
	}
	return c, nil
}

func (m *Memory) ListCollaborators(_ context.Context) ([]generic.Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.Collaborator, 0, len(m.collaborators))
	for _, c := range m.collaborators {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// RECEIPTS - Append-only
// =============================================================================

// AppendReceipt adds a receipt. Append-only.
func (m *Memory) AppendReceipt(_ context.Context, r generic.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.IdempotencyKey != "" {
		if _, ok := m.idempotency[r.IdempotencyKey]; ok {
			return generic.ErrDuplicateIdempotencyKey
		}
		m.idempotency[r.IdempotencyKey] = len(m.receipts)
	}
	m.receipts = append(m.receipts, r)
	return nil
}

func (m *Memory) GetReceiptByKey(_ context.Context, idempotencyKey string) (generic.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.idempotency[idempotencyKey]
	if !ok {
		return generic.Receipt{}, generic.ErrReceiptNotFound
	}
	return m.receipts[i], nil
}

func (m *Memory) ListReceipts(_ context.Context, filter generic.ReceiptFilter) ([]generic.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.Receipt
	for _, r := range m.receipts {
		if filter.Matches(r) {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].IssuedAt.Before(result[j].IssuedAt) })
	return result, nil
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[generic.TaskID]generic.Task)
	m.collaborators = make(map[generic.CollaboratorID]generic.Collaborator)
	m.receipts = nil
	m.idempotency = make(map[string]int)
	return nil
}
