// Package store holds the ordered list of upload tasks. Every mutation is an
// id-keyed merge computed by the pure Apply function, so updates for different
// tasks can land in any order without clobbering each other.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/moyoez/scandrop/types"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrDuplicateID       = errors.New("task id already exists")
	ErrTaskFinished      = errors.New("task already finished")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTicketImmutable   = errors.New("ticket id already set")
	ErrErrorWithoutFail  = errors.New("error detail requires failed status")
)

var transitions = map[types.TaskStatus][]types.TaskStatus{
	types.StatusPending:   {types.StatusPending, types.StatusUploading, types.StatusFailed},
	types.StatusUploading: {types.StatusUploading, types.StatusScanning, types.StatusCompleted, types.StatusFailed},
	types.StatusScanning:  {types.StatusScanning, types.StatusCompleted, types.StatusFailed},
}

// CanTransition reports whether a task in from may move to to.
// Terminal states have no outgoing edges.
func CanTransition(from, to types.TaskStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Merge applies patch to task and returns the new record. task is not modified.
func Merge(task types.UploadTask, patch types.TaskPatch, now time.Time) (types.UploadTask, error) {
	if task.Status.IsTerminal() {
		return task, fmt.Errorf("%w: %s is %s", ErrTaskFinished, task.ID, task.Status)
	}
	next := task
	if patch.Status != nil {
		if !CanTransition(task.Status, *patch.Status) {
			return task, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, *patch.Status)
		}
		next.Status = *patch.Status
	}
	if patch.TicketID != nil {
		if task.TicketID != "" && task.TicketID != *patch.TicketID {
			return task, ErrTicketImmutable
		}
		next.TicketID = *patch.TicketID
	}
	if patch.Error != nil {
		if next.Status != types.StatusFailed {
			return task, ErrErrorWithoutFail
		}
		next.Error = *patch.Error
	}
	if patch.Message != nil {
		next.Message = *patch.Message
	}
	if patch.Progress != nil {
		next.Progress = min(max(*patch.Progress, 0), 100)
	}
	next.UpdatedAt = now
	return next, nil
}

// Apply returns a new task list with patch merged into the task identified by id.
// The input slice is never modified.
func Apply(tasks []types.UploadTask, id string, patch types.TaskPatch, now time.Time) ([]types.UploadTask, types.UploadTask, error) {
	idx := slices.IndexFunc(tasks, func(t types.UploadTask) bool { return t.ID == id })
	if idx < 0 {
		return tasks, types.UploadTask{}, ErrTaskNotFound
	}
	next, err := Merge(tasks[idx], patch, now)
	if err != nil {
		return tasks, tasks[idx], err
	}
	out := slices.Clone(tasks)
	out[idx] = next
	return out, next, nil
}

// ChangeKind identifies a store mutation.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
	ChangeCleared
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "cleared"
	}
}

// Change describes one mutation. Task is set for added/updated/removed,
// Removed lists every task dropped by a clear.
type Change struct {
	Kind    ChangeKind
	Task    types.UploadTask
	Removed []types.UploadTask
}

// Store is the single source of truth for task state.
type Store struct {
	mu       sync.RWMutex
	tasks    []types.UploadTask
	listener func(Change)
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// OnChange registers the listener called after every mutation, outside the lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

func (s *Store) emit(c Change) {
	s.mu.RLock()
	fn := s.listener
	s.mu.RUnlock()
	if fn != nil {
		fn(c)
	}
}

// Add appends a task. Ids are never reused.
func (s *Store) Add(task types.UploadTask) error {
	s.mu.Lock()
	if slices.ContainsFunc(s.tasks, func(t types.UploadTask) bool { return t.ID == task.ID }) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}
	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	s.tasks = append(slices.Clone(s.tasks), task)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeAdded, Task: task})
	return nil
}

// Update merges patch into task id. A missing id yields ErrTaskNotFound and no change.
func (s *Store) Update(id string, patch types.TaskPatch) (types.UploadTask, error) {
	s.mu.Lock()
	tasks, updated, err := Apply(s.tasks, id, patch, s.now())
	if err != nil {
		s.mu.Unlock()
		return updated, err
	}
	s.tasks = tasks
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeUpdated, Task: updated})
	return updated, nil
}

// Remove deletes task id, reporting whether it existed.
func (s *Store) Remove(id string) (types.UploadTask, bool) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.tasks, func(t types.UploadTask) bool { return t.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return types.UploadTask{}, false
	}
	removed := s.tasks[idx]
	s.tasks = slices.Delete(slices.Clone(s.tasks), idx, idx+1)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeRemoved, Task: removed})
	return removed, true
}

// Clear removes every task and returns what was removed.
func (s *Store) Clear() []types.UploadTask {
	s.mu.Lock()
	removed := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	if len(removed) > 0 {
		s.emit(Change{Kind: ChangeCleared, Removed: removed})
	}
	return removed
}

// Get returns a copy of task id.
func (s *Store) Get(id string) (types.UploadTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := slices.IndexFunc(s.tasks, func(t types.UploadTask) bool { return t.ID == id })
	if idx < 0 {
		return types.UploadTask{}, false
	}
	return s.tasks[idx], true
}

// List returns a snapshot of all tasks in insertion order.
func (s *Store) List() []types.UploadTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
