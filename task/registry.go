package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"ytanalyzer/logger"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskTerminal = errors.New("task already in terminal state")
	// ErrInvalidTransition is returned for updates that would move a task backwards,
	// bypass claim, or leave a terminal task without its result or error.
	ErrInvalidTransition = errors.New("invalid task transition")
)

// Update describes one state transition. Nil fields leave the record untouched.
type Update struct {
	Status   Status
	Progress *int
	Result   *string
	Error    *string
}

// Registry is the single source of truth for task records. Every read and write goes
// through mu; FindOrCreate holds the write lock for its whole lookup-then-insert.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	seq   uint64
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// FindOrCreate returns the id of a non-failed task of the same kind and identity key,
// or registers a new pending task. created reports which branch was taken.
func (r *Registry) FindOrCreate(kind Kind, identityKey string, params Params) (id string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		if t.Kind == kind && t.identity == identityKey && t.Status != StatusFailed {
			return t.ID, false
		}
	}

	now := r.now()
	r.seq++
	t := &Task{
		ID:        newID(kind, now, r.seq, params),
		Kind:      kind,
		Params:    make(Params, len(params)),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		identity:  identityKey,
	}
	for k, v := range params {
		t.Params[k] = v
	}
	r.tasks[t.ID] = t
	logger.Infof("Task %s created (kind=%s).", t.ID, kind)
	return t.ID, true
}

// Get returns a snapshot of the task. The bool is false when the id was never issued.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// List returns snapshots of every task, oldest first.
func (r *Registry) List() []Task {
	r.mu.RLock()
	list := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		list = append(list, t.clone())
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Count returns the number of tasks per status.
func (r *Registry) Count() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int, 4)
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts
}

// Update applies a transition to an existing task. Status may only be Completed
// (with a non-empty Result), Failed (with a non-empty Error), or empty for a
// progress-only update. Pending and Processing are reached through
// FindOrCreate and claim alone.
func (r *Registry) Update(id string, u Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrTaskNotFound)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("update %s (%s): %w", id, t.Status, ErrTaskTerminal)
	}

	switch u.Status {
	case "":
	case StatusCompleted:
		if u.Result == nil || *u.Result == "" {
			return fmt.Errorf("update %s: completed without result: %w", id, ErrInvalidTransition)
		}
	case StatusFailed:
		if u.Error == nil || *u.Error == "" {
			return fmt.Errorf("update %s: failed without error: %w", id, ErrInvalidTransition)
		}
	default:
		return fmt.Errorf("update %s (%s -> %s): %w", id, t.Status, u.Status, ErrInvalidTransition)
	}

	if u.Progress != nil {
		t.Progress = clampProgress(*u.Progress)
	}
	switch u.Status {
	case StatusCompleted:
		t.Status = StatusCompleted
		t.Result, t.Error = *u.Result, ""
	case StatusFailed:
		t.Status = StatusFailed
		t.Result, t.Error = "", *u.Error
	}
	t.UpdatedAt = r.now()

	logger.Debugf("Task %s updated: status=%s, progress=%d", id, t.Status, t.Progress)
	return nil
}

// claim moves a pending task to processing with progress 0. It returns false for any
// other state so that a task is never executed twice.
func (r *Registry) claim(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return false, fmt.Errorf("claim %s: %w", id, ErrTaskNotFound)
	}
	if t.Status != StatusPending {
		return false, nil
	}
	t.Status = StatusProcessing
	t.Progress = 0
	t.UpdatedAt = r.now()
	return true, nil
}

// reportProgress records intermediate progress while a task is processing.
func (r *Registry) reportProgress(id string, pct int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[id]; ok && t.Status == StatusProcessing {
		t.Progress = clampProgress(pct)
		t.UpdatedAt = r.now()
	}
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// newID derives an id from the task kind, creation time and parameters. seq keeps
// ids distinct when the clock is too coarse to separate two creations.
func newID(kind Kind, at time.Time, seq uint64, params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	name := fmt.Sprintf("%s_%d_%d", kind, at.UnixNano(), seq)
	for _, k := range keys {
		name += "_" + k + "=" + params[k]
	}
	return shortuuid.NewWithNamespace(name)
}
