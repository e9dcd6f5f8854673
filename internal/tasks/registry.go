package tasks

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackzampolin/annotator/internal/prompts"
)

// Sentinel errors for the tasks package.
var (
	// ErrTaskAlreadyRegistered is returned when registering a duplicate task.
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrTaskNotFound is returned when a task name is unknown.
	ErrTaskNotFound = errors.New("task not found")
)

// Registry manages the available tasks.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
	order []string // Maintains registration order
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
		order: make([]string, 0),
	}
}

// Builtin returns a registry holding every built-in task, rendering prompts through r.
func Builtin(r *prompts.Resolver) *Registry {
	reg := NewRegistry()
	for _, t := range []Task{
		NewEmotion(r),
		NewInconsistency(r),
		NewSummary(r),
		NewCounsel(r),
		NewQA(r),
	} {
		// Built-in names are distinct.
		_ = reg.Register(t)
	}
	return reg
}

// Register adds a task to the registry.
// Returns an error if a task with the same name is already registered.
func (r *Registry) Register(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, name)
	}

	r.tasks[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns a task by name.
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	return t, ok
}

// Lookup is Get with an error naming the known tasks.
func (r *Registry) Lookup(name string) (Task, error) {
	if t, ok := r.Get(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrTaskNotFound, name, strings.Join(r.Names(), ", "))
}

// List returns all tasks in registration order.
func (r *Registry) List() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}
	return out
}

// Names returns all task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
