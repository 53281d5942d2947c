package engine

import (
	"errors"
	"fmt"

	"github.com/flowforge/taskgraph/pkg/task"
)

// ErrResourceTagsRequireParallel is returned by Run when a non-empty
// resource budget is supplied alongside Workers == 1. Sequential mode
// never has more than one task in flight, so a budget has nothing to
// bound; rather than silently ignoring one the caller clearly intended
// to enforce, construction is rejected outright.
var ErrResourceTagsRequireParallel = errors.New("engine: resource tags require parallel mode (Workers > 1)")

// Termination is the scheduler-visible fatal condition that halts a run:
// a worker died, a worker's supervisor exited uncleanly, or a user
// task/generator raised. It carries the offending task_id, an optional
// stack trace captured in the worker, and the underlying cause.
type Termination struct {
	TaskID string
	Stack  string
	Cause  error
}

func (e *Termination) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("engine: terminated: %v", e.Cause)
	}
	if e.Stack == "" {
		return fmt.Sprintf("engine: terminated: task %s: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("engine: terminated: task %s: %v\n%s", e.TaskID, e.Cause, e.Stack)
}

func (e *Termination) Unwrap() error { return e.Cause }

// kindLabel returns the metric label used for a task: "dynamic" when its
// unwrapped task is a Generator, "static" otherwise.
func kindLabel(t task.Task) string {
	if _, ok := task.Unwrap(t).(task.Generator); ok {
		return "dynamic"
	}
	return "static"
}
