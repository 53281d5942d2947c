package engine

import (
	"context"
	"errors"

	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// IsCompleted reports whether t can be skipped:
//
//   - A static task with no declared outputs is never completed (it
//     always runs).
//   - A dynamic task with no declared outputs is completed iff every
//     task its Generate call returns is itself completed; Generate is
//     invoked with storage-bound inputs and a nil output tree.
//   - Otherwise, completed iff every declared output exists on s.
//
// A NotFound surfaced from s while checking an output is treated as "not
// completed", never propagated.
func IsCompleted(ctx context.Context, t task.Task, s storage.Storage) (bool, error) {
	outputs := bindTree(t.Output(), s).Flatten()
	if len(outputs) == 0 {
		gen, ok := task.Unwrap(t).(task.Generator)
		if !ok {
			return false, nil
		}
		children, err := gen.Generate(ctx, bindTree(t.Input(), s), task.None)
		if err != nil {
			// A generator that cannot read a not-yet-materialized input
			// surfaces NotFound; the task is simply not completed yet.
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		for _, c := range children {
			done, err := IsCompleted(ctx, c, s)
			if err != nil {
				return false, err
			}
			if !done {
				return false, nil
			}
		}
		return true, nil
	}

	for _, o := range outputs {
		exists, err := o.Exists()
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// bindTree returns tree with every leaf Output bound to s, so that user
// code and the completion predicate always see a storage-backed tree.
func bindTree(tree task.IOTree, s storage.Storage) task.IOTree {
	return tree.Map(func(o *task.Output) *task.Output { return o.AssignStorage(s) })
}
