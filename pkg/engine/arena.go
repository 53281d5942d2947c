package engine

import (
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// discover walks roots and every task reachable through Dependencies
// (the direct Task-valued fields a task declares) into a task_id-indexed
// arena. Since an Output here only carries its producing task_id, to
// avoid ownership cycles between tasks and their outputs, the engine
// needs its own index to resolve "the task that produced this output"
// back to a Task value.
func discover(roots []task.Task) map[string]task.Task {
	arena := make(map[string]task.Task, len(roots))
	queue := append([]task.Task{}, roots...)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		id := task.Identity(t)
		if _, ok := arena[id]; ok {
			continue
		}
		arena[id] = t
		queue = append(queue, task.Dependencies(t)...)
	}
	return arena
}

// absorb adds a newly generated task (and every task it transitively
// depends on that the arena doesn't already know about) into arena,
// mirroring discover's walk for the subgraph a dynamic task returns. It
// returns each newly added task so the caller can register it with the
// reference manager — a producer reachable only through a generated
// child's fields has never been seen before either, and skipping its
// registration would leave its inputs without refcounts.
func absorb(arena map[string]task.Task, t task.Task) []task.Task {
	id := task.Identity(t)
	if _, ok := arena[id]; ok {
		return nil
	}
	arena[id] = t
	added := []task.Task{t}
	for _, dep := range task.Dependencies(t) {
		added = append(added, absorb(arena, dep)...)
	}
	return added
}

// unmetPrerequisites returns, among t's declared inputs, the producing
// tasks (resolved through arena) of every artifact not yet present on
// storage.
func unmetPrerequisites(t task.Task, store storage.Storage, arena map[string]task.Task) map[string]task.Task {
	prereqs := map[string]task.Task{}
	for _, o := range t.Input().Flatten() {
		bound := o.AssignStorage(store)
		exists, err := bound.Exists()
		if err == nil && exists {
			continue
		}
		if producer, ok := arena[o.SrcTaskID]; ok {
			prereqs[o.SrcTaskID] = producer
		}
	}
	return prereqs
}
