package workflow

import (
	"context"
	"fmt"

	"github.com/flowforge/taskgraph/pkg/engine"
	"github.com/flowforge/taskgraph/pkg/log"
	"github.com/flowforge/taskgraph/pkg/resource"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Workflow is a named root task set bound to the storage it runs
// against. The name is a label for logs and operator tooling; it plays
// no part in task identity.
type Workflow struct {
	Name    string
	Roots   []task.Task
	Storage storage.Storage
}

// New builds a Workflow from name, roots, and s.
func New(name string, roots []task.Task, s storage.Storage) Workflow {
	return Workflow{Name: name, Roots: roots, Storage: s}
}

// RunWorkflow executes wf to completion. nJobs selects the engine mode:
// 1 is sequential, anything greater spins up that many parallel workers.
// resources is the optional per-tag concurrency budget; it must be empty
// when nJobs == 1 (engine.ErrResourceTagsRequireParallel otherwise).
func RunWorkflow(ctx context.Context, wf Workflow, nJobs int, resources resource.Budget) error {
	if wf.Storage == nil {
		return fmt.Errorf("workflow: no storage bound")
	}
	if len(wf.Roots) == 0 {
		return nil
	}
	logger := log.WithComponent("workflow")
	if wf.Name != "" {
		logger = logger.With().Str("workflow", wf.Name).Logger()
	}
	logger.Info().Int("roots", len(wf.Roots)).Int("n_jobs", nJobs).Msg("starting run")
	err := engine.Run(ctx, wf.Roots, wf.Storage, engine.Options{Workers: nJobs, Resources: resources})
	if err != nil {
		logger.Error().Err(err).Msg("run terminated")
		return err
	}
	logger.Info().Msg("run complete")
	return nil
}

// RunJob is a convenience wrapper around RunWorkflow for running a single
// task, or a short task list, without constructing a Workflow value by
// hand.
func RunJob(ctx context.Context, tasks []task.Task, s storage.Storage, nJobs int, resources resource.Budget) error {
	return RunWorkflow(ctx, New("job", tasks, s), nJobs, resources)
}

// LoadOutput binds o to s, returning an output ready to decode through
// one of the pkg/output codec wrappers (Blob, JSON, Object, Table).
func LoadOutput(o *task.Output, s storage.Storage) *task.Output {
	return o.AssignStorage(s)
}

// ExistsOutput binds o to s and reports whether its artifact exists.
func ExistsOutput(o *task.Output, s storage.Storage) (bool, error) {
	return o.AssignStorage(s).Exists()
}

// RemoveOutput binds o to s and deletes its artifact.
func RemoveOutput(o *task.Output, s storage.Storage) error {
	return o.AssignStorage(s).Remove()
}
