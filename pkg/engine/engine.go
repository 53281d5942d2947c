package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/taskgraph/pkg/log"
	"github.com/flowforge/taskgraph/pkg/metrics"
	"github.com/flowforge/taskgraph/pkg/refmanager"
	"github.com/flowforge/taskgraph/pkg/resource"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Options configures a Run.
type Options struct {
	// Workers is the number of concurrent workers. 1 (the default for
	// the zero value) selects sequential mode.
	Workers int
	// Resources is the tag -> max-concurrency budget consulted before
	// every parallel-mode dispatch. Must be empty when Workers == 1.
	Resources resource.Budget
}

// Run executes every task reachable from roots against store, walking
// the runnable frontier until every task is either completed or has
// run. It returns nil once the whole root set (and anything it
// transitively required, including dynamically generated subgraphs) is
// completed, or a *Termination if a task raised or a worker died.
func Run(ctx context.Context, roots []task.Task, store storage.Storage, opts Options) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers == 1 {
		if len(opts.Resources) > 0 {
			return ErrResourceTagsRequireParallel
		}
		return runSequential(ctx, roots, store)
	}
	return runParallel(ctx, roots, store, workers, opts.Resources)
}

// runSequential dispatches inline on the calling goroutine: no queues,
// no worker pool, no resource tags — sequential mode never has more than
// one task in flight, so there is nothing for a tag budget to bound.
func runSequential(ctx context.Context, roots []task.Task, store storage.Storage) error {
	logger := log.WithRunID(log.WithComponent("engine"), uuid.NewString())
	arena := discover(roots)
	refMgr := refmanager.New(store)
	for _, t := range arena {
		refMgr.Add(t)
	}

	frontier := make(map[string]task.Task, len(roots))
	for _, t := range roots {
		frontier[task.Identity(t)] = t
	}

	for len(frontier) > 0 {
		next := make(map[string]task.Task)

		for id, t := range frontier {
			done, err := IsCompleted(ctx, t, store)
			if err != nil {
				return err
			}
			if done {
				continue
			}

			prereqs := unmetPrerequisites(t, store, arena)
			if len(prereqs) > 0 {
				for pid, p := range prereqs {
					next[pid] = p
				}
				next[id] = t
				continue
			}

			metrics.TasksDispatched.WithLabelValues(kindLabel(t)).Inc()
			tlog := log.WithTaskID(logger, id)

			// Unwrap for the capability check only: a wrapper forwards its
			// inner task's I/O declarations, so t's own trees are still the
			// ones bound and handed to user code.
			switch tt := task.Unwrap(t).(type) {
			case task.Generator:
				input := bindTree(t.Input(), store)
				output := bindTree(t.Output(), store)
				children, err := tt.Generate(ctx, input, output)
				if err != nil {
					return &Termination{TaskID: id, Cause: err}
				}
				tlog.Debug().Int("children", len(children)).Msg("dynamic task expanded")
				metrics.TasksExpanded.Inc()
				refMgr.Remove(t)
				for _, c := range children {
					cid := task.Identity(c)
					for _, discovered := range absorb(arena, c) {
						refMgr.Add(discovered)
					}
					if _, running := frontier[cid]; !running {
						next[cid] = c
					}
				}
			case task.Runner:
				input := bindTree(t.Input(), store)
				output := bindTree(t.Output(), store)
				timer := metrics.NewTimer()
				if err := tt.Run(ctx, input, output); err != nil {
					metrics.TasksFailed.WithLabelValues(kindLabel(t)).Inc()
					return &Termination{TaskID: id, Cause: err}
				}
				timer.ObserveDuration(metrics.TaskRunDuration)
				tlog.Debug().Msg("task completed")
				metrics.TasksCompleted.WithLabelValues(kindLabel(t)).Inc()
				refMgr.Remove(t)
			default:
				return &Termination{TaskID: id, Cause: fmt.Errorf("task implements neither Runner nor Generator")}
			}
		}

		metrics.RunnableFrontierSize.Set(float64(len(next)))
		frontier = next
	}

	logger.Debug().Msg("sequential run complete")
	return nil
}

// runParallel dispatches onto a pool of goroutine workers over the
// three-queue IPC surface in queue.go, bounding concurrency by both
// workers and resource tags, and applying a back-pressure sleep before
// enqueueing further dispatches once the in-queue is saturated.
func runParallel(ctx context.Context, roots []task.Task, store storage.Storage, workers int, budget resource.Budget) error {
	logger := log.WithRunID(log.WithComponent("engine"), uuid.NewString())
	arena := discover(roots)
	refMgr := refmanager.New(store)
	for _, t := range arena {
		refMgr.Add(t)
	}
	resMgr := resource.NewManager(budget)
	readySince := map[string]time.Time{}

	q := newQueueSet()
	fatalCh := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &worker{id: i, storage: store, q: q, logger: logger}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx, fatalCh)
		}()
	}
	shutdown := func() {
		q.closeStop()
		wg.Wait()
	}
	fail := func(err error) error {
		shutdown()
		return err
	}

	frontier := make(map[string]task.Task, len(roots))
	for _, t := range roots {
		frontier[task.Identity(t)] = t
	}
	running := map[string]task.Task{}

	for len(frontier) > 0 || len(running) > 0 {
		select {
		case err := <-fatalCh:
			return fail(&Termination{Cause: err})
		default:
		}

		next := map[string]task.Task{}
		for id, t := range frontier {
			if _, ok := running[id]; ok {
				continue
			}

			done, err := IsCompleted(ctx, t, store)
			if err != nil {
				return fail(err)
			}
			if done {
				continue
			}

			prereqs := unmetPrerequisites(t, store, arena)
			if len(prereqs) > 0 {
				for pid, p := range prereqs {
					next[pid] = p
				}
				next[id] = t
				continue
			}

			if _, tracked := readySince[id]; !tracked {
				readySince[id] = time.Now()
			}

			tags := task.TagsOf(t)
			if !resMgr.IsRunnable(tags) {
				for _, tag := range tags {
					metrics.ResourceTagSaturated.WithLabelValues(tag).Inc()
				}
				next[id] = t
				continue
			}

			for len(q.in) >= backpressureBound {
				time.Sleep(200 * time.Millisecond)
			}

			if since, ok := readySince[id]; ok {
				metrics.SchedulingLatency.Observe(time.Since(since).Seconds())
				delete(readySince, id)
			}
			resMgr.Add(tags)
			for _, tag := range tags {
				metrics.ResourceTagInUse.WithLabelValues(tag).Set(float64(resMgr.Live(tag)))
			}
			running[id] = t
			metrics.TasksDispatched.WithLabelValues(kindLabel(t)).Inc()

			select {
			case q.in <- dispatchMsg{task: t}:
			case <-q.stop:
				return fail(fmt.Errorf("engine: shutting down"))
			}
		}
		for id, t := range next {
			frontier[id] = t
		}
		for id := range frontier {
			if _, ok := next[id]; !ok {
				if _, stillRunning := running[id]; !stillRunning {
					delete(frontier, id)
				}
			}
		}
		metrics.RunnableFrontierSize.Set(float64(len(frontier)))

	drain:
		for {
			select {
			case res := <-q.out:
				delete(running, res.taskID)
				delete(frontier, res.taskID)
				resMgr.Remove(task.TagsOf(res.task))
				switch res.kind {
				case resultDone:
					refMgr.Remove(res.task)
				case resultGenerated:
					metrics.TasksExpanded.Inc()
					refMgr.Remove(res.task)
					for _, c := range res.children {
						cid := task.Identity(c)
						for _, discovered := range absorb(arena, c) {
							refMgr.Add(discovered)
						}
						if _, ok := running[cid]; !ok {
							frontier[cid] = c
						}
					}
				}
			case e := <-q.err:
				return fail(&Termination{TaskID: e.taskID, Stack: e.stack, Cause: e.err})
			default:
				break drain
			}
		}

		if len(frontier) > 0 || len(running) > 0 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	shutdown()
	logger.Debug().Msg("parallel run complete")
	return nil
}
