package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/flowforge/taskgraph/pkg/log"
	"github.com/flowforge/taskgraph/pkg/metrics"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// jobsPerSubWorker bounds how many jobs a sub-worker processes before
// exiting cleanly, guarding against memory growth from long-running
// user code.
const jobsPerSubWorker = 30

// worker is one top-level parallel-mode worker: a supervisor goroutine
// that keeps spawning sub-worker goroutines, each processing up to
// jobsPerSubWorker dispatches before exiting so the supervisor can start
// a fresh one. A sub-worker goroutine that panics is fatal to the whole
// run.
type worker struct {
	id      int
	storage storage.Storage
	q       *queueSet
	logger  zerolog.Logger
}

// run is the supervisor loop: it restarts sub-workers indefinitely until
// q.stop closes, or escalates a sub-worker crash to fatalCh.
func (w *worker) run(ctx context.Context, fatalCh chan<- error) {
	for {
		select {
		case <-w.q.stop:
			return
		default:
		}
		if err := w.runSubWorker(ctx); err != nil {
			select {
			case fatalCh <- err:
			case <-w.q.stop:
			}
			return
		}
		w.logger.Debug().Int("worker", w.id).Msg("sub-worker recycled")
	}
}

// runSubWorker processes up to jobsPerSubWorker dispatches, recovering a
// panic into a Termination-worthy error so the supervisor (and the
// scheduler above it) can treat it like an unexpected process exit.
func (w *worker) runSubWorker(ctx context.Context) (exitErr error) {
	defer func() {
		if r := recover(); r != nil {
			exitErr = fmt.Errorf("engine: worker %d sub-worker crashed: %v\n%s", w.id, r, debug.Stack())
		}
	}()
	for i := 0; i < jobsPerSubWorker; i++ {
		select {
		case <-w.q.stop:
			return nil
		case msg, ok := <-w.q.in:
			if !ok {
				return nil
			}
			w.process(ctx, msg)
		}
	}
	return nil
}

// process dispatches one task: Generate for dynamic tasks, Run for
// static ones, reporting the result or error on the appropriate queue. A
// panic inside user code is recovered here (rather than escalated as a
// worker crash) since it is an ordinary user exception, not process
// death — it is reported on q.err and terminates the run.
func (w *worker) process(ctx context.Context, msg dispatchMsg) {
	t := msg.task
	taskID := task.Identity(t)
	tlog := log.WithTaskID(w.logger, taskID)

	defer func() {
		if r := recover(); r != nil {
			send(w.q.stop, w.q.err, errMsg{taskID: taskID, err: fmt.Errorf("%v", r), stack: string(debug.Stack())})
		}
	}()

	// Unwrap for the capability check only; t's own (forwarded) I/O trees
	// are the ones bound and handed to user code.
	switch tt := task.Unwrap(t).(type) {
	case task.Generator:
		input := bindTree(t.Input(), w.storage)
		output := bindTree(t.Output(), w.storage)
		children, err := tt.Generate(ctx, input, output)
		if err != nil {
			send(w.q.stop, w.q.err, errMsg{taskID: taskID, err: err})
			return
		}
		tlog.Debug().Int("children", len(children)).Msg("dynamic task expanded")
		send(w.q.stop, w.q.out, resultMsg{kind: resultGenerated, taskID: taskID, task: t, children: children})
	case task.Runner:
		input := bindTree(t.Input(), w.storage)
		output := bindTree(t.Output(), w.storage)
		timer := metrics.NewTimer()
		if err := tt.Run(ctx, input, output); err != nil {
			send(w.q.stop, w.q.err, errMsg{taskID: taskID, err: err})
			return
		}
		timer.ObserveDuration(metrics.TaskRunDuration)
		tlog.Debug().Msg("task completed")
		metrics.TasksCompleted.WithLabelValues(kindLabel(t)).Inc()
		send(w.q.stop, w.q.out, resultMsg{kind: resultDone, taskID: taskID, task: t})
	default:
		send(w.q.stop, w.q.err, errMsg{taskID: taskID, err: fmt.Errorf("engine: task %s implements neither Runner nor Generator", taskID)})
	}
}

// send enqueues msg on ch unless stop closes first, so a worker never
// blocks forever trying to report into a queue the scheduler has
// abandoned during shutdown.
func send[T any](stop chan struct{}, ch chan<- T, msg T) {
	select {
	case ch <- msg:
	case <-stop:
	}
}
