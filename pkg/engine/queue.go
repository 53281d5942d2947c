package engine

import "github.com/flowforge/taskgraph/pkg/task"

// dispatchMsg carries a task handed to a worker for execution.
type dispatchMsg struct {
	task task.Task
}

// resultKind distinguishes the two ways a worker's dispatch can finish
// successfully.
type resultKind int

const (
	resultDone resultKind = iota
	resultGenerated
)

// resultMsg is a worker's report of a finished static run or dynamic
// generation.
type resultMsg struct {
	kind     resultKind
	taskID   string
	task     task.Task
	children []task.Task
}

// errMsg is a worker's report of a task that raised.
type errMsg struct {
	taskID string
	err    error
	stack  string
}

// queueSet is the parallel engine's three-queue IPC surface — in, out,
// err — a bounded channel per direction plus an explicit stop signal,
// used as point-to-point dispatch queues rather than a pub/sub broadcast
// since the engine has exactly one producer side and one consumer side
// per queue (scheduler to worker pool on in, worker pool to scheduler on
// out and err) instead of many subscribers.
type queueSet struct {
	in   chan dispatchMsg
	out  chan resultMsg
	err  chan errMsg
	stop chan struct{}
}

// backpressureBound is the in-queue depth at which the scheduler pauses
// before enqueueing more dispatches.
const backpressureBound = 100

func newQueueSet() *queueSet {
	return &queueSet{
		in:   make(chan dispatchMsg, backpressureBound),
		out:  make(chan resultMsg, backpressureBound),
		err:  make(chan errMsg, backpressureBound),
		stop: make(chan struct{}),
	}
}

func (q *queueSet) closeStop() {
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
}
