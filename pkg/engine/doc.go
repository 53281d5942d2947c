/*
Package engine is the DAG execution engine: it walks a frontier of tasks,
dispatching each one once its declared inputs are materialized, expanding
dynamic tasks into further frontier members as they generate subgraphs,
and bounding parallelism by both worker count and named resource tags.

# Modes

Run selects sequential or parallel execution by worker count. Sequential
mode (Workers == 1) dispatches inline on the calling goroutine: no
queues, no worker pool, and a non-empty resource budget is rejected at
construction time rather than silently ignored (tags only make sense
where more than one task can be in flight at once). Parallel mode dispatches onto a pool
of goroutine workers communicating over three buffered channels — in,
out, err — each worker itself a supervisor that recycles sub-worker
goroutines, trading the isolation of separate processes for the
concurrency and shared-memory reuse a single Go runtime gives tasks
known to be safe to run side by side.

# Frontier scheduling

Each tick, every non-running frontier member is checked for completion
(IsCompleted), then for unmet inputs: an input whose artifact does not
yet exist has its producing task folded into the next frontier ahead of
the member itself, so a task is never dispatched while any declared
input's producer is still incomplete. A runnable task is charged against
the resource manager and dispatched; completion and generation messages
drain before the next tick, freeing resource charges and notifying the
reference manager so ephemeral intermediates can be purged as soon as
every consumer is resolved.

# Dynamic tasks

A dynamic task is dispatched by invoking Generate and returning its
children as a "generated" message rather than executing them itself; the
children are folded into the frontier exactly as if they had been
present from the start. A dynamic task that declares its own outputs
treats those as the completion signal and does not recursively check the
generated subgraph — a deliberate fast path, and one a caller must honor
by ensuring the generated subgraph actually produces what was declared.

# Failure

A worker sub-process recovering from a panic in user code, or any task
returning a non-nil error, escalates to Termination and halts the run
after signalling every worker. A worker goroutine's supervisor exiting
uncleanly is likewise fatal. Partial progress is preserved: any output
whose atomic write already committed remains visible, so a subsequent Run
resumes from there.

# See Also

  - pkg/task, for the task model and completion-relevant Input/Output trees.
  - pkg/refmanager, notified as tasks are discovered and on every
    completion to drive ephemeral-output collection.
  - pkg/resource, consulted before every parallel-mode dispatch.
  - pkg/workflow, the public entrypoint that constructs a Workflow and
    calls Run.
*/
package engine
