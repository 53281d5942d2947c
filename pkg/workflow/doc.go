/*
Package workflow is the public API surface of taskgraph: the handful of
entry points a caller (a CLI, a notebook, a service) actually needs —
run a workflow, run a single task as a convenience case, and inspect an
output without pulling in the engine or refmanager internals directly.

# Workflow

A Workflow is a named root task set plus the storage they run against;
the name only labels logs and operator tooling.
RunWorkflow drives pkg/engine.Run to completion; RunJob is a thin
convenience wrapper for the common case of a single task (or small task
list) with no pre-built Workflow value.

# Output helpers

LoadOutput, ExistsOutput, and RemoveOutput bind a *task.Output to a
storage.Storage and perform the corresponding operation. Decoding the
bound output's bytes into a concrete value is left to the caller via
the pkg/output codec wrappers (Blob, JSON, Object, Table) — these
helpers only handle the storage binding, since the codec is a property
of how the output was written, not of the workflow API.

See Also

pkg/engine for the scheduling algorithm these helpers drive.
*/
package workflow
