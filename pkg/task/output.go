package task

import (
	"fmt"

	"github.com/flowforge/taskgraph/pkg/storage"
)

// Output is an immutable handle to an artifact produced by a task and
// stored under a key. Its identity, output_id, is src_task.task_id + "." +
// key; the storage binding is compared only for behavior, never for
// identity. The artifact's storage path is always output_id (ID()), never
// the bare Key, so that two tasks declaring the same sub-key never
// collide on a single storage path.
type Output struct {
	SrcTaskID string
	Key       string
	Ephemeral bool

	storage storage.Storage
}

// NewOutput builds an Output for srcTaskID under key. Use a task's output
// factory (see Outputs, below) rather than calling this directly, so that
// keys are consistently prefixed with the producing task's id.
func NewOutput(srcTaskID, key string, ephemeral bool) *Output {
	return &Output{SrcTaskID: srcTaskID, Key: key, Ephemeral: ephemeral}
}

// ID returns the output's identity: src_task.task_id + "." + key. It is
// stable across serialize/deserialize round-trips.
func (o *Output) ID() string {
	return o.SrcTaskID + "." + o.Key
}

// AssignStorage returns a copy of o bound to s. Binding does not affect
// ID, equality, or hashing.
func (o *Output) AssignStorage(s storage.Storage) *Output {
	clone := *o
	clone.storage = s
	return &clone
}

// Storage returns the output's bound storage, or nil if unbound.
func (o *Output) Storage() storage.Storage {
	return o.storage
}

// Exists reports whether the artifact exists on the bound storage.
func (o *Output) Exists() (bool, error) {
	if o.storage == nil {
		return false, fmt.Errorf("task: output %s: no storage bound", o.ID())
	}
	return o.storage.Exists(o.ID())
}

// Remove deletes the artifact from the bound storage. Per RC3, removing an
// absent artifact must not be treated as an error by callers driving GC;
// Remove itself still reports the underlying storage error so non-GC
// callers can distinguish the cases.
func (o *Output) Remove() error {
	if o.storage == nil {
		return fmt.Errorf("task: output %s: no storage bound", o.ID())
	}
	return o.storage.Remove(o.ID())
}

// Outputs is a factory that prefixes generated keys with a task's id,
// matching the lazy-construction lifecycle described for outputs: they are
// built by the owning task, and acquire a storage binding only once the
// engine binds them.
type Outputs struct {
	taskID string
}

// NewOutputs builds an output factory for taskID.
func NewOutputs(taskID string) Outputs {
	return Outputs{taskID: taskID}
}

// Key builds an Output for the given sub-key beneath this task's id.
func (o Outputs) Key(key string, ephemeral bool) *Output {
	return NewOutput(o.taskID, key, ephemeral)
}
