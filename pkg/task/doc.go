/*
Package task defines the task and output model.

# Variants

A Task is polymorphic over {Input, Output, and either Run or Generate}.
Static tasks implement Runner; dynamic tasks implement Generator and
return further tasks once their inputs exist; wrapper tasks implement
Wrapper and delegate identity and I/O to an inner task untouched.

# Identity

task_id is "<fully_qualified_type_name>.<sha1-hex>" over a canonical JSON
mapping built from a task's declared Fields, in declaration order. Nested
tasks substitute their task_id; nested outputs substitute their output_id.
Two task-spec versions govern which fields are elided: V0 (legacy) always
hashes the reserved resource-spec field and only elides a field on a
value-and-declared-default match; V1 ("1.0.0") never hashes the
resource-spec field and elides any field whose value is none
unconditionally. See identity.go for the exact algorithm and
identity_test.go for the pinned digests it must reproduce.

# Outputs

An Output's identity, output_id, is independent of its storage binding:
AssignStorage returns a new value without touching SrcTaskID or Key.

# See Also

  - pkg/output, which supplies the concrete codecs (blob, JSON, tabular,
    object) layered on top of Output.
  - pkg/engine, which binds Output values to storage and drives the
    completion predicate.
*/
package task
