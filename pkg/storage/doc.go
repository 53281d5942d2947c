/*
Package storage is the artifact-persistence boundary that tasks and outputs
are bound against.

# Contract

Storage exposes list/exists/remove/makedirs/namespace plus a scoped Path
acquisition. Path is the only way to read or write bytes: callers never see
a raw writable path to the final location, only a staging path in write
mode whose commit is atomic.

# Local backend

Local roots the contract at a directory on disk. A write acquisition stages
its artifact under a temporary directory, then Close moves it onto the
final volume as "<final>.<uuid>" before renaming it into place. Two renames
on the same filesystem are each atomic, so a concurrent reader of the final
path never observes a partial file.

# Composite backend

Composite overlays a read-only primary over a read-write secondary. Reads
prefer the read-only tier. Writes and removals addressing a key already
present in the read-only tier are rejected with ErrReadOnlyAccess rather
than silently falling through, so callers can tell "already produced
upstream" apart from "not produced yet".

# See Also

  - pkg/task, which binds Output values to a Storage before handing them to
    user code.
  - pkg/engine, which relies on Storage.Exists to drive the completion
    predicate and frontier scheduling.
*/
package storage
