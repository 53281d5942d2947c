package task

import "context"

// SpecVersion selects which identity-hash rules apply to a task. The zero
// value, V0, is the legacy schema; V1 is the current one ("1.0.0").
type SpecVersion string

const (
	// V0 is the legacy task-spec version: resource specs are always hashed
	// and default-elision only applies to fields with a declared default.
	V0 SpecVersion = ""
	// V1 is task-spec version "1.0.0": resource specs are never hashed and
	// any field whose current value is none is elided unconditionally.
	V1 SpecVersion = "1.0.0"
)

// Field is one canonicalized parameter of a task, in declaration order.
// Fields are produced by a task's Fields method and consumed only by the
// identity hash (see identity.go); they are not a general reflection
// facility.
type Field struct {
	Name  string
	Value any // nil represents the "none" sentinel

	// Comparable is false for advisory/metadata fields (the archetypal
	// example is ResourceSpec under V1) that must never perturb identity.
	Comparable bool

	// HasDefault and DefaultIsNone describe the field's declared default,
	// used only by V0's default-elision rule: a V0 field is elided when its
	// current value is none AND its declared default is also none. This
	// exists so that adding a new optional field to an existing task type
	// does not change the task_id of instances that never set it.
	HasDefault    bool
	DefaultIsNone bool

	// IsResourceSpec marks the reserved resource-spec field. Under V0 it is
	// always hashed (recursively canonicalized) regardless of Comparable;
	// under V1 it is governed by Comparable like any other field.
	IsResourceSpec bool
}

// Required builds a Field with no declared default: it participates in V0
// hashing even when its value is none, and in V1 hashing whenever its
// value is not none.
func Required(name string, value any) Field {
	return Field{Name: name, Value: value, Comparable: true}
}

// OptionalDefaultNone builds a Field whose declared default is none. Under
// V0 it is elided whenever its current value is also none.
func OptionalDefaultNone(name string, value any) Field {
	return Field{Name: name, Value: value, Comparable: true, HasDefault: true, DefaultIsNone: true}
}

// ResourceSpecField builds the reserved, non-comparable resource-spec
// field: advisory CPU/memory/GPU hints that V1 never hashes but V0 always
// does.
func ResourceSpecField(value any) Field {
	return Field{Name: "resource_spec", Value: value, Comparable: false, IsResourceSpec: true}
}

// NonComparable builds a Field that never participates in identity under
// either spec version.
func NonComparable(name string, value any) Field {
	return Field{Name: name, Value: value, Comparable: false}
}

// Task is an immutable description of a unit of work. Concrete task types
// implement Task plus exactly one of Runner, Generator, or Wrapper to
// declare which variant they are.
type Task interface {
	// TypeName returns the task's fully qualified type name, used as the
	// task_id prefix and as the serialized type tag.
	TypeName() string

	// SpecVersion reports which identity-hash rules this task's type uses.
	SpecVersion() SpecVersion

	// Fields returns the task's declared parameters in declaration order,
	// for structural hashing. It must be deterministic and must not
	// include the spec-version field itself.
	Fields() []Field

	// Input returns the tree of outputs this task consumes.
	Input() IOTree

	// Output returns the tree of outputs this task declares. An empty tree
	// means the task declares no outputs (see the completion predicate in
	// pkg/engine).
	Output() IOTree
}

// Runner is implemented by static tasks: tasks whose work is to execute
// directly against bound input and output trees.
type Runner interface {
	Task
	Run(ctx context.Context, input, output IOTree) error
}

// Generator is implemented by dynamic tasks: tasks whose work is to return
// further tasks once their inputs exist, rather than to produce output
// directly.
type Generator interface {
	Task
	Generate(ctx context.Context, input, output IOTree) ([]Task, error)
}

// Wrapper is implemented by tasks that delegate identity and I/O to an
// inner task without altering them. A wrapper's own Fields must carry only
// the inner task (substituted by its task_id per the nesting rule), or its
// task_id will diverge from the inner task's.
type Wrapper interface {
	Task
	Inner() Task
}

// Unwrap follows a chain of wrappers down to the innermost non-wrapper
// task.
func Unwrap(t Task) Task {
	for {
		w, ok := t.(Wrapper)
		if !ok {
			return t
		}
		t = w.Inner()
	}
}

// Tagged is implemented by tasks that carry resource tags: opaque
// strings used by the resource manager to bound concurrency among all
// tasks sharing a tag, independent of worker count. Tags never
// participate in identity; a task need not implement Tagged at all if
// it carries none.
type Tagged interface {
	Task
	Tags() []string
}

// TagsOf returns t's declared tags, or nil if t does not implement
// Tagged.
func TagsOf(t Task) []string {
	if tg, ok := t.(Tagged); ok {
		return tg.Tags()
	}
	return nil
}
