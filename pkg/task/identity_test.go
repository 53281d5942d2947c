package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// myTask mirrors the pinned test_core.MyTask fixture: a single required
// field "arg" plus the reserved resource-spec field.
type myTask struct {
	arg          any
	resourceSpec any
	version      SpecVersion
}

func (t *myTask) TypeName() string      { return "test_core.MyTask" }
func (t *myTask) SpecVersion() SpecVersion { return t.version }
func (t *myTask) Fields() []Field {
	return []Field{
		Required("arg", t.arg),
		ResourceSpecField(t.resourceSpec),
	}
}
func (t *myTask) Input() IOTree  { return None }
func (t *myTask) Output() IOTree { return None }

func TestIdentityPinnedVectorsV0Migration(t *testing.T) {
	v0 := &myTask{arg: nil, resourceSpec: nil, version: V0}
	require.Equal(t, "test_core.MyTask.0871e69fa5e3a73f77e3ea440a8726bd66646b14", Identity(v0))
}

func TestIdentityPinnedVectorsV1NilArg(t *testing.T) {
	v1 := &myTask{arg: nil, resourceSpec: nil, version: V1}
	require.Equal(t, "test_core.MyTask.bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f", Identity(v1))
}

func TestIdentityPinnedVectorsV1WithArg(t *testing.T) {
	v1 := &myTask{arg: "test", resourceSpec: nil, version: V1}
	require.Equal(t, "test_core.MyTask.ce12fb848e4a73c2a1f34a24c58f27cf307e123e", Identity(v1))
}

// Determinism across repeated invocations.
func TestIdentityDeterminism(t *testing.T) {
	mt := &myTask{arg: "x", version: V1}
	require.Equal(t, Identity(mt), Identity(mt))
}

type wrapperTask struct {
	inner Task
}

func (w *wrapperTask) TypeName() string        { return "test_core.Wrap" }
func (w *wrapperTask) SpecVersion() SpecVersion { return V1 }
func (w *wrapperTask) Fields() []Field {
	return []Field{Required("inner", w.inner)}
}
func (w *wrapperTask) Input() IOTree  { return w.inner.Input() }
func (w *wrapperTask) Output() IOTree { return w.inner.Output() }
func (w *wrapperTask) Inner() Task    { return w.inner }

// Wrapper equality: a wrapper's task_id is its inner task's, prefix and
// all, no matter what the wrapper's own type is called.
func TestWrapperIdentityEqualsInner(t *testing.T) {
	inner := &myTask{arg: "x", version: V1}
	w := &wrapperTask{inner: inner}
	require.Equal(t, Identity(inner), Identity(w))
}

func TestChainedWrapperIdentityEqualsInnermost(t *testing.T) {
	inner := &myTask{arg: "x", version: V1}
	w := &wrapperTask{inner: &wrapperTask{inner: inner}}
	require.Equal(t, Identity(inner), Identity(w))
}

// A wrapper appearing as a field of another task substitutes the inner
// task's id into the hash, so wrapping a dependency never perturbs the
// consumer's identity either.
func TestWrapperFieldSubstitutesInnerTaskID(t *testing.T) {
	inner := &myTask{arg: "x", version: V1}
	a := &taggedTask{a: inner}
	b := &taggedTask{a: &wrapperTask{inner: inner}}
	require.Equal(t, Identity(a), Identity(b))
}

// Resource-spec irrelevance under V1.
func TestResourceSpecIrrelevantUnderV1(t *testing.T) {
	a := &myTask{arg: "x", resourceSpec: nil, version: V1}
	b := &myTask{arg: "x", resourceSpec: map[string]any{"cpu": 4.0}, version: V1}
	require.Equal(t, Identity(a), Identity(b))
}

// Converse: resource-spec DOES perturb identity under V0.
func TestResourceSpecRelevantUnderV0(t *testing.T) {
	a := &myTask{arg: "x", resourceSpec: nil, version: V0}
	b := &myTask{arg: "x", resourceSpec: "gpu=1", version: V0}
	require.NotEqual(t, Identity(a), Identity(b))
}

type taggedTask struct {
	a, tag any
}

func (t *taggedTask) TypeName() string        { return "test_core.Tagged" }
func (t *taggedTask) SpecVersion() SpecVersion { return V1 }
func (t *taggedTask) Fields() []Field {
	return []Field{
		Required("a", t.a),
		NonComparable("tag", t.tag),
	}
}
func (t *taggedTask) Input() IOTree  { return None }
func (t *taggedTask) Output() IOTree { return None }

// Varying a non-comparable field never changes task_id.
func TestNonComparableFieldIrrelevant(t *testing.T) {
	a := &taggedTask{a: "x", tag: "blue"}
	b := &taggedTask{a: "x", tag: "green"}
	require.Equal(t, Identity(a), Identity(b))
}

type evolvingTaskV0 struct{ a any }

func (t *evolvingTaskV0) TypeName() string        { return "test_core.Evolving" }
func (t *evolvingTaskV0) SpecVersion() SpecVersion { return V0 }
func (t *evolvingTaskV0) Fields() []Field {
	return []Field{Required("a", t.a)}
}
func (t *evolvingTaskV0) Input() IOTree  { return None }
func (t *evolvingTaskV0) Output() IOTree { return None }

type evolvingTaskV0WithNewField struct{ a, b any }

func (t *evolvingTaskV0WithNewField) TypeName() string        { return "test_core.Evolving" }
func (t *evolvingTaskV0WithNewField) SpecVersion() SpecVersion { return V0 }
func (t *evolvingTaskV0WithNewField) Fields() []Field {
	return []Field{
		Required("a", t.a),
		OptionalDefaultNone("b", t.b),
	}
}
func (t *evolvingTaskV0WithNewField) Input() IOTree  { return None }
func (t *evolvingTaskV0WithNewField) Output() IOTree { return None }

// Adding a new field with a none default does not change task_id.
func TestOptionalFieldBackwardCompatibility(t *testing.T) {
	before := &evolvingTaskV0{a: "x"}
	after := &evolvingTaskV0WithNewField{a: "x", b: nil}
	require.Equal(t, Identity(before), Identity(after))
}

// Converse: setting the new field to a non-none value does change it.
func TestOptionalFieldWithValueChangesIdentity(t *testing.T) {
	before := &evolvingTaskV0{a: "x"}
	after := &evolvingTaskV0WithNewField{a: "x", b: "set"}
	require.NotEqual(t, Identity(before), Identity(after))
}
