package engine

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/taskgraph/pkg/resource"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// writeTask writes a fixed payload to a single declared output and has no
// inputs of its own.
type writeTask struct {
	name    string
	payload string
	calls   *int32
}

func (t *writeTask) TypeName() string        { return "engine_test.Write" }
func (t *writeTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *writeTask) Fields() []task.Field {
	return []task.Field{task.Required("name", t.name)}
}
func (t *writeTask) Input() task.IOTree  { return task.None }
func (t *writeTask) Output() task.IOTree { return task.Leaf(t.out()) }
func (t *writeTask) out() *task.Output {
	return task.NewOutput(task.Identity(t), "out", false)
}

func (t *writeTask) Run(ctx context.Context, input, output task.IOTree) error {
	if t.calls != nil {
		atomic.AddInt32(t.calls, 1)
	}
	o, _ := output.AsLeaf()
	acq, err := o.Storage().Path(o.ID(), storage.WriteMode)
	if err != nil {
		return err
	}
	if err := writeFile(acq.Path, []byte(t.payload)); err != nil {
		return err
	}
	return acq.Close()
}

// sumTask reads one upstream output and writes its own, depending on the
// upstream task directly through its Fields (per the identity nesting rule),
// which is what lets Dependencies recover the producer. ephemeralInput marks
// whether this consumer regards the upstream edge as ephemeral; the
// reference manager only purges an output once every consumer agrees.
type sumTask struct {
	name           string
	src            task.Task
	ephemeralInput bool
}

func (t *sumTask) TypeName() string            { return "engine_test.Sum" }
func (t *sumTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *sumTask) Fields() []task.Field {
	return []task.Field{
		task.Required("name", t.name),
		task.Required("src", t.src),
	}
}
func (t *sumTask) Input() task.IOTree {
	srcOutputs := t.src.Output().Flatten()
	in := *srcOutputs[0]
	in.Ephemeral = t.ephemeralInput
	return task.Leaf(&in)
}

func (t *sumTask) out() *task.Output {
	return task.NewOutput(task.Identity(t), "out", false)
}
func (t *sumTask) Output() task.IOTree { return task.Leaf(t.out()) }

func (t *sumTask) Run(ctx context.Context, input, output task.IOTree) error {
	leaves := input.Flatten()
	if len(leaves) != 1 {
		return fmt.Errorf("expected 1 input, got %d", len(leaves))
	}
	acqR, err := leaves[0].Storage().Path(leaves[0].ID(), storage.ReadMode)
	if err != nil {
		return err
	}
	data, err := readFile(acqR.Path)
	if err != nil {
		return err
	}

	o, _ := output.AsLeaf()
	acqW, err := o.Storage().Path(o.ID(), storage.WriteMode)
	if err != nil {
		return err
	}
	if err := writeFile(acqW.Path, append(data, []byte("+sum")...)); err != nil {
		return err
	}
	return acqW.Close()
}

// genTask is a dynamic task: it declares no outputs of its own and
// expands, at run time, into a single writeTask child.
type genTask struct {
	name string
}

func (t *genTask) TypeName() string            { return "engine_test.Gen" }
func (t *genTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *genTask) Fields() []task.Field {
	return []task.Field{task.Required("name", t.name)}
}
func (t *genTask) Input() task.IOTree  { return task.None }
func (t *genTask) Output() task.IOTree { return task.None }

func (t *genTask) Generate(ctx context.Context, input, output task.IOTree) ([]task.Task, error) {
	return []task.Task{&writeTask{name: t.name + "-child", payload: "generated"}}, nil
}

// taggedTask carries a resource tag and records concurrent-run highwater.
type taggedTask struct {
	name    string
	tag     string
	running *int32
	peak    *int32
	hold    time.Duration
}

func (t *taggedTask) TypeName() string            { return "engine_test.Tagged" }
func (t *taggedTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *taggedTask) Fields() []task.Field {
	return []task.Field{task.Required("name", t.name)}
}
func (t *taggedTask) Input() task.IOTree  { return task.None }
func (t *taggedTask) Output() task.IOTree { return task.Leaf(task.NewOutput(task.Identity(t), "out", false)) }
func (t *taggedTask) Tags() []string      { return []string{t.tag} }

func (t *taggedTask) Run(ctx context.Context, input, output task.IOTree) error {
	n := atomic.AddInt32(t.running, 1)
	for {
		p := atomic.LoadInt32(t.peak)
		if n <= p || atomic.CompareAndSwapInt32(t.peak, p, n) {
			break
		}
	}
	time.Sleep(t.hold)
	atomic.AddInt32(t.running, -1)
	o, _ := output.AsLeaf()
	acq, err := o.Storage().Path(o.ID(), storage.WriteMode)
	if err != nil {
		return err
	}
	if err := writeFile(acq.Path, []byte("ok")); err != nil {
		return err
	}
	return acq.Close()
}

func TestRunSequentialLinearPipelineCompletes(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	src := &writeTask{name: "src", payload: "hello"}
	sum := &sumTask{name: "sum", src: src}

	err = Run(context.Background(), []task.Task{sum}, store, Options{Workers: 1})
	require.NoError(t, err)

	out := sum.out().AssignStorage(store)
	exists, err := out.Exists()
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunSequentialRerunIsNoOp(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	var calls int32
	src := &writeTask{name: "src", payload: "hello", calls: &calls}

	require.NoError(t, Run(context.Background(), []task.Task{src}, store, Options{Workers: 1}))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.NoError(t, Run(context.Background(), []task.Task{src}, store, Options{Workers: 1}))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "a completed task must not re-run")
}

func TestRunSequentialRejectsResourceBudget(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	src := &writeTask{name: "src", payload: "hello"}
	err = Run(context.Background(), []task.Task{src}, store, Options{Workers: 1, Resources: resource.Budget{"gpu": 1}})
	require.ErrorIs(t, err, ErrResourceTagsRequireParallel)
}

// TestRunSequentialPurgesEphemeralIntermediateOutput exercises end-to-end
// scenario 6: A -> B -> C, where B is A's only consumer and marks the
// A->B edge ephemeral. Once C (B's only consumer, non-ephemeral) has run,
// A's output must be gone from storage while B's remains.
func TestRunSequentialPurgesEphemeralIntermediateOutput(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	a := &writeTask{name: "a", payload: "hello"}
	b := &sumTask{name: "b", src: a, ephemeralInput: true}
	c := &sumTask{name: "c", src: b, ephemeralInput: false}

	require.NoError(t, Run(context.Background(), []task.Task{c}, store, Options{Workers: 1}))

	aOut := a.out().AssignStorage(store)
	aExists, err := aOut.Exists()
	require.NoError(t, err)
	require.False(t, aExists, "A's ephemeral-only-consumed output must be purged once B finishes")

	bOut := b.out().AssignStorage(store)
	bExists, err := bOut.Exists()
	require.NoError(t, err)
	require.True(t, bExists, "B's output is not ephemeral from C's perspective and must survive")
}

func TestRunSequentialExpandsDynamicTask(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	g := &genTask{name: "g"}
	err = Run(context.Background(), []task.Task{g}, store, Options{Workers: 1})
	require.NoError(t, err)

	done, err := IsCompleted(context.Background(), g, store)
	require.NoError(t, err)
	require.True(t, done)
}

func TestRunParallelLinearPipelineCompletes(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	src := &writeTask{name: "src", payload: "hello"}
	sum := &sumTask{name: "sum", src: src}

	err = Run(context.Background(), []task.Task{sum}, store, Options{Workers: 4})
	require.NoError(t, err)

	out := sum.out().AssignStorage(store)
	exists, err := out.Exists()
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunParallelHonorsResourceBudget(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	var running, peak int32
	var tasks []task.Task
	for i := 0; i < 6; i++ {
		tasks = append(tasks, &taggedTask{
			name:    fmt.Sprintf("t%d", i),
			tag:     "gpu",
			running: &running,
			peak:    &peak,
			hold:    20 * time.Millisecond,
		})
	}

	err = Run(context.Background(), tasks, store, Options{
		Workers:   6,
		Resources: resource.Budget{"gpu": 2},
	})
	require.NoError(t, err)
	require.LessOrEqual(t, int(atomic.LoadInt32(&peak)), 2)
}

// passThroughTask delegates identity and I/O to an inner task.
type passThroughTask struct {
	inner task.Task
}

func (t *passThroughTask) TypeName() string              { return "engine_test.PassThrough" }
func (t *passThroughTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *passThroughTask) Fields() []task.Field {
	return []task.Field{task.Required("inner", t.inner)}
}
func (t *passThroughTask) Input() task.IOTree  { return t.inner.Input() }
func (t *passThroughTask) Output() task.IOTree { return t.inner.Output() }
func (t *passThroughTask) Inner() task.Task    { return t.inner }

// noOutputTask declares no outputs, so it is never considered completed
// and runs on every invocation.
type noOutputTask struct {
	name  string
	calls *int32
}

func (t *noOutputTask) TypeName() string              { return "engine_test.NoOutput" }
func (t *noOutputTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *noOutputTask) Fields() []task.Field {
	return []task.Field{task.Required("name", t.name)}
}
func (t *noOutputTask) Input() task.IOTree  { return task.None }
func (t *noOutputTask) Output() task.IOTree { return task.None }

func (t *noOutputTask) Run(ctx context.Context, input, output task.IOTree) error {
	atomic.AddInt32(t.calls, 1)
	return nil
}

// readGenTask is a dynamic task that depends on an upstream output: it
// reads the upstream artifact and expands into a writeTask echoing its
// contents. Until the upstream artifact exists, its Generate surfaces
// NotFound, which the completion predicate treats as "not completed yet".
type readGenTask struct {
	name string
	src  task.Task
}

func (t *readGenTask) TypeName() string              { return "engine_test.ReadGen" }
func (t *readGenTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *readGenTask) Fields() []task.Field {
	return []task.Field{
		task.Required("name", t.name),
		task.Required("src", t.src),
	}
}
func (t *readGenTask) Input() task.IOTree {
	return task.Leaf(t.src.Output().Flatten()[0])
}
func (t *readGenTask) Output() task.IOTree { return task.None }

func (t *readGenTask) Generate(ctx context.Context, input, output task.IOTree) ([]task.Task, error) {
	leaf, _ := input.AsLeaf()
	acq, err := leaf.Storage().Path(leaf.ID(), storage.ReadMode)
	if err != nil {
		return nil, err
	}
	data, err := readFile(acq.Path)
	if err != nil {
		return nil, err
	}
	return []task.Task{&writeTask{name: t.name + "-echo", payload: string(data)}}, nil
}

// subgraphGenTask expands into a sumTask whose upstream producer enters
// the run only through the generated child's fields: neither the child
// nor the producer is a root, so both must be discovered and refcounted
// at expansion time.
type subgraphGenTask struct {
	name string
}

func (t *subgraphGenTask) TypeName() string              { return "engine_test.SubgraphGen" }
func (t *subgraphGenTask) SpecVersion() task.SpecVersion { return task.V1 }
func (t *subgraphGenTask) Fields() []task.Field {
	return []task.Field{task.Required("name", t.name)}
}
func (t *subgraphGenTask) Input() task.IOTree  { return task.None }
func (t *subgraphGenTask) Output() task.IOTree { return task.None }

func (t *subgraphGenTask) Generate(ctx context.Context, input, output task.IOTree) ([]task.Task, error) {
	src := &writeTask{name: t.name + "-hidden", payload: "upstream"}
	return []task.Task{&sumTask{name: t.name + "-sum", src: src, ephemeralInput: true}}, nil
}

func TestRunSequentialRefcountsTransitiveDependenciesOfGeneratedTasks(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	g := &subgraphGenTask{name: "sg"}
	require.NoError(t, Run(context.Background(), []task.Task{g}, store, Options{Workers: 1}))

	sum := &sumTask{name: "sg-sum", src: &writeTask{name: "sg-hidden", payload: "upstream"}, ephemeralInput: true}
	sumExists, err := sum.out().AssignStorage(store).Exists()
	require.NoError(t, err)
	require.True(t, sumExists)

	hidden := &writeTask{name: "sg-hidden", payload: "upstream"}
	hiddenExists, err := hidden.out().AssignStorage(store).Exists()
	require.NoError(t, err)
	require.False(t, hiddenExists, "the generated consumer's ephemeral input must be purged once it finishes")
}

func TestRunSequentialDynamicTaskReadsParentOutput(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	a := &writeTask{name: "parent", payload: `{"name":"x"}`}
	d := &readGenTask{name: "d", src: a}

	require.NoError(t, Run(context.Background(), []task.Task{d}, store, Options{Workers: 1}))

	echo := &writeTask{name: "d-echo", payload: ""}
	out := echo.out().AssignStorage(store)
	acq, err := store.Path(out.ID(), storage.ReadMode)
	require.NoError(t, err)
	data, err := readFile(acq.Path)
	require.NoError(t, err)
	require.Equal(t, `{"name":"x"}`, string(data))
}

func TestRunSequentialExecutesWrappedTask(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	inner := &writeTask{name: "wrapped", payload: "hello"}
	w := &passThroughTask{inner: inner}
	require.Equal(t, task.Identity(inner), task.Identity(w))

	require.NoError(t, Run(context.Background(), []task.Task{w}, store, Options{Workers: 1}))

	out := inner.out().AssignStorage(store)
	exists, err := out.Exists()
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunParallelNoOutputTaskRunsExactlyOnce(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	var calls int32
	n := &noOutputTask{name: "n", calls: &calls}
	require.NoError(t, Run(context.Background(), []task.Task{n}, store, Options{Workers: 2}))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRunParallelExpandsDynamicTask(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	g := &genTask{name: "pg"}
	require.NoError(t, Run(context.Background(), []task.Task{g}, store, Options{Workers: 3}))

	child := &writeTask{name: "pg-child", payload: "generated"}
	out := child.out().AssignStorage(store)
	exists, err := out.Exists()
	require.NoError(t, err)
	require.True(t, exists)
}

// A consumer whose input already sits in the read-only tier runs against
// a composite storage: the input resolves from the read-only tier and the
// consumer's own output lands in the read-write tier.
func TestRunSequentialCompositeConsumerWritesToReadWriteTier(t *testing.T) {
	roDir := t.TempDir()
	ro, err := storage.NewLocal(roDir)
	require.NoError(t, err)
	rw, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	src := &writeTask{name: "seed", payload: "seeded"}
	require.NoError(t, Run(context.Background(), []task.Task{src}, ro, Options{Workers: 1}))

	comp := storage.NewComposite(ro, rw)
	sum := &sumTask{name: "csum", src: src}
	require.NoError(t, Run(context.Background(), []task.Task{sum}, comp, Options{Workers: 1}))

	onRW, err := sum.out().AssignStorage(rw).Exists()
	require.NoError(t, err)
	require.True(t, onRW, "consumer output must land in the read-write tier")

	onRO, err := sum.out().AssignStorage(ro).Exists()
	require.NoError(t, err)
	require.False(t, onRO)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
