package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOTreeFlattenOrdersMapByKey(t *testing.T) {
	a := NewOutput("t1", "a", false)
	b := NewOutput("t1", "b", false)
	tree := Map(map[string]IOTree{
		"z": Leaf(b),
		"a": Leaf(a),
	})
	flat := tree.Flatten()
	require.Equal(t, []*Output{a, b}, flat)
}

func TestIOTreeFlattenSeq(t *testing.T) {
	a := NewOutput("t1", "a", false)
	b := NewOutput("t1", "b", false)
	tree := Seq(Leaf(a), None, Leaf(b))
	require.Equal(t, []*Output{a, b}, tree.Flatten())
}

func TestIOTreeNoneFlattensEmpty(t *testing.T) {
	require.Empty(t, None.Flatten())
}

func TestIOTreeMapRebuildsWithTransform(t *testing.T) {
	a := NewOutput("t1", "a", false)
	tree := Leaf(a)
	bound := tree.Map(func(o *Output) *Output {
		return o.AssignStorage(nil)
	})
	leaf, ok := bound.AsLeaf()
	require.True(t, ok)
	require.Equal(t, a.ID(), leaf.ID())
}
