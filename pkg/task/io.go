package task

import "sort"

// IOTree is an input()/output() tree, modeled as a tagged union rather
// than duck-typed null/single/list/tuple/map nestings:
// None | Leaf(Output) | Seq[IOTree] | Map[string, IOTree].
// Flatten and storage binding become plain recursive walks over this type.
type IOTree struct {
	kind ioKind
	leaf *Output
	seq  []IOTree
	m    map[string]IOTree
}

type ioKind int

const (
	ioNone ioKind = iota
	ioLeaf
	ioSeq
	ioMap
)

// None is the empty IOTree.
var None = IOTree{kind: ioNone}

// Leaf wraps a single Output.
func Leaf(o *Output) IOTree {
	return IOTree{kind: ioLeaf, leaf: o}
}

// Seq wraps an ordered sequence of IOTree.
func Seq(items ...IOTree) IOTree {
	return IOTree{kind: ioSeq, seq: items}
}

// Map wraps a named map of IOTree.
func Map(m map[string]IOTree) IOTree {
	return IOTree{kind: ioMap, m: m}
}

// IsNone reports whether the tree is the empty None value.
func (t IOTree) IsNone() bool { return t.kind == ioNone }

// AsLeaf returns the wrapped Output and true if t is a Leaf.
func (t IOTree) AsLeaf() (*Output, bool) {
	if t.kind == ioLeaf {
		return t.leaf, true
	}
	return nil, false
}

// Flatten returns every Output reachable from t, in a stable depth-first
// order: Seq items in sequence order, Map entries by sorted key.
func (t IOTree) Flatten() []*Output {
	var out []*Output
	t.flattenInto(&out)
	return out
}

func (t IOTree) flattenInto(out *[]*Output) {
	switch t.kind {
	case ioNone:
		return
	case ioLeaf:
		*out = append(*out, t.leaf)
	case ioSeq:
		for _, child := range t.seq {
			child.flattenInto(out)
		}
	case ioMap:
		for _, key := range sortedKeys(t.m) {
			t.m[key].flattenInto(out)
		}
	}
}

// Map walks t, applying fn to every leaf Output, and rebuilds the tree
// with the results.
func (t IOTree) Map(fn func(*Output) *Output) IOTree {
	switch t.kind {
	case ioNone:
		return t
	case ioLeaf:
		return Leaf(fn(t.leaf))
	case ioSeq:
		next := make([]IOTree, len(t.seq))
		for i, child := range t.seq {
			next[i] = child.Map(fn)
		}
		return Seq(next...)
	case ioMap:
		next := make(map[string]IOTree, len(t.m))
		for k, child := range t.m {
			next[k] = child.Map(fn)
		}
		return Map(next)
	default:
		return t
	}
}

func sortedKeys(m map[string]IOTree) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
