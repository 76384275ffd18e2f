package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjacencySymmetric(t *testing.T) {
	g := NewAdjacency()
	g.Link("par", "bur")
	g.Link("par", "par")
	g.AddNode("gas")

	assert.True(t, g.Has("par", "bur"))
	assert.True(t, g.Has("bur", "par"))
	assert.False(t, g.Has("par", "par"))
	assert.Equal(t, []string{"bur", "gas", "par"}, g.Nodes())
	assert.Empty(t, g.Neighbors("gas"))

	g.Unlink("bur", "par")
	assert.False(t, g.Has("par", "bur"))
	assert.True(t, g.HasNode("par"))
}

func TestAdjacencyMap(t *testing.T) {
	g := NewAdjacency()
	g.Link("c", "a")
	g.Link("b", "a")

	assert.Equal(t, map[string][]string{
		"a": {"b", "c"},
		"b": {"a"},
		"c": {"a"},
	}, g.Map())
}

func TestNewEdgeOrdersEnds(t *testing.T) {
	assert.Equal(t, NewEdge("x", "y"), NewEdge("y", "x"))
	assert.Equal(t, Edge{A: "x", B: "y"}, NewEdge("y", "x"))
}

func TestDiffApply(t *testing.T) {
	base := NewAdjacency()
	base.Link("a", "b")
	base.Link("b", "c")

	d := NewDiff()
	d.Remove(NewEdge("a", "b"))
	d.Add(NewEdge("c", "a"))
	d.Add(NewEdge("a", "ghost"))

	got := d.Apply(base)
	assert.Equal(t, map[string][]string{
		"a": {"c"},
		"b": {"c"},
		"c": {"a", "b"},
	}, got.Map())
	assert.True(t, base.Has("a", "b"), "base is not mutated")

	added, removed := d.Sorted()
	assert.Equal(t, []Edge{{A: "a", B: "c"}, {A: "a", B: "ghost"}}, added)
	assert.Equal(t, []Edge{{A: "a", B: "b"}}, removed)
}

func TestDiffLastWriteWins(t *testing.T) {
	d := NewDiff()
	e := NewEdge("a", "b")

	d.Add(e)
	d.Remove(e)
	assert.False(t, d.Added[e])
	assert.True(t, d.Removed[e])

	d.Reset(e)
	assert.True(t, d.Empty())
}

func TestDiffForget(t *testing.T) {
	d := NewDiff()
	d.Remove(NewEdge("a", "b"))
	d.Add(NewEdge("a", "c"))
	d.Add(NewEdge("b", "c"))

	clone := d.Clone()
	assert.Equal(t, 2, d.Forget(map[string]bool{"a": true}))
	assert.Equal(t, map[Edge]bool{NewEdge("b", "c"): true}, d.Added)
	assert.Empty(t, d.Removed)

	assert.Len(t, clone.Added, 2, "clone is independent")
	assert.Zero(t, d.Forget(nil))
}
