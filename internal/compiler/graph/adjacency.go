package graph

import (
	"sort"
)

// ============================================================
// Adjacency graph
// ============================================================

// Adjacency is an undirected graph keyed by canonical id. Every mutation
// writes both directions, so the relation is symmetric by construction.
type Adjacency struct {
	edges map[string]map[string]struct{}
}

func NewAdjacency() *Adjacency {
	return &Adjacency{edges: make(map[string]map[string]struct{})}
}

// AddNode registers id with an empty neighbour set.
func (g *Adjacency) AddNode(id string) {
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = make(map[string]struct{})
	}
}

func (g *Adjacency) HasNode(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// Link joins a and b. Self-loops are ignored.
func (g *Adjacency) Link(a, b string) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.edges[a][b] = struct{}{}
	g.edges[b][a] = struct{}{}
}

func (g *Adjacency) Unlink(a, b string) {
	delete(g.edges[a], b)
	delete(g.edges[b], a)
}

func (g *Adjacency) Has(a, b string) bool {
	_, ok := g.edges[a][b]
	return ok
}

// Neighbors returns id's neighbours in ascending order.
func (g *Adjacency) Neighbors(id string) []string {
	out := make([]string, 0, len(g.edges[id]))
	for n := range g.edges[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every id in ascending order.
func (g *Adjacency) Nodes() []string {
	out := make([]string, 0, len(g.edges))
	for id := range g.edges {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Map exports the graph as sorted neighbour lists.
func (g *Adjacency) Map() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for id := range g.edges {
		out[id] = g.Neighbors(id)
	}
	return out
}

func (g *Adjacency) Clone() *Adjacency {
	out := NewAdjacency()
	for id, ns := range g.edges {
		out.AddNode(id)
		for n := range ns {
			out.edges[id][n] = struct{}{}
		}
	}
	return out
}

// ============================================================
// Edges and overrides
// ============================================================

// Edge is an undirected pair stored with A < B.
type Edge struct {
	A string `json:"a"`
	B string `json:"b"`
}

func NewEdge(a, b string) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Diff stores user edits against a derived baseline so they can be
// replayed after re-derivation.
type Diff struct {
	Added   map[Edge]bool
	Removed map[Edge]bool
}

func NewDiff() *Diff {
	return &Diff{Added: map[Edge]bool{}, Removed: map[Edge]bool{}}
}

func (d *Diff) Add(e Edge) {
	delete(d.Removed, e)
	d.Added[e] = true
}

func (d *Diff) Remove(e Edge) {
	delete(d.Added, e)
	d.Removed[e] = true
}

// Reset forgets any override of e.
func (d *Diff) Reset(e Edge) {
	delete(d.Added, e)
	delete(d.Removed, e)
}

func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Forget drops every override touching one of ids and returns how many
// were dropped.
func (d *Diff) Forget(ids map[string]bool) int {
	dropped := 0
	for _, set := range []map[Edge]bool{d.Added, d.Removed} {
		for e := range set {
			if ids[e.A] || ids[e.B] {
				delete(set, e)
				dropped++
			}
		}
	}
	return dropped
}

// Apply replays the diff on a copy of base. Overrides naming nodes absent
// from base are skipped.
func (d *Diff) Apply(base *Adjacency) *Adjacency {
	out := base.Clone()
	for e := range d.Removed {
		out.Unlink(e.A, e.B)
	}
	for e := range d.Added {
		if out.HasNode(e.A) && out.HasNode(e.B) {
			out.Link(e.A, e.B)
		}
	}
	return out
}

// Clone copies the diff.
func (d *Diff) Clone() *Diff {
	out := NewDiff()
	for e := range d.Added {
		out.Added[e] = true
	}
	for e := range d.Removed {
		out.Removed[e] = true
	}
	return out
}

// Sorted lists added and removed edges in order.
func (d *Diff) Sorted() (added, removed []Edge) {
	for e := range d.Added {
		added = append(added, e)
	}
	for e := range d.Removed {
		removed = append(removed, e)
	}
	less := func(s []Edge) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].A != s[j].A {
				return s[i].A < s[j].A
			}
			return s[i].B < s[j].B
		}
	}
	sort.Slice(added, less(added))
	sort.Slice(removed, less(removed))
	return added, removed
}
