package graph

import (
	"math"

	"variant-compiler/internal/compiler/geometry"
	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Adjacency Deriver
// ============================================================

const (
	defaultMinSharedLength = 2.0  // shorter shared boundaries are corner contacts
	defaultTolerance       = 3.0  // gap bridged between sea and coastal outlines
	defaultSnap            = 0.75 // distance within which two edges count as coincident
)

type Options struct {
	MinSharedLength float64
	Tolerance       float64
	Snap            float64
}

func DefaultOptions() Options {
	return Options{
		MinSharedLength: defaultMinSharedLength,
		Tolerance:       defaultTolerance,
		Snap:            defaultSnap,
	}
}

// Shape is one province or named coast outline taking part in derivation.
type Shape struct {
	ID       string
	Type     models.ProvinceType
	Coast    bool
	ParentID string
	Polygon  *geometry.Polygon
}

func (s Shape) water() bool {
	return s.Coast || s.Type.Water()
}

type GraphBuilder struct {
	opts Options
}

func NewGraphBuilder(opts Options) *GraphBuilder {
	def := DefaultOptions()
	if opts.MinSharedLength <= 0 {
		opts.MinSharedLength = def.MinSharedLength
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Snap <= 0 {
		opts.Snap = def.Snap
	}
	return &GraphBuilder{opts: opts}
}

func (g *GraphBuilder) Options() Options {
	return g.opts
}

// Derive computes the candidate adjacency graph. Every shape appears as a
// node; each unordered pair is examined once and linked in both directions.
func (g *GraphBuilder) Derive(shapes []Shape) *Adjacency {
	adj := NewAdjacency()
	reach := math.Max(g.opts.Tolerance, g.opts.Snap)

	bounds := make([]geometry.Rect, len(shapes))
	for i, s := range shapes {
		adj.AddNode(s.ID)
		bounds[i] = s.Polygon.Bounds()
	}
	index := geometry.NewIndex(bounds, 0)

	for i, a := range shapes {
		if a.Polygon.Empty() {
			continue
		}
		for _, j := range index.Query(bounds[i].Expand(reach)) {
			if j <= i {
				continue
			}
			b := shapes[j]
			if g.related(a, b) {
				continue
			}
			if g.adjacent(a, b) {
				adj.Link(a.ID, b.ID)
			}
		}
	}
	return adj
}

// related excludes pairs that must not derive an edge: a coast and its own
// parent, two coasts of one parent, and duplicate ids.
func (g *GraphBuilder) related(a, b Shape) bool {
	switch {
	case a.ID == b.ID:
		return true
	case a.Coast && a.ParentID == b.ID, b.Coast && b.ParentID == a.ID:
		return true
	case a.Coast && b.Coast && a.ParentID != "" && a.ParentID == b.ParentID:
		return true
	}
	return false
}

func (g *GraphBuilder) adjacent(a, b Shape) bool {
	if geometry.SharedBoundary(a.Polygon, b.Polygon, g.opts.Snap) >= g.opts.MinSharedLength {
		return true
	}
	if seaPair(a, b) {
		return geometry.Within(a.Polygon, b.Polygon, g.opts.Tolerance)
	}
	return false
}

// seaPair is a sea province facing another water-bearing shape.
func seaPair(a, b Shape) bool {
	return (a.Type == models.ProvinceSea && b.water()) || (b.Type == models.ProvinceSea && a.water())
}

// Touching applies the same geometric test to two outlines regardless of
// type. The province classifier uses it to find coastal provinces.
func (g *GraphBuilder) Touching(a, b *geometry.Polygon) bool {
	if geometry.SharedBoundary(a, b, g.opts.Snap) >= g.opts.MinSharedLength {
		return true
	}
	return geometry.Within(a, b, g.opts.Tolerance)
}
