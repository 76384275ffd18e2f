// Package geometry provides the polygon abstraction used for label
// association and adjacency derivation over flattened SVG paths. Planar
// primitives come from orb/planar; shared-edge measurement is local.
package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/parser"
)

const epsilon = 1e-9

// ============================================================
// Rect
// ============================================================

type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyRect returns a rect that any Extend call replaces.
func EmptyRect() Rect {
	return Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

func (r Rect) Empty() bool {
	return r.MinX > r.MaxX || r.MinY > r.MaxY
}

func (r Rect) Extend(p models.Point) Rect {
	return Rect{
		MinX: math.Min(r.MinX, p.X),
		MinY: math.Min(r.MinY, p.Y),
		MaxX: math.Max(r.MaxX, p.X),
		MaxY: math.Max(r.MaxY, p.Y),
	}
}

func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

func (r Rect) Expand(d float64) Rect {
	if r.Empty() {
		return r
	}
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

func (r Rect) ContainsPoint(p models.Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func (r Rect) Diagonal() float64 {
	if r.Empty() {
		return 0
	}
	return math.Hypot(r.Width(), r.Height())
}

// ============================================================
// Segment
// ============================================================

type Segment struct {
	A, B models.Point
}

func (s Segment) Length() float64 {
	return Distance(s.A, s.B)
}

func (s Segment) Bounds() Rect {
	return EmptyRect().Extend(s.A).Extend(s.B)
}

func toOrb(p models.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) models.Point {
	return models.Point{X: p[0], Y: p[1]}
}

func Distance(a, b models.Point) float64 {
	return planar.Distance(toOrb(a), toOrb(b))
}

// PointSegmentDistance is the distance from p to the closest point of s.
func PointSegmentDistance(p models.Point, s Segment) float64 {
	return planar.DistanceFromSegment(toOrb(s.A), toOrb(s.B), toOrb(p))
}

// SegmentDistance is zero for crossing segments, else the smallest
// endpoint-to-segment distance.
func SegmentDistance(s, o Segment) float64 {
	if segmentsIntersect(s, o) {
		return 0
	}
	return math.Min(
		math.Min(PointSegmentDistance(s.A, o), PointSegmentDistance(s.B, o)),
		math.Min(PointSegmentDistance(o.A, s), PointSegmentDistance(o.B, s)),
	)
}

func segmentsIntersect(s, o Segment) bool {
	d1 := cross(o.A, o.B, s.A)
	d2 := cross(o.A, o.B, s.B)
	d3 := cross(s.A, s.B, o.A)
	d4 := cross(s.A, s.B, o.B)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(a, b, c models.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// SharedLength measures how much of o runs along s: both endpoints of o
// must lie within tol of the line through s, and the overlap of their
// projections onto s is returned.
func SharedLength(s, o Segment, tol float64) float64 {
	length := s.Length()
	if length < epsilon {
		return 0
	}
	ux, uy := (s.B.X-s.A.X)/length, (s.B.Y-s.A.Y)/length

	offset := func(p models.Point) (along, across float64) {
		px, py := p.X-s.A.X, p.Y-s.A.Y
		return px*ux + py*uy, math.Abs(px*uy - py*ux)
	}
	ta, da := offset(o.A)
	tb, db := offset(o.B)
	if da > tol || db > tol {
		return 0
	}
	lo := math.Max(0, math.Min(ta, tb))
	hi := math.Min(length, math.Max(ta, tb))
	return math.Max(0, hi-lo)
}

// ============================================================
// Polygon
// ============================================================

// Polygon is a set of closed rings evaluated with the even-odd rule, so
// islands and holes drawn as subpaths behave as authored.
type Polygon struct {
	Rings    [][]models.Point
	rings    []orb.Ring
	bounds   Rect
	segments []Segment
}

// NewPolygon closes every ring and drops rings with fewer than three points.
func NewPolygon(rings [][]models.Point) *Polygon {
	p := &Polygon{bounds: EmptyRect()}
	for _, ring := range rings {
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			continue
		}
		closed := make([]models.Point, 0, len(ring)+1)
		closed = append(closed, ring...)
		closed = append(closed, ring[0])
		for _, pt := range ring {
			p.bounds = p.bounds.Extend(pt)
		}
		p.Rings = append(p.Rings, closed)
		r := make(orb.Ring, len(closed))
		for i, pt := range closed {
			r[i] = toOrb(pt)
		}
		p.rings = append(p.rings, r)
		for i := 0; i+1 < len(closed); i++ {
			if closed[i] != closed[i+1] {
				p.segments = append(p.segments, Segment{A: closed[i], B: closed[i+1]})
			}
		}
	}
	return p
}

// FromPath builds a polygon from SVG path data.
func FromPath(d string) (*Polygon, error) {
	rings, err := parser.ParseSubpaths(d)
	if err != nil {
		return nil, err
	}
	return NewPolygon(rings), nil
}

func (p *Polygon) Empty() bool {
	return p == nil || len(p.Rings) == 0
}

func (p *Polygon) Bounds() Rect {
	if p == nil {
		return EmptyRect()
	}
	return p.bounds
}

// Contains applies the even-odd rule across all rings.
func (p *Polygon) Contains(pt models.Point) bool {
	if p.Empty() || !p.bounds.ContainsPoint(pt) {
		return false
	}
	q := toOrb(pt)
	inside := false
	for _, r := range p.rings {
		if planar.RingContains(r, q) {
			inside = !inside
		}
	}
	return inside
}

// Segments returns every boundary edge.
func (p *Polygon) Segments() []Segment {
	if p == nil {
		return nil
	}
	return p.segments
}

// ringSign is -1 for rings nested inside an odd number of other rings.
func (p *Polygon) ringSign(i int) float64 {
	depth := 0
	for j := range p.rings {
		if j != i && nested(p.rings[i], p.rings[j]) {
			depth++
		}
	}
	if depth%2 == 1 {
		return -1
	}
	return 1
}

// nested reports whether inner lies within the strictly larger outer ring.
// Shared vertices and edges count as inside.
func nested(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	if math.Abs(planar.Area(inner)) >= math.Abs(planar.Area(outer)) {
		return false
	}
	for _, pt := range inner {
		if !planar.RingContains(outer, pt) {
			return false
		}
	}
	return true
}

// Area is the even-odd filled area.
func (p *Polygon) Area() float64 {
	if p.Empty() {
		return 0
	}
	var total float64
	for i, r := range p.rings {
		total += p.ringSign(i) * math.Abs(planar.Area(r))
	}
	return math.Max(0, total)
}

// Centroid is the area-weighted centre of the filled region, falling back
// to the vertex mean for degenerate shapes.
func (p *Polygon) Centroid() models.Point {
	if p.Empty() {
		return models.Point{}
	}
	var cx, cy, total float64
	for i, r := range p.rings {
		c, a := planar.CentroidArea(r)
		if math.Abs(a) < epsilon {
			continue
		}
		w := p.ringSign(i) * math.Abs(a)
		rc := fromOrb(c)
		cx += rc.X * w
		cy += rc.Y * w
		total += w
	}
	if math.Abs(total) < epsilon {
		return p.vertexMean()
	}
	return models.Point{X: cx / total, Y: cy / total}
}

func (p *Polygon) vertexMean() models.Point {
	var sx, sy float64
	n := 0
	for _, ring := range p.Rings {
		for _, pt := range ring[:len(ring)-1] {
			sx += pt.X
			sy += pt.Y
			n++
		}
	}
	return models.Point{X: sx / float64(n), Y: sy / float64(n)}
}

// InteriorPoint returns the centroid when it lies inside the polygon, else
// the midpoint of the widest horizontal span through the shape.
func (p *Polygon) InteriorPoint() models.Point {
	c := p.Centroid()
	if p.Empty() || p.Contains(c) {
		return c
	}
	b := p.bounds
	for _, f := range []float64{0.5, 0.4, 0.6, 0.3, 0.7, 0.2, 0.8} {
		y := c.Y
		if f != 0.5 {
			y = b.MinY + f*b.Height()
		}
		if pt, ok := p.widestSpan(y); ok {
			return pt
		}
	}
	return c
}

func (p *Polygon) widestSpan(y float64) (models.Point, bool) {
	var xs []float64
	for _, s := range p.Segments() {
		if (s.A.Y > y) != (s.B.Y > y) {
			xs = append(xs, s.A.X+(y-s.A.Y)*(s.B.X-s.A.X)/(s.B.Y-s.A.Y))
		}
	}
	sort.Float64s(xs)
	best, width := models.Point{}, 0.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > width {
			width = w
			best = models.Point{X: (xs[i] + xs[i+1]) / 2, Y: y}
		}
	}
	return best, width > epsilon
}

// ============================================================
// Polygon pairs
// ============================================================

// segmentsNear returns the segments of p whose bounds touch r.
func (p *Polygon) segmentsNear(r Rect) []Segment {
	var out []Segment
	for _, s := range p.Segments() {
		if s.Bounds().Intersects(r) {
			out = append(out, s)
		}
	}
	return out
}

// SharedBoundary sums the length of boundary that a and b run along
// together within tol of each other.
func SharedBoundary(a, b *Polygon, tol float64) float64 {
	if a.Empty() || b.Empty() || !a.bounds.Expand(tol).Intersects(b.bounds) {
		return 0
	}
	as := a.segmentsNear(b.bounds.Expand(tol))
	bs := b.segmentsNear(a.bounds.Expand(tol))

	var total float64
	for _, s := range as {
		var covered float64
		zone := s.Bounds().Expand(tol)
		for _, o := range bs {
			if !zone.Intersects(o.Bounds()) {
				continue
			}
			covered += SharedLength(s, o, tol)
		}
		total += math.Min(covered, s.Length())
	}
	return total
}

// Within reports whether the outlines of a and b come within tol of each
// other, or one contains the other.
func Within(a, b *Polygon, tol float64) bool {
	if a.Empty() || b.Empty() || !a.bounds.Expand(tol).Intersects(b.bounds) {
		return false
	}
	as := a.segmentsNear(b.bounds.Expand(tol))
	bs := b.segmentsNear(a.bounds.Expand(tol))
	for _, s := range as {
		zone := s.Bounds().Expand(tol)
		for _, o := range bs {
			if zone.Intersects(o.Bounds()) && SegmentDistance(s, o) <= tol {
				return true
			}
		}
	}
	return a.Contains(b.Rings[0][0]) || b.Contains(a.Rings[0][0])
}
