// Package labels assigns free-floating map text to the province it names.
package labels

import (
	"math"

	"variant-compiler/internal/compiler/geometry"
	"variant-compiler/internal/compiler/models"
)

// defaultRadiusFraction sizes the search radius from the map diagonal when
// no explicit radius is configured.
const defaultRadiusFraction = 0.1

// Method records how an owner was chosen.
type Method string

const (
	MethodContained Method = "contained"
	MethodNearest   Method = "nearest"
	MethodNone      Method = "none"
)

// Target is a province the associator may assign labels to.
type Target struct {
	ID      string
	Polygon *geometry.Polygon
}

// Association is the outcome for one text element. An empty ProvinceID
// means the label is unassociated and needs a decision from the user.
type Association struct {
	ProvinceID string  `json:"provinceId"`
	Method     Method  `json:"method"`
	Distance   float64 `json:"distance"`
}

func (a Association) Associated() bool {
	return a.ProvinceID != ""
}

type Associator struct {
	// Radius bounds the nearest-centroid fallback. Zero derives it from the
	// diagonal of the targets' combined bounds.
	Radius float64
}

func New(radius float64) *Associator {
	return &Associator{Radius: radius}
}

// Associate maps every text index to an owner. Results only ever name ids
// present in targets.
func (a *Associator) Associate(texts []models.TextElement, targets []Target) map[int]Association {
	sp := a.prepare(targets)
	out := make(map[int]Association, len(texts))
	for i, te := range texts {
		out[i] = sp.locate(point(te))
	}
	return out
}

// Reassociate recomputes only what upstream changes invalidated: labels
// whose previous owner is gone, whose containment result changed, or that
// never had an owner. Pinned indexes are user decisions and are copied
// through untouched.
func (a *Associator) Reassociate(texts []models.TextElement, targets []Target, prev map[int]Association, pinned map[int]bool) map[int]Association {
	sp := a.prepare(targets)
	out := make(map[int]Association, len(texts))
	for i, te := range texts {
		old, had := prev[i]
		switch {
		case pinned[i] && had:
			out[i] = old
		case had && sp.stillValid(point(te), old):
			out[i] = old
		default:
			out[i] = sp.locate(point(te))
		}
	}
	return out
}

func point(te models.TextElement) models.Point {
	return models.Point{X: te.X, Y: te.Y}
}

// ============================================================
// Spatial lookup
// ============================================================

type space struct {
	targets   []Target
	centroids []models.Point
	byID      map[string]int
	index     *geometry.Index
	radius    float64
}

func (a *Associator) prepare(targets []Target) *space {
	sp := &space{
		targets:   targets,
		centroids: make([]models.Point, len(targets)),
		byID:      make(map[string]int, len(targets)),
	}
	bounds := make([]geometry.Rect, len(targets))
	all := geometry.EmptyRect()
	for i, t := range targets {
		sp.byID[t.ID] = i
		bounds[i] = t.Polygon.Bounds()
		all = all.Union(bounds[i])
		if !t.Polygon.Empty() {
			sp.centroids[i] = t.Polygon.Centroid()
		}
	}
	sp.index = geometry.NewIndex(bounds, 0)

	sp.radius = a.Radius
	if sp.radius <= 0 {
		sp.radius = all.Diagonal() * defaultRadiusFraction
	}
	return sp
}

// containing lists target indexes whose polygon contains p.
func (sp *space) containing(p models.Point) []int {
	var out []int
	for _, i := range sp.index.QueryPoint(p) {
		if sp.targets[i].Polygon.Contains(p) {
			out = append(out, i)
		}
	}
	return out
}

// locate picks the containing polygon with the nearest centroid, else the
// nearest centroid within the search radius.
func (sp *space) locate(p models.Point) Association {
	if hits := sp.containing(p); len(hits) > 0 {
		i, d := sp.closest(p, hits)
		return Association{ProvinceID: sp.targets[i].ID, Method: MethodContained, Distance: d}
	}

	// A centroid lies inside its polygon's bounds, so the index narrows
	// the scan to bounds within the radius.
	zone := geometry.Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}.Expand(sp.radius)
	var candidates []int
	for _, i := range sp.index.Query(zone) {
		if geometry.Distance(p, sp.centroids[i]) <= sp.radius {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return Association{Method: MethodNone}
	}
	i, d := sp.closest(p, candidates)
	return Association{ProvinceID: sp.targets[i].ID, Method: MethodNearest, Distance: d}
}

// closest breaks ties by centroid distance, then by id.
func (sp *space) closest(p models.Point, idx []int) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for _, i := range idx {
		d := geometry.Distance(p, sp.centroids[i])
		if best < 0 || d < bestDist || (d == bestDist && sp.targets[i].ID < sp.targets[best].ID) {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func (sp *space) stillValid(p models.Point, old Association) bool {
	if !old.Associated() {
		return false
	}
	i, ok := sp.byID[old.ProvinceID]
	if !ok {
		return false
	}
	contained := sp.targets[i].Polygon.Contains(p)
	switch old.Method {
	case MethodContained:
		return contained
	case MethodNearest:
		// A label that now falls inside some province must move there.
		return !contained && len(sp.containing(p)) == 0
	}
	return false
}
