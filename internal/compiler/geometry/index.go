package geometry

import (
	"math"
	"sort"

	"variant-compiler/internal/compiler/models"
)

// maxCellsPerItem bounds how many grid cells one oversized item may occupy;
// larger items are kept in an overflow list checked on every query.
const maxCellsPerItem = 4096

type cellKey struct{ X, Y int }

// Index is a uniform grid over item bounding boxes. Queries return item
// indexes in ascending order so callers stay deterministic.
type Index struct {
	cell     float64
	bounds   []Rect
	cells    map[cellKey][]int
	overflow []int
}

// NewIndex buckets bounds into square cells. A non-positive cellSize picks
// the mean item extent.
func NewIndex(bounds []Rect, cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = meanExtent(bounds)
	}
	ix := &Index{
		cell:   cellSize,
		bounds: bounds,
		cells:  make(map[cellKey][]int),
	}
	for i, b := range bounds {
		if b.Empty() {
			continue
		}
		x0, y0, x1, y1 := ix.span(b)
		if (x1-x0+1)*(y1-y0+1) > maxCellsPerItem {
			ix.overflow = append(ix.overflow, i)
			continue
		}
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				k := cellKey{X: x, Y: y}
				ix.cells[k] = append(ix.cells[k], i)
			}
		}
	}
	return ix
}

func meanExtent(bounds []Rect) float64 {
	var sum float64
	n := 0
	for _, b := range bounds {
		if b.Empty() {
			continue
		}
		sum += math.Max(b.Width(), b.Height())
		n++
	}
	if n == 0 || sum <= 0 {
		return 1
	}
	return sum / float64(n)
}

func (ix *Index) span(r Rect) (x0, y0, x1, y1 int) {
	return int(math.Floor(r.MinX / ix.cell)), int(math.Floor(r.MinY / ix.cell)),
		int(math.Floor(r.MaxX / ix.cell)), int(math.Floor(r.MaxY / ix.cell))
}

// Query returns the items whose bounds intersect r.
func (ix *Index) Query(r Rect) []int {
	if r.Empty() {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	consider := func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		if ix.bounds[i].Intersects(r) {
			out = append(out, i)
		}
	}

	x0, y0, x1, y1 := ix.span(r)
	if (x1-x0+1)*(y1-y0+1) > maxCellsPerItem {
		for i := range ix.bounds {
			consider(i)
		}
	} else {
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				for _, i := range ix.cells[cellKey{X: x, Y: y}] {
					consider(i)
				}
			}
		}
		for _, i := range ix.overflow {
			consider(i)
		}
	}
	sort.Ints(out)
	return out
}

// QueryPoint returns the items whose bounds contain p.
func (ix *Index) QueryPoint(p models.Point) []int {
	return ix.Query(Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y})
}
