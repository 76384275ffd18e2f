package parser

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Geometric Extractor
// ============================================================

// StructuralError reports a document that passed validation but whose
// semantic layers could not be located during extraction.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural error: " + e.Reason
}

// nonRendered elements never become decorative markup or labels.
var nonRendered = map[string]bool{
	"metadata":  true,
	"namedview": true,
	"title":     true,
	"desc":      true,
	"script":    true,
}

// ParseSVG validates and extracts a document in one step. Validation
// failures are returned as *ValidationError.
func ParseSVG(r io.Reader) (*models.ParsedSvg, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read svg: %w", err)
	}
	doc, err := Load(string(data))
	if err != nil {
		return nil, err
	}
	return Extract(doc)
}

// Extract walks a validated document into plain data.
func Extract(doc *Node) (*models.ParsedSvg, error) {
	if doc == nil {
		return nil, &StructuralError{Reason: "document is nil"}
	}
	provinces := findLayer(doc, provincesLayerName)
	if provinces == nil {
		return nil, &StructuralError{Reason: "provinces layer not found"}
	}
	coasts := findLayer(doc, coastsLayerNames...)

	ex := &extractor{provinces: provinces, coasts: coasts}
	ex.walk(doc, Identity, "", false)

	if len(ex.out.ProvincePaths) == 0 {
		return nil, &StructuralError{Reason: "provinces layer has no usable shapes"}
	}

	ex.out.DecorativeElements = ex.decorative(doc)

	dims, ok := documentDimensions(doc)
	if !ok {
		dims = boundsOf(ex.out.ProvincePaths)
	}
	ex.out.Dimensions = dims

	if ex.out.CoastPaths == nil {
		ex.out.CoastPaths = []models.CoastPath{}
	}
	if ex.out.TextElements == nil {
		ex.out.TextElements = []models.TextElement{}
	}
	return &ex.out, nil
}

type extractor struct {
	provinces *Node
	coasts    *Node
	out       models.ParsedSvg
	anonymous int
}

// walk descends the tree carrying the accumulated transform and the fill
// inherited from enclosing groups.
func (ex *extractor) walk(n *Node, parent Matrix, inherited string, inDefs bool) {
	if n.IsText() || nonRendered[n.Name.Local] {
		return
	}
	m := parent
	if t := n.Attr("transform"); t != "" {
		if local, err := ParseTransform(t); err == nil {
			m = parent.Mul(local)
		}
	}

	switch {
	case n == ex.provinces:
		ex.collectProvinces(n, parent, inherited)
		return
	case n == ex.coasts:
		ex.collectCoasts(n, parent, inherited)
		return
	case n.Name.Local == "defs":
		inDefs = true
	case n.Name.Local == "text" && !inDefs:
		if te, ok := textElement(n, m); ok {
			ex.out.TextElements = append(ex.out.TextElements, te)
		}
		return
	}

	fill := paintOf(n, inherited)
	for _, c := range n.Children {
		ex.walk(c, m, fill, inDefs)
	}
}

func (ex *extractor) collectProvinces(layer *Node, parent Matrix, inherited string) {
	ex.collectShapes(layer, parent, inherited, func(n *Node, d, fill string) {
		ex.out.ProvincePaths = append(ex.out.ProvincePaths, models.ProvincePath{
			ElementID: ex.elementID(n),
			PathData:  d,
			Fill:      fill,
			Label:     shapeLabel(n),
		})
	})
}

func (ex *extractor) collectCoasts(layer *Node, parent Matrix, inherited string) {
	ex.collectShapes(layer, parent, inherited, func(n *Node, d, fill string) {
		id := ex.elementID(n)
		ex.out.CoastPaths = append(ex.out.CoastPaths, models.CoastPath{
			ElementID:       id,
			PathData:        d,
			Fill:            fill,
			Label:           shapeLabel(n),
			ParentElementID: coastParent(n, id),
		})
	})
}

// collectShapes visits shapes under a semantic layer. The other semantic
// layer is collected on its own when nested inside this one.
func (ex *extractor) collectShapes(layer *Node, parent Matrix, inherited string, emit func(n *Node, d, fill string)) {
	var visit func(n *Node, m Matrix, fill string)
	visit = func(n *Node, m Matrix, fill string) {
		if n.IsText() || nonRendered[n.Name.Local] || n.Name.Local == "text" {
			return
		}
		if n != layer && n == ex.provinces {
			ex.collectProvinces(n, m, fill)
			return
		}
		if n != layer && n == ex.coasts {
			ex.collectCoasts(n, m, fill)
			return
		}
		if t := n.Attr("transform"); t != "" {
			if local, err := ParseTransform(t); err == nil {
				m = m.Mul(local)
			}
		}
		fill = paintOf(n, fill)
		if isShape(n) {
			if d, ok := shapePathData(n, m); ok {
				emit(n, d, fill)
			}
			return
		}
		for _, c := range n.Children {
			visit(c, m, fill)
		}
	}
	visit(layer, parent, inherited)
}

func (ex *extractor) elementID(n *Node) string {
	if id := strings.TrimSpace(n.ID()); id != "" {
		return id
	}
	ex.anonymous++
	return fmt.Sprintf("%s-%d", n.Name.Local, ex.anonymous)
}

// decorative serialises every top-level element that carries no semantics,
// with texts and semantic layers cut out.
func (ex *extractor) decorative(doc *Node) []models.DecorativeElement {
	skip := func(n *Node) bool {
		return n == ex.provinces || n == ex.coasts || n.Name.Local == "text" || nonRendered[n.Name.Local]
	}

	out := []models.DecorativeElement{}
	for _, c := range doc.Elements() {
		if !hasContent(c, skip) {
			continue
		}
		out = append(out, models.DecorativeElement{
			ElementID: c.ID(),
			Tag:       c.Name.Local,
			Markup:    c.Markup(skip),
		})
	}
	return out
}

func hasContent(n *Node, skip func(*Node) bool) bool {
	if n.IsText() || skip(n) {
		return false
	}
	if n.Name.Local != "g" {
		return true
	}
	for _, c := range n.Children {
		if hasContent(c, skip) {
			return true
		}
	}
	return false
}

// ============================================================
// Shapes
// ============================================================

// shapePathData converts a shape element into path data with the
// accumulated transform applied. Untransformed paths keep their original
// data; anything else is rewritten as a flattened polyline.
func shapePathData(n *Node, m Matrix) (string, bool) {
	switch n.Name.Local {
	case "path":
		d := strings.TrimSpace(n.Attr("d"))
		if d == "" {
			return "", false
		}
		if m.IsIdentity() {
			return d, true
		}
		rings, err := ParseSubpaths(d)
		if err != nil {
			return d, true
		}
		return FormatPolyline(transformRings(rings, m), false), true

	case "polygon", "polyline":
		nums, err := parseNumberList(n.Attr("points"))
		if err != nil || len(nums) < 4 {
			return "", false
		}
		ring := make([]models.Point, 0, len(nums)/2)
		for i := 0; i+1 < len(nums); i += 2 {
			ring = append(ring, models.Point{X: nums[i], Y: nums[i+1]})
		}
		return FormatPolyline(transformRings([][]models.Point{ring}, m), n.Name.Local == "polygon"), true

	case "rect":
		x, _ := parseLength(n.Attr("x"))
		y, _ := parseLength(n.Attr("y"))
		w, okW := parseLength(n.Attr("width"))
		h, okH := parseLength(n.Attr("height"))
		if !okW || !okH || w <= 0 || h <= 0 {
			return "", false
		}
		ring := []models.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
		return FormatPolyline(transformRings([][]models.Point{ring}, m), true), true
	}
	return "", false
}

func transformRings(rings [][]models.Point, m Matrix) [][]models.Point {
	if m.IsIdentity() {
		return rings
	}
	out := make([][]models.Point, len(rings))
	for i, ring := range rings {
		out[i] = make([]models.Point, len(ring))
		for j, p := range ring {
			out[i][j] = m.Apply(p)
		}
	}
	return out
}

func shapeLabel(n *Node) string {
	if label := strings.TrimSpace(n.InkscapeLabel()); label != "" {
		return label
	}
	for _, c := range n.Elements() {
		if c.Name.Local == "title" {
			return strings.TrimSpace(c.InnerText())
		}
	}
	return ""
}

// coastParent resolves a coast's parent province: an explicit data-parent
// attribute, else the id prefix before the last '_' or '/'.
func coastParent(n *Node, id string) string {
	if parent := strings.TrimSpace(n.Attr("data-parent")); parent != "" {
		return parent
	}
	if i := strings.LastIndexAny(id, "_/"); i > 0 {
		return id[:i]
	}
	return ""
}

// ============================================================
// Text
// ============================================================

func textElement(n *Node, m Matrix) (models.TextElement, bool) {
	content := norm.NFC.String(strings.Join(strings.Fields(n.InnerText()), " "))
	if content == "" {
		return models.TextElement{}, false
	}

	x, okX := firstCoordinate(n.Attr("x"))
	y, okY := firstCoordinate(n.Attr("y"))
	if !okX || !okY {
		for _, c := range n.Elements() {
			if c.Name.Local != "tspan" {
				continue
			}
			tx, okTX := firstCoordinate(c.Attr("x"))
			ty, okTY := firstCoordinate(c.Attr("y"))
			if okTX && okTY {
				x, y = tx, ty
				break
			}
		}
	}

	anchor := m.Apply(models.Point{X: x, Y: y})
	te := models.TextElement{
		Content: content,
		X:       anchor.X,
		Y:       anchor.Y,
		Styles:  elementStyles(n, textStyleAttributes),
	}
	if r := m.Rotation(); math.Abs(r) > 1e-9 {
		te.Rotation = &r
	}
	return te, true
}

func firstCoordinate(s string) (float64, bool) {
	nums, err := parseNumberList(s)
	if err != nil || len(nums) == 0 {
		return 0, false
	}
	return nums[0], true
}

// ============================================================
// Dimensions
// ============================================================

func documentDimensions(doc *Node) (models.Dimensions, bool) {
	if nums, err := parseNumberList(doc.Attr("viewBox")); err == nil && len(nums) == 4 && nums[2] > 0 && nums[3] > 0 {
		return models.Dimensions{Width: nums[2], Height: nums[3]}, true
	}
	w, okW := parseLength(doc.Attr("width"))
	h, okH := parseLength(doc.Attr("height"))
	if okW && okH && w > 0 && h > 0 {
		return models.Dimensions{Width: w, Height: h}, true
	}
	return models.Dimensions{}, false
}

// parseLength reads a length with an optional unit suffix. Percentages are
// relative to an unknown viewport and are rejected.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	sc := &pathScanner{s: s}
	v, err := sc.number()
	if err != nil {
		return 0, false
	}
	return v, true
}

func boundsOf(paths []models.ProvincePath) models.Dimensions {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range paths {
		points, err := ParsePath(p.PathData)
		if err != nil {
			continue
		}
		for _, pt := range points {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	if minX == math.MaxFloat64 {
		return models.Dimensions{}
	}
	return models.Dimensions{Width: maxX, Height: maxY}
}
