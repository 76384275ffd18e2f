package parser

import (
	"fmt"
	"strings"
)

// ============================================================
// Document Validator
// ============================================================

// Code is a stable validation result code shared with calling UIs.
type Code string

const (
	CodeInvalidXML            Code = "INVALID_XML"
	CodeNotSVG                Code = "NOT_SVG"
	CodeMissingProvincesLayer Code = "MISSING_PROVINCES_LAYER"
	CodeEmptyProvincesLayer   Code = "EMPTY_PROVINCES_LAYER"
)

const (
	provincesLayerName = "provinces"
)

var coastsLayerNames = []string{"coasts", "named-coasts", "namedcoasts"}

type ValidationError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type ValidationResult struct {
	Valid bool             `json:"valid"`
	Error *ValidationError `json:"error,omitempty"`
}

// Validate checks that svgText is well-formed XML with an <svg> root and a
// non-empty provinces layer. The first failing check wins.
func Validate(svgText string) ValidationResult {
	_, result := load(svgText)
	return result
}

// Load validates svgText and returns its document tree. On failure the
// returned error is a *ValidationError.
func Load(svgText string) (*Node, error) {
	doc, result := load(svgText)
	if !result.Valid {
		return nil, result.Error
	}
	return doc, nil
}

func load(svgText string) (*Node, ValidationResult) {
	doc, err := ParseDocument(strings.NewReader(svgText))
	if err != nil {
		return nil, fail(CodeInvalidXML, fmt.Sprintf("document is not well-formed XML: %v", err))
	}
	return doc, ValidateDocument(doc)
}

// ValidateDocument runs the structural checks on an already parsed tree.
func ValidateDocument(doc *Node) ValidationResult {
	if doc == nil || doc.Name.Local != "svg" {
		name := ""
		if doc != nil {
			name = qualified(doc.Name)
		}
		return fail(CodeNotSVG, fmt.Sprintf("root element is <%s>, expected <svg>", name))
	}

	layer := findLayer(doc, provincesLayerName)
	if layer == nil {
		return fail(CodeMissingProvincesLayer, `no group identifies itself as the "provinces" layer`)
	}
	if len(layerShapes(layer, findLayer(doc, coastsLayerNames...))) == 0 {
		return fail(CodeEmptyProvincesLayer, `the "provinces" layer contains no paths`)
	}

	return ValidationResult{Valid: true}
}

func fail(code Code, msg string) ValidationResult {
	return ValidationResult{Error: &ValidationError{Code: code, Message: msg}}
}

// ============================================================
// Layer lookup
// ============================================================

// findLayer returns the first <g> whose id or inkscape:label matches one of
// names, case-insensitively, in document order.
func findLayer(doc *Node, names ...string) *Node {
	var found *Node
	doc.Walk(func(n *Node) bool {
		if found != nil || nonRendered[n.Name.Local] {
			return false
		}
		if isLayer(n, names...) {
			found = n
			return false
		}
		return true
	})
	return found
}

func isLayer(n *Node, names ...string) bool {
	if n.Name.Local != "g" {
		return false
	}
	id := strings.TrimSpace(n.ID())
	label := strings.TrimSpace(n.InkscapeLabel())
	for _, name := range names {
		if strings.EqualFold(id, name) || strings.EqualFold(label, name) {
			return true
		}
	}
	return false
}

// layerShapes collects the shapes of a layer that carry usable geometry,
// the same set extraction turns into paths. A nested other layer belongs to
// itself and is skipped.
func layerShapes(layer, other *Node) []*Node {
	var shapes []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.IsText() || nonRendered[n.Name.Local] || n.Name.Local == "text" {
			return
		}
		if n != layer && n == other {
			return
		}
		if isShape(n) {
			if _, ok := shapePathData(n, Identity); ok {
				shapes = append(shapes, n)
			}
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(layer)
	return shapes
}

func isShape(n *Node) bool {
	switch n.Name.Local {
	case "path", "polygon", "polyline", "rect":
		return true
	}
	return false
}
