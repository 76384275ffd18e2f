package parser

import (
	"fmt"
	"math"
	"strings"

	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Transforms
// ============================================================

// Matrix is an SVG affine transform [a c e; b d f; 0 0 1].
type Matrix struct {
	A, B, C, D, E, F float64
}

var Identity = Matrix{A: 1, D: 1}

// Mul returns m·n, i.e. n applied first.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Matrix) Apply(p models.Point) models.Point {
	return models.Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

func (m Matrix) IsIdentity() bool {
	return m == Identity
}

// Rotation returns the rotation component in degrees.
func (m Matrix) Rotation() float64 {
	return math.Atan2(m.B, m.A) * 180 / math.Pi
}

// ParseTransform parses an SVG transform list such as
// "translate(10,20) rotate(-30 5 5)".
func ParseTransform(s string) (Matrix, error) {
	out := Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return Identity, fmt.Errorf("malformed transform %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := parseNumberList(rest[open+1 : closing])
		if err != nil {
			return Identity, fmt.Errorf("transform %s: %w", name, err)
		}
		m, err := transformFunc(name, args)
		if err != nil {
			return Identity, err
		}
		out = out.Mul(m)
		rest = strings.TrimLeft(rest[closing+1:], " \t\r\n,")
	}
	return out, nil
}

func transformFunc(name string, args []float64) (Matrix, error) {
	arg := func(i int, def float64) float64 {
		if i < len(args) {
			return args[i]
		}
		return def
	}

	switch name {
	case "matrix":
		if len(args) != 6 {
			return Identity, fmt.Errorf("matrix needs 6 arguments, got %d", len(args))
		}
		return Matrix{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}, nil
	case "translate":
		if len(args) == 0 {
			return Identity, fmt.Errorf("translate needs arguments")
		}
		return Matrix{A: 1, D: 1, E: args[0], F: arg(1, 0)}, nil
	case "scale":
		if len(args) == 0 {
			return Identity, fmt.Errorf("scale needs arguments")
		}
		return Matrix{A: args[0], D: arg(1, args[0])}, nil
	case "rotate":
		if len(args) == 0 {
			return Identity, fmt.Errorf("rotate needs arguments")
		}
		rad := args[0] * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		r := Matrix{A: cos, B: sin, C: -sin, D: cos}
		if len(args) >= 3 {
			cx, cy := args[1], args[2]
			return Matrix{A: 1, D: 1, E: cx, F: cy}.Mul(r).Mul(Matrix{A: 1, D: 1, E: -cx, F: -cy}), nil
		}
		return r, nil
	case "skewX":
		if len(args) == 0 {
			return Identity, fmt.Errorf("skewX needs arguments")
		}
		return Matrix{A: 1, C: math.Tan(args[0] * math.Pi / 180), D: 1}, nil
	case "skewY":
		if len(args) == 0 {
			return Identity, fmt.Errorf("skewY needs arguments")
		}
		return Matrix{A: 1, B: math.Tan(args[0] * math.Pi / 180), D: 1}, nil
	}
	return Identity, fmt.Errorf("unknown transform %q", name)
}

func parseNumberList(s string) ([]float64, error) {
	sc := &pathScanner{s: s}
	var out []float64
	for {
		sc.skipSeparators()
		if sc.done() {
			return out, nil
		}
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// ============================================================
// Styles
// ============================================================

// textStyleAttributes are presentation attributes carried with text labels.
var textStyleAttributes = []string{
	"fill", "font-family", "font-size", "font-style", "font-weight",
	"letter-spacing", "text-anchor", "dominant-baseline",
}

// ParseStyle splits an inline style declaration into properties.
func ParseStyle(s string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// elementStyles merges presentation attributes with the inline style, the
// latter taking precedence.
func elementStyles(n *Node, attrs []string) map[string]string {
	out := map[string]string{}
	for _, name := range attrs {
		if v := strings.TrimSpace(n.Attr(name)); v != "" {
			out[name] = v
		}
	}
	for k, v := range ParseStyle(n.Attr("style")) {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fillOf(n *Node) string {
	fill, ok := ParseStyle(n.Attr("style"))["fill"]
	if !ok {
		fill = strings.TrimSpace(n.Attr("fill"))
	}
	if strings.EqualFold(fill, "inherit") {
		return ""
	}
	return fill
}

// paintOf is n's own fill, else the one it inherits.
func paintOf(n *Node, inherited string) string {
	if fill := fillOf(n); fill != "" {
		return fill
	}
	return inherited
}
