package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Path Parser
// ============================================================

// curveSteps is the number of line segments used to flatten a bezier curve.
const curveSteps = 8

// ParsePath parses SVG path data into a flat list of points. Closed subpaths
// end with a repeat of their first point.
func ParsePath(d string) ([]models.Point, error) {
	rings, err := ParseSubpaths(d)
	if err != nil {
		return nil, err
	}
	var points []models.Point
	for _, ring := range rings {
		points = append(points, ring...)
	}
	return points, nil
}

// ParseSubpaths parses SVG path data into one polyline per subpath. Curves
// and arcs are flattened.
func ParseSubpaths(d string) ([][]models.Point, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}

	p := &pathBuilder{sc: &pathScanner{s: d}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

type pathBuilder struct {
	sc       *pathScanner
	rings    [][]models.Point
	ring     []models.Point
	cur      models.Point
	start    models.Point
	ctrl     models.Point // last control point for S/T reflection
	lastCmd  byte
	closed   bool
	hasPoint bool
}

func (p *pathBuilder) run() error {
	var cmd byte
	for {
		p.sc.skipSeparators()
		if p.sc.done() {
			return nil
		}

		c := p.sc.peek()
		if isPathCommand(c) {
			cmd = c
			p.sc.i++
		} else if cmd == 0 {
			return fmt.Errorf("path data must start with a command, got %q", c)
		} else if cmd == 'Z' || cmd == 'z' {
			return fmt.Errorf("unexpected number after closepath at offset %d", p.sc.i)
		}

		if err := p.command(cmd); err != nil {
			return err
		}

		// A moveto followed by extra pairs continues as implicit lineto.
		switch cmd {
		case 'M':
			cmd = 'L'
		case 'm':
			cmd = 'l'
		}
	}
}

func (p *pathBuilder) command(cmd byte) error {
	rel := cmd >= 'a' && cmd <= 'z'
	base := p.cur
	if !rel {
		base = models.Point{}
	}

	switch cmd {
	case 'M', 'm':
		pt, err := p.sc.point()
		if err != nil {
			return err
		}
		p.moveTo(add(base, pt))

	case 'L', 'l':
		pt, err := p.sc.point()
		if err != nil {
			return err
		}
		p.lineTo(add(base, pt))

	case 'H', 'h':
		x, err := p.sc.number()
		if err != nil {
			return err
		}
		p.lineTo(models.Point{X: base.X + x, Y: p.cur.Y})

	case 'V', 'v':
		y, err := p.sc.number()
		if err != nil {
			return err
		}
		p.lineTo(models.Point{X: p.cur.X, Y: base.Y + y})

	case 'C', 'c':
		vals, err := p.sc.points(3)
		if err != nil {
			return err
		}
		p.cubicTo(add(base, vals[0]), add(base, vals[1]), add(base, vals[2]))

	case 'S', 's':
		vals, err := p.sc.points(2)
		if err != nil {
			return err
		}
		c1 := p.cur
		if isOneOf(p.lastCmd, "CcSs") {
			c1 = reflect(p.ctrl, p.cur)
		}
		p.cubicTo(c1, add(base, vals[0]), add(base, vals[1]))

	case 'Q', 'q':
		vals, err := p.sc.points(2)
		if err != nil {
			return err
		}
		p.quadTo(add(base, vals[0]), add(base, vals[1]))

	case 'T', 't':
		pt, err := p.sc.point()
		if err != nil {
			return err
		}
		c := p.cur
		if isOneOf(p.lastCmd, "QqTt") {
			c = reflect(p.ctrl, p.cur)
		}
		p.quadTo(c, add(base, pt))

	case 'A', 'a':
		rx, err := p.sc.number()
		if err != nil {
			return err
		}
		ry, err := p.sc.number()
		if err != nil {
			return err
		}
		rot, err := p.sc.number()
		if err != nil {
			return err
		}
		large, err := p.sc.flag()
		if err != nil {
			return err
		}
		sweep, err := p.sc.flag()
		if err != nil {
			return err
		}
		pt, err := p.sc.point()
		if err != nil {
			return err
		}
		p.arcTo(rx, ry, rot, large, sweep, add(base, pt))

	case 'Z', 'z':
		p.closePath()
	}

	p.lastCmd = cmd
	return nil
}

func (p *pathBuilder) moveTo(pt models.Point) {
	p.flushRing()
	p.cur, p.start = pt, pt
	p.ring = []models.Point{pt}
	p.closed = false
	p.hasPoint = true
}

func (p *pathBuilder) lineTo(pt models.Point) {
	p.ensureRing()
	p.cur = pt
	p.ring = append(p.ring, pt)
}

func (p *pathBuilder) cubicTo(c1, c2, end models.Point) {
	p.ensureRing()
	from := p.cur
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		mt := 1 - t
		p.ring = append(p.ring, models.Point{
			X: mt*mt*mt*from.X + 3*mt*mt*t*c1.X + 3*mt*t*t*c2.X + t*t*t*end.X,
			Y: mt*mt*mt*from.Y + 3*mt*mt*t*c1.Y + 3*mt*t*t*c2.Y + t*t*t*end.Y,
		})
	}
	p.ring[len(p.ring)-1] = end
	p.cur, p.ctrl = end, c2
}

func (p *pathBuilder) quadTo(c, end models.Point) {
	p.ensureRing()
	from := p.cur
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		mt := 1 - t
		p.ring = append(p.ring, models.Point{
			X: mt*mt*from.X + 2*mt*t*c.X + t*t*end.X,
			Y: mt*mt*from.Y + 2*mt*t*c.Y + t*t*end.Y,
		})
	}
	p.ring[len(p.ring)-1] = end
	p.cur, p.ctrl = end, c
}

// arcTo flattens an elliptical arc using the endpoint-to-center conversion
// from the SVG implementation notes.
func (p *pathBuilder) arcTo(rx, ry, rotDeg float64, large, sweep bool, end models.Point) {
	p.ensureRing()
	from := p.cur
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 || (from.X == end.X && from.Y == end.Y) {
		p.lineTo(end)
		return
	}

	phi := rotDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	dx, dy := (from.X-end.X)/2, (from.Y-end.Y)/2
	x1 := cosPhi*dx + sinPhi*dy
	y1 := -sinPhi*dx + cosPhi*dy

	lambda := (x1*x1)/(rx*rx) + (y1*y1)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx, ry = rx*s, ry*s
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cx1 := coef * rx * y1 / ry
	cy1 := -coef * ry * x1 / rx
	cx := cosPhi*cx1 - sinPhi*cy1 + (from.X+end.X)/2
	cy := sinPhi*cx1 + cosPhi*cy1 + (from.Y+end.Y)/2

	theta1 := vectorAngle(1, 0, (x1-cx1)/rx, (y1-cy1)/ry)
	dtheta := vectorAngle((x1-cx1)/rx, (y1-cy1)/ry, (-x1-cx1)/rx, (-y1-cy1)/ry)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}

	steps := int(math.Ceil(math.Abs(dtheta) / (math.Pi / 8)))
	if steps < 4 {
		steps = 4
	}
	for i := 1; i <= steps; i++ {
		theta := theta1 + dtheta*float64(i)/float64(steps)
		ex, ey := rx*math.Cos(theta), ry*math.Sin(theta)
		p.ring = append(p.ring, models.Point{
			X: cosPhi*ex - sinPhi*ey + cx,
			Y: sinPhi*ex + cosPhi*ey + cy,
		})
	}
	p.ring[len(p.ring)-1] = end
	p.cur = end
}

func (p *pathBuilder) closePath() {
	if len(p.ring) == 0 {
		return
	}
	if last := p.ring[len(p.ring)-1]; last != p.start {
		p.ring = append(p.ring, p.start)
	}
	p.cur = p.start
	p.closed = true
}

// ensureRing starts a new subpath at the current point after a closepath.
func (p *pathBuilder) ensureRing() {
	if p.closed {
		p.flushRing()
		p.ring = []models.Point{p.start}
		p.closed = false
	}
	if !p.hasPoint {
		p.ring = []models.Point{p.cur}
		p.hasPoint = true
	}
}

func (p *pathBuilder) flushRing() {
	if len(p.ring) > 0 {
		p.rings = append(p.rings, p.ring)
	}
	p.ring = nil
}

func (p *pathBuilder) finish() [][]models.Point {
	p.flushRing()
	return p.rings
}

// ============================================================
// Scanner
// ============================================================

type pathScanner struct {
	s string
	i int
}

func (sc *pathScanner) done() bool { return sc.i >= len(sc.s) }

func (sc *pathScanner) peek() byte { return sc.s[sc.i] }

func (sc *pathScanner) skipSeparators() {
	for sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			sc.i++
		default:
			return
		}
	}
}

func (sc *pathScanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.i
	if sc.i < len(sc.s) && (sc.s[sc.i] == '+' || sc.s[sc.i] == '-') {
		sc.i++
	}
	digits := sc.digits()
	if sc.i < len(sc.s) && sc.s[sc.i] == '.' {
		sc.i++
		digits += sc.digits()
	}
	if digits == 0 {
		sc.i = start
		return 0, sc.errorf("expected number")
	}
	if sc.i < len(sc.s) && (sc.s[sc.i] == 'e' || sc.s[sc.i] == 'E') {
		mark := sc.i
		sc.i++
		if sc.i < len(sc.s) && (sc.s[sc.i] == '+' || sc.s[sc.i] == '-') {
			sc.i++
		}
		if sc.digits() == 0 {
			sc.i = mark
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:sc.i], 64)
	if err != nil {
		return 0, sc.errorf("bad number %q", sc.s[start:sc.i])
	}
	return v, nil
}

func (sc *pathScanner) digits() int {
	n := 0
	for sc.i < len(sc.s) && sc.s[sc.i] >= '0' && sc.s[sc.i] <= '9' {
		sc.i++
		n++
	}
	return n
}

// flag reads a single arc flag; flags may be written without separators.
func (sc *pathScanner) flag() (bool, error) {
	sc.skipSeparators()
	if sc.done() {
		return false, sc.errorf("expected arc flag")
	}
	switch sc.s[sc.i] {
	case '0':
		sc.i++
		return false, nil
	case '1':
		sc.i++
		return true, nil
	}
	return false, sc.errorf("expected arc flag")
}

func (sc *pathScanner) point() (models.Point, error) {
	x, err := sc.number()
	if err != nil {
		return models.Point{}, err
	}
	y, err := sc.number()
	if err != nil {
		return models.Point{}, err
	}
	return models.Point{X: x, Y: y}, nil
}

func (sc *pathScanner) points(n int) ([]models.Point, error) {
	out := make([]models.Point, n)
	for i := range out {
		pt, err := sc.point()
		if err != nil {
			return nil, err
		}
		out[i] = pt
	}
	return out, nil
}

func (sc *pathScanner) errorf(format string, args ...any) error {
	return fmt.Errorf("path offset %d: %s", sc.i, fmt.Sprintf(format, args...))
}

// ============================================================
// Helpers
// ============================================================

func isPathCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

func isOneOf(c byte, set string) bool {
	return c != 0 && strings.IndexByte(set, c) >= 0
}

func add(a, b models.Point) models.Point {
	return models.Point{X: a.X + b.X, Y: a.Y + b.Y}
}

func reflect(ctrl, around models.Point) models.Point {
	return models.Point{X: 2*around.X - ctrl.X, Y: 2*around.Y - ctrl.Y}
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}

// FormatPolyline writes rings back as absolute path data.
func FormatPolyline(rings [][]models.Point, closed bool) string {
	var b strings.Builder
	for _, ring := range rings {
		for i, pt := range ring {
			if i == 0 {
				b.WriteString("M")
			} else {
				b.WriteString(" L")
			}
			b.WriteString(formatFloat(pt.X))
			b.WriteByte(',')
			b.WriteString(formatFloat(pt.Y))
		}
		if closed && len(ring) > 0 {
			b.WriteString(" Z")
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
