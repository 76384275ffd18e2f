// Package classify infers a province's type from its styling and position.
// The rule set is a map-authoring convention, so it sits behind the
// Classifier interface and can be swapped per variant.
package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"variant-compiler/internal/compiler/models"
)

// Input carries what the default rules look at.
type Input struct {
	ElementID      string
	Label          string
	Fill           string
	HasNamedCoasts bool
	// TouchesSea is set when the province outline comes within the coastal
	// tolerance of a province classified as sea.
	TouchesSea bool
}

type Classifier interface {
	// IsSea decides the first pass, before coastal neighbours are known.
	IsSea(in Input) bool
	// Classify returns the final type once TouchesSea is filled in.
	Classify(in Input) models.ProvinceType
}

// StyleClassifier treats blue-filled provinces, or provinces whose id/label
// carries a sea keyword, as sea.
type StyleClassifier struct {
	SeaKeywords []string
}

func NewStyleClassifier() *StyleClassifier {
	return &StyleClassifier{
		SeaKeywords: []string{"sea", "ocean", "gulf", "bay", "channel", "strait", "bight", "lake"},
	}
}

func (c *StyleClassifier) IsSea(in Input) bool {
	if isWaterColor(in.Fill) {
		return true
	}
	for _, text := range []string{in.ElementID, in.Label} {
		for _, word := range splitWords(text) {
			for _, kw := range c.SeaKeywords {
				if word == kw {
					return true
				}
			}
		}
	}
	return false
}

func (c *StyleClassifier) Classify(in Input) models.ProvinceType {
	switch {
	case in.HasNamedCoasts:
		return models.ProvinceNamedCoasts
	case c.IsSea(in):
		return models.ProvinceSea
	case in.TouchesSea:
		return models.ProvinceCoastal
	}
	return models.ProvinceLand
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// ============================================================
// Colors
// ============================================================

// isWaterColor reports fills whose hue sits in the cyan-to-blue band and
// that are neither greyish, near black nor near white.
func isWaterColor(fill string) bool {
	col, ok := parseColor(fill)
	if !ok {
		return false
	}
	h, s, l := col.Hsl()
	return h >= 170 && h <= 260 && s >= 0.2 && l >= 0.15 && l <= 0.95
}

// parseColor reads the SVG paint forms a map author is likely to use: named
// colours, #rgb[a] / #rrggbb[aa], rgb[a]() and hsl[a](). Fully transparent
// paint counts as no colour.
func parseColor(fill string) (colorful.Color, bool) {
	s := strings.ToLower(strings.TrimSpace(fill))
	if named, ok := colornames.Map[s]; ok {
		return colorful.MakeColor(named)
	}

	if strings.HasPrefix(s, "#") {
		switch len(s) {
		case 5, 9:
			if a, err := strconv.ParseUint(s[len(s)-(len(s)-1)/4:], 16, 8); err != nil || a == 0 {
				return colorful.Color{}, false
			}
			s = s[:1+(len(s)-1)*3/4]
		}
		col, err := colorful.Hex(s)
		return col, err == nil
	}

	name, args, ok := functional(s)
	if !ok {
		return colorful.Color{}, false
	}
	switch name {
	case "rgb", "rgba":
		if len(args) < 3 || len(args) > 4 {
			return colorful.Color{}, false
		}
		var ch [3]float64
		for i := range ch {
			v, ok := channel(args[i], 255)
			if !ok {
				return colorful.Color{}, false
			}
			ch[i] = v
		}
		if !opaque(args[3:]) {
			return colorful.Color{}, false
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}.Clamped(), true

	case "hsl", "hsla":
		if len(args) < 3 || len(args) > 4 {
			return colorful.Color{}, false
		}
		h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
		if err != nil {
			return colorful.Color{}, false
		}
		sat, ok1 := channel(args[1], 100)
		light, ok2 := channel(args[2], 100)
		if !ok1 || !ok2 || !opaque(args[3:]) {
			return colorful.Color{}, false
		}
		h = math.Mod(math.Mod(h, 360)+360, 360)
		return colorful.Hsl(h, sat, light).Clamped(), true
	}
	return colorful.Color{}, false
}

// functional splits "name(a, b c / d)" into its name and arguments. Both
// the comma and the space-separated CSS forms are accepted.
func functional(s string) (string, []string, bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == '/' || r == ' ' || r == '\t'
	})
	return strings.TrimSpace(s[:open]), args, true
}

// channel reads a number or percentage into [0, 1] given its full scale.
func channel(arg string, scale float64) (float64, bool) {
	if pct, ok := strings.CutSuffix(arg, "%"); ok {
		v, err := strconv.ParseFloat(pct, 64)
		return v / 100, err == nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	return v / scale, err == nil
}

func opaque(alpha []string) bool {
	if len(alpha) == 0 {
		return true
	}
	a, ok := channel(alpha[0], 1)
	return ok && a > 0
}
