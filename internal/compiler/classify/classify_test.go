package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"variant-compiler/internal/compiler/models"
)

func TestStyleClassifierIsSea(t *testing.T) {
	c := NewStyleClassifier()

	cases := []struct {
		name string
		in   Input
		want bool
	}{
		{"blue hex fill", Input{ElementID: "x1", Fill: "#1a5fb4"}, true},
		{"short hex fill", Input{ElementID: "x2", Fill: "#39f"}, true},
		{"rgb fill", Input{ElementID: "x3", Fill: "rgb(30, 90, 200)"}, true},
		{"named fill", Input{ElementID: "x4", Fill: "SteelBlue"}, true},
		{"keyword in id", Input{ElementID: "north_sea"}, true},
		{"keyword in label", Input{ElementID: "mao", Label: "Mid-Atlantic Ocean"}, true},
		{"keyword needs a whole word", Input{ElementID: "seattle", Label: "Baystone"}, false},
		{"land fill", Input{ElementID: "par", Fill: "#d9c"}, false},
		{"grey fill", Input{ElementID: "swi", Fill: "#888888"}, false},
		{"unparsable fill", Input{ElementID: "bur", Fill: "url(#hatch)"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsSea(tc.in))
		})
	}
}

func TestWaterColors(t *testing.T) {
	cases := []struct {
		fill string
		want bool
	}{
		{"rgba(30, 90, 200, 0.5)", true},
		{"rgba(30, 90, 200, 0)", false},
		{"rgb(30 90 200 / 80%)", true},
		{"rgb(12%, 35%, 78%)", true},
		{"hsl(210, 70%, 45%)", true},
		{"hsla(200deg 60% 50% / 1)", true},
		{"hsl(120, 60%, 40%)", false},
		{"hsl(210, 70%, 98%)", false},
		{"#1a5fb4cc", true},
		{"#1a5fb400", false},
		{"#39fc", true},
		{"#zzzzzz", false},
		{"teal", true},
		{"Navy", true},
		{"mediumturquoise", true},
		{"aliceblue", false},
		{"slategray", false},
		{"forestgreen", false},
		{"none", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.fill, func(t *testing.T) {
			assert.Equal(t, tc.want, isWaterColor(tc.fill))
		})
	}
}

func TestStyleClassifierIsSeaKeywordsOnly(t *testing.T) {
	c := NewStyleClassifier()
	cases := []struct {
		name string
		in   Input
		want bool
	}{
		{"bay as a word", Input{ElementID: "bay_of_biscay"}, true},
		{"lake in label", Input{ElementID: "x", Label: "Lake Geneva"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsSea(tc.in))
		})
	}
}

func TestStyleClassifierClassify(t *testing.T) {
	c := NewStyleClassifier()

	assert.Equal(t, models.ProvinceSea, c.Classify(Input{ElementID: "eng", Label: "English Channel"}))
	assert.Equal(t, models.ProvinceCoastal, c.Classify(Input{ElementID: "bre", TouchesSea: true}))
	assert.Equal(t, models.ProvinceLand, c.Classify(Input{ElementID: "par"}))
	assert.Equal(t, models.ProvinceNamedCoasts, c.Classify(Input{ElementID: "spa", HasNamedCoasts: true, TouchesSea: true}))
}

func TestCustomKeywords(t *testing.T) {
	c := &StyleClassifier{SeaKeywords: []string{"mare"}}
	assert.True(t, c.IsSea(Input{ElementID: "mare_nostrum"}))
	assert.False(t, c.IsSea(Input{ElementID: "north_sea"}))
}
