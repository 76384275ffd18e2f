package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransform(t *testing.T) {
	cases := []struct {
		name      string
		transform string
		in, want  [2]float64
	}{
		{"translate", "translate(10,20)", [2]float64{1, 1}, [2]float64{11, 21}},
		{"translate x only", "translate(5)", [2]float64{1, 1}, [2]float64{6, 1}},
		{"uniform scale", "scale(2)", [2]float64{3, 4}, [2]float64{6, 8}},
		{"rotate about origin", "rotate(90)", [2]float64{1, 0}, [2]float64{0, 1}},
		{"rotate about centre", "rotate(180 5 5)", [2]float64{0, 0}, [2]float64{10, 10}},
		{"matrix", "matrix(1 0 0 1 3 4)", [2]float64{0, 0}, [2]float64{3, 4}},
		{"list applies right to left", "translate(10,0) scale(2)", [2]float64{1, 1}, [2]float64{12, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParseTransform(tc.transform)
			require.NoError(t, err)
			got := m.Apply(pt(tc.in[0], tc.in[1]))
			assert.InDelta(t, tc.want[0], got.X, 1e-9)
			assert.InDelta(t, tc.want[1], got.Y, 1e-9)
		})
	}
}

func TestParseTransformErrors(t *testing.T) {
	for _, s := range []string{"translate(", "spin(3)", "matrix(1 2 3)", "scale()"} {
		_, err := ParseTransform(s)
		assert.Error(t, err, "transform %q", s)
	}
}

func TestMatrixRotation(t *testing.T) {
	m, err := ParseTransform("translate(4,4) rotate(-30)")
	require.NoError(t, err)
	assert.InDelta(t, -30, m.Rotation(), 1e-9)
	assert.True(t, Identity.IsIdentity())
	assert.False(t, m.IsIdentity())
}

func TestParseStyle(t *testing.T) {
	got := ParseStyle("fill:#1a5fb4; stroke : none;;bogus;font-size:12px")
	assert.Equal(t, map[string]string{
		"fill":      "#1a5fb4",
		"stroke":    "none",
		"font-size": "12px",
	}, got)
}
