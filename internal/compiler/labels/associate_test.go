package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variant-compiler/internal/compiler/geometry"
	"variant-compiler/internal/compiler/models"
)

func square(id string, x, y, size float64) Target {
	return Target{ID: id, Polygon: geometry.NewPolygon([][]models.Point{{
		{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size},
	}})}
}

func text(content string, x, y float64) models.TextElement {
	return models.TextElement{Content: content, X: x, Y: y}
}

func TestAssociate(t *testing.T) {
	targets := []Target{
		square("a", 0, 0, 10),
		square("b", 10, 0, 10),
		square("c", 100, 100, 10),
	}
	texts := []models.TextElement{
		text("inside a", 5, 5),
		text("east of b", 25, 5),
		text("open water", 60, 60),
		text("equidistant", 10, -3),
	}

	got := New(10).Associate(texts, targets)
	require.Len(t, got, 4)

	assert.Equal(t, Association{ProvinceID: "a", Method: MethodContained, Distance: 0}, got[0])

	assert.Equal(t, "b", got[1].ProvinceID)
	assert.Equal(t, MethodNearest, got[1].Method)
	assert.InDelta(t, 10, got[1].Distance, 1e-9)

	assert.False(t, got[2].Associated())
	assert.Equal(t, MethodNone, got[2].Method)

	// Same distance to both centroids: the smaller id wins.
	assert.Equal(t, "a", got[3].ProvinceID)
}

func TestAssociateOverlappingPrefersNearestCentroid(t *testing.T) {
	targets := []Target{square("big", 0, 0, 40), square("small", 0, 0, 10)}
	got := New(5).Associate([]models.TextElement{text("x", 4, 4), text("y", 30, 30)}, targets)

	assert.Equal(t, "small", got[0].ProvinceID)
	assert.Equal(t, MethodContained, got[0].Method)
	assert.Equal(t, "big", got[1].ProvinceID)
}

func TestAssociateDefaultRadius(t *testing.T) {
	// Combined bounds 0..100 give a diagonal near 141 and a radius near 14.
	targets := []Target{square("a", 0, 0, 10), square("far", 90, 90, 10)}
	got := New(0).Associate([]models.TextElement{text("near", 5, 18), text("remote", 5, 30)}, targets)

	assert.Equal(t, "a", got[0].ProvinceID)
	assert.False(t, got[1].Associated())
}

func TestAssociateNoTargets(t *testing.T) {
	got := New(0).Associate([]models.TextElement{text("lonely", 1, 1)}, nil)
	assert.Equal(t, MethodNone, got[0].Method)
}

func TestReassociate(t *testing.T) {
	a := New(10)
	texts := []models.TextElement{
		text("inside a", 5, 5),
		text("east of b", 25, 5),
		text("pinned", 15, 5),
	}
	targets := []Target{square("a", 0, 0, 10), square("b", 10, 0, 10)}
	prev := a.Associate(texts, targets)
	require.Equal(t, "b", prev[1].ProvinceID)
	require.Equal(t, "b", prev[2].ProvinceID)

	t.Run("unchanged inputs keep every result", func(t *testing.T) {
		got := a.Reassociate(texts, targets, prev, nil)
		assert.Equal(t, prev, got)
	})

	t.Run("new containing province claims a nearest label", func(t *testing.T) {
		grown := append(append([]Target{}, targets...), square("d", 20, 0, 10))
		got := a.Reassociate(texts, grown, prev, nil)
		assert.Equal(t, prev[0], got[0])
		assert.Equal(t, Association{ProvinceID: "d", Method: MethodContained, Distance: 0}, got[1])
	})

	t.Run("removed owner is recomputed unless pinned", func(t *testing.T) {
		onlyA := []Target{targets[0]}
		got := a.Reassociate(texts, onlyA, prev, map[int]bool{2: true})
		assert.False(t, got[1].Associated(), "b is gone and a is out of range")
		assert.Equal(t, prev[2], got[2])
	})

	t.Run("labels without a previous result are located", func(t *testing.T) {
		more := append(append([]models.TextElement{}, texts...), text("late", 2, 2))
		got := a.Reassociate(more, targets, prev, nil)
		assert.Equal(t, "a", got[3].ProvinceID)
	})
}
