// Package sizing maps a map's aspect ratio to the viewport height share the
// rendering layer should allow it.
package sizing

import (
	"math"
	"strconv"

	"variant-compiler/internal/compiler/models"
)

const (
	squareHeight    = 50.0 // r == 1
	landscapeHeight = 40.0 // floor, reached at r >= 1.5
	portraitHeight  = 70.0 // ceiling, reached at r <= 0.5

	landscapeRatio = 1.5
	portraitRatio  = 0.5
)

// CalculateMapMaxHeight returns a "<integer>vh" height for a map of the given
// dimensions. Non-positive dimensions are treated as square.
func CalculateMapMaxHeight(dim models.Dimensions) string {
	return strconv.Itoa(MaxHeightPercent(dim)) + "vh"
}

// MaxHeightPercent is the numeric form of CalculateMapMaxHeight.
func MaxHeightPercent(dim models.Dimensions) int {
	if dim.Width <= 0 || dim.Height <= 0 {
		return int(squareHeight)
	}
	r := dim.Width / dim.Height

	var h float64
	if r >= 1 {
		t := math.Min((r-1)/(landscapeRatio-1), 1)
		h = squareHeight + t*(landscapeHeight-squareHeight)
	} else {
		t := math.Min((1-r)/(1-portraitRatio), 1)
		h = squareHeight + t*(portraitHeight-squareHeight)
	}
	return int(math.Round(h))
}
