// Package axis provides nearest-neighbour index arithmetic on regular grid axes.
package axis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Axis is a 1-D coordinate axis of a regular grid.
type Axis struct {
	Values     []float64 // Coordinates in file order, after unit scaling.
	Min, Max   float64
	Step       float64 // Absolute spacing between the first two coordinates.
	Descending bool
}

// New builds an Axis from raw coordinate values multiplied by scale.
// The input slice is not modified.
func New(values []float64, scale float64) (Axis, error) {
	if len(values) < 2 {
		return Axis{}, fmt.Errorf("axis must have at least 2 coordinates, got %d", len(values))
	}

	scaled := make([]float64, len(values))
	copy(scaled, values)
	if scale != 1 {
		floats.Scale(scale, scaled)
	}
	for i, v := range scaled {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Axis{}, fmt.Errorf("axis coordinate %d is not finite", i)
		}
	}

	step := math.Abs(scaled[1] - scaled[0])
	if step == 0 {
		return Axis{}, fmt.Errorf("axis step must be > 0")
	}

	return Axis{
		Values:     scaled,
		Min:        floats.Min(scaled),
		Max:        floats.Max(scaled),
		Step:       step,
		Descending: scaled[1] < scaled[0],
	}, nil
}

// Len returns the number of coordinates.
func (a Axis) Len() int {
	return len(a.Values)
}

// Contains reports whether v lies within [Min, Max].
func (a Axis) Contains(v float64) bool {
	return v >= a.Min && v <= a.Max
}

// Index returns the nearest array index for coordinate v, assuming uniform spacing.
//
// For an ascending axis this is round((v - Min) / Step). A descending axis stores
// Max first, so the index is counted from there instead.
func (a Axis) Index(v float64) int {
	if a.Descending {
		return int(math.Round((a.Max - v) / a.Step))
	}
	return int(math.Round((v - a.Min) / a.Step))
}

// Coordinate returns the coordinate of index i on the uniform grid.
func (a Axis) Coordinate(i int) float64 {
	if a.Descending {
		return a.Max - float64(i)*a.Step
	}
	return a.Min + float64(i)*a.Step
}

// Uniform reports whether all spacings are within tol of Step.
func (a Axis) Uniform(tol float64) bool {
	for i := 1; i < len(a.Values); i++ {
		if !scalar.EqualWithinAbs(math.Abs(a.Values[i]-a.Values[i-1]), a.Step, tol) {
			return false
		}
	}
	return true
}

// Nearest finds the index of the stored coordinate closest to target.
// Unlike Index it does not assume uniform spacing; the axis must be monotonic.
func (a Axis) Nearest(target float64) int {
	arr := a.Values
	if len(arr) == 0 {
		return 0
	}

	less := func(i int) bool { return arr[i] < target }
	if a.Descending {
		less = func(i int) bool { return arr[i] > target }
	}

	// Binary search for efficiency with large arrays.
	left, right := 0, len(arr)-1
	for left < right {
		mid := (left + right) / 2
		if less(mid) {
			left = mid + 1
		} else {
			right = mid
		}
	}

	// Check if left-1 is closer.
	if left > 0 && math.Abs(arr[left-1]-target) < math.Abs(arr[left]-target) {
		return left - 1
	}
	return left
}
