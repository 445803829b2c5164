package domain

import (
	"math"
	"time"
)

// TimeAxis is the discovered time coverage of a dataset.
// Step is the spacing between the first two samples and is assumed constant.
type TimeAxis struct {
	Times []time.Time
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// NewTimeAxis builds a TimeAxis from timestamps in file order.
func NewTimeAxis(times []time.Time) TimeAxis {
	ta := TimeAxis{Times: times}
	if len(times) == 0 {
		return ta
	}
	ta.Start = times[0]
	ta.End = times[len(times)-1]
	if len(times) > 1 {
		ta.Step = times[1].Sub(times[0])
	}
	return ta
}

// Contains reports whether t lies within [Start, End].
func (ta TimeAxis) Contains(t time.Time) bool {
	return !t.Before(ta.Start) && !t.After(ta.End)
}

// Index returns the nearest time index to t and the timestamp stored at it.
// The index is round((t - Start) / Step), clamped to the axis.
func (ta TimeAxis) Index(t time.Time) (int, time.Time) {
	if len(ta.Times) == 0 {
		return 0, time.Time{}
	}
	if ta.Step == 0 {
		return 0, ta.Times[0]
	}
	idx := int(math.Round(float64(t.Sub(ta.Start)) / float64(ta.Step)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(ta.Times)-1 {
		idx = len(ta.Times) - 1
	}
	return idx, ta.Times[idx]
}
