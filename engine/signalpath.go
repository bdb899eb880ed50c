package engine

import (
	"fmt"
	"sort"

	"github.com/kaikuaudio/kaiku"
)

type (
	// SignalPoint fixes the value a SignalPath has at one moment.
	SignalPoint struct {
		When  kaiku.MusicalTime
		Value kaiku.BipolarNormal
	}

	// signalStep is one linear segment [start, end) between two points. The
	// leftmost and rightmost points get virtual level segments reaching back
	// to time zero and forward to TimeMax, so a lookup anywhere on the
	// timeline lands on a segment.
	signalStep struct {
		start, end kaiku.MusicalTime
		from, to   kaiku.BipolarNormal
	}

	// SignalPath emits a signal that varies over time. The signal is defined
	// by points in time order and moves linearly from point to point. It
	// remembers the last value it broadcast, so Work stays silent while the
	// signal is unchanged.
	SignalPath struct {
		points []SignalPoint
		steps  []signalStep

		timeRange kaiku.TimeRange
		broadcast kaiku.BipolarNormal
		emitted   bool
	}
)

// NewSignalPath builds a path from points. Consecutive points may share a
// time, but time must never decrease.
func NewSignalPath(points ...SignalPoint) (*SignalPath, error) {
	for i := 1; i < len(points); i++ {
		if points[i].When < points[i-1].When {
			return nil, fmt.Errorf("point %v's time is out of order", i)
		}
	}
	p := &SignalPath{points: points}
	p.rebuildSteps()
	return p, nil
}

// rebuildSteps recomputes the segment index from the points. Zero-duration
// segments are dropped here so that the lookup, which only searches segment
// start times, can never land on one.
func (p *SignalPath) rebuildSteps() {
	p.steps = p.steps[:0]
	lastWhen := kaiku.TimeZero
	var lastValue kaiku.BipolarNormal
	haveLast := false
	for _, pt := range p.points {
		from := pt.Value
		if haveLast {
			from = lastValue
		}
		if pt.When > lastWhen {
			p.steps = append(p.steps, signalStep{start: lastWhen, end: pt.When, from: from, to: pt.Value})
		}
		lastWhen = pt.When
		lastValue = pt.Value
		haveLast = true
	}
	if len(p.points) > 0 && lastWhen != kaiku.TimeMax {
		p.steps = append(p.steps, signalStep{start: lastWhen, end: kaiku.TimeMax, from: lastValue, to: lastValue})
	}
}

// ValueAt evaluates the path at a moment. ok is false when the path has no
// points.
func (p *SignalPath) ValueAt(when kaiku.MusicalTime) (value kaiku.BipolarNormal, ok bool) {
	if len(p.steps) == 0 {
		return 0, false
	}
	i := sort.Search(len(p.steps), func(i int) bool { return p.steps[i].start > when }) - 1
	if i < 0 {
		return 0, false
	}
	step := p.steps[i]
	if when >= step.end {
		return 0, false
	}
	elapsed := float64(when-step.start) / float64(step.end-step.start)
	return step.from + kaiku.BipolarNormal(float64(step.to-step.from)*elapsed), true
}

// AddPoint inserts a point at the given time, keeping the signal's current
// value there so the curve does not jump. An empty path starts from zero.
func (p *SignalPath) AddPoint(when kaiku.MusicalTime) {
	value, _ := p.ValueAt(when)
	i := sort.Search(len(p.points), func(i int) bool { return p.points[i].When >= when })
	p.points = append(p.points, SignalPoint{})
	copy(p.points[i+1:], p.points[i:])
	p.points[i] = SignalPoint{When: when, Value: value}
	p.rebuildSteps()
}

// RemovePoint removes every point equal to pt.
func (p *SignalPath) RemovePoint(pt SignalPoint) {
	points := p.points[:0]
	for _, candidate := range p.points {
		if candidate != pt {
			points = append(points, candidate)
		}
	}
	p.points = points
	p.rebuildSteps()
}

// SetPointValue changes the value of the point at the given index.
func (p *SignalPath) SetPointValue(index int, value kaiku.BipolarNormal) error {
	if index < 0 || index >= len(p.points) {
		return fmt.Errorf("point index %v is out of bounds", index)
	}
	p.points[index].Value = value
	p.rebuildSteps()
	return nil
}

// Points returns the points in time order. The slice is owned by the path.
func (p *SignalPath) Points() []SignalPoint { return p.points }

func (p *SignalPath) UpdateTimeRange(rng kaiku.TimeRange) { p.timeRange = rng }

// Work broadcasts the value at the start of the current time range, but only
// when it differs from what was last broadcast.
func (p *SignalPath) Work(emit func(kaiku.WorkEvent)) {
	value, ok := p.ValueAt(p.timeRange.Start)
	if !ok {
		return
	}
	if p.emitted && value == p.broadcast {
		return
	}
	p.broadcast = value
	p.emitted = true
	emit(kaiku.ControlWorkEvent(value.ControlValue()))
}

// Reset forgets the last broadcast value. After a seek the targets may be
// anywhere, so the next Work must re-broadcast even an unchanged value.
func (p *SignalPath) Reset() { p.emitted = false }
