package engine

import (
	"github.com/kaikuaudio/kaiku"
)

// Timer runs for a duration of musical time and then reports finished. The
// clock starts at the first time range it sees while performing, so a timer
// measures performed time, not timeline position.
type Timer struct {
	duration kaiku.MusicalTime

	performing bool
	finished   bool
	endTime    kaiku.MusicalTime
	endTimeSet bool
}

func NewTimer(duration kaiku.MusicalTime) *Timer {
	t := &Timer{}
	t.SetDuration(duration)
	return t
}

func (t *Timer) Duration() kaiku.MusicalTime { return t.duration }

// SetDuration restates the duration. A zero-length timer is finished
// immediately, even when not performing.
func (t *Timer) SetDuration(duration kaiku.MusicalTime) {
	t.duration = duration
	t.finished = duration.IsZero()
}

// UpdateTimeRange latches the end time on the first range seen while
// performing, then fires once a range contains it. A fired timer stays
// fired, even for earlier ranges after a seek.
func (t *Timer) UpdateTimeRange(rng kaiku.TimeRange) {
	if !t.performing {
		return
	}
	if !t.endTimeSet {
		t.endTime = rng.Start + t.duration
		t.endTimeSet = true
	}
	if rng.Contains(t.endTime) || t.endTime < rng.Start {
		t.finished = true
	}
}

func (t *Timer) IsFinished() bool { return t.finished }

func (t *Timer) Play() { t.performing = true }

func (t *Timer) Stop() { t.performing = false }

func (t *Timer) IsPerforming() bool { return t.performing }

// SkipToStart re-arms the timer; the next performing range starts the clock
// again.
func (t *Timer) SkipToStart() {
	t.endTimeSet = false
	t.SetDuration(t.duration)
}

// Reset re-derives the finished state and forgets the latched end time,
// since after a seek the old end time means nothing.
func (t *Timer) Reset() {
	t.endTimeSet = false
	t.SetDuration(t.duration)
}

// Trigger issues one control value when its timer expires. It fires at most
// once per performance; SkipToStart re-arms it.
type Trigger struct {
	timer *Timer
	value kaiku.ControlValue

	performing   bool
	hasTriggered bool
}

func NewTrigger(timer *Timer, value kaiku.ControlValue) *Trigger {
	return &Trigger{timer: timer, value: value}
}

func (t *Trigger) Value() kaiku.ControlValue         { return t.value }
func (t *Trigger) SetValue(value kaiku.ControlValue) { t.value = value }

func (t *Trigger) UpdateTimeRange(rng kaiku.TimeRange) { t.timer.UpdateTimeRange(rng) }

func (t *Trigger) Work(emit func(kaiku.WorkEvent)) {
	if t.timer.IsFinished() && t.performing && !t.hasTriggered {
		t.hasTriggered = true
		emit(kaiku.ControlWorkEvent(t.value))
	}
}

func (t *Trigger) IsFinished() bool { return t.timer.IsFinished() }

func (t *Trigger) Play() {
	t.performing = true
	t.timer.Play()
}

func (t *Trigger) Stop() {
	t.performing = false
	t.timer.Stop()
}

func (t *Trigger) IsPerforming() bool { return t.performing }

func (t *Trigger) SkipToStart() {
	t.hasTriggered = false
	t.timer.SkipToStart()
}

func (t *Trigger) Reset() {
	t.hasTriggered = false
	t.timer.Reset()
}
