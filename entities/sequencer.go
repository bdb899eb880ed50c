package entities

import (
	"math"
	"sort"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

// beatsToTime converts fractional beats, the unit composition files count
// in, to musical time.
func beatsToTime(beats float64) kaiku.MusicalTime {
	return kaiku.MusicalTime(math.Round(beats * kaiku.UnitsPerBeat))
}

// PatternNote is one note of a pattern. A zero velocity plays at full
// velocity, so notes that never say how loud they are do the obvious thing.
type PatternNote struct {
	Key      kaiku.MidiNote
	Velocity byte
	Start    kaiku.MusicalTime
	Duration kaiku.MusicalTime
}

type patternEvent struct {
	when    kaiku.MusicalTime
	message kaiku.MidiMessage
}

// PatternSequencer plays an arranged note pattern, emitting note on and off
// events at their places in musical time. One-shot patterns finish when the
// timeline passes their extent; looping patterns repeat every pattern
// length and never finish. The pattern length defaults to the end of the
// last note.
type PatternSequencer struct {
	kaiku.BaseEntity

	channel kaiku.MidiChannel
	loop    bool
	length  kaiku.MusicalTime
	notes   []PatternNote

	events       []patternEvent
	maxEventTime kaiku.MusicalTime
	timeRange    kaiku.TimeRange
}

func NewPatternSequencer() *PatternSequencer { return &PatternSequencer{} }

func (s *PatternSequencer) Channel() kaiku.MidiChannel { return s.channel }

func (s *PatternSequencer) SetChannel(channel kaiku.MidiChannel) { s.channel = channel }

func (s *PatternSequencer) IsLooping() bool { return s.loop }

func (s *PatternSequencer) SetLooping(loop bool) {
	s.loop = loop
	s.rebuild()
}

func (s *PatternSequencer) Length() kaiku.MusicalTime { return s.length }

// SetLength restates the pattern length. Zero means the pattern ends with
// its last note.
func (s *PatternSequencer) SetLength(length kaiku.MusicalTime) {
	s.length = length
	s.rebuild()
}

func (s *PatternSequencer) Notes() []PatternNote { return s.notes }

func (s *PatternSequencer) AddNote(n PatternNote) {
	s.notes = append(s.notes, n)
	s.rebuild()
}

func (s *PatternSequencer) Clear() {
	s.notes = s.notes[:0]
	s.rebuild()
}

// rebuild derives the event list from the notes. In loop mode event times
// wrap at the pattern length, so a note off landing exactly on the length
// fires at the top of the next repetition.
func (s *PatternSequencer) rebuild() {
	s.events = s.events[:0]
	s.maxEventTime = 0
	for _, n := range s.notes {
		if n.Duration <= 0 {
			continue
		}
		if off := n.Start + n.Duration; off > s.maxEventTime {
			s.maxEventTime = off
		}
	}
	period := s.extent()
	for _, n := range s.notes {
		// a note with no duration plays nothing
		if n.Duration <= 0 {
			continue
		}
		velocity := n.Velocity
		if velocity == 0 {
			velocity = 127
		}
		on, off := n.Start, n.Start+n.Duration
		if s.loop && period > 0 {
			on, off = on%period, off%period
		}
		s.events = append(s.events,
			patternEvent{when: on, message: kaiku.NoteOnMessage(n.Key, velocity)},
			patternEvent{when: off, message: kaiku.NoteOffMessage(n.Key, 0)},
		)
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		if s.events[i].when != s.events[j].when {
			return s.events[i].when < s.events[j].when
		}
		// note offs go first, so releasing and restriking the same key at
		// the same instant keeps the new note
		return s.events[i].message.Kind < s.events[j].message.Kind
	})
}

// extent is the pattern's total span: the stated length, or the end of the
// last note when no length was given.
func (s *PatternSequencer) extent() kaiku.MusicalTime {
	if s.length > s.maxEventTime {
		return s.length
	}
	return s.maxEventTime
}

func (s *PatternSequencer) UpdateTimeRange(rng kaiku.TimeRange) { s.timeRange = rng }

func (s *PatternSequencer) Work(emit func(kaiku.WorkEvent)) {
	if !s.IsPerforming() || len(s.events) == 0 {
		return
	}
	rng := s.timeRange
	period := s.extent()
	if !s.loop || period == 0 {
		s.emitWindow(rng.Start, rng.End, emit)
		return
	}
	// Walk each repetition the range touches: almost always one, two when
	// the range straddles a wrap.
	for base := rng.Start / period * period; base < rng.End; base += period {
		lo := max(rng.Start, base)
		hi := min(rng.End, base+period)
		s.emitWindow(lo-base, hi-base, emit)
	}
}

// emitWindow emits the events with pattern-local times in [lo, hi).
func (s *PatternSequencer) emitWindow(lo, hi kaiku.MusicalTime, emit func(kaiku.WorkEvent)) {
	for _, ev := range s.events {
		if ev.when >= hi {
			return
		}
		if ev.when >= lo {
			emit(kaiku.MidiWorkEvent(s.channel, ev.message))
		}
	}
}

func (s *PatternSequencer) IsFinished() bool {
	if len(s.events) == 0 {
		return true
	}
	if s.loop {
		return false
	}
	// The piece spans [0, extent], counting the offs that land exactly on
	// the extent; those fire in the range that begins there, so finishing
	// waits until the timeline has moved past the extent. A timer of the
	// same duration finishes in the same range.
	return s.timeRange.End > s.extent()
}

func (s *PatternSequencer) SkipToStart() { s.timeRange = kaiku.TimeRange{} }

func (s *PatternSequencer) Reset() { s.timeRange = kaiku.TimeRange{} }

// Timer is the timer core behind the Entity contract: it finishes after a
// musical duration and is otherwise inert. Its control param "beats"
// restates the duration.
type Timer struct {
	kaiku.BaseEntity
	core *engine.Timer
}

func NewTimer(duration kaiku.MusicalTime) *Timer {
	return &Timer{core: engine.NewTimer(duration)}
}

func (t *Timer) Duration() kaiku.MusicalTime            { return t.core.Duration() }
func (t *Timer) SetDuration(duration kaiku.MusicalTime) { t.core.SetDuration(duration) }

func (t *Timer) UpdateTimeRange(rng kaiku.TimeRange) { t.core.UpdateTimeRange(rng) }
func (t *Timer) IsFinished() bool                    { return t.core.IsFinished() }
func (t *Timer) Play()                               { t.core.Play() }
func (t *Timer) Stop()                               { t.core.Stop() }
func (t *Timer) SkipToStart()                        { t.core.SkipToStart() }
func (t *Timer) IsPerforming() bool                  { return t.core.IsPerforming() }
func (t *Timer) Reset()                              { t.core.Reset() }

func (t *Timer) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	if name == "beats" {
		return 0, true
	}
	return 0, false
}

func (t *Timer) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	if index == 0 {
		return "beats", true
	}
	return "", false
}

func (t *Timer) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	if index == 0 {
		t.SetDuration(beatsToTime(float64(value)))
	}
}

// Trigger issues one control value when its timer runs out. Control params:
// "value" is the emitted value, "beats" the timer duration.
type Trigger struct {
	kaiku.BaseEntity
	timer *engine.Timer
	core  *engine.Trigger
}

func NewTrigger(duration kaiku.MusicalTime, value kaiku.ControlValue) *Trigger {
	timer := engine.NewTimer(duration)
	return &Trigger{timer: timer, core: engine.NewTrigger(timer, value)}
}

func (t *Trigger) Value() kaiku.ControlValue         { return t.core.Value() }
func (t *Trigger) SetValue(value kaiku.ControlValue) { t.core.SetValue(value) }

func (t *Trigger) UpdateTimeRange(rng kaiku.TimeRange) { t.core.UpdateTimeRange(rng) }
func (t *Trigger) Work(emit func(kaiku.WorkEvent))     { t.core.Work(emit) }
func (t *Trigger) IsFinished() bool                    { return t.core.IsFinished() }
func (t *Trigger) Play()                               { t.core.Play() }
func (t *Trigger) Stop()                               { t.core.Stop() }
func (t *Trigger) SkipToStart()                        { t.core.SkipToStart() }
func (t *Trigger) IsPerforming() bool                  { return t.core.IsPerforming() }
func (t *Trigger) Reset()                              { t.core.Reset() }

func (t *Trigger) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	switch name {
	case "value":
		return 0, true
	case "beats":
		return 1, true
	}
	return 0, false
}

func (t *Trigger) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	switch index {
	case 0:
		return "value", true
	case 1:
		return "beats", true
	}
	return "", false
}

func (t *Trigger) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	switch index {
	case 0:
		t.SetValue(value)
	case 1:
		t.timer.SetDuration(beatsToTime(float64(value)))
	}
}
