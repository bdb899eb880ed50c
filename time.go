package kaiku

import (
	"fmt"
	"math"
)

// MusicalTime is the universal unit of engine time. It is measured in musical
// beats rather than seconds, so arrangements keep their meaning when the tempo
// changes. A beat divides into 16 parts and a part into 4096 units, so a beat
// is 65536 units; MusicalTime counts units from the start of the composition.
type MusicalTime int

const (
	PartsPerBeat = 16
	UnitsPerPart = 4096
	UnitsPerBeat = PartsPerBeat * UnitsPerPart
)

const (
	TimeZero MusicalTime = 0
	// TimeMax is a sentinel meaning "infinitely far in the future". It is
	// never converted to frames.
	TimeMax MusicalTime = math.MaxInt
)

// Durations of common note values, given a quarter-note beat.
const (
	DurationSixteenth MusicalTime = UnitsPerBeat / 4
	DurationEighth    MusicalTime = UnitsPerBeat / 2
	DurationQuarter   MusicalTime = UnitsPerBeat
	DurationHalf      MusicalTime = 2 * UnitsPerBeat
	DurationWhole     MusicalTime = 4 * UnitsPerBeat
	DurationBreve     MusicalTime = 8 * UnitsPerBeat
)

// NewMusicalTime composes a time from bars, beats, parts and units. Bars need
// the time signature to know how many beats they hold.
func NewMusicalTime(ts TimeSignature, bars, beats, parts, units int) MusicalTime {
	return Beats(ts.Top*bars+beats) + Parts(parts) + MusicalTime(units)
}

// Beats returns the time n beats from the start.
func Beats(n int) MusicalTime { return MusicalTime(n * UnitsPerBeat) }

// Parts returns the time n parts from the start. A part is a sixteenth of a
// beat.
func Parts(n int) MusicalTime { return MusicalTime(n * UnitsPerPart) }

// TimeFromFrames converts an absolute frame count to musical time. It is
// always computed from the absolute count, never by accumulating per-buffer
// deltas, so equal inputs convert equally and the result is monotonic in
// frames.
func TimeFromFrames(tempo Tempo, rate SampleRate, frames int) MusicalTime {
	beats := float64(frames) / float64(rate) * tempo.BeatsPerSecond()
	whole, frac := math.Modf(beats)
	return Beats(int(whole)) + MusicalTime(frac*UnitsPerBeat+0.5)
}

// TimeFromSeconds converts wall-clock time to musical time at the given
// tempo, rounding half up.
func TimeFromSeconds(tempo Tempo, s Seconds) MusicalTime {
	return MusicalTime(float64(s)*tempo.BeatsPerSecond()*UnitsPerBeat + 0.5)
}

// Frames converts the time to a frame count at the given tempo and sample
// rate, rounding half up.
func (t MusicalTime) Frames(tempo Tempo, rate SampleRate) int {
	framesPerBeat := float64(rate) / tempo.BeatsPerSecond()
	return int(framesPerBeat*(float64(t)/UnitsPerBeat) + 0.5)
}

// Seconds converts the time to wall-clock time at the given tempo.
func (t MusicalTime) Seconds(tempo Tempo) Seconds {
	return Seconds(float64(t) / UnitsPerBeat / tempo.BeatsPerSecond())
}

// TotalBeats returns the entire time expressed in whole beats.
func (t MusicalTime) TotalBeats() int { return int(t) / UnitsPerBeat }

// TotalParts returns the entire time expressed in whole parts.
func (t MusicalTime) TotalParts() int { return int(t) / UnitsPerPart }

// TotalUnits returns the entire time expressed in units.
func (t MusicalTime) TotalUnits() int { return int(t) }

// Bar returns the zero-based bar the time falls in.
func (t MusicalTime) Bar(ts TimeSignature) int { return t.TotalBeats() / ts.Top }

// Beat returns the zero-based beat within the bar.
func (t MusicalTime) Beat(ts TimeSignature) int { return t.TotalBeats() % ts.Top }

// Part returns the part within the beat.
func (t MusicalTime) Part() int { return t.TotalParts() % PartsPerBeat }

// Unit returns the unit within the part.
func (t MusicalTime) Unit() int { return int(t) % UnitsPerPart }

// Quantize rounds the time to the nearest multiple of quantum.
func (t MusicalTime) Quantize(quantum MusicalTime) MusicalTime {
	return (t + quantum/2) / quantum * quantum
}

func (t MusicalTime) IsZero() bool { return t == 0 }

// String formats the time as beat.part.unit, with the beat one-based the way
// musicians count.
func (t MusicalTime) String() string {
	return fmt.Sprintf("%d.%02d.%05d", t.TotalBeats()+1, t.Part(), t.Unit())
}

// Tempo is a performance speed in beats per minute.
type Tempo float64

const (
	DefaultTempo Tempo = 128
	MaxTempo     Tempo = 1024
)

func (t Tempo) BeatsPerSecond() float64 { return float64(t) / 60 }

func (t Tempo) String() string { return fmt.Sprintf("%0.2f BPM", float64(t)) }

// TimeSignature describes how beats group into bars. Top is the number of
// beats in a bar; Bottom is the note value of one beat, as a reciprocal, so
// 4 means a quarter note.
type TimeSignature struct {
	Top    int `yaml:"top" json:"top"`
	Bottom int `yaml:"bottom" json:"bottom"`
}

// CommonTime is 4/4, the default for new compositions.
var CommonTime = TimeSignature{Top: 4, Bottom: 4}

func NewTimeSignature(top, bottom int) (TimeSignature, error) {
	if top < 1 {
		return TimeSignature{}, fmt.Errorf("time signature top %v is out of range", top)
	}
	if bottom < 1 || bottom&(bottom-1) != 0 {
		return TimeSignature{}, fmt.Errorf("time signature bottom %v is not a power of two", bottom)
	}
	return TimeSignature{Top: top, Bottom: bottom}, nil
}

// Duration returns the length of one bar in this signature.
func (ts TimeSignature) Duration() MusicalTime { return Beats(ts.Top) }

func (ts TimeSignature) String() string { return fmt.Sprintf("%d/%d", ts.Top, ts.Bottom) }

// SampleRate is the number of audio frames per second.
type SampleRate int

const DefaultSampleRate SampleRate = 44100

// Seconds is wall-clock time.
type Seconds float64

// TimeRange is a half-open span [Start, End) of musical time. The engine hands
// one to every device per audio buffer to say which slice of the timeline that
// buffer covers.
type TimeRange struct {
	Start MusicalTime
	End   MusicalTime
}

// Span returns the range beginning at start and lasting duration.
func Span(start, duration MusicalTime) TimeRange {
	return TimeRange{Start: start, End: start + duration}
}

func (r TimeRange) Duration() MusicalTime { return r.End - r.Start }

func (r TimeRange) Contains(t MusicalTime) bool { return t >= r.Start && t < r.End }

func (r TimeRange) Overlaps(o TimeRange) bool { return r.Start < o.End && o.Start < r.End }

func (r TimeRange) IsEmpty() bool { return r.End <= r.Start }

// ExpandWith grows the range just enough to include t.
func (r *TimeRange) ExpandWith(t MusicalTime) {
	if t < r.Start {
		r.Start = t
	}
	if t > r.End {
		r.End = t
	}
}

// Translate shifts both ends by delta.
func (r TimeRange) Translate(delta MusicalTime) TimeRange {
	return TimeRange{Start: r.Start + delta, End: r.End + delta}
}

// TranslateTo moves the range to a new start without changing its duration.
func (r TimeRange) TranslateTo(start MusicalTime) TimeRange {
	return TimeRange{Start: start, End: start + r.Duration()}
}
