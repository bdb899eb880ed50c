package engine

import (
	"github.com/kaikuaudio/kaiku"
)

// Transport is the global clock. It tracks the current position in the
// composition and decides how far musical time moves for each rendered
// buffer.
type Transport struct {
	tempo      kaiku.Tempo
	timeSig    kaiku.TimeSignature
	sampleRate kaiku.SampleRate

	cursor     kaiku.MusicalTime
	frames     int
	performing bool
}

func NewTransport() *Transport {
	return &Transport{
		tempo:      kaiku.DefaultTempo,
		timeSig:    kaiku.CommonTime,
		sampleRate: kaiku.DefaultSampleRate,
	}
}

// Advance moves the clock forward by frames and returns the slice of musical
// time the corresponding buffer covers. The range is recomputed from the
// absolute frame count each call, so rounding never accumulates; it can be
// empty when a short buffer advances less than one musical time unit.
//
// While stopped the clock stays put but the returned range still has its
// usual length, so interactive devices keep seeing time move and respond to
// live MIDI input normally.
func (t *Transport) Advance(frames int) kaiku.TimeRange {
	newFrames := t.frames + frames
	newTime := kaiku.TimeFromFrames(t.tempo, t.sampleRate, newFrames)
	length := newTime - t.cursor
	if length < 0 {
		length = 0
	}
	r := kaiku.Span(t.cursor, length)
	if t.performing {
		t.frames = newFrames
		t.cursor = newTime
	}
	return r
}

// Cursor returns the current position in the composition.
func (t *Transport) Cursor() kaiku.MusicalTime { return t.cursor }

// Frames returns the number of frames rendered since the start.
func (t *Transport) Frames() int { return t.frames }

func (t *Transport) IsPerforming() bool { return t.performing }

func (t *Transport) Play() { t.performing = true }

// Stop pauses a running performance. Stopping when already stopped rewinds
// to the start, which gives the stop control a convenient dual function.
func (t *Transport) Stop() {
	if t.performing {
		t.performing = false
	} else {
		t.SkipToStart()
	}
}

func (t *Transport) SkipToStart() {
	t.cursor = kaiku.TimeZero
	t.frames = 0
}

func (t *Transport) SampleRate() kaiku.SampleRate { return t.sampleRate }

func (t *Transport) UpdateSampleRate(rate kaiku.SampleRate) { t.sampleRate = rate }

func (t *Transport) Tempo() kaiku.Tempo { return t.tempo }

func (t *Transport) UpdateTempo(tempo kaiku.Tempo) { t.tempo = tempo }

func (t *Transport) TimeSignature() kaiku.TimeSignature { return t.timeSig }

func (t *Transport) UpdateTimeSignature(ts kaiku.TimeSignature) { t.timeSig = ts }

// Reset restores the musical defaults and rewinds. The sample rate is left
// alone: it belongs to the audio device, not the composition.
func (t *Transport) Reset() {
	t.tempo = kaiku.DefaultTempo
	t.timeSig = kaiku.CommonTime
	t.performing = false
	t.SkipToStart()
}
