// Package synth is the voice-allocation framework behind the built-in
// instruments: a Voice contract, voice stores with different allocation
// policies, and a Synthesizer that drives a store from MIDI.
package synth

import "github.com/kaikuaudio/kaiku"

// Voice is one monophonic sound generator inside a polyphonic instrument.
// Unlike entities, a voice overwrites its buffer completely on Generate;
// the store owning it does the summing.
type Voice interface {
	NoteOn(note kaiku.MidiNote, velocity byte)
	NoteOff(velocity byte)
	Aftertouch(velocity byte)

	// IsPlaying reports whether the voice is still sounding. A voice stays
	// playing through its release tail; the stores rely on this to know
	// which voices are claimable.
	IsPlaying() bool

	// Generate overwrites buf with the voice's signal and reports whether
	// any of it was audible.
	Generate(buf []kaiku.StereoSample) bool

	SetSampleRate(rate kaiku.SampleRate)
}

// PitchBender is a Voice that responds to the global pitch bend. The bend is
// -1..1, covering a whole step down to a whole step up.
type PitchBender interface {
	SetPitchBend(bend float64)
}
