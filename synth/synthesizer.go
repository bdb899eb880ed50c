package synth

import (
	"github.com/kaikuaudio/kaiku"
)

// Synthesizer is the smallest functional core of a polyphonic instrument
// built around a VoiceStore: the note lifecycle goes through the store's
// allocation policy, pitch bend and channel aftertouch apply across voices,
// and a recent-activity clock tells UIs whether MIDI has arrived lately.
// Instruments wrap a Synthesizer and add their entity surface on top.
type Synthesizer[V Voice] struct {
	store            VoiceStore[V]
	pitchBend        float64
	framesSinceInput int
	sampleRate       kaiku.SampleRate
}

func NewSynthesizer[V Voice](store VoiceStore[V]) *Synthesizer[V] {
	return &Synthesizer[V]{store: store}
}

// Store returns the voice store the synthesizer allocates from.
func (s *Synthesizer[V]) Store() VoiceStore[V] { return s.store }

func (s *Synthesizer[V]) SampleRate() kaiku.SampleRate {
	if s.sampleRate == 0 {
		return kaiku.DefaultSampleRate
	}
	return s.sampleRate
}

func (s *Synthesizer[V]) SetSampleRate(rate kaiku.SampleRate) {
	s.sampleRate = rate
	s.store.SetSampleRate(rate)
}

// Generate mixes every voice into buf and advances the recent-activity
// clock by the rendered frames.
func (s *Synthesizer[V]) Generate(buf []kaiku.StereoSample) bool {
	audible := s.store.Generate(buf)
	s.framesSinceInput += len(buf)
	return audible
}

// PitchBend returns the current global bend, -1..1.
func (s *Synthesizer[V]) PitchBend() float64 { return s.pitchBend }

// SetPitchBend applies bend to every voice that can follow it.
func (s *Synthesizer[V]) SetPitchBend(bend float64) {
	s.pitchBend = bend
	for _, v := range s.store.Voices() {
		if bender, ok := any(v).(PitchBender); ok {
			bender.SetPitchBend(bend)
		}
	}
}

// IsMidiRecentlyActive reports whether MIDI input arrived within the last
// quarter second of rendered audio.
func (s *Synthesizer[V]) IsMidiRecentlyActive() bool {
	return s.framesSinceInput < int(s.SampleRate())/4
}

// HandleMidiMessage drives the voices from one MIDI message. Notes the
// store refuses are skipped; nothing here ever fails.
func (s *Synthesizer[V]) HandleMidiMessage(m kaiku.MidiMessage) {
	switch m.Kind {
	case kaiku.MidiNoteOn:
		if v, err := s.store.GetVoice(m.Note()); err == nil {
			v.NoteOn(m.Note(), m.Velocity())
		}
	case kaiku.MidiNoteOff:
		if v, err := s.store.GetVoice(m.Note()); err == nil {
			v.NoteOff(m.Velocity())
		}
	case kaiku.MidiPolyAftertouch:
		if v, err := s.store.GetVoice(m.Note()); err == nil {
			v.Aftertouch(m.Velocity())
		}
	case kaiku.MidiControlChange:
		if m.IsAllNotesOff() {
			for _, v := range s.store.Voices() {
				v.NoteOff(0)
			}
		}
	case kaiku.MidiPitchBend:
		s.SetPitchBend(m.Bend())
	case kaiku.MidiChannelAftertouch:
		for _, v := range s.store.Voices() {
			if v.IsPlaying() {
				v.Aftertouch(m.Velocity())
			}
		}
	}
	s.framesSinceInput = 0
}
