package entities

import (
	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/synth"
)

// SineSynth is the built-in polyphonic instrument: a bank of stealing sine
// voices behind the Entity contract. Its one control param is "gain", the
// output level as a 0..1 value.
type SineSynth struct {
	kaiku.BaseEntity
	inner   *synth.Synthesizer[*synth.SineVoice]
	gain    kaiku.Normal
	scratch []kaiku.StereoSample
}

func NewSineSynth() *SineSynth {
	return &SineSynth{inner: newSineSynthInner(), gain: kaiku.MaxNormal}
}

func newSineSynthInner() *synth.Synthesizer[*synth.SineVoice] {
	store := synth.NewStealingVoiceStore(synth.DefaultVoiceCount, synth.NewSineVoice)
	return synth.NewSynthesizer(store)
}

func (s *SineSynth) Gain() kaiku.Normal        { return s.gain }
func (s *SineSynth) SetGain(gain kaiku.Normal) { s.gain = gain }

func (s *SineSynth) Generate(buf []kaiku.StereoSample) bool {
	if s.gain == kaiku.MaxNormal {
		return s.inner.Generate(buf)
	}
	if cap(s.scratch) < len(buf) {
		s.scratch = make([]kaiku.StereoSample, len(buf))
	}
	scratch := s.scratch[:len(buf)]
	clear(scratch)
	audible := s.inner.Generate(scratch)
	for i := range buf {
		buf[i] = buf[i].Add(scratch[i].Scaled(s.gain))
	}
	return audible && s.gain != 0
}

func (s *SineSynth) HandleMidiMessage(_ kaiku.MidiChannel, m kaiku.MidiMessage, _ func(kaiku.MidiChannel, kaiku.MidiMessage)) {
	s.inner.HandleMidiMessage(m)
}

func (s *SineSynth) UpdateSampleRate(rate kaiku.SampleRate) {
	s.BaseEntity.UpdateSampleRate(rate)
	s.inner.SetSampleRate(rate)
}

// Reset rebuilds the voice bank, cutting any ringing tails and dropping the
// pitch bend.
func (s *SineSynth) Reset() {
	s.inner = newSineSynthInner()
	s.inner.SetSampleRate(s.SampleRate())
}

// Stop halts the performance and cuts every ringing voice.
func (s *SineSynth) Stop() {
	s.BaseEntity.Stop()
	s.Reset()
}

func (s *SineSynth) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	if name == "gain" {
		return 0, true
	}
	return 0, false
}

func (s *SineSynth) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	if index == 0 {
		return "gain", true
	}
	return "", false
}

func (s *SineSynth) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	if index == 0 {
		s.gain = kaiku.NewNormal(float64(value))
	}
}
