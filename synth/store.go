package synth

import (
	"errors"
	"fmt"

	"github.com/kaikuaudio/kaiku"
)

var (
	// ErrOutOfVoices is returned by non-stealing stores when every voice is
	// busy with some other note.
	ErrOutOfVoices = errors.New("out of voices")

	// ErrNoVoiceForNote is returned by PerNoteVoiceStore for notes without
	// a dedicated voice.
	ErrNoVoiceForNote = errors.New("no voice for note")
)

// VoiceStore owns a set of voices and decides which voice serves which note.
type VoiceStore[V Voice] interface {
	// GetVoice returns the voice that should serve note: the voice already
	// playing it if there is one, otherwise a free one. What happens when
	// every voice is busy is the store's allocation policy.
	GetVoice(note kaiku.MidiNote) (V, error)

	// Generate mixes every voice into buf and reports whether anything
	// audible came out.
	Generate(buf []kaiku.StereoSample) bool

	VoiceCount() int
	ActiveVoiceCount() int

	// Voices returns the live voices for iteration. Callers must not grow
	// or reorder the result.
	Voices() []V

	SetSampleRate(rate kaiku.SampleRate)
}

// voicePool is the indexed voice array shared by the fixed and stealing
// stores: voice i serves note playing[i], with note zero meaning idle.
type voicePool[V Voice] struct {
	voices  []V
	playing []kaiku.MidiNote
	scratch []kaiku.StereoSample
}

func (p *voicePool[V]) add(v V) {
	p.voices = append(p.voices, v)
	p.playing = append(p.playing, 0)
}

// claim returns the index of the voice for note: the one already assigned to
// it if any, else the first idle one, claimed. ok is false when every voice
// is busy with another note.
func (p *voicePool[V]) claim(note kaiku.MidiNote) (int, bool) {
	for i, playing := range p.playing {
		if playing == note {
			return i, true
		}
	}
	for i, v := range p.voices {
		if v.IsPlaying() {
			continue
		}
		p.playing[i] = note
		return i, true
	}
	return 0, false
}

func (p *voicePool[V]) Generate(buf []kaiku.StereoSample) bool {
	audible := false
	p.scratch = scratchBuffer(p.scratch, len(buf))
	for _, v := range p.voices {
		audible = v.Generate(p.scratch) || audible
		for i := range buf {
			buf[i] = buf[i].Add(p.scratch[i])
		}
	}
	// A voice releases its note slot only here, after the render: a note
	// that went silent mid-buffer still owns its voice until the buffer
	// ends.
	for i, v := range p.voices {
		if !v.IsPlaying() {
			p.playing[i] = 0
		}
	}
	return audible
}

func (p *voicePool[V]) VoiceCount() int { return len(p.voices) }

func (p *voicePool[V]) ActiveVoiceCount() int {
	count := 0
	for _, v := range p.voices {
		if v.IsPlaying() {
			count++
		}
	}
	return count
}

func (p *voicePool[V]) Voices() []V { return p.voices }

func (p *voicePool[V]) SetSampleRate(rate kaiku.SampleRate) {
	for _, v := range p.voices {
		v.SetSampleRate(rate)
	}
}

// FixedVoiceStore allocates from a fixed pool and refuses notes beyond it.
type FixedVoiceStore[V Voice] struct {
	voicePool[V]
}

func NewFixedVoiceStore[V Voice](count int, newVoice func() V) *FixedVoiceStore[V] {
	s := &FixedVoiceStore[V]{}
	for i := 0; i < count; i++ {
		s.add(newVoice())
	}
	return s
}

func (s *FixedVoiceStore[V]) GetVoice(note kaiku.MidiNote) (V, error) {
	if i, ok := s.claim(note); ok {
		return s.voices[i], nil
	}
	var none V
	return none, ErrOutOfVoices
}

// StealPolicy picks which voice slot to reassign when every voice is busy.
type StealPolicy[V Voice] func(voices []V, note kaiku.MidiNote) int

// StealingVoiceStore allocates like FixedVoiceStore but never refuses a
// note: on exhaustion it reassigns a slot chosen by its StealPolicy and
// relies on the voice's own shutdown-then-retrigger handling of the abrupt
// note change.
type StealingVoiceStore[V Voice] struct {
	voicePool[V]
	steal StealPolicy[V]
}

func NewStealingVoiceStore[V Voice](count int, newVoice func() V) *StealingVoiceStore[V] {
	s := &StealingVoiceStore[V]{
		steal: func([]V, kaiku.MidiNote) int { return 0 },
	}
	for i := 0; i < count; i++ {
		s.add(newVoice())
	}
	return s
}

// SetStealPolicy replaces the stealing policy. The default steals slot 0.
func (s *StealingVoiceStore[V]) SetStealPolicy(policy StealPolicy[V]) {
	if policy != nil {
		s.steal = policy
	}
}

func (s *StealingVoiceStore[V]) GetVoice(note kaiku.MidiNote) (V, error) {
	if i, ok := s.claim(note); ok {
		return s.voices[i], nil
	}
	i := s.steal(s.voices, note)
	s.playing[i] = note
	return s.voices[i], nil
}

// PerNoteVoiceStore binds each note to its own dedicated voice, which is the
// natural store for drum kits. Notes without a binding are refused.
type PerNoteVoiceStore[V Voice] struct {
	voices  map[kaiku.MidiNote]V
	order   []kaiku.MidiNote
	scratch []kaiku.StereoSample
}

func NewPerNoteVoiceStore[V Voice]() *PerNoteVoiceStore[V] {
	return &PerNoteVoiceStore[V]{voices: make(map[kaiku.MidiNote]V)}
}

// AddVoice dedicates v to note, replacing any earlier binding.
func (s *PerNoteVoiceStore[V]) AddVoice(note kaiku.MidiNote, v V) {
	if _, exists := s.voices[note]; !exists {
		s.order = append(s.order, note)
	}
	s.voices[note] = v
}

func (s *PerNoteVoiceStore[V]) GetVoice(note kaiku.MidiNote) (V, error) {
	if v, ok := s.voices[note]; ok {
		return v, nil
	}
	var none V
	return none, fmt.Errorf("%w %v", ErrNoVoiceForNote, note)
}

func (s *PerNoteVoiceStore[V]) Generate(buf []kaiku.StereoSample) bool {
	audible := false
	s.scratch = scratchBuffer(s.scratch, len(buf))
	for _, note := range s.order {
		audible = s.voices[note].Generate(s.scratch) || audible
		for i := range buf {
			buf[i] = buf[i].Add(s.scratch[i])
		}
	}
	return audible
}

func (s *PerNoteVoiceStore[V]) VoiceCount() int { return len(s.voices) }

func (s *PerNoteVoiceStore[V]) ActiveVoiceCount() int {
	count := 0
	for _, v := range s.voices {
		if v.IsPlaying() {
			count++
		}
	}
	return count
}

func (s *PerNoteVoiceStore[V]) Voices() []V {
	voices := make([]V, 0, len(s.order))
	for _, note := range s.order {
		voices = append(voices, s.voices[note])
	}
	return voices
}

func (s *PerNoteVoiceStore[V]) SetSampleRate(rate kaiku.SampleRate) {
	for _, v := range s.voices {
		v.SetSampleRate(rate)
	}
}

func scratchBuffer(buf []kaiku.StereoSample, frames int) []kaiku.StereoSample {
	if cap(buf) < frames {
		return make([]kaiku.StereoSample, frames)
	}
	return buf[:frames]
}
