package synth

import (
	"math"

	"github.com/kaikuaudio/kaiku"
)

// DefaultVoiceCount is the pool size instruments use unless configured
// otherwise.
const DefaultVoiceCount = 8

// Envelope times in seconds. Shutdown is the fast ramp used when a voice is
// stolen mid-note; it is short enough to be inaudible but long enough to
// avoid a click.
const (
	sineAttackSeconds   = 0.005
	sineReleaseSeconds  = 0.05
	sineShutdownSeconds = 0.001
)

type sineState byte

const (
	sineIdle sineState = iota
	sineAttack
	sineSustain
	sineRelease
	sineShutdown
)

// SineVoice is the built-in voice: a sine oscillator through a linear
// attack/release envelope. A note-on while already sounding steals the
// voice: the envelope ramps down fast and the stashed note retriggers, so
// the pitch change never clicks.
type SineVoice struct {
	sampleRate kaiku.SampleRate

	note      kaiku.MidiNote
	frequency float64
	bend      float64
	phase     float64

	state    sineState
	level    float64
	velocity float64

	stolen     bool
	stolenNote kaiku.MidiNote
	stolenVel  byte
}

func NewSineVoice() *SineVoice { return &SineVoice{} }

// Note returns the note the voice is sounding, or was last playing.
func (v *SineVoice) Note() kaiku.MidiNote { return v.note }

func (v *SineVoice) NoteOn(note kaiku.MidiNote, velocity byte) {
	if v.IsPlaying() {
		v.stolen = true
		v.stolenNote = note
		v.stolenVel = velocity
		v.state = sineShutdown
		return
	}
	v.note = note
	v.frequency = note.Frequency()
	v.velocity = float64(velocity) / 127
	v.phase = 0
	v.state = sineAttack
}

func (v *SineVoice) NoteOff(byte) {
	// A steal in progress wins over the release; the stolen note is already
	// committed to this voice.
	if v.state != sineIdle && v.state != sineShutdown {
		v.state = sineRelease
	}
}

// Aftertouch reshapes the loudness of the sounding note.
func (v *SineVoice) Aftertouch(velocity byte) {
	if v.IsPlaying() {
		v.velocity = float64(velocity) / 127
	}
}

func (v *SineVoice) IsPlaying() bool { return v.state != sineIdle }

func (v *SineVoice) SetSampleRate(rate kaiku.SampleRate) { v.sampleRate = rate }

func (v *SineVoice) SetPitchBend(bend float64) { v.bend = bend }

func (v *SineVoice) rate() float64 {
	if v.sampleRate == 0 {
		return float64(kaiku.DefaultSampleRate)
	}
	return float64(v.sampleRate)
}

func (v *SineVoice) Generate(buf []kaiku.StereoSample) bool {
	if v.state == sineIdle {
		clear(buf)
		return false
	}
	rate := v.rate()
	// Bend of ±1 is a whole step either way.
	step := v.frequency * math.Pow(2, v.bend*2.0/12) / rate
	attackStep := 1 / (sineAttackSeconds * rate)
	releaseStep := 1 / (sineReleaseSeconds * rate)
	shutdownStep := 1 / (sineShutdownSeconds * rate)
	audible := false
	for i := range buf {
		switch v.state {
		case sineAttack:
			v.level += attackStep
			if v.level >= 1 {
				v.level = 1
				v.state = sineSustain
			}
		case sineRelease:
			v.level -= releaseStep
			if v.level <= 0 {
				v.level = 0
				v.state = sineIdle
			}
		case sineShutdown:
			v.level -= shutdownStep
			if v.level <= 0 {
				v.level = 0
				v.state = sineIdle
				if v.stolen {
					v.stolen = false
					v.NoteOn(v.stolenNote, v.stolenVel)
					step = v.frequency * math.Pow(2, v.bend*2.0/12) / rate
				}
			}
		}
		if v.state == sineIdle {
			buf[i] = kaiku.StereoSample{}
			continue
		}
		s := kaiku.Sample(math.Sin(2*math.Pi*v.phase) * v.level * v.velocity)
		buf[i] = kaiku.StereoSample{s, s}
		if s != 0 {
			audible = true
		}
		v.phase += step
		if v.phase >= 1 {
			v.phase -= 1
		}
	}
	return audible
}
