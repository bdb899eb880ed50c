package kaiku

type (
	// WorkEventKind discriminates WorkEvent.
	WorkEventKind byte

	// WorkEvent is something an entity asks the engine to do while working a
	// time slice. Entities never deliver events themselves; the engine
	// collects them and routes MIDI through the router and control values
	// through the automator.
	WorkEvent struct {
		Kind    WorkEventKind
		Track   TrackUid
		Channel MidiChannel
		Message MidiMessage
		Value   ControlValue
	}
)

const (
	// WorkEventMidi is a MIDI message sent to a channel.
	WorkEventMidi WorkEventKind = iota
	// WorkEventMidiForTrack is a MIDI message decorated with the track that
	// produced it, so routing can stay within the track's scope.
	WorkEventMidiForTrack
	// WorkEventControl announces that the sender's value changed and linked
	// parameters should follow.
	WorkEventControl
)

func MidiWorkEvent(channel MidiChannel, m MidiMessage) WorkEvent {
	return WorkEvent{Kind: WorkEventMidi, Channel: channel, Message: m}
}

func MidiForTrackWorkEvent(track TrackUid, channel MidiChannel, m MidiMessage) WorkEvent {
	return WorkEvent{Kind: WorkEventMidiForTrack, Track: track, Channel: channel, Message: m}
}

func ControlWorkEvent(v ControlValue) WorkEvent {
	return WorkEvent{Kind: WorkEventControl, Value: v}
}

// HasUid is anything owned by a project under a minted identifier.
type HasUid interface {
	Uid() Uid
	SetUid(Uid)
}

// Configurable is anything that wants to stay in sync with the global sample
// rate, tempo and time signature.
type Configurable interface {
	SampleRate() SampleRate
	UpdateSampleRate(SampleRate)
	Tempo() Tempo
	UpdateTempo(Tempo)
	TimeSignature() TimeSignature
	UpdateTimeSignature(TimeSignature)

	// Reset drops state cached from earlier rendering. It is sent after a
	// seek; oscillators should reset phase, delay lines should empty.
	Reset()
}

// Controls is the work lifecycle of an entity that lives on the timeline.
type Controls interface {
	// UpdateTimeRange says which slice of the timeline the next Work call
	// covers.
	UpdateTimeRange(TimeRange)

	// Work performs the slice, handing any resulting events to emit.
	Work(emit func(WorkEvent))

	// IsFinished reports whether the entity has nothing left to do. An
	// entity with no timeline obligations is vacuously finished.
	IsFinished() bool

	Play()
	Stop()
	SkipToStart()
	IsPerforming() bool
}

// Controllable exposes automatable parameters by index, with name lookup for
// linking from composition files.
type Controllable interface {
	ControlIndexForName(name string) (ControlIndex, bool)
	ControlNameForIndex(index ControlIndex) (string, bool)
	SetControlParam(index ControlIndex, value ControlValue)
}

// HandlesMidi receives MIDI. The relay callback lets a receiver emit further
// messages; the router decides where they go and watches for loops.
type HandlesMidi interface {
	HandleMidiMessage(channel MidiChannel, m MidiMessage, relay func(MidiChannel, MidiMessage))
}

// Generates produces audio. Generation never fails; an entity with nothing
// to play leaves the buffer alone and reports false.
type Generates interface {
	// Generate mixes the entity's signal into buf and reports whether any
	// non-silent signal was produced. Buffers arrive zeroed at the start of
	// a track render, so the first generator on a track writes onto
	// silence and later ones layer on top.
	Generate(buf []StereoSample) bool
}

// Transforms processes audio in place. Transformation never fails; the
// neutral transform is the identity.
type Transforms interface {
	TransformSample(channel int, s Sample) Sample
	TransformBuffer(buf []StereoSample)
}

// Serializable gets a chance to do work right before saving and right after
// loading.
type Serializable interface {
	BeforeSave()
	AfterLoad()
}

// Entity is the full capability contract. Every device in a project
// implements all of it, usually by embedding BaseEntity and overriding the
// few methods it actually needs: instruments override Generate and
// HandleMidiMessage, effects TransformSample, controllers Work.
type Entity interface {
	HasUid
	Configurable
	Controls
	Controllable
	HandlesMidi
	Generates
	Transforms
	Serializable
}

// TransformPerChannel runs a per-channel sample transform across a stereo
// buffer. Effects whose processing is sample-by-sample implement
// TransformBuffer with this.
func TransformPerChannel(buf []StereoSample, f func(channel int, s Sample) Sample) {
	for i := range buf {
		buf[i][0] = f(0, buf[i][0])
		buf[i][1] = f(1, buf[i][1])
	}
}

// BaseEntity supplies the neutral behavior of the whole Entity contract. Its
// zero value is usable: configuration getters fall back to the defaults
// until a project propagates real values.
type BaseEntity struct {
	uid        Uid
	sampleRate SampleRate
	tempo      Tempo
	timeSig    TimeSignature
	performing bool
}

func (e *BaseEntity) Uid() Uid       { return e.uid }
func (e *BaseEntity) SetUid(uid Uid) { e.uid = uid }

func (e *BaseEntity) SampleRate() SampleRate {
	if e.sampleRate == 0 {
		return DefaultSampleRate
	}
	return e.sampleRate
}
func (e *BaseEntity) UpdateSampleRate(rate SampleRate) { e.sampleRate = rate }

func (e *BaseEntity) Tempo() Tempo {
	if e.tempo == 0 {
		return DefaultTempo
	}
	return e.tempo
}
func (e *BaseEntity) UpdateTempo(tempo Tempo) { e.tempo = tempo }

func (e *BaseEntity) TimeSignature() TimeSignature {
	if e.timeSig.Top == 0 {
		return CommonTime
	}
	return e.timeSig
}
func (e *BaseEntity) UpdateTimeSignature(ts TimeSignature) { e.timeSig = ts }

func (e *BaseEntity) Reset() {}

func (e *BaseEntity) UpdateTimeRange(TimeRange) {}
func (e *BaseEntity) Work(func(WorkEvent))      {}
func (e *BaseEntity) IsFinished() bool          { return true }
func (e *BaseEntity) Play()                     { e.performing = true }
func (e *BaseEntity) Stop()                     { e.performing = false }
func (e *BaseEntity) SkipToStart()              {}
func (e *BaseEntity) IsPerforming() bool        { return e.performing }

func (e *BaseEntity) ControlIndexForName(string) (ControlIndex, bool) { return 0, false }
func (e *BaseEntity) ControlNameForIndex(ControlIndex) (string, bool) { return "", false }
func (e *BaseEntity) SetControlParam(ControlIndex, ControlValue)      {}

func (e *BaseEntity) HandleMidiMessage(MidiChannel, MidiMessage, func(MidiChannel, MidiMessage)) {
}

func (e *BaseEntity) Generate([]StereoSample) bool { return false }

func (e *BaseEntity) TransformSample(_ int, s Sample) Sample { return s }
func (e *BaseEntity) TransformBuffer([]StereoSample)         {}

func (e *BaseEntity) BeforeSave() {}
func (e *BaseEntity) AfterLoad()  {}
