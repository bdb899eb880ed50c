package kaiku

import "math"

type (
	// MidiChannel is a MIDI channel number 0..15.
	MidiChannel byte

	// MidiNote is a MIDI key number 0..127. Middle C is 60.
	MidiNote byte

	// MidiMessageKind discriminates MidiMessage.
	MidiMessageKind byte

	// MidiMessage is one channel voice message. It is a fixed-size value so
	// the routing and synthesis paths never allocate. The meaning of the two
	// data bytes depends on the kind; use the accessors.
	MidiMessage struct {
		Kind  MidiMessageKind
		Data1 byte
		Data2 byte
	}
)

const (
	MidiNoteOff MidiMessageKind = iota
	MidiNoteOn
	MidiPolyAftertouch
	MidiControlChange
	MidiProgramChange
	MidiChannelAftertouch
	MidiPitchBend
)

const (
	MidiChannelCount = 16

	// MidiAllNotesOff is the control change number that silences a channel.
	MidiAllNotesOff byte = 123

	MidiNoteC4 MidiNote = 60
	MidiNoteA4 MidiNote = 69
)

// NoteOnMessage builds a note-on. A velocity of zero means note-off on the
// wire, and is normalized to one here so the two spellings route identically.
func NoteOnMessage(note MidiNote, velocity byte) MidiMessage {
	if velocity == 0 {
		return NoteOffMessage(note, 0)
	}
	return MidiMessage{Kind: MidiNoteOn, Data1: byte(note), Data2: velocity}
}

func NoteOffMessage(note MidiNote, velocity byte) MidiMessage {
	return MidiMessage{Kind: MidiNoteOff, Data1: byte(note), Data2: velocity}
}

func PolyAftertouchMessage(note MidiNote, velocity byte) MidiMessage {
	return MidiMessage{Kind: MidiPolyAftertouch, Data1: byte(note), Data2: velocity}
}

func ControlChangeMessage(controller, value byte) MidiMessage {
	return MidiMessage{Kind: MidiControlChange, Data1: controller, Data2: value}
}

func ProgramChangeMessage(program byte) MidiMessage {
	return MidiMessage{Kind: MidiProgramChange, Data1: program}
}

func ChannelAftertouchMessage(velocity byte) MidiMessage {
	return MidiMessage{Kind: MidiChannelAftertouch, Data1: velocity}
}

// PitchBendMessage builds a pitch bend from the 14-bit wire value 0..16383,
// where 8192 is center.
func PitchBendMessage(value uint16) MidiMessage {
	return MidiMessage{Kind: MidiPitchBend, Data1: byte(value & 0x7f), Data2: byte(value >> 7 & 0x7f)}
}

func AllNotesOffMessage() MidiMessage {
	return ControlChangeMessage(MidiAllNotesOff, 0)
}

// Note is valid for note and polyphonic aftertouch messages.
func (m MidiMessage) Note() MidiNote { return MidiNote(m.Data1) }

// Velocity is valid for note and aftertouch messages. For channel
// aftertouch the pressure rides in Data1.
func (m MidiMessage) Velocity() byte {
	if m.Kind == MidiChannelAftertouch {
		return m.Data1
	}
	return m.Data2
}

// Controller is valid for control change messages.
func (m MidiMessage) Controller() byte { return m.Data1 }

// Value is the controller value of a control change message.
func (m MidiMessage) Value() byte { return m.Data2 }

// Program is valid for program change messages.
func (m MidiMessage) Program() byte { return m.Data1 }

// PitchBendValue reassembles the 14-bit bend value.
func (m MidiMessage) PitchBendValue() uint16 {
	return uint16(m.Data2)<<7 | uint16(m.Data1)
}

// Bend returns the pitch bend as -1..1, with 0 at center.
func (m MidiMessage) Bend() float64 {
	return (float64(m.PitchBendValue()) - 8192) / 8192
}

// IsAllNotesOff reports whether the message is the all-notes-off control
// change.
func (m MidiMessage) IsAllNotesOff() bool {
	return m.Kind == MidiControlChange && m.Data1 == MidiAllNotesOff
}

// Frequency returns the equal-tempered frequency of the note, tuned to
// A4 = 440 Hz.
func (n MidiNote) Frequency() float64 {
	return 440 * math.Pow(2, (float64(n)-69)/12)
}
