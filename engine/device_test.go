package engine_test

import (
	"github.com/kaikuaudio/kaiku"
)

// The devices in this file are the instruments of the engine tests: each one
// implements just enough of the entity contract to make one aspect of the
// engine observable.

// toneDevice mixes a constant level onto both channels.
type toneDevice struct {
	kaiku.BaseEntity
	level kaiku.Sample
}

func (d *toneDevice) Generate(buf []kaiku.StereoSample) bool {
	for i := range buf {
		buf[i] = buf[i].Add(kaiku.StereoSample{d.level, d.level})
	}
	return d.level != 0
}

// gainDevice scales every sample by gain, controllable under the name "gain".
type gainDevice struct {
	kaiku.BaseEntity
	gain kaiku.Sample
}

func (d *gainDevice) TransformSample(_ int, s kaiku.Sample) kaiku.Sample { return s * d.gain }

func (d *gainDevice) TransformBuffer(buf []kaiku.StereoSample) {
	kaiku.TransformPerChannel(buf, d.TransformSample)
}

func (d *gainDevice) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	if name == "gain" {
		return 0, true
	}
	return 0, false
}

func (d *gainDevice) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	if index == 0 {
		return "gain", true
	}
	return "", false
}

func (d *gainDevice) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	if index == 0 {
		d.gain = kaiku.Sample(value)
	}
}

type receivedMidi struct {
	channel kaiku.MidiChannel
	message kaiku.MidiMessage
}

// midiLogDevice records every MIDI message it receives and can relay a
// scripted response.
type midiLogDevice struct {
	kaiku.BaseEntity
	received []receivedMidi
	respond  func(channel kaiku.MidiChannel, m kaiku.MidiMessage, relay func(kaiku.MidiChannel, kaiku.MidiMessage))
}

func (d *midiLogDevice) HandleMidiMessage(channel kaiku.MidiChannel, m kaiku.MidiMessage, relay func(kaiku.MidiChannel, kaiku.MidiMessage)) {
	d.received = append(d.received, receivedMidi{channel, m})
	if d.respond != nil {
		d.respond(channel, m, relay)
	}
}

// eventDevice emits its scripted events on the first Work call and reports
// finished from then on.
type eventDevice struct {
	kaiku.BaseEntity
	events []kaiku.WorkEvent
	done   bool
}

func (d *eventDevice) Work(emit func(kaiku.WorkEvent)) {
	if d.done {
		return
	}
	d.done = true
	for _, ev := range d.events {
		emit(ev)
	}
}

func (d *eventDevice) IsFinished() bool { return d.done }

func (d *eventDevice) SkipToStart() { d.done = false }

type paramChange struct {
	index kaiku.ControlIndex
	value kaiku.ControlValue
}

// paramLogDevice records every control value it is set to.
type paramLogDevice struct {
	kaiku.BaseEntity
	set []paramChange
}

func (d *paramLogDevice) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	d.set = append(d.set, paramChange{index, value})
}
