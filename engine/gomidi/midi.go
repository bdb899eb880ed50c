// Package gomidi feeds hardware MIDI input to the engine through the
// gomidi rtmidi driver.
package gomidi

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

type (
	// Context lists the system's MIDI inputs and forwards messages from the
	// opened one to the player's inbox. It implements engine.MidiContext.
	Context struct {
		broker             *engine.Broker
		driver             *rtmididrv.Driver
		current            drivers.In
		devices            []*Device
		devicesInitialized bool
	}

	// Device is one MIDI input port.
	Device struct {
		context *Context
		in      drivers.In
	}
)

// NewContext opens the rtmidi driver. When the driver cannot be opened the
// context still works; it just lists no devices and reports no driver.
func NewContext(broker *engine.Broker) *Context {
	c := &Context{broker: broker}
	c.driver, _ = rtmididrv.New()
	return c
}

func (c *Context) Inputs(yield func(input engine.MidiInputDevice) bool) {
	if !c.devicesInitialized {
		c.initDevices()
	}
	for _, device := range c.devices {
		if !yield(device) {
			break
		}
	}
}

func (c *Context) initDevices() {
	c.devicesInitialized = true
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		c.devices = append(c.devices, &Device{context: c, in: in})
	}
}

func (c *Context) Support() engine.MidiSupport {
	if c.driver == nil {
		return engine.MidiSupportNoDriver
	}
	return engine.MidiSupported
}

func (c *Context) Close() {
	if c.driver == nil {
		return
	}
	if c.current != nil && c.current.IsOpen() {
		c.current.Close()
	}
	c.driver.Close()
}

// handleMessage runs on the driver's callback thread. TrySend drops the
// message when the inbox is full; a stalled renderer must not block the
// driver.
func (c *Context) handleMessage(msg midi.Message, _ int32) {
	channel, m, ok := Convert(msg)
	if !ok {
		return
	}
	engine.TrySend(c.broker.ToPlayer, engine.MsgToPlayer{
		HasMidi:     true,
		MidiChannel: channel,
		MidiMessage: m,
	})
}

// Open opens this input, closing the previously open one first.
func (d *Device) Open() error {
	if d.context.current == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	if d.context.current != nil && d.context.current.IsOpen() {
		d.context.current.Close()
	}
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("cannot open MIDI input: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.handleMessage); err != nil {
		d.in.Close()
		return fmt.Errorf("cannot listen to MIDI input: %w", err)
	}
	d.context.current = d.in
	return nil
}

func (d *Device) Close() error {
	if d.context.current == d.in {
		d.context.current = nil
	}
	return d.in.Close()
}

func (d *Device) IsOpen() bool { return d.in.IsOpen() }

func (d *Device) String() string { return d.in.String() }

// Convert translates a wire message into the engine's message type. Messages
// the engine has no equivalent for, sysex and system realtime among them,
// report ok false.
func Convert(msg midi.Message) (channel kaiku.MidiChannel, m kaiku.MidiMessage, ok bool) {
	var ch, b1, b2 uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteOn(&ch, &b1, &b2):
		return kaiku.MidiChannel(ch), kaiku.NoteOnMessage(kaiku.MidiNote(b1), b2), true
	case msg.GetNoteOff(&ch, &b1, &b2):
		return kaiku.MidiChannel(ch), kaiku.NoteOffMessage(kaiku.MidiNote(b1), b2), true
	case msg.GetPolyAfterTouch(&ch, &b1, &b2):
		return kaiku.MidiChannel(ch), kaiku.PolyAftertouchMessage(kaiku.MidiNote(b1), b2), true
	case msg.GetControlChange(&ch, &b1, &b2):
		return kaiku.MidiChannel(ch), kaiku.ControlChangeMessage(b1, b2), true
	case msg.GetProgramChange(&ch, &b1):
		return kaiku.MidiChannel(ch), kaiku.ProgramChangeMessage(b1), true
	case msg.GetAfterTouch(&ch, &b1):
		return kaiku.MidiChannel(ch), kaiku.ChannelAftertouchMessage(b1), true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return kaiku.MidiChannel(ch), kaiku.PitchBendMessage(abs), true
	}
	return 0, kaiku.MidiMessage{}, false
}
