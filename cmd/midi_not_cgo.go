//go:build !cgo

package cmd

import (
	"github.com/kaikuaudio/kaiku/engine"
)

func NewMidiContext(broker *engine.Broker) engine.MidiContext {
	// rtmidi needs cgo, so without it MIDI input is unavailable
	return engine.NullMidiContext{}
}
