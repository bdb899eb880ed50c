//go:build cgo

package cmd

import (
	"github.com/kaikuaudio/kaiku/engine"
	"github.com/kaikuaudio/kaiku/engine/gomidi"
)

func NewMidiContext(broker *engine.Broker) engine.MidiContext {
	return gomidi.NewContext(broker)
}
