package engine

import (
	"fmt"
	"strings"
)

type (
	// MidiContext is the hardware MIDI boundary: it lists input devices and
	// says how much MIDI support this build has. Opened devices feed the
	// player's inbox on their own; the engine never polls them.
	MidiContext interface {
		Inputs(yield func(input MidiInputDevice) bool)
		Close()
		Support() MidiSupport
	}

	MidiInputDevice interface {
		Open() error
		Close() error
		IsOpen() bool
		String() string
	}

	MidiSupport int
)

const (
	// MidiSupportNotCompiled means the build carries no MIDI code at all.
	MidiSupportNotCompiled MidiSupport = iota
	// MidiSupportNoDriver means the MIDI code is present but no system
	// driver could be opened.
	MidiSupportNoDriver
	MidiSupported
)

// NullMidiContext stands in when no real MIDI context is available: no
// devices, closing does nothing.
type NullMidiContext struct{}

func (NullMidiContext) Inputs(func(input MidiInputDevice) bool) {}
func (NullMidiContext) Close()                                  {}
func (NullMidiContext) Support() MidiSupport                    { return MidiSupportNotCompiled }

// TryOpenMidiInput opens the first input whose name starts with prefix, or
// simply the first input when takeFirst is set. With no prefix and no
// takeFirst there is nothing to do and it returns nil, nil.
func TryOpenMidiInput(ctx MidiContext, prefix string, takeFirst bool) (MidiInputDevice, error) {
	if prefix == "" && !takeFirst {
		return nil, nil
	}
	var (
		opened  MidiInputDevice
		openErr error
		matched bool
	)
	ctx.Inputs(func(input MidiInputDevice) bool {
		if takeFirst || strings.HasPrefix(input.String(), prefix) {
			if err := input.Open(); err != nil {
				openErr = fmt.Errorf("cannot open MIDI input %q: %w", input.String(), err)
			} else {
				opened = input
			}
			matched = true
			return false
		}
		return true
	})
	if matched {
		return opened, openErr
	}
	if takeFirst {
		return nil, fmt.Errorf("no MIDI inputs available")
	}
	return nil, fmt.Errorf("no MIDI input starting with %q", prefix)
}
