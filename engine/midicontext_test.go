package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kaikuaudio/kaiku/engine"
)

type fakeMidiDevice struct {
	name    string
	open    bool
	openErr error
}

func (d *fakeMidiDevice) Open() error {
	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	return nil
}

func (d *fakeMidiDevice) Close() error   { d.open = false; return nil }
func (d *fakeMidiDevice) IsOpen() bool   { return d.open }
func (d *fakeMidiDevice) String() string { return d.name }

type fakeMidiContext struct {
	devices []*fakeMidiDevice
}

func (c *fakeMidiContext) Inputs(yield func(input engine.MidiInputDevice) bool) {
	for _, d := range c.devices {
		if !yield(d) {
			break
		}
	}
}

func (c *fakeMidiContext) Close()                      {}
func (c *fakeMidiContext) Support() engine.MidiSupport { return engine.MidiSupported }

func TestTryOpenMidiInputByPrefix(t *testing.T) {
	keyboard := &fakeMidiDevice{name: "Virtual Keyboard"}
	pads := &fakeMidiDevice{name: "Akai MPK mini"}
	ctx := &fakeMidiContext{devices: []*fakeMidiDevice{keyboard, pads}}

	device, err := engine.TryOpenMidiInput(ctx, "Akai", false)
	if err != nil {
		t.Fatalf("TryOpenMidiInput failed: %v", err)
	}
	if device.String() != pads.name {
		t.Errorf("opened %q", device)
	}
	if !pads.open || keyboard.open {
		t.Errorf("open states: keyboard %v pads %v", keyboard.open, pads.open)
	}
}

func TestTryOpenMidiInputTakesFirst(t *testing.T) {
	keyboard := &fakeMidiDevice{name: "Virtual Keyboard"}
	pads := &fakeMidiDevice{name: "Akai MPK mini"}
	ctx := &fakeMidiContext{devices: []*fakeMidiDevice{keyboard, pads}}

	device, err := engine.TryOpenMidiInput(ctx, "", true)
	if err != nil {
		t.Fatalf("TryOpenMidiInput failed: %v", err)
	}
	if device.String() != keyboard.name {
		t.Errorf("opened %q", device)
	}
}

func TestTryOpenMidiInputNothingRequested(t *testing.T) {
	keyboard := &fakeMidiDevice{name: "Virtual Keyboard"}
	ctx := &fakeMidiContext{devices: []*fakeMidiDevice{keyboard}}

	device, err := engine.TryOpenMidiInput(ctx, "", false)
	if device != nil || err != nil {
		t.Fatalf("got %v, %v expected nothing to happen", device, err)
	}
	if keyboard.open {
		t.Error("device was opened")
	}
}

func TestTryOpenMidiInputNoMatch(t *testing.T) {
	ctx := &fakeMidiContext{devices: []*fakeMidiDevice{{name: "Virtual Keyboard"}}}
	if _, err := engine.TryOpenMidiInput(ctx, "Roland", false); err == nil ||
		!strings.Contains(err.Error(), "no MIDI input starting with") {
		t.Fatalf("error is %v", err)
	}
}

func TestTryOpenMidiInputNullContext(t *testing.T) {
	if got := (engine.NullMidiContext{}).Support(); got != engine.MidiSupportNotCompiled {
		t.Errorf("support is %v", got)
	}
	if _, err := engine.TryOpenMidiInput(engine.NullMidiContext{}, "", true); err == nil ||
		!strings.Contains(err.Error(), "no MIDI inputs available") {
		t.Fatalf("error is %v", err)
	}
}

func TestTryOpenMidiInputOpenErrorPropagates(t *testing.T) {
	broken := errors.New("port is busy")
	ctx := &fakeMidiContext{devices: []*fakeMidiDevice{{name: "Virtual Keyboard", openErr: broken}}}
	if _, err := engine.TryOpenMidiInput(ctx, "Virtual", false); !errors.Is(err, broken) {
		t.Fatalf("error is %v", err)
	}
}
