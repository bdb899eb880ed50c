// Package entities holds the built-in devices and the factory that creates
// them by name. The engine itself never constructs a concrete device type:
// compositions and callers name a factory key, and the factory answers with
// a ready entity.
package entities

import (
	"fmt"
	"sort"

	"github.com/kaikuaudio/kaiku"
)

// Constructor builds one ready-to-use entity. The returned entity carries no
// uid; the project mints one when the entity is added to a track.
type Constructor func() kaiku.Entity

// Factory maps entity kinds to constructors. Registration happens once at
// startup and is then frozen with Finalize; afterwards the set of kinds is
// immutable, so lookups need no locking.
type Factory struct {
	constructors map[string]Constructor
	finalized    bool
	sortedKeys   []string
}

func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// Register associates a kind with a constructor. Registering a duplicate
// kind, or registering after Finalize, is a programming error and panics.
func (f *Factory) Register(key string, build Constructor) {
	if f.finalized {
		panic("attempt to register an entity after registration completed")
	}
	if _, ok := f.constructors[key]; ok {
		panic(fmt.Sprintf("Register(%q): duplicate key", key))
	}
	f.constructors[key] = build
}

// Finalize freezes the registration set. It returns the factory so a
// register-everything call can end with it.
func (f *Factory) Finalize() *Factory {
	f.finalized = true
	f.sortedKeys = make([]string, 0, len(f.constructors))
	for key := range f.constructors {
		f.sortedKeys = append(f.sortedKeys, key)
	}
	sort.Strings(f.sortedKeys)
	return f
}

// SortedKeys lists every registered kind in sorted order, for display.
func (f *Factory) SortedKeys() []string {
	if !f.finalized {
		panic("SortedKeys can be called only after registration is complete")
	}
	return f.sortedKeys
}

// New builds an entity of the given kind.
func (f *Factory) New(key string) (kaiku.Entity, error) {
	build, ok := f.constructors[key]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", key)
	}
	return build(), nil
}

// BuiltIn returns a finalized factory holding every built-in entity.
func BuiltIn() *Factory {
	f := NewFactory()

	// Instruments
	f.Register("sine-synth", func() kaiku.Entity { return NewSineSynth() })

	// Effects
	f.Register("gain", func() kaiku.Entity { return NewGain() })
	f.Register("delay", func() kaiku.Entity { return NewDelay() })
	f.Register("negator", func() kaiku.Entity { return NewNegator() })

	// Controllers
	f.Register("pattern-sequencer", func() kaiku.Entity { return NewPatternSequencer() })
	f.Register("timer", func() kaiku.Entity { return NewTimer(kaiku.Beats(1)) })
	f.Register("trigger", func() kaiku.Entity { return NewTrigger(kaiku.Beats(1), 1) })

	return f.Finalize()
}
