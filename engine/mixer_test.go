package engine_test

import (
	"testing"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

func TestMixerDefaults(t *testing.T) {
	m := engine.NewMixer()
	if got := m.TrackOutput(1); got != kaiku.MaxNormal {
		t.Errorf("default output: got %v expected %v", got, kaiku.MaxNormal)
	}
	if m.IsTrackMuted(1) {
		t.Error("new track should not be muted")
	}
	if !m.IsTrackAudible(1) {
		t.Error("new track should be audible")
	}
}

func TestMixerMuteAndSolo(t *testing.T) {
	m := engine.NewMixer()
	m.MuteTrack(1, true)
	if m.IsTrackAudible(1) {
		t.Error("muted track is audible")
	}
	if m.IsTrackAudible(2) != true {
		t.Error("muting one track silenced another")
	}

	m.SetSoloTrack(2)
	if m.IsTrackAudible(3) {
		t.Error("soloing track 2 left track 3 audible")
	}
	if !m.IsTrackAudible(2) {
		t.Error("soloed track is not audible")
	}

	// Mute wins over solo.
	m.MuteTrack(2, true)
	if m.IsTrackAudible(2) {
		t.Error("muted soloed track is audible")
	}

	m.SetSoloTrack(0)
	if !m.IsTrackAudible(3) {
		t.Error("clearing solo did not restore track 3")
	}
}

func TestMixerOutput(t *testing.T) {
	m := engine.NewMixer()
	m.SetTrackOutput(1, 0.25)
	if got := m.TrackOutput(1); got != 0.25 {
		t.Errorf("output: got %v expected 0.25", got)
	}
	if got := m.TrackOutput(2); got != kaiku.MaxNormal {
		t.Errorf("setting one track's output changed another: %v", got)
	}
}
