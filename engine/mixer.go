package engine

import (
	"github.com/kaikuaudio/kaiku"
)

// Mixer holds the per-track output level, mute flag, and the solo selection.
// Levels and mutes live here rather than on the tracks so that a track uid is
// all the orchestrator needs while mixing.
type Mixer struct {
	output map[kaiku.TrackUid]kaiku.Normal
	mute   map[kaiku.TrackUid]bool
	solo   kaiku.TrackUid
}

func NewMixer() *Mixer {
	return &Mixer{
		output: make(map[kaiku.TrackUid]kaiku.Normal),
		mute:   make(map[kaiku.TrackUid]bool),
	}
}

// TrackOutput returns the track's output level. A track that was never set
// plays at full level.
func (m *Mixer) TrackOutput(uid kaiku.TrackUid) kaiku.Normal {
	if output, ok := m.output[uid]; ok {
		return output
	}
	return kaiku.MaxNormal
}

func (m *Mixer) SetTrackOutput(uid kaiku.TrackUid, output kaiku.Normal) {
	m.output[uid] = output
}

func (m *Mixer) MuteTrack(uid kaiku.TrackUid, muted bool) {
	m.mute[uid] = muted
}

func (m *Mixer) IsTrackMuted(uid kaiku.TrackUid) bool {
	return m.mute[uid]
}

// SoloTrack returns the soloed track, zero if none.
func (m *Mixer) SoloTrack() kaiku.TrackUid { return m.solo }

// SetSoloTrack solos one track; zero clears the solo. Soloing does not touch
// the stored mute flags, so clearing the solo restores the previous mix.
func (m *Mixer) SetSoloTrack(uid kaiku.TrackUid) { m.solo = uid }

// IsTrackAudible reports whether the track takes part in the mix: not muted,
// and either no track is soloed or this is the soloed track.
func (m *Mixer) IsTrackAudible(uid kaiku.TrackUid) bool {
	return !m.mute[uid] && (m.solo == 0 || m.solo == uid)
}

// forgetTrack drops all mixer state for a deleted track.
func (m *Mixer) forgetTrack(uid kaiku.TrackUid) {
	delete(m.output, uid)
	delete(m.mute, uid)
	if m.solo == uid {
		m.solo = 0
	}
}
