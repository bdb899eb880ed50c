package engine

import (
	"slices"

	"github.com/kaikuaudio/kaiku"
)

// Orchestrator brings together a project's tracks, entities and mix
// plumbing, and turns the arranged devices into digital audio. Most of its
// methods delegate to a part; the real work happens in Generate.
type Orchestrator struct {
	tracks     *TrackRepository
	entities   *EntityRepository
	aux        map[kaiku.TrackUid]bool
	buses      *BusStation
	humidifier *Humidifier
	mixer      *Mixer

	// per-track render buffers, reused across Generate calls
	buffers map[kaiku.TrackUid][]kaiku.StereoSample
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		tracks:     NewTrackRepository(),
		entities:   NewEntityRepository(),
		aux:        make(map[kaiku.TrackUid]bool),
		buses:      NewBusStation(),
		humidifier: NewHumidifier(),
		mixer:      NewMixer(),
		buffers:    make(map[kaiku.TrackUid][]kaiku.StereoSample),
	}
}

// Generate mixes one buffer of the full mix into buf, on top of whatever buf
// already holds, and reports whether anything audible was produced. Work
// proceeds in phases, each visiting tracks in display order: ordinary tracks
// run their entity chains into per-track buffers, the bus station copies
// sends into the aux buffers, aux tracks run their chains as effects over
// what they received, and finally every track is scaled by its output level
// and summed. A track whose gate is closed (muted, or another track is
// soloed) keeps its silence through every phase.
func (o *Orchestrator) Generate(buf []kaiku.StereoSample) bool {
	for _, uid := range o.tracks.Uids() {
		track := o.trackBuffer(uid, len(buf))
		if o.aux[uid] {
			// aux tracks receive their signal from sends
			continue
		}
		if !o.mixer.IsTrackAudible(uid) {
			continue
		}
		for _, entityUid := range o.entities.UidsForTrack(uid) {
			e := o.entities.Entity(entityUid)
			if e == nil {
				continue
			}
			e.Generate(track)
			if humidity := o.humidifier.Humidity(entityUid); humidity != 0 {
				o.humidifier.TransformBatch(humidity, e, track)
			}
		}
	}

	for _, src := range o.tracks.Uids() {
		if o.aux[src] {
			continue
		}
		source := o.buffers[src]
		for _, route := range o.buses.SendsForTrack(src) {
			if !o.aux[route.AuxTrack] {
				continue
			}
			aux, ok := o.buffers[route.AuxTrack]
			if !ok {
				continue
			}
			for i, s := range source {
				aux[i] = aux[i].Add(s.Scaled(route.Amount))
			}
		}
	}

	for _, uid := range o.tracks.Uids() {
		if !o.aux[uid] || !o.mixer.IsTrackAudible(uid) {
			continue
		}
		track := o.buffers[uid]
		for _, entityUid := range o.entities.UidsForTrack(uid) {
			if e := o.entities.Entity(entityUid); e != nil {
				e.TransformBuffer(track)
			}
		}
	}

	audible := false
	for _, uid := range o.tracks.Uids() {
		if !o.mixer.IsTrackAudible(uid) {
			continue
		}
		output := o.mixer.TrackOutput(uid)
		for i, s := range o.buffers[uid] {
			scaled := s.Scaled(output)
			if !scaled.IsSilent() {
				audible = true
			}
			buf[i] = buf[i].Add(scaled)
		}
	}
	return audible
}

// trackBuffer returns the track's scratch buffer, zeroed and sized to length.
func (o *Orchestrator) trackBuffer(uid kaiku.TrackUid, length int) []kaiku.StereoSample {
	buf := o.buffers[uid]
	setSliceLength(&buf, length)
	clear(buf)
	o.buffers[uid] = buf
	return buf
}

func (o *Orchestrator) CreateTrack() kaiku.TrackUid { return o.tracks.CreateTrack() }

// CreateAuxTrack mints a track that receives bus sends instead of playing
// entities. Its chain runs as effects over the mixed sends.
func (o *Orchestrator) CreateAuxTrack() kaiku.TrackUid {
	uid := o.tracks.CreateTrack()
	o.aux[uid] = true
	return uid
}

func (o *Orchestrator) IsAuxTrack(uid kaiku.TrackUid) bool { return o.aux[uid] }

func (o *Orchestrator) TrackUids() []kaiku.TrackUid { return o.tracks.Uids() }

func (o *Orchestrator) SetTrackPosition(uid kaiku.TrackUid, newPosition int) error {
	return o.tracks.SetTrackPosition(uid, newPosition)
}

func (o *Orchestrator) MintTrackUid() kaiku.TrackUid { return o.tracks.MintTrackUid() }

// DeleteTrack removes the track and everything hanging off it: the entities
// it owns, its bus sends in both directions, its aux membership and its
// mixer settings.
func (o *Orchestrator) DeleteTrack(uid kaiku.TrackUid) {
	for _, entityUid := range slices.Clone(o.entities.UidsForTrack(uid)) {
		_ = o.entities.DeleteEntity(entityUid)
	}
	o.buses.RemoveSendsForTrack(uid)
	delete(o.aux, uid)
	o.mixer.forgetTrack(uid)
	delete(o.buffers, uid)
	o.tracks.DeleteTrack(uid)
}

func (o *Orchestrator) AddEntity(trackUid kaiku.TrackUid, e kaiku.Entity) (kaiku.Uid, error) {
	return o.entities.AddEntity(trackUid, e)
}

func (o *Orchestrator) MoveEntity(uid kaiku.Uid, newTrack kaiku.TrackUid, newPosition int) error {
	return o.entities.MoveEntity(uid, newTrack, newPosition)
}

func (o *Orchestrator) RemoveEntity(uid kaiku.Uid) (kaiku.Entity, error) {
	return o.entities.RemoveEntity(uid)
}

func (o *Orchestrator) DeleteEntity(uid kaiku.Uid) error { return o.entities.DeleteEntity(uid) }

func (o *Orchestrator) MintEntityUid() kaiku.Uid { return o.entities.MintEntityUid() }

func (o *Orchestrator) Entity(uid kaiku.Uid) kaiku.Entity { return o.entities.Entity(uid) }

func (o *Orchestrator) EntityUids(trackUid kaiku.TrackUid) []kaiku.Uid {
	return o.entities.UidsForTrack(trackUid)
}

func (o *Orchestrator) TrackForEntity(uid kaiku.Uid) kaiku.TrackUid {
	return o.entities.TrackForEntity(uid)
}

func (o *Orchestrator) AddSend(src, aux kaiku.TrackUid, amount kaiku.Normal) {
	o.buses.AddSend(src, aux, amount)
}

func (o *Orchestrator) RemoveSend(src, aux kaiku.TrackUid) { o.buses.RemoveSend(src, aux) }

func (o *Orchestrator) Humidity(uid kaiku.Uid) kaiku.Normal { return o.humidifier.Humidity(uid) }

func (o *Orchestrator) SetHumidity(uid kaiku.Uid, humidity kaiku.Normal) {
	o.humidifier.SetHumidity(uid, humidity)
}

func (o *Orchestrator) TrackOutput(uid kaiku.TrackUid) kaiku.Normal {
	return o.mixer.TrackOutput(uid)
}

func (o *Orchestrator) SetTrackOutput(uid kaiku.TrackUid, output kaiku.Normal) {
	o.mixer.SetTrackOutput(uid, output)
}

func (o *Orchestrator) MuteTrack(uid kaiku.TrackUid, muted bool) { o.mixer.MuteTrack(uid, muted) }

func (o *Orchestrator) IsTrackMuted(uid kaiku.TrackUid) bool { return o.mixer.IsTrackMuted(uid) }

func (o *Orchestrator) SoloTrack() kaiku.TrackUid { return o.mixer.SoloTrack() }

func (o *Orchestrator) SetSoloTrack(uid kaiku.TrackUid) { o.mixer.SetSoloTrack(uid) }

func (o *Orchestrator) UpdateTimeRange(rng kaiku.TimeRange) { o.entities.UpdateTimeRange(rng) }

func (o *Orchestrator) WorkAll(emit func(uid kaiku.Uid, ev kaiku.WorkEvent)) {
	o.entities.WorkAll(emit)
}

func (o *Orchestrator) IsFinished() bool { return o.entities.IsFinished() }

func (o *Orchestrator) Play() { o.entities.Play() }

func (o *Orchestrator) Stop() { o.entities.Stop() }

func (o *Orchestrator) SkipToStart() { o.entities.SkipToStart() }

func (o *Orchestrator) SampleRate() kaiku.SampleRate { return o.entities.SampleRate() }

func (o *Orchestrator) UpdateSampleRate(rate kaiku.SampleRate) { o.entities.UpdateSampleRate(rate) }

func (o *Orchestrator) Tempo() kaiku.Tempo { return o.entities.Tempo() }

func (o *Orchestrator) UpdateTempo(tempo kaiku.Tempo) { o.entities.UpdateTempo(tempo) }

func (o *Orchestrator) TimeSignature() kaiku.TimeSignature { return o.entities.TimeSignature() }

func (o *Orchestrator) UpdateTimeSignature(ts kaiku.TimeSignature) {
	o.entities.UpdateTimeSignature(ts)
}

func (o *Orchestrator) Reset() { o.entities.Reset() }

func (o *Orchestrator) BeforeSave() { o.entities.BeforeSave() }

func (o *Orchestrator) AfterLoad() { o.entities.AfterLoad() }
