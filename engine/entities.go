package engine

import (
	"fmt"

	"github.com/kaikuaudio/kaiku"
)

// EntityRepository owns the live entities and acts on all of them at once
// where possible. It keeps the track to entity cross-reference maps and an
// insertion-ordered uid list so that every fan-out visits entities in a
// stable order.
type EntityRepository struct {
	factory      *kaiku.UidFactory[kaiku.Uid]
	entities     map[kaiku.Uid]kaiku.Entity
	uidsForTrack map[kaiku.TrackUid][]kaiku.Uid
	trackForUid  map[kaiku.Uid]kaiku.TrackUid
	order        []kaiku.Uid

	sampleRate kaiku.SampleRate
	tempo      kaiku.Tempo
	timeSig    kaiku.TimeSignature

	finished bool
}

func NewEntityRepository() *EntityRepository {
	return &EntityRepository{
		factory:      kaiku.NewEntityUidFactory(),
		entities:     make(map[kaiku.Uid]kaiku.Entity),
		uidsForTrack: make(map[kaiku.TrackUid][]kaiku.Uid),
		trackForUid:  make(map[kaiku.Uid]kaiku.TrackUid),
		sampleRate:   kaiku.DefaultSampleRate,
		tempo:        kaiku.DefaultTempo,
		timeSig:      kaiku.CommonTime,
	}
}

// AddEntity appends the entity to the given track's chain. An entity that
// already carries a non-zero uid keeps it, and the factory is told about it
// so later mints cannot collide; otherwise the repository mints one. The
// repository propagates the current sample rate, time signature and tempo to
// the entity before it becomes visible.
func (r *EntityRepository) AddEntity(trackUid kaiku.TrackUid, e kaiku.Entity) (kaiku.Uid, error) {
	uid := e.Uid()
	if uid != 0 {
		if _, ok := r.entities[uid]; ok {
			return 0, fmt.Errorf("entity %v already exists", uid)
		}
		r.factory.NotifyExternallyMinted(uid)
	} else {
		uid = r.factory.MintNext()
	}
	e.SetUid(uid)
	e.UpdateSampleRate(r.sampleRate)
	e.UpdateTimeSignature(r.timeSig)
	e.UpdateTempo(r.tempo)
	r.entities[uid] = e
	r.uidsForTrack[trackUid] = append(r.uidsForTrack[trackUid], uid)
	r.trackForUid[uid] = trackUid
	r.order = append(r.order, uid)
	return uid, nil
}

// MoveEntity moves the entity to a new track, a new position in its chain, or
// both. A zero newTrack keeps the current track; a negative newPosition keeps
// the current position. All checks run before anything changes, so a failed
// move leaves both maps untouched.
func (r *EntityRepository) MoveEntity(uid kaiku.Uid, newTrack kaiku.TrackUid, newPosition int) error {
	if _, ok := r.entities[uid]; !ok {
		return fmt.Errorf("entity %v not found", uid)
	}
	current := r.trackForUid[uid]
	target := current
	if newTrack != 0 {
		target = newTrack
	}
	if newPosition >= 0 {
		length := len(r.uidsForTrack[target])
		if target != current {
			length++
		}
		if newPosition > length {
			return fmt.Errorf("new position %v is out of bounds", newPosition)
		}
	}
	if target != current {
		r.uidsForTrack[current] = removeUid(r.uidsForTrack[current], uid)
		r.uidsForTrack[target] = append(r.uidsForTrack[target], uid)
		r.trackForUid[uid] = target
	}
	if newPosition >= 0 {
		uids := removeUid(r.uidsForTrack[target], uid)
		r.uidsForTrack[target] = insertUid(uids, newPosition, uid)
	}
	return nil
}

// RemoveEntity takes the entity out of the repository and returns it to the
// caller, scrubbing both cross-reference maps.
func (r *EntityRepository) RemoveEntity(uid kaiku.Uid) (kaiku.Entity, error) {
	e, ok := r.entities[uid]
	if !ok {
		return nil, fmt.Errorf("entity %v not found", uid)
	}
	trackUid := r.trackForUid[uid]
	r.uidsForTrack[trackUid] = removeUid(r.uidsForTrack[trackUid], uid)
	delete(r.trackForUid, uid)
	delete(r.entities, uid)
	r.order = removeUid(r.order, uid)
	return e, nil
}

// DeleteEntity removes the entity and discards it.
func (r *EntityRepository) DeleteEntity(uid kaiku.Uid) error {
	_, err := r.RemoveEntity(uid)
	return err
}

// Entity returns the live entity, or nil if the uid is unknown.
func (r *EntityRepository) Entity(uid kaiku.Uid) kaiku.Entity { return r.entities[uid] }

// TrackForEntity returns the owning track of the entity, zero if unknown.
func (r *EntityRepository) TrackForEntity(uid kaiku.Uid) kaiku.TrackUid {
	return r.trackForUid[uid]
}

// UidsForTrack returns the entity chain of the track in order. The slice is
// owned by the repository.
func (r *EntityRepository) UidsForTrack(trackUid kaiku.TrackUid) []kaiku.Uid {
	return r.uidsForTrack[trackUid]
}

func (r *EntityRepository) MintEntityUid() kaiku.Uid { return r.factory.MintNext() }

// WorkAll calls Work on every entity, tagging each emitted event with the uid
// of the entity that produced it. Plain MIDI events are decorated into
// track-scoped events so the router can keep them inside the track where they
// were generated; the owning track is looked up lazily, once per entity that
// actually emits MIDI.
func (r *EntityRepository) WorkAll(emit func(uid kaiku.Uid, ev kaiku.WorkEvent)) {
	for _, uid := range r.order {
		e := r.entities[uid]
		trackKnown := false
		var track kaiku.TrackUid
		e.Work(func(ev kaiku.WorkEvent) {
			if ev.Kind == kaiku.WorkEventMidi {
				if !trackKnown {
					track = r.trackForUid[uid]
					trackKnown = true
				}
				emit(uid, kaiku.MidiForTrackWorkEvent(track, ev.Channel, ev.Message))
				return
			}
			emit(uid, ev)
		})
	}
	r.updateIsFinished()
}

func (r *EntityRepository) updateIsFinished() {
	for _, e := range r.entities {
		if !e.IsFinished() {
			r.finished = false
			return
		}
	}
	r.finished = true
}

// IsFinished reports whether every entity has finished, which is vacuously
// true for an empty repository. The answer is refreshed by Play and by each
// WorkAll pass.
func (r *EntityRepository) IsFinished() bool { return r.finished }

func (r *EntityRepository) UpdateTimeRange(rng kaiku.TimeRange) {
	for _, uid := range r.order {
		r.entities[uid].UpdateTimeRange(rng)
	}
}

func (r *EntityRepository) Play() {
	for _, uid := range r.order {
		r.entities[uid].Play()
	}
	r.updateIsFinished()
}

func (r *EntityRepository) Stop() {
	for _, uid := range r.order {
		r.entities[uid].Stop()
	}
}

func (r *EntityRepository) SkipToStart() {
	for _, uid := range r.order {
		r.entities[uid].SkipToStart()
	}
}

func (r *EntityRepository) SampleRate() kaiku.SampleRate { return r.sampleRate }

func (r *EntityRepository) UpdateSampleRate(rate kaiku.SampleRate) {
	r.sampleRate = rate
	for _, uid := range r.order {
		r.entities[uid].UpdateSampleRate(rate)
	}
}

func (r *EntityRepository) Tempo() kaiku.Tempo { return r.tempo }

func (r *EntityRepository) UpdateTempo(tempo kaiku.Tempo) {
	r.tempo = tempo
	for _, uid := range r.order {
		r.entities[uid].UpdateTempo(tempo)
	}
}

func (r *EntityRepository) TimeSignature() kaiku.TimeSignature { return r.timeSig }

func (r *EntityRepository) UpdateTimeSignature(ts kaiku.TimeSignature) {
	r.timeSig = ts
	for _, uid := range r.order {
		r.entities[uid].UpdateTimeSignature(ts)
	}
}

func (r *EntityRepository) Reset() {
	for _, uid := range r.order {
		r.entities[uid].Reset()
	}
}

func (r *EntityRepository) BeforeSave() {
	for _, uid := range r.order {
		r.entities[uid].BeforeSave()
	}
}

func (r *EntityRepository) AfterLoad() {
	for _, uid := range r.order {
		r.entities[uid].AfterLoad()
	}
}
