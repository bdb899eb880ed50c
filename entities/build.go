package entities

import (
	"fmt"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

// PlaysPatterns is what the binder needs from an entity that accepts an
// arranged note pattern from a composition.
type PlaysPatterns interface {
	SetChannel(kaiku.MidiChannel)
	SetLooping(bool)
	SetLength(kaiku.MusicalTime)
	AddNote(PatternNote)
}

// BuildProject turns a composition into a live project, instantiating every
// named device kind through the factory and wiring up sends, MIDI channels,
// automation paths and links. On error the half-built project is discarded.
func BuildProject(c *kaiku.Composition, factory *Factory) (*engine.Project, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p := engine.NewProject()
	if c.Tempo != 0 {
		p.UpdateTempo(c.Tempo)
	}
	if c.TimeSignature.Top != 0 {
		p.UpdateTimeSignature(c.TimeSignature)
	}

	// Name maps serve references from other parts of the file; the parallel
	// uid slices serve this loop, since sources need no name to send or
	// link.
	trackUids := make(map[string]kaiku.TrackUid)
	entityUids := make(map[string]kaiku.Uid)
	trackUidAt := make([]kaiku.TrackUid, len(c.Tracks))
	entityUidAt := make([][]kaiku.Uid, len(c.Tracks))
	for ti, t := range c.Tracks {
		var trackUid kaiku.TrackUid
		if t.Aux {
			trackUid = p.CreateAuxTrack()
		} else {
			trackUid = p.CreateTrack()
		}
		trackUidAt[ti] = trackUid
		if t.Name != "" {
			trackUids[t.Name] = trackUid
		}
		p.MuteTrack(trackUid, t.Mute)
		if t.Solo {
			p.SetSoloTrack(trackUid)
		}
		if t.Output != nil {
			p.SetTrackOutput(trackUid, kaiku.NewNormal(*t.Output))
		}
		entityUidAt[ti] = make([]kaiku.Uid, len(t.Entities))
		for ei, spec := range t.Entities {
			e, err := buildEntity(factory, &spec)
			if err != nil {
				return nil, fmt.Errorf("track %q: %v", t.Name, err)
			}
			uid, err := p.AddEntity(trackUid, e)
			if err != nil {
				return nil, fmt.Errorf("track %q: %v", t.Name, err)
			}
			entityUidAt[ti][ei] = uid
			if spec.Name != "" {
				entityUids[spec.Name] = uid
			}
			if spec.Channel != nil {
				p.SetMidiReceiverChannel(uid, kaiku.MidiChannel(*spec.Channel))
			}
			if spec.Humidity != nil {
				p.SetHumidity(uid, kaiku.NewNormal(*spec.Humidity))
			}
		}
	}

	// Sends and links resolve names, so they wait until everything exists.
	for ti, t := range c.Tracks {
		for _, send := range t.Sends {
			p.AddSend(trackUidAt[ti], trackUids[send.To], kaiku.NewNormal(send.Amount))
		}
		for ei, spec := range t.Entities {
			for _, link := range spec.Links {
				target := entityUids[link.Target]
				index, err := paramIndex(p.Entity(target), link.Target, link.Param)
				if err != nil {
					return nil, err
				}
				p.Link(entityUidAt[ti][ei], target, index)
			}
		}
	}
	for _, spec := range c.Paths {
		points := make([]engine.SignalPoint, len(spec.Points))
		for i, pt := range spec.Points {
			points[i] = engine.SignalPoint{
				When:  beatsToTime(pt.When),
				Value: kaiku.NewBipolarNormal(pt.Value),
			}
		}
		path, err := engine.NewSignalPath(points...)
		if err != nil {
			return nil, fmt.Errorf("path %q: %v", spec.Name, err)
		}
		pathUid := p.AddPath(path)
		for _, link := range spec.Links {
			target := entityUids[link.Target]
			index, err := paramIndex(p.Entity(target), link.Target, link.Param)
			if err != nil {
				return nil, err
			}
			if err := p.LinkPath(pathUid, target, index); err != nil {
				return nil, fmt.Errorf("path %q: %v", spec.Name, err)
			}
		}
	}
	return p, nil
}

// buildEntity instantiates one entity spec: kind, params and pattern.
func buildEntity(factory *Factory, spec *kaiku.EntitySpec) (kaiku.Entity, error) {
	e, err := factory.New(spec.Kind)
	if err != nil {
		return nil, err
	}
	for name, value := range spec.Params {
		index, ok := e.ControlIndexForName(name)
		if !ok {
			return nil, fmt.Errorf("entity %q has no param %q", spec.Name, name)
		}
		e.SetControlParam(index, kaiku.ControlValue(value))
	}
	if spec.Pattern != nil {
		player, ok := e.(PlaysPatterns)
		if !ok {
			return nil, fmt.Errorf("entity %q of kind %q cannot play a pattern", spec.Name, spec.Kind)
		}
		player.SetChannel(kaiku.MidiChannel(spec.Pattern.Channel))
		player.SetLooping(spec.Pattern.Loop)
		player.SetLength(beatsToTime(spec.Pattern.Length))
		for _, n := range spec.Pattern.Notes {
			player.AddNote(PatternNote{
				Key:      kaiku.MidiNote(n.Key),
				Velocity: n.Velocity,
				Start:    beatsToTime(n.Start),
				Duration: beatsToTime(n.Duration),
			})
		}
	}
	return e, nil
}

func paramIndex(e kaiku.Entity, name, param string) (kaiku.ControlIndex, error) {
	if e == nil {
		return 0, fmt.Errorf("entity %q not found", name)
	}
	index, ok := e.ControlIndexForName(param)
	if !ok {
		return 0, fmt.Errorf("entity %q has no param %q", name, param)
	}
	return index, nil
}
