package kaiku

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// Composition is the on-disk description of a project: tempo, tracks
	// with their device chains, bus sends, automation paths and note
	// patterns. It only names device kinds; the entities factory turns the
	// names into live devices when the composition is bound to a project.
	Composition struct {
		Name          string        `yaml:"name,omitempty" json:"name,omitempty"`
		Tempo         Tempo         `yaml:"tempo,omitempty" json:"tempo,omitempty"`
		TimeSignature TimeSignature `yaml:"time-signature,omitempty" json:"time-signature,omitempty"`
		Tracks        []TrackSpec   `yaml:"tracks" json:"tracks"`
		Paths         []PathSpec    `yaml:"paths,omitempty" json:"paths,omitempty"`
	}

	// TrackSpec is one track. An aux track owns no instruments; it receives
	// audio over bus sends and processes it with its entity chain.
	TrackSpec struct {
		Name     string       `yaml:"name,omitempty" json:"name,omitempty"`
		Aux      bool         `yaml:"aux,omitempty" json:"aux,omitempty"`
		Mute     bool         `yaml:"mute,omitempty" json:"mute,omitempty"`
		Solo     bool         `yaml:"solo,omitempty" json:"solo,omitempty"`
		Output   *float64     `yaml:"output,omitempty" json:"output,omitempty"`
		Sends    []SendSpec   `yaml:"sends,omitempty" json:"sends,omitempty"`
		Entities []EntitySpec `yaml:"entities,omitempty" json:"entities,omitempty"`
	}

	// EntitySpec names a device kind from the factory plus its initial
	// configuration. Channel is the MIDI channel the device listens on;
	// leaving it out means the device receives no MIDI.
	EntitySpec struct {
		Kind     string             `yaml:"kind" json:"kind"`
		Name     string             `yaml:"name,omitempty" json:"name,omitempty"`
		Channel  *int               `yaml:"channel,omitempty" json:"channel,omitempty"`
		Humidity *float64           `yaml:"humidity,omitempty" json:"humidity,omitempty"`
		Params   map[string]float64 `yaml:"params,omitempty,flow" json:"params,omitempty"`
		Links    []LinkSpec         `yaml:"links,omitempty" json:"links,omitempty"`
		Pattern  *PatternSpec       `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	}

	// SendSpec routes this track's audio to an aux track by name.
	SendSpec struct {
		To     string  `yaml:"to" json:"to"`
		Amount float64 `yaml:"amount" json:"amount"`
	}

	// LinkSpec connects an automation source to a named parameter of a
	// named entity.
	LinkSpec struct {
		Target string `yaml:"target" json:"target"`
		Param  string `yaml:"param" json:"param"`
	}

	// PathSpec is an automation curve: a piecewise linear value over time.
	PathSpec struct {
		Name   string      `yaml:"name,omitempty" json:"name,omitempty"`
		Points []PointSpec `yaml:"points,flow" json:"points"`
		Links  []LinkSpec  `yaml:"links,omitempty" json:"links,omitempty"`
	}

	// PointSpec is one automation point. When is in beats from the start;
	// Value is bipolar, -1 through 1.
	PointSpec struct {
		When  float64 `yaml:"when" json:"when"`
		Value float64 `yaml:"value" json:"value"`
	}

	// PatternSpec is an arranged note pattern for a sequencer entity.
	// Length is in beats; zero means the pattern ends with the last note.
	PatternSpec struct {
		Channel int        `yaml:"channel,omitempty" json:"channel,omitempty"`
		Loop    bool       `yaml:"loop,omitempty" json:"loop,omitempty"`
		Length  float64    `yaml:"length,omitempty" json:"length,omitempty"`
		Notes   []NoteSpec `yaml:"notes,flow" json:"notes"`
	}

	// NoteSpec is one note: MIDI key, velocity, and start/duration in beats.
	NoteSpec struct {
		Key      byte    `yaml:"key" json:"key"`
		Velocity byte    `yaml:"velocity,omitempty" json:"velocity,omitempty"`
		Start    float64 `yaml:"start" json:"start"`
		Duration float64 `yaml:"duration" json:"duration"`
	}
)

// ReadComposition parses a composition, trying JSON first and then YAML so
// both dialects load. Missing tempo and time signature fall back to the
// engine defaults.
func ReadComposition(data []byte) (*Composition, error) {
	var c Composition
	if errJSON := json.Unmarshal(data, &c); errJSON != nil {
		if errYaml := yaml.Unmarshal(data, &c); errYaml != nil {
			return nil, fmt.Errorf("the composition could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if c.Tempo == 0 {
		c.Tempo = DefaultTempo
	}
	if c.TimeSignature.Top == 0 {
		c.TimeSignature = CommonTime
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Write serializes the composition as YAML.
func (c *Composition) Write() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("could not marshal composition: %v", err)
	}
	return data, nil
}

func (c *Composition) Copy() Composition {
	tracks := make([]TrackSpec, len(c.Tracks))
	for i, t := range c.Tracks {
		tracks[i] = t.Copy()
	}
	paths := make([]PathSpec, len(c.Paths))
	for i, p := range c.Paths {
		paths[i] = p.Copy()
	}
	ret := *c
	ret.Tracks = tracks
	ret.Paths = paths
	return ret
}

func (t *TrackSpec) Copy() TrackSpec {
	sends := make([]SendSpec, len(t.Sends))
	copy(sends, t.Sends)
	entities := make([]EntitySpec, len(t.Entities))
	for i, e := range t.Entities {
		entities[i] = e.Copy()
	}
	ret := *t
	ret.Sends = sends
	ret.Entities = entities
	return ret
}

func (e *EntitySpec) Copy() EntitySpec {
	params := make(map[string]float64, len(e.Params))
	for k, v := range e.Params {
		params[k] = v
	}
	links := make([]LinkSpec, len(e.Links))
	copy(links, e.Links)
	ret := *e
	ret.Params = params
	ret.Links = links
	if e.Pattern != nil {
		pattern := e.Pattern.Copy()
		ret.Pattern = &pattern
	}
	return ret
}

func (p *PathSpec) Copy() PathSpec {
	points := make([]PointSpec, len(p.Points))
	copy(points, p.Points)
	links := make([]LinkSpec, len(p.Links))
	copy(links, p.Links)
	ret := *p
	ret.Points = points
	ret.Links = links
	return ret
}

func (p *PatternSpec) Copy() PatternSpec {
	notes := make([]NoteSpec, len(p.Notes))
	copy(notes, p.Notes)
	ret := *p
	ret.Notes = notes
	return ret
}

// Validate checks the parts of the composition that can be checked without a
// factory: references resolve, values are in range, automation points are in
// time order.
func (c *Composition) Validate() error {
	if c.Tempo < 0 || c.Tempo > MaxTempo {
		return fmt.Errorf("tempo %v is out of range", c.Tempo)
	}
	trackNames := make(map[string]bool)
	auxNames := make(map[string]bool)
	entityNames := make(map[string]bool)
	for _, t := range c.Tracks {
		if t.Name != "" {
			if trackNames[t.Name] {
				return fmt.Errorf("track name %q is used twice", t.Name)
			}
			trackNames[t.Name] = true
			if t.Aux {
				auxNames[t.Name] = true
			}
		}
		for _, e := range t.Entities {
			if e.Kind == "" {
				return fmt.Errorf("track %q has an entity with no kind", t.Name)
			}
			if e.Name != "" {
				if entityNames[e.Name] {
					return fmt.Errorf("entity name %q is used twice", e.Name)
				}
				entityNames[e.Name] = true
			}
			if e.Channel != nil && (*e.Channel < 0 || *e.Channel >= MidiChannelCount) {
				return fmt.Errorf("entity %q has MIDI channel %v out of range", e.Name, *e.Channel)
			}
			if e.Humidity != nil && (*e.Humidity < 0 || *e.Humidity > 1) {
				return fmt.Errorf("entity %q has humidity %v out of range", e.Name, *e.Humidity)
			}
			if e.Pattern != nil {
				for _, n := range e.Pattern.Notes {
					if n.Key > 127 {
						return fmt.Errorf("entity %q has note key %v out of range", e.Name, n.Key)
					}
					if n.Start < 0 || n.Duration < 0 {
						return fmt.Errorf("entity %q has a note with negative time", e.Name)
					}
				}
			}
		}
	}
	for _, t := range c.Tracks {
		for _, s := range t.Sends {
			if !auxNames[s.To] {
				return fmt.Errorf("track %q sends to %q which is not an aux track", t.Name, s.To)
			}
			if s.Amount < 0 || s.Amount > 1 {
				return fmt.Errorf("track %q send amount %v is out of range", t.Name, s.Amount)
			}
		}
		for _, e := range t.Entities {
			for _, l := range e.Links {
				if !entityNames[l.Target] {
					return fmt.Errorf("entity %q links to unknown entity %q", e.Name, l.Target)
				}
			}
		}
	}
	for _, p := range c.Paths {
		for i, pt := range p.Points {
			if pt.Value < -1 || pt.Value > 1 {
				return fmt.Errorf("path %q point value %v is out of range", p.Name, pt.Value)
			}
			if i > 0 && pt.When < p.Points[i-1].When {
				return fmt.Errorf("path %q points are out of order", p.Name)
			}
		}
		for _, l := range p.Links {
			if !entityNames[l.Target] {
				return fmt.Errorf("path %q links to unknown entity %q", p.Name, l.Target)
			}
		}
	}
	return nil
}
