package entities_test

import (
	"strings"
	"testing"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/entities"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// leadTrack is a track that plays one beat of A4 into a sine synth.
func leadTrack() kaiku.TrackSpec {
	return kaiku.TrackSpec{
		Name: "lead-track",
		Entities: []kaiku.EntitySpec{
			{
				Kind: "pattern-sequencer",
				Pattern: &kaiku.PatternSpec{
					Notes: []kaiku.NoteSpec{{Key: 69, Velocity: 127, Start: 0, Duration: 1}},
				},
			},
			{Kind: "sine-synth", Name: "lead", Channel: intPtr(0)},
		},
	}
}

func TestBuildProjectRendersComposition(t *testing.T) {
	c := &kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{leadTrack()}}
	p, err := entities.BuildProject(c, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	p.UpdateSampleRate(8192)

	got := p.Render()
	// one beat at 60 BPM and 8192 Hz
	if len(got) != 8192 {
		t.Fatalf("rendered %v frames expected 8192", len(got))
	}
	if peak := maxAmp(got); peak < 0.8 || peak > 1 {
		t.Errorf("peak is %v", peak)
	}
}

func TestBuildProjectTriggerDrivesLinkedGain(t *testing.T) {
	c := &kaiku.Composition{
		Tempo: 60,
		Tracks: []kaiku.TrackSpec{{
			Entities: []kaiku.EntitySpec{
				{
					Kind: "pattern-sequencer",
					Pattern: &kaiku.PatternSpec{
						Notes: []kaiku.NoteSpec{{Key: 69, Velocity: 127, Start: 0, Duration: 2}},
					},
				},
				{Kind: "sine-synth", Name: "lead", Channel: intPtr(0)},
				{
					Kind:   "trigger",
					Params: map[string]float64{"beats": 1, "value": 0.25},
					Links:  []kaiku.LinkSpec{{Target: "lead", Param: "gain"}},
				},
			},
		}},
	}
	p, err := entities.BuildProject(c, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	p.UpdateSampleRate(8192)

	got := p.Render()
	if len(got) != 16384 {
		t.Fatalf("rendered %v frames expected 16384", len(got))
	}
	if peak := maxAmp(got[:8192]); peak < 0.8 {
		t.Errorf("first beat peak is %v", peak)
	}
	// after the trigger fires the synth plays on at a quarter of the level
	if peak := maxAmp(got[8192+64:]); peak < 0.2 || peak > 0.26 {
		t.Errorf("second beat peak is %v", peak)
	}
}

func TestBuildProjectSoloRendersOnlySoloTrack(t *testing.T) {
	lead := leadTrack()
	lead.Solo = true
	pad := kaiku.TrackSpec{
		Entities: []kaiku.EntitySpec{
			{
				Kind: "pattern-sequencer",
				Pattern: &kaiku.PatternSpec{
					Channel: 1,
					Notes:   []kaiku.NoteSpec{{Key: 60, Velocity: 127, Start: 0, Duration: 1}},
				},
			},
			{Kind: "sine-synth", Channel: intPtr(1)},
		},
	}
	both, err := entities.BuildProject(&kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{lead, pad}}, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	alone, err := entities.BuildProject(&kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{leadTrack()}}, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	both.UpdateSampleRate(8192)
	alone.UpdateSampleRate(8192)

	soloed := both.Render()
	want := alone.Render()
	if len(soloed) != len(want) {
		t.Fatalf("renders differ in length: %v and %v", len(soloed), len(want))
	}
	for i := range want {
		if soloed[i] != want[i] {
			t.Fatalf("frame %v: got %v expected %v", i, soloed[i], want[i])
		}
	}
}

func TestBuildProjectMuteSilencesTrack(t *testing.T) {
	track := leadTrack()
	track.Mute = true
	p, err := entities.BuildProject(&kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{track}}, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	p.UpdateSampleRate(8192)

	got := p.Render()
	// the sequencer still runs the timeline, the track just stays silent
	if len(got) != 8192 {
		t.Fatalf("rendered %v frames expected 8192", len(got))
	}
	for i, frame := range got {
		if !frame.IsSilent() {
			t.Fatalf("frame %v of a muted track is %v", i, frame)
		}
	}
}

func TestBuildProjectHumidityBypassesEffect(t *testing.T) {
	dry := leadTrack()
	dry.Entities = append(dry.Entities, kaiku.EntitySpec{Kind: "negator", Humidity: floatPtr(0)})
	withEffect, err := entities.BuildProject(&kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{dry}}, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	plain, err := entities.BuildProject(&kaiku.Composition{Tempo: 60, Tracks: []kaiku.TrackSpec{leadTrack()}}, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	withEffect.UpdateSampleRate(8192)
	plain.UpdateSampleRate(8192)

	bypassed := withEffect.Render()
	want := plain.Render()
	if len(bypassed) != len(want) {
		t.Fatalf("renders differ in length: %v and %v", len(bypassed), len(want))
	}
	for i := range want {
		if bypassed[i] != want[i] {
			t.Fatalf("frame %v: got %v expected %v", i, bypassed[i], want[i])
		}
	}
}

func TestBuildProjectFromYaml(t *testing.T) {
	doc := `
name: demo
tempo: 60
tracks:
  - name: lead-track
    sends: [{to: echo, amount: 0.5}]
    entities:
      - kind: pattern-sequencer
        pattern:
          notes: [{key: 69, velocity: 127, start: 0, duration: 1}]
      - kind: sine-synth
        name: lead
        channel: 0
  - name: echo
    aux: true
    entities:
      - kind: delay
        params: {time: 0.25, feedback: 0.3, mix: 0.5}
paths:
  - name: swell
    points: [{when: 0, value: 1}, {when: 2, value: 1}]
    links: [{target: lead, param: gain}]
`
	c, err := kaiku.ReadComposition([]byte(doc))
	if err != nil {
		t.Fatalf("ReadComposition failed: %v", err)
	}
	p, err := entities.BuildProject(c, entities.BuiltIn())
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	p.UpdateSampleRate(8192)

	got := p.Render()
	if len(got) == 0 {
		t.Fatal("rendered nothing")
	}
	if peak := maxAmp(got); peak < 0.8 {
		t.Errorf("peak is %v", peak)
	}
}

func TestBuildProjectErrors(t *testing.T) {
	cases := []struct {
		name string
		c    kaiku.Composition
		want string
	}{
		{
			name: "unknown kind",
			c: kaiku.Composition{Tracks: []kaiku.TrackSpec{{
				Entities: []kaiku.EntitySpec{{Kind: "laser-harp"}},
			}}},
			want: "unknown entity kind",
		},
		{
			name: "unknown param",
			c: kaiku.Composition{Tracks: []kaiku.TrackSpec{{
				Entities: []kaiku.EntitySpec{{Kind: "sine-synth", Params: map[string]float64{"cutoff": 0.5}}},
			}}},
			want: "has no param",
		},
		{
			name: "pattern on an effect",
			c: kaiku.Composition{Tracks: []kaiku.TrackSpec{{
				Entities: []kaiku.EntitySpec{{Kind: "gain", Pattern: &kaiku.PatternSpec{}}},
			}}},
			want: "cannot play a pattern",
		},
		{
			name: "send to a missing aux",
			c: kaiku.Composition{Tracks: []kaiku.TrackSpec{{
				Sends: []kaiku.SendSpec{{To: "nowhere", Amount: 0.5}},
			}}},
			want: "not an aux track",
		},
		{
			name: "link param missing on target",
			c: kaiku.Composition{Tracks: []kaiku.TrackSpec{{
				Entities: []kaiku.EntitySpec{
					{Kind: "gain", Name: "vol"},
					{Kind: "trigger", Links: []kaiku.LinkSpec{{Target: "vol", Param: "resonance"}}},
				},
			}}},
			want: `"vol" has no param "resonance"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entities.BuildProject(&tc.c, entities.BuiltIn())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
