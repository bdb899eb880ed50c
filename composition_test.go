package kaiku_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kaikuaudio/kaiku"
)

func TestReadCompositionYaml(t *testing.T) {
	yml := `
name: demo
tempo: 96
tracks:
  - name: lead
    entities:
      - kind: sine-synth
        name: sine
        channel: 3
        params: {gain: 0.8}
  - name: space
    aux: true
    entities:
      - kind: delay
        name: echo
  - name: drums
    sends: [{to: space, amount: 0.4}]
    entities:
      - kind: drumkit
paths:
  - name: sweep
    points: [{when: 0, value: -1}, {when: 4, value: 1}]
    links: [{target: echo, param: mix}]
`
	c, err := kaiku.ReadComposition([]byte(yml))
	if err != nil {
		t.Fatalf("error parsing composition: %v", err)
	}
	if c.Name != "demo" || c.Tempo != 96 {
		t.Errorf("got name %v tempo %v", c.Name, c.Tempo)
	}
	if c.TimeSignature != kaiku.CommonTime {
		t.Errorf("missing time signature should default to common time, got %v", c.TimeSignature)
	}
	if len(c.Tracks) != 3 || !c.Tracks[1].Aux {
		t.Fatalf("got tracks %+v", c.Tracks)
	}
	e := c.Tracks[0].Entities[0]
	if e.Kind != "sine-synth" || e.Channel == nil || *e.Channel != 3 || e.Params["gain"] != 0.8 {
		t.Errorf("got entity %+v", e)
	}
	if len(c.Paths) != 1 || len(c.Paths[0].Points) != 2 {
		t.Fatalf("got paths %+v", c.Paths)
	}
}

func TestReadCompositionJson(t *testing.T) {
	js := `{"name": "demo", "tracks": [{"name": "lead", "entities": [{"kind": "sine-synth"}]}]}`
	c, err := kaiku.ReadComposition([]byte(js))
	if err != nil {
		t.Fatalf("error parsing composition: %v", err)
	}
	if c.Name != "demo" || len(c.Tracks) != 1 {
		t.Errorf("got %+v", c)
	}
	if c.Tempo != kaiku.DefaultTempo {
		t.Errorf("missing tempo should default to %v, got %v", kaiku.DefaultTempo, c.Tempo)
	}
}

func TestReadCompositionGarbage(t *testing.T) {
	_, err := kaiku.ReadComposition([]byte("\x00\x01 this is not a composition {"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), ".json") || !strings.Contains(err.Error(), ".yml") {
		t.Errorf("error should mention both dialects, got: %v", err)
	}
}

func TestCompositionValidate(t *testing.T) {
	bad := []string{
		// send to a track that is not aux
		`tracks: [{name: a, entities: [{kind: x}]}, {name: b, sends: [{to: a, amount: 0.5}]}]`,
		// send amount out of range
		`tracks: [{name: a, aux: true}, {name: b, sends: [{to: a, amount: 1.5}]}]`,
		// link to an unknown entity
		`tracks: [{name: a, entities: [{kind: x, links: [{target: nobody, param: gain}]}]}]`,
		// duplicate entity names
		`tracks: [{name: a, entities: [{kind: x, name: e}, {kind: y, name: e}]}]`,
		// automation points out of order
		`tracks: [{name: a}]
paths: [{name: p, points: [{when: 4, value: 0}, {when: 2, value: 0}]}]`,
		// entity with no kind
		`tracks: [{name: a, entities: [{name: e}]}]`,
	}
	for i, yml := range bad {
		if _, err := kaiku.ReadComposition([]byte(yml)); err == nil {
			t.Errorf("case %v should not validate", i)
		}
	}
}

func TestCompositionCopy(t *testing.T) {
	yml := `
tracks:
  - name: lead
    entities:
      - kind: sine-synth
        name: sine
        params: {gain: 0.8}
paths:
  - name: sweep
    points: [{when: 0, value: 0}]
`
	c, err := kaiku.ReadComposition([]byte(yml))
	if err != nil {
		t.Fatalf("error parsing composition: %v", err)
	}
	d := c.Copy()
	if !reflect.DeepEqual(*c, d) {
		t.Fatalf("copy differs from original")
	}
	d.Tracks[0].Entities[0].Params["gain"] = 0.1
	d.Paths[0].Points[0].Value = 1
	if c.Tracks[0].Entities[0].Params["gain"] != 0.8 {
		t.Errorf("copy shares entity params with original")
	}
	if c.Paths[0].Points[0].Value != 0 {
		t.Errorf("copy shares path points with original")
	}
}

func TestCompositionWriteRoundTrip(t *testing.T) {
	yml := `
name: demo
tempo: 140
tracks:
  - name: lead
    entities:
      - kind: sine-synth
        name: sine
        channel: 1
        params: {gain: 0.7}
`
	c, err := kaiku.ReadComposition([]byte(yml))
	if err != nil {
		t.Fatalf("error parsing composition: %v", err)
	}
	data, err := c.Write()
	if err != nil {
		t.Fatalf("error writing composition: %v", err)
	}
	d, err := kaiku.ReadComposition(data)
	if err != nil {
		t.Fatalf("error reparsing composition: %v", err)
	}
	if !reflect.DeepEqual(c, d) {
		t.Fatalf("round trip changed the composition.\nbefore: %+v\nafter: %+v", c, d)
	}
}
