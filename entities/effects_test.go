package entities_test

import (
	"testing"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/entities"
)

func TestGainScalesSignal(t *testing.T) {
	g := entities.NewGain()
	buf := []kaiku.StereoSample{{1, -1}, {0.5, 0.25}}
	g.TransformBuffer(buf)
	if buf[0] != (kaiku.StereoSample{1, -1}) {
		t.Fatalf("unity gain changed the signal: %v", buf[0])
	}

	g.SetAmount(0.5)
	g.TransformBuffer(buf)
	if buf[0] != (kaiku.StereoSample{0.5, -0.5}) || buf[1] != (kaiku.StereoSample{0.25, 0.125}) {
		t.Fatalf("half gain produced %v", buf)
	}
}

func TestGainControlParam(t *testing.T) {
	g := entities.NewGain()
	index, ok := g.ControlIndexForName("gain")
	if !ok {
		t.Fatal("no gain param")
	}
	if name, ok := g.ControlNameForIndex(index); !ok || name != "gain" {
		t.Fatalf("index %v maps back to %q", index, name)
	}
	g.SetControlParam(index, 2)
	if g.Amount() != 2 {
		t.Fatalf("gain is %v, expected a 2x boost", g.Amount())
	}
	g.SetControlParam(index, -1)
	if g.Amount() != 0 {
		t.Fatalf("a negative gain came through as %v", g.Amount())
	}
	if _, ok := g.ControlIndexForName("resonance"); ok {
		t.Fatal("found a param that does not exist")
	}
}

func TestNegatorInvertsPolarity(t *testing.T) {
	n := entities.NewNegator()
	buf := []kaiku.StereoSample{{1, -0.5}, {0, 0.25}}
	n.TransformBuffer(buf)
	if buf[0] != (kaiku.StereoSample{-1, 0.5}) || buf[1] != (kaiku.StereoSample{0, -0.25}) {
		t.Fatalf("negation produced %v", buf)
	}
}

func TestDelayEchoes(t *testing.T) {
	d := entities.NewDelay()
	d.SetTime(0.1) // 4410 frames at the default rate
	d.SetFeedback(0)
	d.SetMix(0.5)

	buf := make([]kaiku.StereoSample, 5000)
	buf[0] = kaiku.StereoSample{1, 1}
	d.TransformBuffer(buf)

	if buf[0] != (kaiku.StereoSample{0.5, 0.5}) {
		t.Fatalf("the dry half of the impulse came through as %v", buf[0])
	}
	if buf[4410] != (kaiku.StereoSample{0.5, 0.5}) {
		t.Fatalf("the echo came through as %v", buf[4410])
	}
	for i, s := range buf {
		if i == 0 || i == 4410 {
			continue
		}
		if !s.IsSilent() {
			t.Fatalf("frame %v is not silent: %v", i, s)
		}
	}
}

func TestDelayFeedbackRepeats(t *testing.T) {
	d := entities.NewDelay()
	d.SetTime(0.1)
	d.SetFeedback(0.5)
	d.SetMix(1)

	buf := make([]kaiku.StereoSample, 10000)
	buf[0] = kaiku.StereoSample{1, 1}
	d.TransformBuffer(buf)

	if buf[4410] != (kaiku.StereoSample{1, 1}) {
		t.Fatalf("first echo is %v", buf[4410])
	}
	if buf[8820] != (kaiku.StereoSample{0.5, 0.5}) {
		t.Fatalf("second echo is %v", buf[8820])
	}
}

func TestDelayControlParamsClamp(t *testing.T) {
	d := entities.NewDelay()
	set := func(name string, value kaiku.ControlValue) {
		t.Helper()
		index, ok := d.ControlIndexForName(name)
		if !ok {
			t.Fatalf("no %q param", name)
		}
		d.SetControlParam(index, value)
	}

	set("mix", 2)
	if d.Mix() != 1 {
		t.Fatalf("mix clamped to %v", d.Mix())
	}
	set("feedback", 5)
	if d.Feedback() != 0.99 {
		t.Fatalf("feedback clamped to %v", d.Feedback())
	}
	set("time", 10)
	if d.Time() != 2 {
		t.Fatalf("time clamped to %v", d.Time())
	}
	set("time", 0)
	if d.Time() != 0.001 {
		t.Fatalf("time clamped to %v", d.Time())
	}
}

func TestDelayResetEmptiesLines(t *testing.T) {
	d := entities.NewDelay()
	d.SetTime(0.01)
	d.SetFeedback(0)
	d.SetMix(1)

	buf := make([]kaiku.StereoSample, 441)
	buf[0] = kaiku.StereoSample{1, 1}
	d.TransformBuffer(buf)
	d.Reset()

	clear(buf)
	d.TransformBuffer(buf)
	for i, s := range buf {
		if !s.IsSilent() {
			t.Fatalf("frame %v still carries the old impulse: %v", i, s)
		}
	}
}
