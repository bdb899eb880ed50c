package entities

import (
	"github.com/cwbudde/algo-dsp/dsp/effects"

	"github.com/kaikuaudio/kaiku"
)

// Gain scales the signal. Unity is 1; values above 1 boost. Its one control
// param is "gain".
type Gain struct {
	kaiku.BaseEntity
	gain kaiku.Sample
}

func NewGain() *Gain { return &Gain{gain: 1} }

func (g *Gain) Amount() kaiku.Sample          { return g.gain }
func (g *Gain) SetAmount(amount kaiku.Sample) { g.gain = max(amount, 0) }

func (g *Gain) TransformSample(_ int, s kaiku.Sample) kaiku.Sample { return s * g.gain }

func (g *Gain) TransformBuffer(buf []kaiku.StereoSample) {
	kaiku.TransformPerChannel(buf, g.TransformSample)
}

func (g *Gain) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	if name == "gain" {
		return 0, true
	}
	return 0, false
}

func (g *Gain) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	if index == 0 {
		return "gain", true
	}
	return "", false
}

func (g *Gain) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	if index == 0 {
		g.SetAmount(kaiku.Sample(value))
	}
}

// Negator inverts polarity. It exists mostly to make routing visible in
// tests, but a polarity flip is occasionally useful on real material.
type Negator struct {
	kaiku.BaseEntity
}

func NewNegator() *Negator { return &Negator{} }

func (n *Negator) TransformSample(_ int, s kaiku.Sample) kaiku.Sample { return -s }

func (n *Negator) TransformBuffer(buf []kaiku.StereoSample) {
	kaiku.TransformPerChannel(buf, n.TransformSample)
}

// Delay is a stereo feedback delay, one delay line per channel. Control
// params: "mix" is the wet amount 0..1, "feedback" 0..0.99, and "time" the
// delay time in seconds, at most 2.
type Delay struct {
	kaiku.BaseEntity
	lines [2]*effects.Delay
}

func NewDelay() *Delay {
	var d Delay
	for i := range d.lines {
		d.lines[i], _ = effects.NewDelay(float64(kaiku.DefaultSampleRate))
	}
	return &d
}

func (d *Delay) Mix() kaiku.Normal { return kaiku.Normal(d.lines[0].Mix()) }
func (d *Delay) Feedback() float64 { return d.lines[0].Feedback() }
func (d *Delay) Time() float64     { return d.lines[0].Time() }

func (d *Delay) SetMix(mix kaiku.Normal) {
	for _, line := range d.lines {
		_ = line.SetMix(float64(kaiku.NewNormal(float64(mix))))
	}
}

func (d *Delay) SetFeedback(feedback float64) {
	feedback = min(max(feedback, 0), 0.99)
	for _, line := range d.lines {
		_ = line.SetFeedback(feedback)
	}
}

func (d *Delay) SetTime(seconds float64) {
	seconds = min(max(seconds, 0.001), 2)
	for _, line := range d.lines {
		_ = line.SetTime(seconds)
	}
}

func (d *Delay) TransformSample(channel int, s kaiku.Sample) kaiku.Sample {
	return kaiku.Sample(d.lines[channel].ProcessSample(float64(s)))
}

func (d *Delay) TransformBuffer(buf []kaiku.StereoSample) {
	kaiku.TransformPerChannel(buf, d.TransformSample)
}

func (d *Delay) UpdateSampleRate(rate kaiku.SampleRate) {
	d.BaseEntity.UpdateSampleRate(rate)
	for _, line := range d.lines {
		_ = line.SetSampleRate(float64(rate))
	}
}

// Reset empties the delay lines.
func (d *Delay) Reset() {
	for _, line := range d.lines {
		line.Reset()
	}
}

func (d *Delay) ControlIndexForName(name string) (kaiku.ControlIndex, bool) {
	switch name {
	case "mix":
		return 0, true
	case "feedback":
		return 1, true
	case "time":
		return 2, true
	}
	return 0, false
}

func (d *Delay) ControlNameForIndex(index kaiku.ControlIndex) (string, bool) {
	switch index {
	case 0:
		return "mix", true
	case 1:
		return "feedback", true
	case 2:
		return "time", true
	}
	return "", false
}

func (d *Delay) SetControlParam(index kaiku.ControlIndex, value kaiku.ControlValue) {
	switch index {
	case 0:
		d.SetMix(kaiku.Normal(value))
	case 1:
		d.SetFeedback(float64(value))
	case 2:
		d.SetTime(float64(value))
	}
}
