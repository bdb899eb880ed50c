package engine

import (
	"github.com/kaikuaudio/kaiku"
)

// Humidifier controls the wet/dry mix of arranged effects. Each entity has a
// humidity: 1 means the effect's output passes through untouched, 0 means
// the effect is bypassed, and values between blend the two.
type Humidifier struct {
	humidity map[kaiku.Uid]kaiku.Normal
	scratch  []kaiku.StereoSample
}

func NewHumidifier() *Humidifier {
	return &Humidifier{humidity: make(map[kaiku.Uid]kaiku.Normal)}
}

// Humidity returns the entity's wet/dry mix, full wet for entities that were
// never set.
func (h *Humidifier) Humidity(uid kaiku.Uid) kaiku.Normal {
	if humidity, ok := h.humidity[uid]; ok {
		return humidity
	}
	return kaiku.MaxNormal
}

func (h *Humidifier) SetHumidity(uid kaiku.Uid, humidity kaiku.Normal) {
	h.humidity[uid] = humidity
}

// TransformBatch runs the effect over the buffer in place and then blends the
// result with the signal that went in, according to humidity. The pre-effect
// signal is kept in a scratch buffer that is reused across calls.
func (h *Humidifier) TransformBatch(humidity kaiku.Normal, effect kaiku.Transforms, buf []kaiku.StereoSample) {
	setSliceLength(&h.scratch, len(buf))
	copy(h.scratch, buf)
	effect.TransformBuffer(buf)
	for i, pre := range h.scratch {
		buf[i] = kaiku.StereoSample{
			h.TransformSample(humidity, pre[0], buf[i][0]),
			h.TransformSample(humidity, pre[1], buf[i][1]),
		}
	}
}

// TransformSample blends one channel's sample: the processed signal at
// humidity, the dry signal at the remainder.
func (h *Humidifier) TransformSample(humidity kaiku.Normal, pre, post kaiku.Sample) kaiku.Sample {
	wet := kaiku.Sample(humidity)
	return post*wet + pre*(1-wet)
}
