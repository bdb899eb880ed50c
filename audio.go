package kaiku

import "io"

type (
	// Sample is one mono audio sample. The engine renders in float64 and
	// narrows to float32 only at the device boundary.
	Sample float64

	// StereoSample is one frame of stereo audio.
	StereoSample [2]Sample

	// AudioBuffer is interleaved stereo audio in the device format: what
	// audio callbacks consume and what the exporters serialize.
	AudioBuffer [][2]float32

	// AudioSource is the pull side of audio playback. ReadAudio fills buf
	// completely, zero-padding past the end of the material, and returns
	// io.EOF once nothing is left.
	AudioSource interface {
		ReadAudio(buf AudioBuffer) error
	}

	// AudioContext is an audio device that can play sources.
	AudioContext interface {
		Play(r AudioSource) CloserWaiter
		Close() error
	}

	// CloserWaiter controls one playback started with AudioContext.Play.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

func (s StereoSample) Add(o StereoSample) StereoSample {
	return StereoSample{s[0] + o[0], s[1] + o[1]}
}

func (s StereoSample) Scaled(a Normal) StereoSample {
	return StereoSample{s[0] * Sample(a), s[1] * Sample(a)}
}

func (s StereoSample) IsSilent() bool { return s == StereoSample{} }

// AppendStereo narrows engine samples to the device format, appending to dst.
func AppendStereo(dst AudioBuffer, src []StereoSample) AudioBuffer {
	for _, s := range src {
		dst = append(dst, [2]float32{float32(s[0]), float32(s[1])})
	}
	return dst
}

// Source returns an AudioSource that plays through the buffer once.
func (buf AudioBuffer) Source() AudioSource {
	return &audioBufferSource{buffer: buf}
}

type audioBufferSource struct {
	buffer AudioBuffer
	pos    int
}

func (s *audioBufferSource) ReadAudio(buf AudioBuffer) error {
	if s.pos >= len(s.buffer) {
		return io.EOF
	}
	n := copy(buf, s.buffer[s.pos:])
	s.pos += n
	for i := n; i < len(buf); i++ {
		buf[i] = [2]float32{}
	}
	return nil
}
