package oto

import (
	"encoding/binary"
	"math"

	"github.com/kaikuaudio/kaiku"
)

// frameBytes is the wire size of one stereo float32 frame.
const frameBytes = channelCount * 4

// EncodeFrames serializes frames as interleaved little-endian float32, the
// format the device was opened with. dst must hold len(frames)*frameBytes
// bytes.
func EncodeFrames(dst []byte, frames kaiku.AudioBuffer) {
	for i, frame := range frames {
		binary.LittleEndian.PutUint32(dst[i*frameBytes:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(dst[i*frameBytes+4:], math.Float32bits(frame[1]))
	}
}
