package kaiku

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav serializes the buffer as a RIFF WAVE file. By default the samples are
// stored as 32-bit floats; pcm16 converts to 16-bit signed PCM instead.
func (buf AudioBuffer) Wav(rate SampleRate, pcm16 bool) ([]byte, error) {
	w := new(bytes.Buffer)
	wavHeader(len(buf)*2, rate, pcm16, w)
	err := rawToBuffer(buf, pcm16, w)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return w.Bytes(), nil
}

// Raw serializes the buffer as headerless interleaved samples, float32 by
// default or 16-bit signed PCM.
func (buf AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	w := new(bytes.Buffer)
	err := rawToBuffer(buf, pcm16, w)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return w.Bytes(), nil
}

func rawToBuffer(data AudioBuffer, pcm16 bool, w *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data)*2)
		for i, frame := range data {
			int16data[i*2] = int16(clamp(int(frame[0]*math.MaxInt16), math.MinInt16, math.MaxInt16))
			int16data[i*2+1] = int16(clamp(int(frame[1]*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(w, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(w, binary.LittleEndian, [][2]float32(data))
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 audio.
// bufferLength is the number of interleaved samples, so for stereo sound it
// is twice the frame count. If pcm16 is true the header describes int16
// audio, otherwise float32 audio, which additionally needs a fact chunk and
// a format extension field.
func wavHeader(bufferLength int, rate SampleRate, pcm16 bool, w *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := 2
	sampleRate := int(rate)
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	w.Write([]byte("RIFF"))
	binary.Write(w, binary.LittleEndian, uint32(chunkSize))
	w.Write([]byte("WAVE"))
	w.Write([]byte("fmt "))
	binary.Write(w, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(w, binary.LittleEndian, uint16(waveFormat))
	binary.Write(w, binary.LittleEndian, uint16(numChannels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(w, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(w, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(w, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		w.Write([]byte("fact"))
		binary.Write(w, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(w, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	w.Write([]byte("data"))
	binary.Write(w, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
