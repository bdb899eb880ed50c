// Package oto plays engine audio through an ebitengine/oto device.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kaikuaudio/kaiku"
)

const (
	channelCount = 2

	// deviceLatency is the device-side buffer length: enough to ride out
	// callback jitter without making the transport feel sluggish.
	deviceLatency = 50 * time.Millisecond
)

// Context is a kaiku.AudioContext backed by an oto audio device. The device
// pulls: each source played gets wrapped in a reader the device drains at
// its own pace.
type Context struct {
	ctx *oto.Context
}

func NewContext(rate kaiku.SampleRate) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(rate),
		ChannelCount: channelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   deviceLatency,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create audio context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

func (c *Context) Play(r kaiku.AudioSource) kaiku.CloserWaiter {
	player := c.ctx.NewPlayer(&sourceReader{source: r})
	player.Play()
	return &playback{player: player}
}

// Close suspends the device. oto contexts live for the process, so
// suspending is the closest thing to closing the device offers.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend audio context: %w", err)
	}
	return nil
}

// sourceReader adapts an AudioSource to the io.Reader the device pulls
// from, narrowing engine frames to little-endian float32 bytes.
type sourceReader struct {
	source kaiku.AudioSource
	frames kaiku.AudioBuffer
	done   bool
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	n := len(p) / frameBytes
	if n == 0 {
		return 0, nil
	}
	if cap(s.frames) < n {
		s.frames = make(kaiku.AudioBuffer, n)
	}
	frames := s.frames[:n]
	if err := s.source.ReadAudio(frames); err != nil {
		if err == io.EOF {
			s.done = true
			return 0, io.EOF
		}
		return 0, err
	}
	EncodeFrames(p, frames)
	return n * frameBytes, nil
}

type playback struct {
	player *oto.Player
}

func (p *playback) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close audio player: %w", err)
	}
	return nil
}

// Wait blocks until the device has drained the source, or until the
// playback is closed from another goroutine.
func (p *playback) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}
