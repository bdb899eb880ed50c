package engine

import (
	"sync"
	"time"

	"github.com/kaikuaudio/kaiku"
)

type (
	// Broker is the centralized message hub of the engine. It connects the
	// player (the render goroutine), the meter, and the model side (CLI or
	// UI) with one buffered channel per recipient, so communication is
	// many-to-one. It also carries a sync.Pool of audio buffers, from which
	// the player and the audio callback can get and return buffers so that
	// audio moves between goroutines without allocating on every block.
	//
	// For closing goroutines, the broker has two channels per goroutine:
	// CloseXXX and FinishedXXX. CloseXXX has a capacity of 1, so requesting
	// a close never blocks; if the channel is already full, someone else
	// already asked and the goroutine is on its way down. FinishedXXX is
	// never sent to, only closed, so any number of waiters can block on it,
	// preferably with a timeout to avoid deadlocks:
	//	select {
	//	case <-FinishedXXX:
	//	case <-time.After(3 * time.Second):
	//	}
	Broker struct {
		ToPlayer chan MsgToPlayer
		ToModel  chan MsgToModel
		ToMeter  chan MsgToMeter

		ClosePlayer chan struct{}
		CloseMeter  chan struct{}

		FinishedPlayer chan struct{}
		FinishedMeter  chan struct{}

		bufferPool sync.Pool
	}

	// MsgToPlayer is a message to the render goroutine. The fields carried
	// on every audio callback (frame requests and live MIDI) are not boxed,
	// to avoid allocations on the hot path. Everything else rides in Data as
	// a small message struct, or as a func(*Project) that the player runs on
	// the render goroutine between renders.
	MsgToPlayer struct {
		// FramesRequested asks the player to render this many more frames
		// into the audio queue. Zero requests nothing.
		FramesRequested int

		HasMidi     bool
		MidiChannel kaiku.MidiChannel
		MidiMessage kaiku.MidiMessage

		Data any
	}

	// MsgToModel is a message to the model side. Playback position and meter
	// results are sent on every block or two, so they are plain fields;
	// alerts and other rare payloads are boxed in Data.
	MsgToModel struct {
		HasPosition bool
		Position    kaiku.MusicalTime
		Frames      int
		Playing     bool

		HasMeterResult bool
		MeterResult    MeterResult

		// Underruns is the total number of audio callback underruns so far.
		Underruns int

		Data any
	}

	// MsgToMeter is a message to the meter goroutine. Data can carry a
	// *kaiku.AudioBuffer to analyze, which the meter returns to the broker's
	// pool when done, or a func() to run on the meter goroutine. Reset
	// clears the meter's windows, for example when playback starts over.
	MsgToMeter struct {
		Reset bool
		Data  any
	}

	// IsPlayingMsg starts or pauses playback.
	IsPlayingMsg struct{ IsPlaying bool }

	// PanicMsg tells the player to silence every receiver immediately.
	PanicMsg struct{}

	// SampleRateMsg tells the player the device sample rate changed.
	SampleRateMsg struct{ kaiku.SampleRate }

	// TempoMsg sets the transport tempo.
	TempoMsg struct{ kaiku.Tempo }

	// QuitMsg asks the player to finish up and exit its loop.
	QuitMsg struct{}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:       make(chan MsgToPlayer, 1024),
		ToModel:        make(chan MsgToModel, 1024),
		ToMeter:        make(chan MsgToMeter, 1024),
		ClosePlayer:    make(chan struct{}, 1),
		CloseMeter:     make(chan struct{}, 1),
		FinishedPlayer: make(chan struct{}),
		FinishedMeter:  make(chan struct{}),
		bufferPool:     sync.Pool{New: func() any { return &kaiku.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the buffer pool. After
// use it should be handed back with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *kaiku.AudioBuffer {
	return b.bufferPool.Get().(*kaiku.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool, resetting its
// length but keeping its capacity.
func (b *Broker) PutAudioBuffer(buf *kaiku.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it has room. It is guaranteed to be
// non-blocking and returns whether the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from the channel or until
// t has passed. ok is false on timeout and when the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
