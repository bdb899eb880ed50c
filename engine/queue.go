package engine

import (
	"sync"

	"github.com/kaikuaudio/kaiku"
)

// DefaultPeriod is the audio block size, in frames, that the engine is tuned
// for: the device callback asks for about this much at a time and the queue
// holds three periods.
const DefaultPeriod = 512

// AudioQueue is the bounded conveyor of device-format frames between the
// render goroutine and the audio callback. Neither side ever waits on the
// other: Push copies in as many frames as fit and reports how many did, Pop
// fills what it can, zero-fills the rest and reports how many frames were
// missing. Dropped frames on a full queue and silence on an empty one are
// the intended failure modes; the request sizing in NextRequest keeps both
// rare.
type AudioQueue struct {
	mu     sync.Mutex
	ring   [][2]float32
	head   int
	size   int
	period int
}

func NewAudioQueue(period int) *AudioQueue {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &AudioQueue{
		ring:   make([][2]float32, period*3),
		period: period,
	}
}

func (q *AudioQueue) Period() int { return q.period }

func (q *AudioQueue) Capacity() int { return len(q.ring) }

// Len returns the number of frames waiting in the queue.
func (q *AudioQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Push copies frames from buf into the queue until buf runs out or the
// queue is full, and returns how many frames fit.
func (q *AudioQueue) Push(buf kaiku.AudioBuffer) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(len(buf), len(q.ring)-q.size)
	tail := (q.head + q.size) % len(q.ring)
	for i := 0; i < n; i++ {
		q.ring[tail] = buf[i]
		tail = (tail + 1) % len(q.ring)
	}
	q.size += n
	return n
}

// Pop fills dst from the queue, zero-fills whatever the queue could not
// cover, and returns the number of frames that were missing.
func (q *AudioQueue) Pop(dst kaiku.AudioBuffer) (missing int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(len(dst), q.size)
	for i := 0; i < n; i++ {
		dst[i] = q.ring[q.head]
		q.head = (q.head + 1) % len(q.ring)
	}
	q.size -= n
	clear(dst[n:])
	return len(dst) - n
}

// NextRequest computes how many frames the consumer should ask the renderer
// for after serving a callback that needed this many. The request adapts
// both ways: a queue running low doubles the request, a queue holding more
// than two callbacks' worth halves it. The result never exceeds one period
// or the room left in the queue.
func (q *AudioQueue) NextRequest(needed int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	request := needed
	switch {
	case q.size < needed:
		request = needed * 2
	case q.size > needed*2:
		request = needed / 2
	}
	request = min(request, q.period)
	return min(request, len(q.ring)-q.size)
}
