package engine

import (
	"math"
	"sync"
	"time"

	"github.com/kaikuaudio/kaiku"
	"github.com/viterin/vek/vek32"
)

type (
	// Meter measures the loudness of the rendered audio in its own
	// goroutine, fed through the broker so the render side never waits on
	// analysis. Incoming buffers are cut into 100 ms chunks; each chunk
	// yields one RMS power and one per-channel peak measurement, smoothed
	// over sliding windows, and the results go to the model side. The meter
	// also taps the waveform into a small ring for visualization.
	Meter struct {
		broker *Broker
		rms    rmsDetector
		peaks  peakDetector
		scope  Scope
	}

	RmsType  int
	PeakType int

	Decibel float32

	RmsResult  [NumRmsTypes]Decibel
	PeakResult [NumPeakTypes][2]Decibel

	MeterResult struct {
		Rms   RmsResult
		Peaks PeakResult
	}

	rmsDetector struct {
		powers    [2]RingBuffer[float32] // 0 = momentary, 1 = short-term
		history   []float32
		maxPowers [2]float32
		average   float32
		tmp, tmp2 []float32
	}

	peakDetector struct {
		windows  [2][2]RingBuffer[float32]
		maxPeak  [2]float32
		tmp      []float32
	}
)

const (
	RmsMomentary RmsType = iota
	RmsShortTerm
	RmsMaxMomentary
	RmsMaxShortTerm
	RmsAverage
	NumRmsTypes
)

const (
	PeakMomentary PeakType = iota
	PeakShortTerm
	PeakIntegrated
	NumPeakTypes
)

// meterChunkFrames is 100 ms at the default sample rate. The sliding windows
// are 4 and 30 chunks long, giving the usual 400 ms momentary and 3 s
// short-term meters.
const meterChunkFrames = 4410

// maxMeterHistory caps the analysis history at an hour of chunks, so the
// average stays meaningful without the meter growing without bound.
const maxMeterHistory = 10 * 60 * 60

func NewMeter(b *Broker) *Meter {
	return &Meter{
		broker: b,
		rms: rmsDetector{
			powers: [2]RingBuffer[float32]{
				{Buffer: make([]float32, 4)},
				{Buffer: make([]float32, 30)},
			},
		},
		peaks: peakDetector{
			windows: [2][2]RingBuffer[float32]{
				{{Buffer: make([]float32, 4)}, {Buffer: make([]float32, 4)}},
				{{Buffer: make([]float32, 30)}, {Buffer: make([]float32, 30)}},
			},
		},
	}
}

// Scope returns the waveform tap. Safe to read from any goroutine.
func (m *Meter) Scope() *Scope { return &m.scope }

// Run is the meter goroutine's main loop. It exits when the CloseMeter
// channel fires and announces the exit by closing FinishedMeter.
func (m *Meter) Run() {
	defer close(m.broker.FinishedMeter)
	var chunkHistory kaiku.AudioBuffer
	for {
		select {
		case msg := <-m.broker.ToMeter:
			if msg.Reset {
				m.rms.reset()
				m.peaks.reset()
			}
			switch data := msg.Data.(type) {
			case *kaiku.AudioBuffer:
				buf := *data
				m.scope.write(buf)
				for {
					var chunk kaiku.AudioBuffer
					if len(chunkHistory) > 0 && len(chunkHistory) < meterChunkFrames {
						l := min(len(buf), meterChunkFrames-len(chunkHistory))
						chunkHistory = append(chunkHistory, buf[:l]...)
						if len(chunkHistory) < meterChunkFrames {
							break
						}
						chunk = chunkHistory
						buf = buf[l:]
					} else {
						if len(buf) >= meterChunkFrames {
							chunk = buf[:meterChunkFrames]
							buf = buf[meterChunkFrames:]
						} else {
							chunkHistory = chunkHistory[:0]
							chunkHistory = append(chunkHistory, buf...)
							break
						}
					}
					TrySend(m.broker.ToModel, MsgToModel{
						HasMeterResult: true,
						MeterResult: MeterResult{
							Rms:   m.rms.update(chunk),
							Peaks: m.peaks.update(chunk),
						},
					})
				}
				m.broker.PutAudioBuffer(data)
			case func():
				data()
			}
		case <-m.broker.CloseMeter:
			return
		}
	}
}

// Close asks the meter goroutine to stop and waits briefly for it.
func (m *Meter) Close() {
	TrySend(m.broker.CloseMeter, struct{}{})
	_, _ = TimeoutReceive(m.broker.FinishedMeter, 3*time.Second)
}

func (d *rmsDetector) update(chunk kaiku.AudioBuffer) RmsResult {
	setSliceLength(&d.tmp, len(chunk))
	setSliceLength(&d.tmp2, len(chunk))
	var total float32
	for chn := 0; chn < 2; chn++ {
		// deinterleave, square, average
		for i := 0; i < len(chunk); i++ {
			d.tmp[i] = chunk[i][chn]
		}
		squared := vek32.Mul_Into(d.tmp2, d.tmp, d.tmp)
		total += vek32.Mean(squared)
	}
	var ret RmsResult
	for i := range d.powers {
		d.powers[i].WriteWrapSingle(total) // sliding windows of 4 and 30 power measurements
		mean := vek32.Mean(d.powers[i].Buffer)
		if d.maxPowers[i] < mean {
			d.maxPowers[i] = mean
		}
		ret[i+int(RmsMomentary)] = power2decibel(mean)
		ret[i+int(RmsMaxMomentary)] = power2decibel(d.maxPowers[i])
	}
	if len(d.history) < maxMeterHistory {
		d.history = append(d.history, total)
	}
	if len(d.history)%10 == 0 { // once a second is often enough for the average
		d.average = vek32.Mean(d.history)
	}
	ret[RmsAverage] = power2decibel(d.average)
	return ret
}

func (d *rmsDetector) reset() {
	for i := range d.powers {
		d.powers[i].Cursor = 0
		l := len(d.powers[i].Buffer)
		d.powers[i].Buffer = d.powers[i].Buffer[:0]
		d.powers[i].Buffer = append(d.powers[i].Buffer, make([]float32, l)...)
		d.maxPowers[i] = 0
	}
	d.history = d.history[:0]
	d.average = 0
}

func (d *peakDetector) update(chunk kaiku.AudioBuffer) (ret PeakResult) {
	setSliceLength(&d.tmp, len(chunk))
	for chn := 0; chn < 2; chn++ {
		for i := range chunk {
			d.tmp[i] = chunk[i][chn]
		}
		vek32.Abs_Inplace(d.tmp)
		p := vek32.Max(d.tmp)
		for i := range d.windows {
			d.windows[i][chn].WriteWrapSingle(p)
			windowPeak := vek32.Max(d.windows[i][chn].Buffer)
			ret[i+int(PeakMomentary)][chn] = amplitude2decibel(windowPeak)
		}
		if d.maxPeak[chn] < p {
			d.maxPeak[chn] = p
		}
		ret[PeakIntegrated][chn] = amplitude2decibel(d.maxPeak[chn])
	}
	return
}

func (d *peakDetector) reset() {
	for chn := 0; chn < 2; chn++ {
		for i := range d.windows {
			d.windows[i][chn].Cursor = 0
			l := len(d.windows[i][chn].Buffer)
			d.windows[i][chn].Buffer = d.windows[i][chn].Buffer[:0]
			d.windows[i][chn].Buffer = append(d.windows[i][chn].Buffer, make([]float32, l)...)
		}
		d.maxPeak[chn] = 0
	}
}

func power2decibel(power float32) Decibel {
	return Decibel(10 * math.Log10(float64(power)))
}

func amplitude2decibel(amplitude float32) Decibel {
	return Decibel(20 * math.Log10(float64(amplitude)))
}

// scopeLength is how many recent mono samples the waveform tap keeps.
const scopeLength = 256

// Scope is the bounded waveform tap for oscilloscope-style displays. The
// meter writes the mono mix of everything it analyzes; readers take a copy
// whenever they redraw. It is bounded and lossy: old samples are simply
// overwritten.
type Scope struct {
	mu   sync.Mutex
	wave RingBuffer[float32]
	mono []float32
}

func (s *Scope) write(buf kaiku.AudioBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.wave.Buffer) == 0 {
		s.wave.Buffer = make([]float32, scopeLength)
	}
	setSliceLength(&s.mono, len(buf))
	for i, frame := range buf {
		s.mono[i] = (frame[0] + frame[1]) / 2
	}
	s.wave.WriteWrap(s.mono)
}

// Waveform appends the tap's contents to dst, oldest sample first, and
// returns the result.
func (s *Scope) Waveform(dst []float32) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.wave.Buffer) == 0 {
		return dst
	}
	dst = append(dst, s.wave.Buffer[s.wave.Cursor:]...)
	dst = append(dst, s.wave.Buffer[:s.wave.Cursor]...)
	return dst
}

// RingBuffer is a generic ring buffer with a buffer and a cursor. The meter
// windows and the scope use it.
type RingBuffer[T any] struct {
	Buffer []T
	Cursor int
}

func (r *RingBuffer[T]) WriteWrap(values []T) {
	r.Cursor = (r.Cursor + len(values)) % len(r.Buffer)
	a := min(len(values), r.Cursor)                 // values landing just below the cursor
	b := min(len(values)-a, len(r.Buffer)-r.Cursor) // values landing at the tail of the buffer
	copy(r.Buffer[r.Cursor-a:r.Cursor], values[len(values)-a:])
	copy(r.Buffer[len(r.Buffer)-b:], values[len(values)-a-b:])
}

func (r *RingBuffer[T]) WriteWrapSingle(value T) {
	r.Cursor = (r.Cursor + 1) % len(r.Buffer)
	r.Buffer[r.Cursor] = value
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
