package engine_test

import (
	"math"
	"testing"
	"time"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

func TestRingBufferWriteWrapSingle(t *testing.T) {
	r := engine.RingBuffer[int]{Buffer: make([]int, 4)}
	for v := 1; v <= 6; v++ {
		r.WriteWrapSingle(v)
	}
	if r.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %v", r.Cursor)
	}
	want := []int{4, 5, 6, 3}
	for i, w := range want {
		if r.Buffer[i] != w {
			t.Fatalf("expected buffer %v, got %v", want, r.Buffer)
		}
	}
}

func TestRingBufferWriteWrapKeepsLatest(t *testing.T) {
	r := engine.RingBuffer[int]{Buffer: make([]int, 4)}
	r.WriteWrap([]int{10, 11, 12, 13, 14, 15})
	if r.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %v", r.Cursor)
	}
	// oldest first, starting at the cursor
	want := []int{12, 13, 14, 15}
	for i, w := range want {
		if got := r.Buffer[(r.Cursor+i)%len(r.Buffer)]; got != w {
			t.Fatalf("expected %v at offset %v, got %v (buffer %v)", w, i, got, r.Buffer)
		}
	}
}

func TestRingBufferWriteWrapAcrossPieces(t *testing.T) {
	r := engine.RingBuffer[int]{Buffer: make([]int, 4)}
	r.WriteWrap([]int{1, 2, 3})
	r.WriteWrap([]int{4, 5})
	want := []int{2, 3, 4, 5}
	for i, w := range want {
		if got := r.Buffer[(r.Cursor+i)%len(r.Buffer)]; got != w {
			t.Fatalf("expected %v at offset %v, got %v (buffer %v)", w, i, got, r.Buffer)
		}
	}
}

// A constant signal at amplitude 0.5 on both channels has a power of
// 0.25 per channel, 0.5 summed, so the meter should settle at -3.01 dB
// RMS and -6.02 dB peak once the sliding windows fill up.
func TestMeterMeasuresConstantSignal(t *testing.T) {
	broker := engine.NewBroker()
	meter := engine.NewMeter(broker)
	go meter.Run()
	defer meter.Close()
	for i := 0; i < 10; i++ {
		broker.ToMeter <- engine.MsgToMeter{Data: constantBuffer(4410, 0.5)}
	}
	first := nextMeterResult(t, broker)
	// only one chunk in the 4-chunk window yet
	checkDecibel(t, "first momentary RMS", first.Rms[engine.RmsMomentary], -9.031)
	checkDecibel(t, "first momentary peak", first.Peaks[engine.PeakMomentary][0], -6.021)
	if !math.IsInf(float64(first.Rms[engine.RmsAverage]), -1) {
		t.Fatalf("expected average to still be silent, got %v", first.Rms[engine.RmsAverage])
	}
	var last engine.MeterResult
	for i := 0; i < 9; i++ {
		last = nextMeterResult(t, broker)
	}
	checkDecibel(t, "momentary RMS", last.Rms[engine.RmsMomentary], -3.010)
	checkDecibel(t, "max momentary RMS", last.Rms[engine.RmsMaxMomentary], -3.010)
	checkDecibel(t, "short-term RMS", last.Rms[engine.RmsShortTerm], -7.782) // 10 chunks in the 30-chunk window
	checkDecibel(t, "max short-term RMS", last.Rms[engine.RmsMaxShortTerm], -7.782)
	checkDecibel(t, "average RMS", last.Rms[engine.RmsAverage], -3.010)
	for chn := 0; chn < 2; chn++ {
		checkDecibel(t, "momentary peak", last.Peaks[engine.PeakMomentary][chn], -6.021)
		checkDecibel(t, "short-term peak", last.Peaks[engine.PeakShortTerm][chn], -6.021)
		checkDecibel(t, "integrated peak", last.Peaks[engine.PeakIntegrated][chn], -6.021)
	}
}

func TestMeterAccumulatesPartialChunks(t *testing.T) {
	broker := engine.NewBroker()
	meter := engine.NewMeter(broker)
	go meter.Run()
	defer meter.Close()
	broker.ToMeter <- engine.MsgToMeter{Data: constantBuffer(5000, 0.5)}
	broker.ToMeter <- engine.MsgToMeter{Data: constantBuffer(3820, 0.5)}
	done := make(chan struct{})
	broker.ToMeter <- engine.MsgToMeter{Data: func() { close(done) }}
	if _, ok := engine.TimeoutReceive(done, time.Second); !ok {
		t.Fatalf("meter did not process its queue")
	}
	results := 0
drain:
	for {
		select {
		case m := <-broker.ToModel:
			if m.HasMeterResult {
				results++
			}
		default:
			break drain
		}
	}
	if results != 2 {
		t.Fatalf("expected 8820 frames to yield 2 chunk measurements, got %v", results)
	}
}

func TestMeterReset(t *testing.T) {
	broker := engine.NewBroker()
	meter := engine.NewMeter(broker)
	go meter.Run()
	defer meter.Close()
	broker.ToMeter <- engine.MsgToMeter{Data: constantBuffer(4410, 0.5)}
	nextMeterResult(t, broker)
	// reset and quieter signal in one message: the reset applies first
	broker.ToMeter <- engine.MsgToMeter{Reset: true, Data: constantBuffer(4410, 0.25)}
	result := nextMeterResult(t, broker)
	checkDecibel(t, "max momentary RMS after reset", result.Rms[engine.RmsMaxMomentary], -15.051)
	checkDecibel(t, "integrated peak after reset", result.Peaks[engine.PeakIntegrated][0], -12.041)
}

func TestMeterScopeKeepsLatestWaveform(t *testing.T) {
	broker := engine.NewBroker()
	meter := engine.NewMeter(broker)
	go meter.Run()
	defer meter.Close()
	buf := make(kaiku.AudioBuffer, 300)
	for i := range buf {
		v := float32(i) / 1000
		buf[i] = [2]float32{v, v}
	}
	broker.ToMeter <- engine.MsgToMeter{Data: &buf}
	done := make(chan struct{})
	broker.ToMeter <- engine.MsgToMeter{Data: func() { close(done) }}
	if _, ok := engine.TimeoutReceive(done, time.Second); !ok {
		t.Fatalf("meter did not process its queue")
	}
	wave := meter.Scope().Waveform(nil)
	if len(wave) != 256 {
		t.Fatalf("expected 256 samples, got %v", len(wave))
	}
	for i, got := range wave {
		if want := float32(44+i) / 1000; got != want {
			t.Fatalf("expected sample %v to be %v, got %v", i, want, got)
		}
	}
}

func constantBuffer(frames int, level float32) *kaiku.AudioBuffer {
	buf := make(kaiku.AudioBuffer, frames)
	for i := range buf {
		buf[i] = [2]float32{level, level}
	}
	return &buf
}

func nextMeterResult(t *testing.T, broker *engine.Broker) engine.MeterResult {
	t.Helper()
	for {
		msg, ok := engine.TimeoutReceive(broker.ToModel, time.Second)
		if !ok {
			t.Fatalf("timed out waiting for a meter result")
		}
		if msg.HasMeterResult {
			return msg.MeterResult
		}
	}
}

func checkDecibel(t *testing.T, name string, got engine.Decibel, want float64) {
	t.Helper()
	if math.Abs(float64(got)-want) > 0.01 {
		t.Fatalf("expected %s %.3f dB, got %.3f dB", name, want, float64(got))
	}
}
