package engine

import (
	"time"

	"github.com/kaikuaudio/kaiku"
)

// Player is the render goroutine. It owns the project: every render and
// every mutation happens here, serialized by the inbox, so the rest of the
// process only ever talks to the project through messages. The audio
// callback asks for frames with FramesRequested; the player renders exactly
// that many, pushes them to the queue and hands a copy to the meter.
type Player struct {
	broker  *Broker
	project *Project
	queue   *AudioQueue
}

func NewPlayer(broker *Broker, project *Project, queue *AudioQueue) *Player {
	return &Player{
		broker:  broker,
		project: project,
		queue:   queue,
	}
}

// Project returns the project the player renders. Callers that are not the
// render goroutine should prefer Do over touching it directly, so mutations
// stay serialized with rendering.
func (p *Player) Project() *Project { return p.project }

// Do schedules fn to run on the render goroutine, between renders. It is
// non-blocking and reports whether the function was accepted.
func (p *Player) Do(fn func(project *Project)) bool {
	return TrySend(p.broker.ToPlayer, MsgToPlayer{Data: fn})
}

// Run is the render goroutine's main loop. It exits on QuitMsg or when the
// ClosePlayer channel fires, announcing the exit by closing FinishedPlayer.
func (p *Player) Run() {
	defer close(p.broker.FinishedPlayer)
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			if quit := p.handleMessage(msg); quit {
				return
			}
		case <-p.broker.ClosePlayer:
			return
		}
	}
}

// Close asks the player goroutine to stop and waits briefly for it.
func (p *Player) Close() {
	TrySend(p.broker.ClosePlayer, struct{}{})
	_, _ = TimeoutReceive(p.broker.FinishedPlayer, 3*time.Second)
}

func (p *Player) handleMessage(msg MsgToPlayer) bool {
	if msg.HasMidi {
		if err := p.project.HandleMidiMessage(msg.MidiChannel, msg.MidiMessage); err != nil {
			TrySend(p.broker.ToModel, MsgToModel{Data: err})
		}
	}
	switch data := msg.Data.(type) {
	case IsPlayingMsg:
		if data.IsPlaying {
			p.project.Play()
			TrySend(p.broker.ToMeter, MsgToMeter{Reset: true})
		} else {
			p.project.Stop()
			p.project.AllNotesOff()
		}
		p.sendStatus()
	case PanicMsg:
		p.project.AllNotesOff()
	case SampleRateMsg:
		p.project.UpdateSampleRate(data.SampleRate)
	case TempoMsg:
		p.project.UpdateTempo(data.Tempo)
	case func(project *Project):
		data(p.project)
		p.sendStatus()
	case QuitMsg:
		return true
	}
	if msg.FramesRequested > 0 {
		p.render(msg.FramesRequested)
	}
	return false
}

// render generates the requested number of frames and moves them along: the
// audio queue gets the frames, the meter gets a copy. Rendering happens even
// while stopped, so live MIDI input stays audible; a stopped project simply
// renders near-silence cheaply.
func (p *Player) render(frames int) {
	out := p.broker.GetAudioBuffer()
	p.project.GenerateAndDispatch(frames, func(chunk []kaiku.StereoSample) {
		*out = kaiku.AppendStereo(*out, chunk)
	})
	p.queue.Push(*out)
	meterCopy := p.broker.GetAudioBuffer()
	*meterCopy = append(*meterCopy, *out...)
	if !TrySend(p.broker.ToMeter, MsgToMeter{Data: meterCopy}) {
		p.broker.PutAudioBuffer(meterCopy)
	}
	p.broker.PutAudioBuffer(out)
	p.sendStatus()
}

func (p *Player) sendStatus() {
	TrySend(p.broker.ToModel, MsgToModel{
		HasPosition: true,
		Position:    p.project.Cursor(),
		Frames:      p.project.Frames(),
		Playing:     p.project.IsPerforming(),
	})
}

// queueSource is the audio callback's view of the engine: an AudioSource
// that drains the queue and steers the renderer with backpressure. Pop never
// blocks, so the callback can't be stalled by a slow render; it gets silence
// instead, and the shortfall is reported as an underrun.
type queueSource struct {
	broker    *Broker
	queue     *AudioQueue
	requested bool
	underruns int
}

// NewAudioQueueSource returns the AudioSource the audio device should play.
// Each Read pops what the queue has, zero-fills the rest, and asks the
// player for the next batch of frames, sized by how full the queue is.
func NewAudioQueueSource(broker *Broker, queue *AudioQueue) kaiku.AudioSource {
	return &queueSource{broker: broker, queue: queue}
}

func (s *queueSource) ReadAudio(buf kaiku.AudioBuffer) error {
	missing := s.queue.Pop(buf)
	if missing > 0 && s.requested {
		s.underruns++
		TrySend(s.broker.ToModel, MsgToModel{Underruns: s.underruns})
	}
	if request := s.queue.NextRequest(len(buf)); request > 0 {
		if TrySend(s.broker.ToPlayer, MsgToPlayer{FramesRequested: request}) {
			s.requested = true
		}
	}
	return nil
}
