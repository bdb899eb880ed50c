package engine

import (
	"sync"

	"github.com/kaikuaudio/kaiku"
)

// renderChunkFrames is the fixed internal render quantum. Whatever size the
// audio side asks for, the project advances time and works its entities in
// chunks of this many frames, so control events stay close to sample
// accurate and memory stays bounded.
const renderChunkFrames = 64

// Project ties the transport, the orchestrator, the automator and the MIDI
// router into one renderable piece. One goroutine renders; any other may
// mutate between renders. The mutex keeps those two roles off each other's
// toes, and every exported method takes it.
type Project struct {
	mu sync.RWMutex

	transport    *Transport
	orchestrator *Orchestrator
	automator    *Automator
	midiRouter   *MidiRouter

	// relay mirrors sequencer-generated MIDI to the outside world, for
	// driving external hardware. Live input coming from the outside is never
	// mirrored back.
	relay func(channel kaiku.MidiChannel, m kaiku.MidiMessage)

	chunk [renderChunkFrames]kaiku.StereoSample
}

func NewProject() *Project {
	return &Project{
		transport:    NewTransport(),
		orchestrator: NewOrchestrator(),
		automator:    NewAutomator(),
		midiRouter:   NewMidiRouter(),
	}
}

// SetMidiRelay sets the callback that mirrors generated MIDI to external
// hardware. A nil relay turns the mirroring off.
func (p *Project) SetMidiRelay(relay func(channel kaiku.MidiChannel, m kaiku.MidiMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.relay = relay
}

// PerformWork advances the transport by frames and runs every entity's and
// every signal path's Work for the resulting time slice, dispatching the
// collected events. If the project goes from unfinished to finished during
// the pass, playback stops by itself.
func (p *Project) PerformWork(frames int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.performWork(frames)
}

func (p *Project) performWork(frames int) {
	wasFinished := p.orchestrator.IsFinished()
	rng := p.transport.Advance(frames)
	p.orchestrator.UpdateTimeRange(rng)
	p.automator.UpdateTimeRange(rng)
	p.orchestrator.WorkAll(func(uid kaiku.Uid, ev kaiku.WorkEvent) {
		p.dispatch(kaiku.EntitySource(uid), ev)
	})
	p.automator.WorkAll(func(uid kaiku.PathUid, ev kaiku.WorkEvent) {
		p.dispatch(kaiku.PathSource(uid), ev)
	})
	if !wasFinished && p.orchestrator.IsFinished() {
		p.stop()
	}
}

// dispatch hands one work event to the part that knows what to do with it.
// Rendering degrades rather than fails, so routing problems such as MIDI
// loops end at the router; the looped message is already dropped there.
func (p *Project) dispatch(source kaiku.ControlLinkSource, ev kaiku.WorkEvent) {
	switch ev.Kind {
	case kaiku.WorkEventMidi, kaiku.WorkEventMidiForTrack:
		_ = p.midiRouter.Route(p.orchestrator.entities, ev.Channel, ev.Message)
		if p.relay != nil {
			p.relay(ev.Channel, ev.Message)
		}
	case kaiku.WorkEventControl:
		p.automator.Route(p.orchestrator.entities, nil, source, ev.Value)
	}
}

// HandleMidiMessage feeds one live MIDI message from the outside into the
// project's receivers on that channel.
func (p *Project) HandleMidiMessage(channel kaiku.MidiChannel, m kaiku.MidiMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.midiRouter.Route(p.orchestrator.entities, channel, m)
}

// AllNotesOff silences every receiver on every channel.
func (p *Project) AllNotesOff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.midiRouter.AllNotesOff(p.orchestrator.entities)
}

// GenerateAudio renders len(buf) frames into buf, which must arrive zeroed,
// and reports whether anything audible was produced. The transport advances
// accordingly.
func (p *Project) GenerateAudio(buf []kaiku.StereoSample) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generateAudio(buf)
}

func (p *Project) generateAudio(buf []kaiku.StereoSample) bool {
	p.performWork(len(buf))
	return p.orchestrator.Generate(buf)
}

// GenerateAndDispatch renders count frames in fixed-size chunks, handing
// each chunk to sink before rendering the next. This is the render-service
// entry point: count follows the audio device's appetite while the chunk
// size stays constant.
func (p *Project) GenerateAndDispatch(count int, sink func(buf []kaiku.StereoSample)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for count > 0 {
		n := min(count, renderChunkFrames)
		buf := p.chunk[:n]
		clear(buf)
		p.generateAudio(buf)
		if sink != nil {
			sink(buf)
		}
		count -= n
	}
}

// Render plays the project from its current position to the end and returns
// the audio. Rendering ends when every entity reports finished, or, for
// projects that stop performing with sound still ringing, at the first fully
// silent chunk after the stop.
func (p *Project) Render() kaiku.AudioBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.play()
	var out kaiku.AudioBuffer
	for !p.orchestrator.IsFinished() {
		buf := p.chunk[:]
		clear(buf)
		audible := p.generateAudio(buf)
		if !p.transport.IsPerforming() && !audible {
			break
		}
		out = kaiku.AppendStereo(out, buf)
	}
	return out
}

func (p *Project) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.play()
}

func (p *Project) play() {
	p.transport.Play()
	p.orchestrator.Play()
}

// Stop pauses a running performance. Stopping an already stopped project
// rewinds it to the start instead.
func (p *Project) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

func (p *Project) stop() {
	if p.transport.IsPerforming() {
		p.transport.Stop()
		p.orchestrator.Stop()
	} else {
		p.skipToStart()
	}
}

func (p *Project) SkipToStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipToStart()
}

func (p *Project) skipToStart() {
	p.transport.SkipToStart()
	p.orchestrator.SkipToStart()
	p.automator.Reset()
}

func (p *Project) IsPerforming() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.IsPerforming()
}

func (p *Project) IsFinished() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.IsFinished()
}

// Cursor returns the transport's position in the composition.
func (p *Project) Cursor() kaiku.MusicalTime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.Cursor()
}

// Frames returns how many frames the transport has committed while
// performing.
func (p *Project) Frames() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.Frames()
}

func (p *Project) SampleRate() kaiku.SampleRate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.SampleRate()
}

func (p *Project) UpdateSampleRate(rate kaiku.SampleRate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport.UpdateSampleRate(rate)
	p.orchestrator.UpdateSampleRate(rate)
}

func (p *Project) Tempo() kaiku.Tempo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.Tempo()
}

func (p *Project) UpdateTempo(tempo kaiku.Tempo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport.UpdateTempo(tempo)
	p.orchestrator.UpdateTempo(tempo)
}

func (p *Project) TimeSignature() kaiku.TimeSignature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transport.TimeSignature()
}

func (p *Project) UpdateTimeSignature(ts kaiku.TimeSignature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport.UpdateTimeSignature(ts)
	p.orchestrator.UpdateTimeSignature(ts)
}

// Reset drops all rendering state cached from earlier playback.
func (p *Project) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport.Reset()
	p.orchestrator.Reset()
	p.automator.Reset()
}

func (p *Project) CreateTrack() kaiku.TrackUid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.CreateTrack()
}

func (p *Project) CreateAuxTrack() kaiku.TrackUid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.CreateAuxTrack()
}

func (p *Project) IsAuxTrack(uid kaiku.TrackUid) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.IsAuxTrack(uid)
}

// DeleteTrack removes the track together with its entities, sends and mixer
// settings. Control links and MIDI registrations that pointed at the removed
// entities stay behind; routing skips targets it cannot find.
func (p *Project) DeleteTrack(uid kaiku.TrackUid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.DeleteTrack(uid)
}

func (p *Project) TrackUids() []kaiku.TrackUid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.TrackUids()
}

func (p *Project) SetTrackPosition(uid kaiku.TrackUid, newPosition int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.SetTrackPosition(uid, newPosition)
}

func (p *Project) AddEntity(trackUid kaiku.TrackUid, e kaiku.Entity) (kaiku.Uid, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.AddEntity(trackUid, e)
}

func (p *Project) MoveEntity(uid kaiku.Uid, newTrack kaiku.TrackUid, newPosition int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.MoveEntity(uid, newTrack, newPosition)
}

// RemoveEntity hands the entity back to the caller.
func (p *Project) RemoveEntity(uid kaiku.Uid) (kaiku.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orchestrator.RemoveEntity(uid)
}

func (p *Project) DeleteEntity(uid kaiku.Uid) error {
	_, err := p.RemoveEntity(uid)
	return err
}

func (p *Project) Entity(uid kaiku.Uid) kaiku.Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.Entity(uid)
}

func (p *Project) EntityUids(trackUid kaiku.TrackUid) []kaiku.Uid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.EntityUids(trackUid)
}

func (p *Project) TrackForEntity(uid kaiku.Uid) kaiku.TrackUid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.TrackForEntity(uid)
}

func (p *Project) AddSend(src, aux kaiku.TrackUid, amount kaiku.Normal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.AddSend(src, aux, amount)
}

func (p *Project) RemoveSend(src, aux kaiku.TrackUid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.RemoveSend(src, aux)
}

func (p *Project) Humidity(uid kaiku.Uid) kaiku.Normal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.Humidity(uid)
}

func (p *Project) SetHumidity(uid kaiku.Uid, humidity kaiku.Normal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.SetHumidity(uid, humidity)
}

func (p *Project) TrackOutput(uid kaiku.TrackUid) kaiku.Normal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.TrackOutput(uid)
}

func (p *Project) SetTrackOutput(uid kaiku.TrackUid, output kaiku.Normal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.SetTrackOutput(uid, output)
}

func (p *Project) MuteTrack(uid kaiku.TrackUid, muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.MuteTrack(uid, muted)
}

func (p *Project) IsTrackMuted(uid kaiku.TrackUid) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.IsTrackMuted(uid)
}

func (p *Project) SoloTrack() kaiku.TrackUid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orchestrator.SoloTrack()
}

func (p *Project) SetSoloTrack(uid kaiku.TrackUid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.SetSoloTrack(uid)
}

func (p *Project) Link(source, target kaiku.Uid, param kaiku.ControlIndex) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.automator.Link(source, target, param)
}

func (p *Project) Unlink(source, target kaiku.Uid, param kaiku.ControlIndex) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.automator.Unlink(source, target, param)
}

func (p *Project) AddPath(path *SignalPath) kaiku.PathUid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.automator.AddPath(path)
}

func (p *Project) RemovePath(uid kaiku.PathUid) *SignalPath {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.automator.RemovePath(uid)
}

func (p *Project) Path(uid kaiku.PathUid) *SignalPath {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.automator.Path(uid)
}

func (p *Project) LinkPath(pathUid kaiku.PathUid, target kaiku.Uid, param kaiku.ControlIndex) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.automator.LinkPath(pathUid, target, param)
}

func (p *Project) UnlinkPath(pathUid kaiku.PathUid, target kaiku.Uid, param kaiku.ControlIndex) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.automator.UnlinkPath(pathUid, target, param)
}

func (p *Project) SetMidiReceiverChannel(uid kaiku.Uid, channel kaiku.MidiChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.midiRouter.SetMidiReceiverChannel(uid, channel)
}

func (p *Project) ClearMidiReceiver(uid kaiku.Uid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.midiRouter.ClearMidiReceiver(uid)
}

func (p *Project) MidiReceiverChannel(uid kaiku.Uid) (kaiku.MidiChannel, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.midiRouter.ChannelFor(uid)
}

func (p *Project) BeforeSave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.BeforeSave()
}

func (p *Project) AfterLoad() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orchestrator.AfterLoad()
	p.midiRouter.AfterLoad()
}
