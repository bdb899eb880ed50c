package engine

import (
	"fmt"

	"github.com/kaikuaudio/kaiku"
)

// MidiRouter keeps the virtual connections between MIDI senders and
// receivers. Receivers listen on channels; a message routed to a channel
// reaches every receiver on it, and whatever the receivers relay is routed
// in turn.
type MidiRouter struct {
	receivers  map[kaiku.MidiChannel][]kaiku.Uid
	channelFor map[kaiku.Uid]kaiku.MidiChannel
}

func NewMidiRouter() *MidiRouter {
	return &MidiRouter{
		receivers:  make(map[kaiku.MidiChannel][]kaiku.Uid),
		channelFor: make(map[kaiku.Uid]kaiku.MidiChannel),
	}
}

// SetMidiReceiverChannel makes the entity listen on the channel, in addition
// to any channel it is already on. The reverse map remembers the latest
// channel only.
func (r *MidiRouter) SetMidiReceiverChannel(uid kaiku.Uid, channel kaiku.MidiChannel) {
	r.receivers[channel] = append(r.receivers[channel], uid)
	r.channelFor[uid] = channel
}

// ClearMidiReceiver removes the entity from every channel it listens on.
func (r *MidiRouter) ClearMidiReceiver(uid kaiku.Uid) {
	for channel := range r.receivers {
		r.receivers[channel] = removeUid(r.receivers[channel], uid)
	}
	delete(r.channelFor, uid)
}

// ChannelFor returns the channel the entity last subscribed to.
func (r *MidiRouter) ChannelFor(uid kaiku.Uid) (kaiku.MidiChannel, bool) {
	channel, ok := r.channelFor[uid]
	return channel, ok
}

// Route delivers the message to every receiver on the channel. Messages a
// receiver relays to a different channel join a work list and are routed
// breadth-first after the current channel's receivers are done. A relay back
// onto the channel the receiver was invoked on is a self-loop: the looped
// message is dropped, the rest of the route still runs, and the call reports
// the loop once the work list drains. Deliveries made before the loop was
// found stand.
func (r *MidiRouter) Route(repo *EntityRepository, channel kaiku.MidiChannel, message kaiku.MidiMessage) error {
	type channelMessage struct {
		channel kaiku.MidiChannel
		message kaiku.MidiMessage
	}
	loopDetected := false
	var loopChannel kaiku.MidiChannel
	work := []channelMessage{{channel, message}}
	for len(work) > 0 {
		current := work[0]
		work = work[1:]
		for _, uid := range r.receivers[current.channel] {
			entity := repo.Entity(uid)
			if entity == nil {
				continue
			}
			entity.HandleMidiMessage(current.channel, current.message, func(c kaiku.MidiChannel, m kaiku.MidiMessage) {
				if c != current.channel {
					work = append(work, channelMessage{c, m})
				} else if !loopDetected {
					loopDetected = true
					loopChannel = c
				}
			})
		}
	}
	if loopDetected {
		return fmt.Errorf("MIDI loop: a receiver on channel %v relayed back onto its own channel", loopChannel)
	}
	return nil
}

// AllNotesOff sends the all-notes-off control change to every channel.
// Per-channel routing errors are ignored; silencing is best-effort.
func (r *MidiRouter) AllNotesOff(repo *EntityRepository) {
	for channel := 0; channel < kaiku.MidiChannelCount; channel++ {
		_ = r.Route(repo, kaiku.MidiChannel(channel), kaiku.AllNotesOffMessage())
	}
}

// Receivers returns the uids listening on the channel. The slice is owned by
// the router.
func (r *MidiRouter) Receivers(channel kaiku.MidiChannel) []kaiku.Uid {
	return r.receivers[channel]
}

// AfterLoad rebuilds the reverse map from the channel lists.
func (r *MidiRouter) AfterLoad() {
	clear(r.channelFor)
	for channel, uids := range r.receivers {
		for _, uid := range uids {
			r.channelFor[uid] = channel
		}
	}
}
