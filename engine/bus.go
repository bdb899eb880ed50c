package engine

import (
	"github.com/kaikuaudio/kaiku"
)

// BusRoute is one signal connection from a track to an aux track.
type BusRoute struct {
	AuxTrack kaiku.TrackUid
	Amount   kaiku.Normal
}

// BusStation manages how signals move between tracks and aux tracks.
type BusStation struct {
	routes map[kaiku.TrackUid][]BusRoute
}

func NewBusStation() *BusStation {
	return &BusStation{routes: make(map[kaiku.TrackUid][]BusRoute)}
}

// AddSend routes the source track's audio to the aux track at the given
// level. Adding the same pair twice stacks two sends.
func (b *BusStation) AddSend(src, aux kaiku.TrackUid, amount kaiku.Normal) {
	b.routes[src] = append(b.routes[src], BusRoute{AuxTrack: aux, Amount: amount})
}

// RemoveSend drops every send from src to aux. Removing a send that is not
// there is not an error.
func (b *BusStation) RemoveSend(src, aux kaiku.TrackUid) {
	routes := b.routes[src][:0]
	for _, route := range b.routes[src] {
		if route.AuxTrack != aux {
			routes = append(routes, route)
		}
	}
	b.routes[src] = routes
}

// RemoveSendsForTrack forgets the track entirely, both as a send source and
// as a destination.
func (b *BusStation) RemoveSendsForTrack(uid kaiku.TrackUid) {
	delete(b.routes, uid)
	for src := range b.routes {
		b.RemoveSend(src, uid)
	}
}

// SendsForTrack returns the track's outgoing routes. The slice is owned by
// the station.
func (b *BusStation) SendsForTrack(uid kaiku.TrackUid) []BusRoute {
	return b.routes[uid]
}
