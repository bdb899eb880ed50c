package engine

import (
	"fmt"
	"slices"

	"github.com/kaikuaudio/kaiku"
)

// TrackRepository mints track uids and keeps the tracks in display order.
type TrackRepository struct {
	factory *kaiku.UidFactory[kaiku.TrackUid]
	uids    []kaiku.TrackUid
}

func NewTrackRepository() *TrackRepository {
	return &TrackRepository{factory: kaiku.NewTrackUidFactory()}
}

// CreateTrack mints a new uid and appends it to the ordered list.
func (r *TrackRepository) CreateTrack() kaiku.TrackUid {
	uid := r.factory.MintNext()
	r.uids = append(r.uids, uid)
	return uid
}

// SetTrackPosition moves an existing track to a new position in the ordered
// list. Nothing changes if the checks fail.
func (r *TrackRepository) SetTrackPosition(uid kaiku.TrackUid, newPosition int) error {
	if !slices.Contains(r.uids, uid) {
		return fmt.Errorf("track %v not found", uid)
	}
	if newPosition < 0 || newPosition > len(r.uids) {
		return fmt.Errorf("track %v's new index %v is out of bounds", uid, newPosition)
	}
	r.uids = removeUid(r.uids, uid)
	r.uids = insertUid(r.uids, newPosition, uid)
	return nil
}

// DeleteTrack forgets the uid. Deleting a uid that is not there is not an
// error.
func (r *TrackRepository) DeleteTrack(uid kaiku.TrackUid) {
	r.uids = removeUid(r.uids, uid)
}

// Uids returns the tracks in order. The slice is owned by the repository.
func (r *TrackRepository) Uids() []kaiku.TrackUid { return r.uids }

func (r *TrackRepository) MintTrackUid() kaiku.TrackUid { return r.factory.MintNext() }

func removeUid[T comparable](uids []T, uid T) []T {
	if i := slices.Index(uids, uid); i >= 0 {
		return slices.Delete(uids, i, i+1)
	}
	return uids
}

// insertUid tolerates positions past the end so that moving an element to the
// last legal index works after it was removed from the slice.
func insertUid[T comparable](uids []T, position int, uid T) []T {
	if position >= len(uids) {
		return append(uids, uid)
	}
	return slices.Insert(uids, position, uid)
}
