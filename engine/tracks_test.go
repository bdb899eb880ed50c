package engine_test

import (
	"slices"
	"testing"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/engine"
)

func TestTrackRepositoryOrder(t *testing.T) {
	r := engine.NewTrackRepository()
	a := r.CreateTrack()
	b := r.CreateTrack()
	c := r.CreateTrack()
	if a == b || b == c {
		t.Fatalf("uids not unique: %v %v %v", a, b, c)
	}
	if want := []kaiku.TrackUid{a, b, c}; !slices.Equal(r.Uids(), want) {
		t.Fatalf("creation order: got %v expected %v", r.Uids(), want)
	}

	if err := r.SetTrackPosition(c, 0); err != nil {
		t.Fatalf("SetTrackPosition failed: %v", err)
	}
	if want := []kaiku.TrackUid{c, a, b}; !slices.Equal(r.Uids(), want) {
		t.Errorf("after move to front: got %v expected %v", r.Uids(), want)
	}

	r.DeleteTrack(a)
	if want := []kaiku.TrackUid{c, b}; !slices.Equal(r.Uids(), want) {
		t.Errorf("after delete: got %v expected %v", r.Uids(), want)
	}
	r.DeleteTrack(a) // deleting twice is not an error
}

func TestTrackRepositoryMoveErrors(t *testing.T) {
	r := engine.NewTrackRepository()
	a := r.CreateTrack()
	if err := r.SetTrackPosition(a+100, 0); err == nil {
		t.Error("moving an unknown track did not fail")
	}
	if err := r.SetTrackPosition(a, 2); err == nil {
		t.Error("moving out of bounds did not fail")
	}
	if want := []kaiku.TrackUid{a}; !slices.Equal(r.Uids(), want) {
		t.Errorf("failed moves changed the order: got %v", r.Uids())
	}
}

func TestTrackUidsAreNeverReused(t *testing.T) {
	r := engine.NewTrackRepository()
	a := r.CreateTrack()
	r.DeleteTrack(a)
	b := r.CreateTrack()
	if b == a {
		t.Errorf("uid %v was reused", a)
	}
}
