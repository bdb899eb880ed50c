package kaiku

import "sync/atomic"

type (
	// Uid identifies an entity. Zero is never assigned; it marks an entity
	// that has not been added to a project yet.
	Uid int

	// TrackUid identifies a track. Zero is never assigned.
	TrackUid int

	// PathUid identifies an automation path. Zero is never assigned.
	PathUid int
)

// Track uids start at 1. Entity and path uids start higher so the low numbers
// stay free for internal wiring.
const (
	FirstTrackUid  TrackUid = 1
	FirstEntityUid Uid      = 1024
	FirstPathUid   PathUid  = 1024
)

// UidFactory mints identifiers of a given uid type, counting up from a first
// value and never repeating. Minting is atomic.
type UidFactory[T ~int] struct {
	next atomic.Int64
}

func NewUidFactory[T ~int](first T) *UidFactory[T] {
	f := &UidFactory[T]{}
	f.next.Store(int64(first))
	return f
}

func NewTrackUidFactory() *UidFactory[TrackUid] { return NewUidFactory(FirstTrackUid) }
func NewEntityUidFactory() *UidFactory[Uid]     { return NewUidFactory(FirstEntityUid) }
func NewPathUidFactory() *UidFactory[PathUid]   { return NewUidFactory(FirstPathUid) }

// MintNext returns a fresh identifier.
func (f *UidFactory[T]) MintNext() T {
	return T(f.next.Add(1) - 1)
}

// NotifyExternallyMinted tells the factory that an identifier arrived from
// outside, typically from a loaded file, so that future mints stay clear of
// it.
func (f *UidFactory[T]) NotifyExternallyMinted(uid T) {
	for {
		cur := f.next.Load()
		if int64(uid) < cur {
			return
		}
		if f.next.CompareAndSwap(cur, int64(uid)+1) {
			return
		}
	}
}
