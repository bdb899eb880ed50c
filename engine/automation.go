package engine

import (
	"fmt"

	"github.com/kaikuaudio/kaiku"
)

// Automator manages all automation in the project: direct links from entity
// sources to target parameters, and links from owned SignalPaths to target
// parameters.
type Automator struct {
	entityLinks map[kaiku.Uid][]kaiku.ControlLink
	pathLinks   map[kaiku.PathUid][]kaiku.ControlLink
	paths       map[kaiku.PathUid]*SignalPath
	factory     *kaiku.UidFactory[kaiku.PathUid]
}

func NewAutomator() *Automator {
	return &Automator{
		entityLinks: make(map[kaiku.Uid][]kaiku.ControlLink),
		pathLinks:   make(map[kaiku.PathUid][]kaiku.ControlLink),
		paths:       make(map[kaiku.PathUid]*SignalPath),
		factory:     kaiku.NewPathUidFactory(),
	}
}

// Link connects a source entity's control output to a target's parameter.
// Linking the same pair twice stacks two links; multiple lanes may drive the
// same parameter.
func (a *Automator) Link(source, target kaiku.Uid, param kaiku.ControlIndex) {
	a.entityLinks[source] = append(a.entityLinks[source], kaiku.ControlLink{Target: target, Param: param})
}

// Unlink removes every link from source to exactly (target, param).
func (a *Automator) Unlink(source, target kaiku.Uid, param kaiku.ControlIndex) {
	a.entityLinks[source] = removeLink(a.entityLinks[source], target, param)
}

// ControlLinks returns a source's links. The slice is owned by the automator.
func (a *Automator) ControlLinks(source kaiku.Uid) []kaiku.ControlLink {
	return a.entityLinks[source]
}

// AddPath takes ownership of the path and mints a uid for it.
func (a *Automator) AddPath(path *SignalPath) kaiku.PathUid {
	uid := a.factory.MintNext()
	a.paths[uid] = path
	return uid
}

// RemovePath returns ownership of the path to the caller, along with its
// links. Nil if the uid is unknown.
func (a *Automator) RemovePath(uid kaiku.PathUid) *SignalPath {
	path := a.paths[uid]
	delete(a.paths, uid)
	delete(a.pathLinks, uid)
	return path
}

// Path returns the live path, or nil if the uid is unknown.
func (a *Automator) Path(uid kaiku.PathUid) *SignalPath { return a.paths[uid] }

// LinkPath connects an owned path's output to a target's parameter.
func (a *Automator) LinkPath(pathUid kaiku.PathUid, target kaiku.Uid, param kaiku.ControlIndex) error {
	if _, ok := a.paths[pathUid]; !ok {
		return fmt.Errorf("path %v not found", pathUid)
	}
	a.pathLinks[pathUid] = append(a.pathLinks[pathUid], kaiku.ControlLink{Target: target, Param: param})
	return nil
}

// UnlinkPath removes every link from the path to exactly (target, param).
func (a *Automator) UnlinkPath(pathUid kaiku.PathUid, target kaiku.Uid, param kaiku.ControlIndex) {
	a.pathLinks[pathUid] = removeLink(a.pathLinks[pathUid], target, param)
}

func (a *Automator) IsPathLinked(pathUid kaiku.PathUid, target kaiku.Uid, param kaiku.ControlIndex) bool {
	for _, link := range a.pathLinks[pathUid] {
		if link.Target == target && link.Param == param {
			return true
		}
	}
	return false
}

// Route updates every target parameter linked to the source with the new
// value. Routing is best-effort per link: a target that no longer exists
// fires the notFound callback, if any, and the remaining links still run.
func (a *Automator) Route(repo *EntityRepository, notFound func(kaiku.ControlLink), source kaiku.ControlLinkSource, value kaiku.ControlValue) {
	var links []kaiku.ControlLink
	if source.Entity != 0 {
		links = a.entityLinks[source.Entity]
	} else {
		links = a.pathLinks[source.Path]
	}
	for _, link := range links {
		if target := repo.Entity(link.Target); target != nil {
			target.SetControlParam(link.Param, value)
		} else if notFound != nil {
			notFound(link)
		}
	}
}

// UpdateTimeRange tells every owned path which slice of the timeline the
// next WorkAll covers.
func (a *Automator) UpdateTimeRange(rng kaiku.TimeRange) {
	for _, path := range a.paths {
		path.UpdateTimeRange(rng)
	}
}

// WorkAll runs every owned path's Work, tagging emitted events with the
// path's uid so Route can find the path's links.
func (a *Automator) WorkAll(emit func(source kaiku.PathUid, ev kaiku.WorkEvent)) {
	for uid, path := range a.paths {
		path.Work(func(ev kaiku.WorkEvent) { emit(uid, ev) })
	}
}

// Reset clears every path's broadcast memory after a seek.
func (a *Automator) Reset() {
	for _, path := range a.paths {
		path.Reset()
	}
}

func removeLink(links []kaiku.ControlLink, target kaiku.Uid, param kaiku.ControlIndex) []kaiku.ControlLink {
	kept := links[:0]
	for _, link := range links {
		if link.Target != target || link.Param != param {
			kept = append(kept, link)
		}
	}
	return kept
}
